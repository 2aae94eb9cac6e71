// Package table composes the catalog, heap, index and record scanner
// into the table layer: it enforces schema arity, serializes tuples as
// table-tagged delimited records, and keeps the index layer consistent
// with the heap on insert and update.
package table

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/luigitni/coredb/catalog"
	"github.com/luigitni/coredb/dberr"
	"github.com/luigitni/coredb/heap"
	"github.com/luigitni/coredb/index"
	"github.com/luigitni/coredb/recscan"
	"github.com/luigitni/coredb/storage"
)

// schemaPrefix matches catalog's schema tag: the wire-format contract
// from spec §6, duplicated here (not imported) because the table layer
// distinguishes schema records from data records on the raw heap
// without depending on the catalog package's internals.
const schemaPrefix = "SCHEMA|"

// AllRows is the record id sentinel meaning "every row of the table",
// accepted by DeleteFrom.
const AllRows heap.RecordID = -1

// Table is the table layer: schema-enforced tuple storage over a shared
// heap, with secondary indexes kept in sync on insert and update.
type Table struct {
	file    *storage.File
	heap    *heap.Heap
	catalog *catalog.Catalog
	index   *index.Index
	log     *logrus.Entry
}

// New wires together the table layer's collaborators.
func New(file *storage.File, h *heap.Heap, cat *catalog.Catalog, ix *index.Index, log *logrus.Logger) *Table {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Table{
		file:    file,
		heap:    h,
		catalog: cat,
		index:   ix,
		log:     log.WithField("component", "table"),
	}
}

// InsertInto validates values against table's schema, stores the tagged
// tuple in the heap, and mirrors each column value into the index
// layer.
func (t *Table) InsertInto(table string, values []string) (heap.RecordID, error) {
	schema := t.catalog.GetSchema(table)
	if schema.Empty() {
		return 0, errors.Wrapf(dberr.NotFound, "table %q", table)
	}
	if len(values) != len(schema.Columns) {
		return 0, errors.Wrapf(dberr.InvalidArgument, "table %q: expected %d values, got %d", table, len(schema.Columns), len(values))
	}

	payload := table + "|" + strings.Join(values, "|")
	rid, err := t.heap.InsertRecord([]byte(payload))
	if err != nil {
		return 0, err
	}

	for i, col := range schema.Columns {
		t.index.InsertEntry(table, col, values[i], rid)
	}

	t.log.WithFields(logrus.Fields{"table": table, "record": rid}).Debug("inserted row")
	return rid, nil
}

// DeleteFrom deletes a single record (rid >= 0) or, when rid ==
// AllRows, every data record belonging to table. The all-rows case
// collects ids with a full scan before deleting any of them: deleting
// while the scanner is mid-page would invalidate it (spec §9).
func (t *Table) DeleteFrom(table string, rid heap.RecordID) (bool, error) {
	if rid != AllRows {
		if err := t.heap.DeleteRecord(rid); err != nil {
			return false, err
		}
		return true, nil
	}

	scanner, err := recscan.New(t.file)
	if err != nil {
		return false, err
	}

	prefix := table + "|"
	var toDelete []heap.RecordID
	for scanner.HasNext() {
		payload, id, ok := scanner.Next()
		if !ok {
			break
		}
		s := string(payload)
		if strings.HasPrefix(s, schemaPrefix) || !strings.HasPrefix(s, prefix) {
			continue
		}
		toDelete = append(toDelete, id)
	}

	for _, id := range toDelete {
		if err := t.heap.DeleteRecord(id); err != nil {
			return false, err
		}
	}

	t.log.WithFields(logrus.Fields{"table": table, "count": len(toDelete)}).Debug("deleted all rows")
	return true, nil
}

// Update replaces rid's values, re-indexing the old values out and the
// new ones in. When the heap relocates the record (the new payload
// outgrows the original slot), re-indexing uses the new id returned by
// the heap, per spec §9's corrected contract — the original prototype's
// bug of re-indexing against the stale id is not reproduced here.
func (t *Table) Update(table string, rid heap.RecordID, newValues []string) (bool, error) {
	schema := t.catalog.GetSchema(table)
	if schema.Empty() {
		return false, errors.Wrapf(dberr.NotFound, "table %q", table)
	}
	if len(newValues) != len(schema.Columns) {
		return false, errors.Wrapf(dberr.InvalidArgument, "table %q: expected %d values, got %d", table, len(schema.Columns), len(newValues))
	}

	old, err := t.heap.GetRecord(rid)
	if err != nil {
		return false, err
	}

	prefix := table + "|"
	oldStr := string(old)
	if !strings.HasPrefix(oldStr, prefix) {
		return false, errors.Wrapf(dberr.InvalidArgument, "record %d does not belong to table %q", rid, table)
	}

	oldValues := strings.Split(oldStr[len(prefix):], "|")
	for i, col := range schema.Columns {
		if i < len(oldValues) {
			t.index.DeleteEntry(table, col, oldValues[i], rid)
		}
	}

	newPayload := prefix + strings.Join(newValues, "|")
	newID, err := t.heap.UpdateRecord(rid, []byte(newPayload))
	if err != nil {
		return false, err
	}

	for i, col := range schema.Columns {
		t.index.InsertEntry(table, col, newValues[i], newID)
	}

	t.log.WithFields(logrus.Fields{"table": table, "old": rid, "new": newID}).Debug("updated row")
	return true, nil
}

// Select is a pass-through to the heap: it returns the raw, still
// table-tagged payload for rid.
func (t *Table) Select(table string, rid heap.RecordID) ([]byte, error) {
	return t.heap.GetRecord(rid)
}

// Scan returns every live data record belonging to table, with the
// "<table>|" tag stripped.
func (t *Table) Scan(table string) ([][]byte, error) {
	scanner, err := recscan.New(t.file)
	if err != nil {
		return nil, err
	}

	prefix := table + "|"
	var out [][]byte
	for scanner.HasNext() {
		payload, _, ok := scanner.Next()
		if !ok {
			break
		}
		s := string(payload)
		if strings.HasPrefix(s, schemaPrefix) || !strings.HasPrefix(s, prefix) {
			continue
		}
		out = append(out, []byte(s[len(prefix):]))
	}

	return out, nil
}
