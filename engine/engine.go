// Package engine wires the storage, heap, catalog, index and table
// layers into a single host-facing entry point. It is the only package
// an embedder is expected to import directly.
package engine

import (
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/luigitni/coredb/catalog"
	"github.com/luigitni/coredb/heap"
	"github.com/luigitni/coredb/index"
	"github.com/luigitni/coredb/storage"
	"github.com/luigitni/coredb/table"
)

// Options configures an Engine. There is no config-file loader: spec
// scope is a single-process, single-user engine, and the handful of
// knobs below are passed directly by the embedding program.
type Options struct {
	// Path is the backing file's path on disk.
	Path string
	// Log receives structured log output. A discarding logger is used
	// if nil.
	Log *logrus.Logger
}

// Engine is the storage engine's single entry point: it owns the
// backing file and exposes the catalog and table operations over it.
// Every Engine carries a random instance id, attached as a logrus field
// to the lines the engine itself logs (on open and close), so that
// those lines from multiple engines running in the same process (as in
// tests) can be told apart. The storage, heap, catalog and table layers
// log through the bare logger and do not carry the instance id.
type Engine struct {
	id   uuid.UUID
	file *storage.File
	heap *heap.Heap
	cat  *catalog.Catalog
	ix   *index.Index
	tbl  *table.Table
	log  *logrus.Entry
}

// Open opens (creating if absent) the backing file at opts.Path and
// wires together a ready-to-use Engine.
func Open(opts Options) (*Engine, error) {
	log := opts.Log
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	id := uuid.New()
	entry := log.WithFields(logrus.Fields{"component": "engine", "instance": id})

	f, err := storage.Open(opts.Path, log)
	if err != nil {
		return nil, err
	}

	h := heap.New(f, log)

	cat, err := catalog.Open(f, h, log)
	if err != nil {
		f.Close()
		return nil, err
	}

	ix := index.New()
	tbl := table.New(f, h, cat, ix, log)
	cat.SetDataDeleter(tbl)

	entry.WithField("tables", len(cat.ListTables())).Info("engine ready")

	return &Engine{
		id:   id,
		file: f,
		heap: h,
		cat:  cat,
		ix:   ix,
		tbl:  tbl,
		log:  entry,
	}, nil
}

// Close flushes and closes the backing file.
func (e *Engine) Close() error {
	e.log.Info("closing engine")
	return e.file.Close()
}

// ID returns the engine's instance id.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// CreateTable registers a new table with the given columns.
func (e *Engine) CreateTable(name string, columns []string) (bool, error) {
	return e.cat.CreateTable(name, columns)
}

// DropTable removes a table's schema and every one of its data records.
func (e *Engine) DropTable(name string) (bool, error) {
	return e.cat.DropTable(name)
}

// ListTables returns the names of every table currently registered.
func (e *Engine) ListTables() []string {
	return e.cat.ListTables()
}

// Schema returns name's schema (zero value, check Schema.Empty, if
// name is unknown).
func (e *Engine) Schema(name string) catalog.Schema {
	return e.cat.GetSchema(name)
}

// CreateIndex registers a secondary index on table.col. Existing rows
// are not back-filled; only rows inserted or updated after the index
// is created are reflected in it.
func (e *Engine) CreateIndex(table, col string) {
	e.ix.CreateIndex(table, col)
}

// DropIndex removes table.col's secondary index.
func (e *Engine) DropIndex(table, col string) {
	e.ix.DropIndex(table, col)
}

// InsertInto inserts a row into table, returning its record id.
func (e *Engine) InsertInto(table string, values []string) (heap.RecordID, error) {
	return e.tbl.InsertInto(table, values)
}

// DeleteFrom deletes a single record (rid) or, when rid == table.AllRows,
// every data record belonging to table.
func (e *Engine) DeleteFrom(tbl string, rid heap.RecordID) (bool, error) {
	return e.tbl.DeleteFrom(tbl, rid)
}

// Update replaces rid's values with newValues.
func (e *Engine) Update(table string, rid heap.RecordID, newValues []string) (bool, error) {
	return e.tbl.Update(table, rid, newValues)
}

// Select returns the raw, table-tagged payload stored at rid.
func (e *Engine) Select(table string, rid heap.RecordID) ([]byte, error) {
	return e.tbl.Select(table, rid)
}

// Scan returns every live row belonging to table, tag stripped.
func (e *Engine) Scan(table string) ([][]byte, error) {
	return e.tbl.Scan(table)
}

// SearchIndex returns every record id stored for value in table.col.
func (e *Engine) SearchIndex(table, col, value string) []heap.RecordID {
	return e.ix.Search(table, col, value)
}

// RangeSearchIndex returns every record id whose value falls within
// [lo, hi] lexicographically, for table.col.
func (e *Engine) RangeSearchIndex(table, col, lo, hi string) []heap.RecordID {
	return e.ix.RangeSearch(table, col, lo, hi)
}
