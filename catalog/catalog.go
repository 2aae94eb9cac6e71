// Package catalog persists table schemas as ordinary, tagged records in
// the shared heap and keeps an in-memory cache of them keyed by table
// name, hydrated by a full heap scan at open time.
package catalog

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/luigitni/coredb/dberr"
	"github.com/luigitni/coredb/heap"
	"github.com/luigitni/coredb/recscan"
	"github.com/luigitni/coredb/storage"
)

// schemaTag prefixes every schema record; any other payload is a data
// record and is skipped while loading the catalog.
const schemaTag = "SCHEMA|"

// Schema is a (table name, ordered column list) pair.
type Schema struct {
	Name    string
	Columns []string
}

// Empty reports whether s is the zero schema, the sentinel get_schema
// returns for a table the catalog has never heard of.
func (s Schema) Empty() bool {
	return s.Name == ""
}

// Serialize renders s in its canonical on-disk form:
// SCHEMA|<table_name>|<col0>,<col1>,...,<colN-1>.
func (s Schema) Serialize() string {
	return schemaTag + s.Name + "|" + strings.Join(s.Columns, ",")
}

// deserialize parses a schema record payload. A payload that does not
// start with schemaTag is not a schema record at all and is reported as
// such so the caller can skip it without treating it as malformed.
func deserialize(payload string) (Schema, bool, error) {
	if !strings.HasPrefix(payload, schemaTag) {
		return Schema{}, false, nil
	}

	rest := payload[len(schemaTag):]
	sep := strings.IndexByte(rest, '|')
	if sep < 0 {
		return Schema{}, true, errors.Wrapf(dberr.InvalidArgument, "malformed schema record %q: missing column separator", payload)
	}

	name := rest[:sep]
	colsPart := rest[sep+1:]

	var columns []string
	if colsPart != "" {
		columns = strings.Split(colsPart, ",")
	}

	return Schema{Name: name, Columns: columns}, true, nil
}

// DataDeleter is the narrow capability Catalog needs from the table
// layer to fulfil drop_table's "wipe this table's data" step, without
// creating a compile-time dependency from catalog on table (control
// flow stays strictly downward: table depends on catalog, not the
// other way around). The engine wires a *table.Table in as the
// DataDeleter after both are constructed.
type DataDeleter interface {
	DeleteFrom(table string, rid heap.RecordID) (bool, error)
}

// Catalog persists schemas in the shared heap and caches them in memory.
type Catalog struct {
	file    *storage.File
	heap    *heap.Heap
	cache   map[string]Schema
	deleter DataDeleter
	log     *logrus.Entry
}

// Open constructs a Catalog and immediately hydrates its cache by
// scanning file for schema records.
func Open(file *storage.File, h *heap.Heap, log *logrus.Logger) (*Catalog, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	c := &Catalog{
		file:  file,
		heap:  h,
		cache: make(map[string]Schema),
		log:   log.WithField("component", "catalog"),
	}

	if err := c.loadCatalog(); err != nil {
		return nil, err
	}

	return c, nil
}

// SetDataDeleter wires in the component that can wipe a table's data
// records; see DataDeleter's doc comment.
func (c *Catalog) SetDataDeleter(d DataDeleter) {
	c.deleter = d
}

func (c *Catalog) loadCatalog() error {
	scanner, err := recscan.New(c.file)
	if err != nil {
		return err
	}

	count := 0
	for scanner.HasNext() {
		payload, _, ok := scanner.Next()
		if !ok {
			break
		}

		schema, isSchema, err := deserialize(string(payload))
		if !isSchema {
			continue
		}
		if err != nil {
			c.log.WithError(err).Warn("skipping malformed schema record")
			continue
		}

		c.cache[schema.Name] = schema
		count++
	}

	c.log.WithField("count", count).Debug("loaded table schemas into cache")
	return nil
}

// CreateTable registers a new table, persisting its schema as a record
// in the shared heap. It fails with dberr.AlreadyExists if name is
// already known.
func (c *Catalog) CreateTable(name string, columns []string) (bool, error) {
	if _, exists := c.cache[name]; exists {
		return false, errors.Wrapf(dberr.AlreadyExists, "table %q", name)
	}

	schema := Schema{Name: name, Columns: columns}
	if _, err := c.heap.InsertRecord([]byte(schema.Serialize())); err != nil {
		return false, err
	}

	c.cache[name] = schema
	c.log.WithFields(logrus.Fields{"table": name, "columns": columns}).Debug("created table")
	return true, nil
}

// DropTable removes name's schema record and cache entry, and — if a
// DataDeleter has been wired in — deletes every data record belonging
// to the table. It fails with dberr.NotFound if name is unknown.
func (c *Catalog) DropTable(name string) (bool, error) {
	schema, exists := c.cache[name]
	if !exists {
		return false, errors.Wrapf(dberr.NotFound, "table %q", name)
	}

	serialized := schema.Serialize()

	scanner, err := recscan.New(c.file)
	if err != nil {
		return false, err
	}

	found := false
	for scanner.HasNext() {
		payload, rid, ok := scanner.Next()
		if !ok {
			break
		}
		if string(payload) == serialized {
			if err := c.heap.DeleteRecord(rid); err != nil {
				return false, err
			}
			found = true
			break
		}
	}

	if !found {
		return false, errors.Wrapf(dberr.NotFound, "schema record for table %q", name)
	}

	if c.deleter != nil {
		if _, err := c.deleter.DeleteFrom(name, -1); err != nil {
			return false, err
		}
	}

	delete(c.cache, name)
	c.log.WithField("table", name).Debug("dropped table")
	return true, nil
}

// GetSchema returns name's schema, or the zero Schema if name is
// unknown (check Schema.Empty()).
func (c *Catalog) GetSchema(name string) Schema {
	return c.cache[name]
}

// ListTables returns the names of every table currently in the catalog.
func (c *Catalog) ListTables() []string {
	names := make([]string, 0, len(c.cache))
	for name := range c.cache {
		names = append(names, name)
	}
	return names
}

// ColumnExists reports whether col is one of name's columns.
func (c *Catalog) ColumnExists(name, col string) bool {
	schema, exists := c.cache[name]
	if !exists {
		return false
	}
	for _, c := range schema.Columns {
		if c == col {
			return true
		}
	}
	return false
}
