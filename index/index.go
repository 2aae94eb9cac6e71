// Package index implements the process-local secondary index layer: a
// table -> column -> ordered(value -> record id set) mapping, with
// exact-match and lexicographic range lookup. Indexes are never
// persisted; they mirror the heap only for as long as the process runs
// and the table layer keeps inserting into them.
package index

import (
	"sort"

	"github.com/google/btree"

	"github.com/luigitni/coredb/heap"
)

// entry is one value's worth of record ids, ordered in the btree by
// Value.
type entry struct {
	Value string
	IDs   map[heap.RecordID]struct{}
}

func less(a, b entry) bool {
	return a.Value < b.Value
}

// Index is the table -> column -> ordered value map.
type Index struct {
	tables map[string]map[string]*btree.BTreeG[entry]
}

// New returns an empty index layer.
func New() *Index {
	return &Index{tables: make(map[string]map[string]*btree.BTreeG[entry])}
}

// CreateIndex registers an empty ordered value map for (table, col).
func (ix *Index) CreateIndex(table, col string) {
	cols, ok := ix.tables[table]
	if !ok {
		cols = make(map[string]*btree.BTreeG[entry])
		ix.tables[table] = cols
	}
	cols[col] = btree.NewG(32, less)
}

// DropIndex removes (table, col)'s index, and the table's entry too if
// it becomes empty.
func (ix *Index) DropIndex(table, col string) {
	cols, ok := ix.tables[table]
	if !ok {
		return
	}
	delete(cols, col)
	if len(cols) == 0 {
		delete(ix.tables, table)
	}
}

// HasIndex reports whether (table, col) has a registered index.
func (ix *Index) HasIndex(table, col string) bool {
	cols, ok := ix.tables[table]
	if !ok {
		return false
	}
	_, ok = cols[col]
	return ok
}

func (ix *Index) tree(table, col string) *btree.BTreeG[entry] {
	cols, ok := ix.tables[table]
	if !ok {
		return nil
	}
	return cols[col]
}

// InsertEntry records that value appears in (table, col) for record id.
// It is a no-op if (table, col) has no registered index.
func (ix *Index) InsertEntry(table, col, value string, id heap.RecordID) {
	tr := ix.tree(table, col)
	if tr == nil {
		return
	}

	e, found := tr.Get(entry{Value: value})
	if !found {
		e = entry{Value: value, IDs: make(map[heap.RecordID]struct{})}
	}
	e.IDs[id] = struct{}{}
	tr.ReplaceOrInsert(e)
}

// DeleteEntry removes id from value's set in (table, col). When the
// value's set becomes empty, the value key itself is erased.
func (ix *Index) DeleteEntry(table, col, value string, id heap.RecordID) {
	tr := ix.tree(table, col)
	if tr == nil {
		return
	}

	e, found := tr.Get(entry{Value: value})
	if !found {
		return
	}

	delete(e.IDs, id)
	if len(e.IDs) == 0 {
		tr.Delete(e)
		return
	}
	tr.ReplaceOrInsert(e)
}

// Search returns every record id stored for value in (table, col).
func (ix *Index) Search(table, col, value string) []heap.RecordID {
	tr := ix.tree(table, col)
	if tr == nil {
		return nil
	}

	e, found := tr.Get(entry{Value: value})
	if !found {
		return nil
	}
	return idSlice(e.IDs)
}

// RangeSearch returns every record id whose value v satisfies
// lo <= v <= hi lexicographically, concatenated in ascending value
// order; the ids of one value come in ascending id order.
func (ix *Index) RangeSearch(table, col, lo, hi string) []heap.RecordID {
	tr := ix.tree(table, col)
	if tr == nil {
		return nil
	}

	var ids []heap.RecordID
	tr.AscendGreaterOrEqual(entry{Value: lo}, func(e entry) bool {
		if e.Value > hi {
			return false
		}
		ids = append(ids, idSlice(e.IDs)...)
		return true
	})
	return ids
}

func idSlice(ids map[heap.RecordID]struct{}) []heap.RecordID {
	out := make([]heap.RecordID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
