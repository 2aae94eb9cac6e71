package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luigitni/coredb/heap"
	"github.com/luigitni/coredb/index"
)

func TestSearchWithoutIndexReturnsNil(t *testing.T) {
	ix := index.New()
	assert.Nil(t, ix.Search("k", "v", "a"))
}

func TestInsertAndSearch(t *testing.T) {
	ix := index.New()
	ix.CreateIndex("k", "v")

	r1 := heap.Encode(0, 0)
	r2 := heap.Encode(0, 1)
	r3 := heap.Encode(0, 2)
	r4 := heap.Encode(0, 3)

	ix.InsertEntry("k", "v", "a", r1)
	ix.InsertEntry("k", "v", "b", r2)
	ix.InsertEntry("k", "v", "c", r3)
	ix.InsertEntry("k", "v", "b", r4)

	got := ix.Search("k", "v", "b")
	assert.ElementsMatch(t, []heap.RecordID{r2, r4}, got)
}

func TestRangeSearchIsAscendingByValue(t *testing.T) {
	ix := index.New()
	ix.CreateIndex("k", "v")

	r1 := heap.Encode(0, 0)
	r2 := heap.Encode(0, 1)
	r3 := heap.Encode(0, 2)
	r4 := heap.Encode(0, 3)

	ix.InsertEntry("k", "v", "a", r1)
	ix.InsertEntry("k", "v", "b", r2)
	ix.InsertEntry("k", "v", "c", r3)
	ix.InsertEntry("k", "v", "b", r4)

	got := ix.RangeSearch("k", "v", "a", "b")
	assert.Len(t, got, 3)
	assert.Contains(t, got, r1)
	assert.Contains(t, got, r2)
	assert.Contains(t, got, r4)
	assert.NotContains(t, got, r3)
	assert.Equal(t, []heap.RecordID{r1, r2, r4}, got)
}

func TestDeleteEntryRemovesValueWhenEmpty(t *testing.T) {
	ix := index.New()
	ix.CreateIndex("k", "v")

	r1 := heap.Encode(0, 0)
	ix.InsertEntry("k", "v", "a", r1)
	ix.DeleteEntry("k", "v", "a", r1)

	assert.Empty(t, ix.Search("k", "v", "a"))
	assert.Empty(t, ix.RangeSearch("k", "v", "a", "z"))
}

func TestDropIndexRemovesTableWhenLastColumnDropped(t *testing.T) {
	ix := index.New()
	ix.CreateIndex("k", "v")
	assert.True(t, ix.HasIndex("k", "v"))

	ix.DropIndex("k", "v")
	assert.False(t, ix.HasIndex("k", "v"))

	// Inserting after drop is a no-op, not a panic.
	ix.InsertEntry("k", "v", "a", heap.Encode(0, 0))
	assert.Empty(t, ix.Search("k", "v", "a"))
}
