package slotted_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luigitni/coredb/slotted"
	"github.com/luigitni/coredb/storage"
)

func TestInitEmptyPage(t *testing.T) {
	var page storage.Page
	slotted.Init(&page)

	assert.Equal(t, 0, slotted.SlotCount(&page))
	assert.Equal(t, storage.PageSize-4, slotted.Available(&page))
}

func TestInsertGetRoundTrip(t *testing.T) {
	var page storage.Page
	slotted.Init(&page)

	slot, err := slotted.Insert(&page, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	got, err := slotted.Get(&page, slot)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestInsertMultipleRecordsPreserveSlotOrder(t *testing.T) {
	var page storage.Page
	slotted.Init(&page)

	s0, _ := slotted.Insert(&page, []byte("aaa"))
	s1, _ := slotted.Insert(&page, []byte("bb"))
	s2, _ := slotted.Insert(&page, []byte("c"))

	assert.Equal(t, []int{0, 1, 2}, []int{s0, s1, s2})

	v0, _ := slotted.Get(&page, s0)
	v1, _ := slotted.Get(&page, s1)
	v2, _ := slotted.Get(&page, s2)

	assert.Equal(t, []byte("aaa"), v0)
	assert.Equal(t, []byte("bb"), v1)
	assert.Equal(t, []byte("c"), v2)
}

func TestInsertFailsWhenOutOfSpace(t *testing.T) {
	var page storage.Page
	slotted.Init(&page)

	big := make([]byte, storage.PageSize)
	_, err := slotted.Insert(&page, big)
	assert.ErrorIs(t, err, slotted.ErrNoSpace)
}

func TestGetTombstonedSlotFails(t *testing.T) {
	var page storage.Page
	slotted.Init(&page)

	slot, err := slotted.Insert(&page, []byte("gone"))
	require.NoError(t, err)

	require.NoError(t, slotted.Tombstone(&page, slot))

	_, err = slotted.Get(&page, slot)
	assert.ErrorIs(t, err, slotted.ErrTombstoned)
}

func TestGetSlotOutOfRangeFails(t *testing.T) {
	var page storage.Page
	slotted.Init(&page)

	_, err := slotted.Get(&page, 3)
	assert.ErrorIs(t, err, slotted.ErrSlotOutOfRange)
}

func TestUpdateInPlaceShrinks(t *testing.T) {
	var page storage.Page
	slotted.Init(&page)

	slot, err := slotted.Insert(&page, []byte("AAAAA"))
	require.NoError(t, err)

	require.NoError(t, slotted.UpdateInPlace(&page, slot, []byte("BB")))

	got, err := slotted.Get(&page, slot)
	require.NoError(t, err)
	assert.Equal(t, []byte("BB"), got)
}

func TestUpdateInPlaceRejectsGrowth(t *testing.T) {
	var page storage.Page
	slotted.Init(&page)

	slot, err := slotted.Insert(&page, []byte("AA"))
	require.NoError(t, err)

	err = slotted.UpdateInPlace(&page, slot, []byte("AAAAAAAAAA"))
	assert.ErrorIs(t, err, slotted.ErrPayloadTooLarge)
}

func TestTombstoneIndexIsStable(t *testing.T) {
	var page storage.Page
	slotted.Init(&page)

	s0, _ := slotted.Insert(&page, []byte("first"))
	require.NoError(t, slotted.Tombstone(&page, s0))

	s1, err := slotted.Insert(&page, []byte("second"))
	require.NoError(t, err)

	assert.Equal(t, 1, s1)
	assert.True(t, slotted.IsTombstone(&page, s0))

	got, err := slotted.Get(&page, s1)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestIsUninitializedDetectsFreshPage(t *testing.T) {
	var page storage.Page
	assert.True(t, slotted.IsUninitialized(&page))

	slotted.Init(&page)
	assert.False(t, slotted.IsUninitialized(&page))
}
