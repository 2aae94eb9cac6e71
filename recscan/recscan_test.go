package recscan_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luigitni/coredb/heap"
	"github.com/luigitni/coredb/recscan"
	"github.com/luigitni/coredb/storage"
)

func TestEmptyFileYieldsNoRecords(t *testing.T) {
	f, err := storage.Open(filepath.Join(t.TempDir(), "data.db"), nil)
	require.NoError(t, err)
	defer f.Close()

	s, err := recscan.New(f)
	require.NoError(t, err)

	assert.False(t, s.HasNext())
	payload, page, slot := s.NextWithLocation()
	assert.Nil(t, payload)
	assert.EqualValues(t, -1, page)
	assert.EqualValues(t, -1, slot)
	assert.False(t, s.HasNext())
}

func TestScanSkipsTombstonesAndYieldsAllLive(t *testing.T) {
	f, err := storage.Open(filepath.Join(t.TempDir(), "data.db"), nil)
	require.NoError(t, err)
	defer f.Close()

	h := heap.New(f, nil)

	ids := make([]heap.RecordID, 0, 5)
	for i := 0; i < 5; i++ {
		id, err := h.InsertRecord([]byte{byte('a' + i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, h.DeleteRecord(ids[1]))
	require.NoError(t, h.DeleteRecord(ids[3]))

	s, err := recscan.New(f)
	require.NoError(t, err)

	var got []string
	for s.HasNext() {
		payload, _, _ := s.NextWithLocation()
		if payload == nil {
			break
		}
		got = append(got, string(payload))
	}

	assert.ElementsMatch(t, []string{"a", "c", "e"}, got)
}

func TestScanIsSinglePass(t *testing.T) {
	f, err := storage.Open(filepath.Join(t.TempDir(), "data.db"), nil)
	require.NoError(t, err)
	defer f.Close()

	h := heap.New(f, nil)
	_, err = h.InsertRecord([]byte("only"))
	require.NoError(t, err)

	s, err := recscan.New(f)
	require.NoError(t, err)

	count := 0
	for s.HasNext() {
		payload, _, _ := s.NextWithLocation()
		if payload == nil {
			break
		}
		count++
	}
	assert.Equal(t, 1, count)
	assert.False(t, s.HasNext())
}

func TestScanAcrossMultiplePages(t *testing.T) {
	f, err := storage.Open(filepath.Join(t.TempDir(), "data.db"), nil)
	require.NoError(t, err)
	defer f.Close()

	h := heap.New(f, nil)
	big := make([]byte, 2000)
	for i := 0; i < 10; i++ {
		_, err := h.InsertRecord(big)
		require.NoError(t, err)
	}

	s, err := recscan.New(f)
	require.NoError(t, err)

	count := 0
	for s.HasNext() {
		payload, _, _ := s.NextWithLocation()
		if payload == nil {
			break
		}
		count++
	}
	assert.Equal(t, 10, count)
}
