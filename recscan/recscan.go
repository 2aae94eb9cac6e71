// Package recscan implements the forward record iterator: a
// single-pass, non-restartable cursor over every live record in a
// paged file, in (page ascending, slot ascending) order.
package recscan

import (
	"github.com/pkg/errors"

	"github.com/luigitni/coredb/dberr"
	"github.com/luigitni/coredb/heap"
	"github.com/luigitni/coredb/slotted"
	"github.com/luigitni/coredb/storage"
)

// Scanner is a forward cursor over all live records in a storage.File.
// It holds a single page image at a time; it does not observe mutations
// made through a heap.Heap while it is live (see spec §9, "iterator
// invalidation").
type Scanner struct {
	file   *storage.File
	page   storage.Page
	pageID storage.PageID
	slot   int
	done   bool
}

// New opens a scanner over file, positioned at the first live record.
// An empty file still exposes page 0 (the paged file constructor
// guarantees it); New loads it, finds no live slot on it and no page
// after it, and so returns a scanner whose HasNext is already false.
func New(file *storage.File) (*Scanner, error) {
	s := &Scanner{file: file}

	numPages, err := file.NumPages()
	if err != nil {
		return nil, errors.Wrap(dberr.IO, err.Error())
	}
	if numPages == 0 {
		s.done = true
		return s, nil
	}

	if err := file.ReadPage(0, &s.page); err != nil {
		s.done = true
		return s, nil
	}

	s.advanceToLive()
	return s, nil
}

// advanceToLive moves the cursor forward from its current position
// until it rests on a live slot or runs out of pages.
func (s *Scanner) advanceToLive() {
	for {
		if s.done {
			return
		}

		if s.slot >= slotted.SlotCount(&s.page) {
			next := s.pageID + 1
			if err := s.file.ReadPage(next, &s.page); err != nil {
				s.done = true
				return
			}
			s.pageID = next
			s.slot = 0
			continue
		}

		if slotted.IsTombstone(&s.page, s.slot) {
			s.slot++
			continue
		}

		return
	}
}

// HasNext reports whether the cursor has not yet exhausted all pages.
func (s *Scanner) HasNext() bool {
	return !s.done
}

// NextWithLocation returns the next live record together with its
// (page, slot) location and advances the cursor. When exhausted it
// returns the sentinel (nil, -1, -1).
func (s *Scanner) NextWithLocation() ([]byte, storage.PageID, int) {
	if s.done {
		return nil, -1, -1
	}

	payload, err := slotted.Get(&s.page, s.slot)
	if err != nil {
		// advanceToLive only stops on a slot it already confirmed is
		// live, so this should not happen; treat it as end-of-stream
		// rather than propagating a panic-worthy inconsistency.
		s.done = true
		return nil, -1, -1
	}

	pageID, slot := s.pageID, s.slot
	s.slot++
	s.advanceToLive()

	return payload, pageID, slot
}

// Next is NextWithLocation with the location already packed into a
// heap.RecordID, for callers (catalog, table) that only care about the
// record identifier.
func (s *Scanner) Next() ([]byte, heap.RecordID, bool) {
	payload, pageID, slot := s.NextWithLocation()
	if pageID == -1 {
		return nil, 0, false
	}
	return payload, heap.Encode(pageID, slot), true
}
