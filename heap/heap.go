// Package heap implements the slotted-page record manager: it assigns
// and decodes record identifiers and performs insert/get/update/delete
// on top of storage.File and slotted, using first-fit page selection.
package heap

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/luigitni/coredb/dberr"
	"github.com/luigitni/coredb/slotted"
	"github.com/luigitni/coredb/storage"
)

// RecordID packs a (page, slot) pair into a single opaque 32-bit
// integer: (page_id << 16) | (slot_id & 0xFFFF). It is stable for as
// long as the record is not relocated by a growing update.
type RecordID int32

// Encode packs a page id and slot index into a RecordID.
func Encode(page storage.PageID, slot int) RecordID {
	v := (uint32(page) << 16) | (uint32(slot) & 0xFFFF)
	return RecordID(int32(v))
}

// Decode splits a RecordID back into its page id and slot index.
func Decode(id RecordID) (storage.PageID, int) {
	v := uint32(int32(id))
	return storage.PageID(v >> 16), int(v & 0xFFFF)
}

// Heap is the record manager: a forward-growing, never-compacted set of
// slotted pages backed by a single storage.File.
type Heap struct {
	file *storage.File
	log  *logrus.Entry
}

// New wraps file as a record heap.
func New(file *storage.File, log *logrus.Logger) *Heap {
	if log == nil {
		log = discardLogger()
	}
	return &Heap{file: file, log: log.WithField("component", "heap")}
}

// InsertRecord finds the first page (scanning from page 0 upward) with
// enough free space for payload, initializing uninitialized pages in
// place, allocating a fresh page if none fits, and returns the new
// record's id.
func (h *Heap) InsertRecord(payload []byte) (RecordID, error) {
	needed := 4 + len(payload)

	numPages, err := h.file.NumPages()
	if err != nil {
		return 0, errors.Wrap(dberr.IO, err.Error())
	}

	var page storage.Page
	for id := storage.PageID(0); id < storage.PageID(numPages); id++ {
		if err := h.file.ReadPage(id, &page); err != nil {
			return 0, errors.Wrap(dberr.IO, err.Error())
		}

		if slotted.IsUninitialized(&page) {
			slotted.Init(&page)
		}

		if slotted.Available(&page) < needed {
			continue
		}

		slot, err := slotted.Insert(&page, payload)
		if err != nil {
			// Available already checked; this should not happen, but
			// surface it distinctly rather than silently continuing.
			return 0, errors.Wrap(dberr.OutOfSpace, err.Error())
		}

		if err := h.file.WritePage(id, &page); err != nil {
			return 0, errors.Wrap(dberr.IO, err.Error())
		}

		h.log.WithFields(logrus.Fields{"page": id, "slot": slot}).Debug("inserted record into existing page")
		return Encode(id, slot), nil
	}

	id, err := h.file.AllocatePage()
	if err != nil {
		return 0, errors.Wrap(dberr.OutOfSpace, err.Error())
	}

	slotted.Init(&page)
	slot, err := slotted.Insert(&page, payload)
	if err != nil {
		return 0, errors.Wrap(dberr.OutOfSpace, err.Error())
	}

	if err := h.file.WritePage(id, &page); err != nil {
		return 0, errors.Wrap(dberr.IO, err.Error())
	}

	h.log.WithFields(logrus.Fields{"page": id, "slot": slot}).Debug("inserted record into newly allocated page")
	return Encode(id, slot), nil
}

// GetRecord decodes id, reads its page, and returns the live payload
// stored at its slot.
func (h *Heap) GetRecord(id RecordID) ([]byte, error) {
	pageID, slot := Decode(id)

	numPages, err := h.file.NumPages()
	if err != nil {
		return nil, errors.Wrap(dberr.IO, err.Error())
	}
	if pageID < 0 || pageID >= storage.PageID(numPages) {
		return nil, errors.Wrapf(dberr.NotFound, "page %d out of range", pageID)
	}

	var page storage.Page
	if err := h.file.ReadPage(pageID, &page); err != nil {
		return nil, errors.Wrap(dberr.IO, err.Error())
	}

	payload, err := slotted.Get(&page, slot)
	if err != nil {
		return nil, errors.Wrapf(dberr.NotFound, "record %d: %s", id, err.Error())
	}

	return payload, nil
}

// DeleteRecord tombstones the slot backing id. Deleting an
// already-tombstoned slot is a no-op, logged as a warning, not an error.
func (h *Heap) DeleteRecord(id RecordID) error {
	pageID, slot := Decode(id)

	var page storage.Page
	if err := h.file.ReadPage(pageID, &page); err != nil {
		return errors.Wrap(dberr.IO, err.Error())
	}

	if slot >= slotted.SlotCount(&page) {
		return errors.Wrapf(dberr.NotFound, "record %d", id)
	}

	if slotted.IsTombstone(&page, slot) {
		h.log.WithField("record", id).Warn("deleting an already-tombstoned record")
		return nil
	}

	if err := slotted.Tombstone(&page, slot); err != nil {
		return errors.Wrapf(dberr.NotFound, "record %d: %s", id, err.Error())
	}

	if err := h.file.WritePage(pageID, &page); err != nil {
		return errors.Wrap(dberr.IO, err.Error())
	}

	h.log.WithField("record", id).Debug("tombstoned record")
	return nil
}

// UpdateRecord rewrites the record at id with payload. If payload fits
// within the slot's currently recorded length (see slotted.SlotLength),
// the update happens in place and id
// is unchanged. Otherwise the old slot is tombstoned and payload is
// inserted as a new record, whose (different) id is returned.
func (h *Heap) UpdateRecord(id RecordID, payload []byte) (RecordID, error) {
	pageID, slot := Decode(id)

	var page storage.Page
	if err := h.file.ReadPage(pageID, &page); err != nil {
		return 0, errors.Wrap(dberr.IO, err.Error())
	}

	originalLength, err := slotted.SlotLength(&page, slot)
	if err != nil {
		return 0, errors.Wrapf(dberr.NotFound, "record %d: %s", id, err.Error())
	}

	if len(payload) <= originalLength {
		if err := slotted.UpdateInPlace(&page, slot, payload); err != nil {
			return 0, errors.Wrapf(dberr.NotFound, "record %d: %s", id, err.Error())
		}
		if err := h.file.WritePage(pageID, &page); err != nil {
			return 0, errors.Wrap(dberr.IO, err.Error())
		}
		h.log.WithField("record", id).Debug("updated record in place")
		return id, nil
	}

	if err := slotted.Tombstone(&page, slot); err != nil {
		return 0, errors.Wrapf(dberr.NotFound, "record %d: %s", id, err.Error())
	}
	if err := h.file.WritePage(pageID, &page); err != nil {
		return 0, errors.Wrap(dberr.IO, err.Error())
	}

	newID, err := h.InsertRecord(payload)
	if err != nil {
		return 0, err
	}

	h.log.WithFields(logrus.Fields{"old": id, "new": newID}).Debug("update outgrew slot, relocated record")
	return newID, nil
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
