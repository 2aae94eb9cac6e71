// Package slotted implements the byte-level layout of a single page: a
// small header and a slot directory growing forward from the start of
// the page, record payloads growing backward from the end. All
// operations here are pure and in-memory; nothing in this package ever
// touches disk.
package slotted

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/luigitni/coredb/storage"
)

const (
	headerSize    = 4 // slot_count(2) + free_offset(2)
	slotEntrySize = 4 // offset(2) + length(2)

	// tombstoneOffset marks a slot whose record has been deleted.
	tombstoneOffset = 0xFFFF
)

var (
	// ErrNoSpace is returned by Insert when the page cannot fit the
	// slot entry plus the payload.
	ErrNoSpace = errors.New("slotted page: not enough free space")
	// ErrSlotOutOfRange is returned when a slot index has never been
	// allocated on this page.
	ErrSlotOutOfRange = errors.New("slotted page: slot index out of range")
	// ErrTombstoned is returned by Get when the slot is tombstoned.
	ErrTombstoned = errors.New("slotted page: slot is tombstoned")
	// ErrPayloadTooLarge is returned by UpdateInPlace when the new
	// payload does not fit in the slot's original space.
	ErrPayloadTooLarge = errors.New("slotted page: new payload exceeds original slot length")
)

// Init resets page to an empty slotted page: zero slots, free space
// spanning the whole page.
func Init(page *storage.Page) {
	putUint16(page, 0, 0)
	putUint16(page, 2, storage.PageSize)
}

// SlotCount returns the number of slot-directory entries ever created on
// page, tombstones included.
func SlotCount(page *storage.Page) int {
	return int(getUint16(page, 0))
}

// freeOffset returns the byte offset of the lowest payload byte
// currently written.
func freeOffset(page *storage.Page) int {
	return int(getUint16(page, 2))
}

// Available returns the number of free bytes between the end of the
// slot directory and the start of the payload region.
func Available(page *storage.Page) int {
	slotCount := SlotCount(page)
	return freeOffset(page) - (headerSize + slotEntrySize*slotCount)
}

func slotEntryOffset(slot int) int {
	return headerSize + slotEntrySize*slot
}

func readSlotEntry(page *storage.Page, slot int) (offset, length int) {
	base := slotEntryOffset(slot)
	return int(getUint16(page, base)), int(getUint16(page, base+2))
}

func writeSlotEntry(page *storage.Page, slot, offset, length int) {
	base := slotEntryOffset(slot)
	putUint16(page, base, uint16(offset))
	putUint16(page, base+2, uint16(length))
}

// IsUninitialized reports whether page has never been formatted: the
// Record Heap treats such a page (slot_count == 0 and free_offset == 0)
// as available for first-fit allocation even before Init has run.
func IsUninitialized(page *storage.Page) bool {
	return SlotCount(page) == 0 && freeOffset(page) == 0
}

// IsTombstone reports whether slot is a tombstone: offset == 0xFFFF and
// length == 0.
func IsTombstone(page *storage.Page, slot int) bool {
	offset, length := readSlotEntry(page, slot)
	return offset == tombstoneOffset && length == 0
}

// Insert appends payload to the page: it writes the bytes at the new
// lowest free offset and appends a slot-directory entry pointing at
// them, returning the new slot's index.
func Insert(page *storage.Page, payload []byte) (int, error) {
	needed := slotEntrySize + len(payload)
	if Available(page) < needed {
		return 0, ErrNoSpace
	}

	slotCount := SlotCount(page)
	newFreeOffset := freeOffset(page) - len(payload)

	copy(page[newFreeOffset:newFreeOffset+len(payload)], payload)
	writeSlotEntry(page, slotCount, newFreeOffset, len(payload))

	putUint16(page, 0, uint16(slotCount+1))
	putUint16(page, 2, uint16(newFreeOffset))

	return slotCount, nil
}

// Get returns the payload bytes stored at slot, failing if the slot was
// never allocated, is tombstoned, or its recorded extent would run off
// the end of the page.
func Get(page *storage.Page, slot int) ([]byte, error) {
	if slot < 0 || slot >= SlotCount(page) {
		return nil, errors.Wrapf(ErrSlotOutOfRange, "slot %d", slot)
	}

	offset, length := readSlotEntry(page, slot)
	if offset == tombstoneOffset || length == 0 {
		return nil, errors.Wrapf(ErrTombstoned, "slot %d", slot)
	}
	if offset+length > storage.PageSize {
		return nil, errors.Wrapf(ErrSlotOutOfRange, "slot %d extent runs past page end", slot)
	}

	out := make([]byte, length)
	copy(out, page[offset:offset+length])
	return out, nil
}

// Tombstone marks slot as deleted without reclaiming its payload space
// or its slot index. Tombstoning an already-tombstoned slot is a no-op.
func Tombstone(page *storage.Page, slot int) error {
	if slot < 0 || slot >= SlotCount(page) {
		return errors.Wrapf(ErrSlotOutOfRange, "slot %d", slot)
	}
	writeSlotEntry(page, slot, tombstoneOffset, 0)
	return nil
}

// UpdateInPlace rewrites the payload at slot's existing offset,
// provided newPayload is no longer than the slot's currently recorded
// length (which an earlier shrinking update may have reduced).
func UpdateInPlace(page *storage.Page, slot int, newPayload []byte) error {
	if slot < 0 || slot >= SlotCount(page) {
		return errors.Wrapf(ErrSlotOutOfRange, "slot %d", slot)
	}

	offset, length := readSlotEntry(page, slot)
	if offset == tombstoneOffset || length == 0 {
		return errors.Wrapf(ErrTombstoned, "slot %d", slot)
	}
	if len(newPayload) > length {
		return ErrPayloadTooLarge
	}

	copy(page[offset:offset+len(newPayload)], newPayload)
	writeSlotEntry(page, slot, offset, len(newPayload))
	return nil
}

// SlotLength returns the length currently recorded in slot's directory
// entry. UpdateInPlace overwrites it with the new payload's length, and
// a tombstoned slot reports 0.
func SlotLength(page *storage.Page, slot int) (int, error) {
	if slot < 0 || slot >= SlotCount(page) {
		return 0, errors.Wrapf(ErrSlotOutOfRange, "slot %d", slot)
	}
	_, length := readSlotEntry(page, slot)
	return length, nil
}

func getUint16(page *storage.Page, offset int) uint16 {
	return binary.LittleEndian.Uint16(page[offset : offset+2])
}

func putUint16(page *storage.Page, offset int, v uint16) {
	binary.LittleEndian.PutUint16(page[offset:offset+2], v)
}
