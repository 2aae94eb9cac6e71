// Package storage implements the paged file manager: the substrate that
// presents a single backing file as an array of fixed-size pages and
// performs direct, unbuffered reads and writes against it.
package storage

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PageSize is the fixed size, in bytes, of every page in the file.
const PageSize = 4096

// PageID identifies a page by its zero-based position in the file.
type PageID int64

// ErrShortIO is wrapped into any error raised by a read or write that did
// not move exactly PageSize bytes.
var ErrShortIO = errors.New("short page read or write")

// Page is a fixed PageSize-byte buffer. It carries no interpretation of
// its own; slotted is the package that gives it structure.
type Page [PageSize]byte

// File owns the single backing file and exposes it as an array of pages.
// It performs no buffering of its own: every Read/Write is a direct
// seek+read or seek+write+flush against the OS file, matching the
// "whatever reached disk" durability contract of the storage substrate.
type File struct {
	f    *os.File
	path string
	log  *logrus.Entry
}

// Open opens path for read/write access, creating it (with a single
// zero-filled page already present, so page 0 always exists) if absent.
func Open(path string, log *logrus.Logger) (*File, error) {
	if log == nil {
		log = discardLogger()
	}
	entry := log.WithField("component", "storage").WithField("path", path)

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	file := &File{f: f, path: path, log: entry}

	if isNew {
		entry.Debug("creating new paged file with initial zero page")
		var zero Page
		if err := file.WritePage(0, &zero); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "writing initial page 0")
		}
	}

	return file, nil
}

// NumPages returns the current number of pages in the file.
func (file *File) NumPages() (int64, error) {
	info, err := file.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat paged file")
	}
	return info.Size() / PageSize, nil
}

// AllocatePage appends one zero-filled page and returns its id, equal to
// the page count the file had before the append.
func (file *File) AllocatePage() (PageID, error) {
	n, err := file.NumPages()
	if err != nil {
		return 0, err
	}

	id := PageID(n)
	var zero Page
	if err := file.WritePage(id, &zero); err != nil {
		return 0, errors.Wrapf(err, "allocating page %d", id)
	}

	file.log.WithField("page", id).Debug("allocated page")
	return id, nil
}

// ReadPage reads the full contents of page id into dst.
func (file *File) ReadPage(id PageID, dst *Page) error {
	n, err := file.f.ReadAt(dst[:], int64(id)*PageSize)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "reading page %d", id)
	}
	if n != PageSize {
		return errors.Wrapf(ErrShortIO, "reading page %d: read %d of %d bytes", id, n, PageSize)
	}
	return nil
}

// WritePage writes the full contents of src to page id and flushes.
func (file *File) WritePage(id PageID, src *Page) error {
	n, err := file.f.WriteAt(src[:], int64(id)*PageSize)
	if err != nil {
		return errors.Wrapf(err, "writing page %d", id)
	}
	if n != PageSize {
		return errors.Wrapf(ErrShortIO, "writing page %d: wrote %d of %d bytes", id, n, PageSize)
	}
	return file.Flush()
}

// Flush forces any pending writes to the OS.
func (file *File) Flush() error {
	if err := file.f.Sync(); err != nil {
		return errors.Wrap(err, "flushing paged file")
	}
	return nil
}

// Close flushes and closes the backing file.
func (file *File) Close() error {
	if err := file.Flush(); err != nil {
		return err
	}
	return file.f.Close()
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
