// Package dberr defines the error kinds shared across the storage
// engine, matching spec §7: I/O failures from the paged file propagate
// distinctly from logical failures (a caller that cannot find a record
// must be able to tell that apart from a broken disk).
package dberr

import "github.com/pkg/errors"

var (
	// IO wraps a failed or short page read/write, or a failed file open.
	IO = errors.New("io error")
	// OutOfSpace means no page could accept a record and allocating a
	// new one failed.
	OutOfSpace = errors.New("out of space")
	// NotFound means a record id pointed at a tombstoned or
	// never-created slot, or a schema name is absent from the catalog.
	NotFound = errors.New("not found")
	// InvalidArgument means an arity mismatch, a malformed record
	// identifier, or a malformed schema record.
	InvalidArgument = errors.New("invalid argument")
	// AlreadyExists means create_table was called on a known table name.
	AlreadyExists = errors.New("already exists")
)
