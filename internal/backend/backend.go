// Package backend supplies the storage under an open MRC file.
//
// Three implementations share one contract: [File] for plain files,
// [Buffer] for gzip- and bzip2-compressed files (which cannot seek and are
// therefore fully materialised in memory), and [Mmap] for memory-mapped
// files. The interpreter layer is written against [Backend] and does not
// know which variant it is driving, except that the mapped backend
// additionally exposes its region through [Mapper] so data can be seated
// directly over the file bytes.
package backend

import (
	"errors"
	"io"
)

// Backend is the common storage contract.
type Backend interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the current length of the stored byte stream.
	Size() (int64, error)

	// Truncate resizes the stored byte stream, preserving the prefix.
	Truncate(size int64) error

	// Sync makes all pending writes durable. For buffered backends this
	// re-encodes the full stream.
	Sync() error

	// Close releases the backend. Writable backends sync first.
	// Closing twice is a no-op.
	Close() error

	// ReadOnly reports whether writes are rejected.
	ReadOnly() bool
}

// Mapper is implemented by backends whose bytes can be addressed directly.
type Mapper interface {
	// Bytes returns a live view over the full stored region. The slice is
	// invalidated by Truncate.
	Bytes() []byte
}

// Errors shared by the backend implementations.
var (
	ErrReadOnly = errors.New("backend is read-only")
	ErrClosed   = errors.New("backend is closed")
	ErrTooLarge = errors.New("required size exceeds backend limits")
)
