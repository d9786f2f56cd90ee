package mrc

import (
	"errors"

	"github.com/structbio/go-mrc/internal/format"
)

// Structural errors. In permissive mode these four are downgraded to
// accumulated diagnostics instead of aborting the open.
var (
	// ErrFormat means the map ID string was not found where expected.
	ErrFormat = errors.New("map ID string not found - not an MRC file, or file is corrupt")

	// ErrMachineStamp means the byte-order marker matched neither
	// recognised value.
	ErrMachineStamp = format.ErrMachineStamp

	// ErrUnknownMode means the header's mode field is outside the
	// supported set.
	ErrUnknownMode = errors.New("unknown MRC mode")

	// ErrSizeMismatch means the data length implied by the header exceeds
	// the bytes actually present in the stream.
	ErrSizeMismatch = errors.New("data block declared in header exceeds stream size")
)

// Caller-misuse and platform-limit errors. These abort regardless of
// permissive mode.
var (
	// ErrUnsupportedType means a data element type with no MRC mode
	// mapping was supplied.
	ErrUnsupportedType = format.ErrUnsupportedType

	// ErrUnsupportedMode means a mode with no element type mapping was
	// requested.
	ErrUnsupportedMode = format.ErrUnsupportedMode

	// ErrInvalidRank means the data array rank is outside 2-4.
	ErrInvalidRank = errors.New("data must be 2-, 3- or 4-dimensional")

	// ErrInvalidState means a 3D-only interpretation method was called on
	// data of a different rank.
	ErrInvalidState = errors.New("only 3D data can switch between image stack and volume")

	// ErrReadOnly means a mutation was attempted on a read-only file.
	ErrReadOnly = errors.New("MRC object is read-only")

	// ErrExists means create-new was attempted without overwrite on an
	// existing path.
	ErrExists = errors.New("file already exists")

	// ErrFileTooLarge means the required file size exceeds an open or
	// allocation limit.
	ErrFileTooLarge = errors.New("file size exceeds platform limits")

	// ErrClosed means the file has already been closed.
	ErrClosed = errors.New("file is closed")
)
