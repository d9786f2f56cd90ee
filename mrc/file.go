package mrc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/structbio/go-mrc/internal/backend"
	"github.com/structbio/go-mrc/internal/format"
)

// File is an open MRC file: an Object bound to a storage backend.
//
// Mutations are applied to the in-memory model (or, for memory-mapped
// files, directly to the mapping) and reach the file on Flush or Close.
type File struct {
	*Object
	path    string
	backend backend.Backend
	mapped  bool
	closed  bool
}

// Open opens an MRC file, read-only unless the ReadWrite option is given.
//
// The backend is chosen by explicit option if present, otherwise by
// content: a file carrying the map ID at the standard offset is read as a
// plain MRC file, and gzip or bzip2 magic selects the matching compressed
// backend.
func Open(path string, opts ...Option) (*File, error) {
	o := applyOptions(opts)

	kind := o.backend
	if kind == AutoBackend {
		var err error
		if kind, err = sniffBackend(path); err != nil {
			return nil, err
		}
	}

	var b backend.Backend
	var err error
	switch kind {
	case GzipBackend:
		b, err = backend.OpenBuffer(path, backend.GzipCodec{}, !o.readWrite)
	case Bzip2Backend:
		b, err = backend.OpenBuffer(path, backend.Bzip2Codec{}, !o.readWrite)
	default:
		b, err = backend.OpenFile(path, !o.readWrite)
	}
	if err != nil {
		return nil, err
	}

	return finishOpen(path, b, o, false)
}

// Mmap opens an MRC file through a memory mapping. The data block is a
// live view over the file bytes: element writes reach the file without an
// explicit flush, though header changes still need one.
func Mmap(path string, opts ...Option) (*File, error) {
	o := applyOptions(opts)
	b, err := backend.OpenMmap(path, !o.readWrite)
	if err != nil {
		if errors.Is(err, backend.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, path)
		}
		return nil, err
	}
	return finishOpen(path, b, o, true)
}

// finishOpen runs the interpreter over a freshly opened backend and wraps
// the result, closing the backend on any failure.
func finishOpen(path string, b backend.Backend, o *openOptions, mapped bool) (*File, error) {
	obj, err := readObject(b, o.permissive)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	obj.keepFloat16 = o.keepFloat16
	return &File{Object: obj, path: path, backend: b, mapped: mapped}, nil
}

// New creates a new empty MRC file open for writing. The backend is
// chosen by explicit option if present, otherwise by suffix: .gz selects
// gzip, .bz2 selects bzip2. Unless the Overwrite option is given, an
// existing file at the same path fails with ErrExists.
func New(path string, opts ...Option) (*File, error) {
	o := applyOptions(opts)

	kind := o.backend
	if kind == AutoBackend {
		switch {
		case strings.HasSuffix(path, ".gz"):
			kind = GzipBackend
		case strings.HasSuffix(path, ".bz2"):
			kind = Bzip2Backend
		default:
			kind = PlainBackend
		}
	}

	var b backend.Backend
	var err error
	switch kind {
	case GzipBackend:
		b, err = backend.CreateBuffer(path, backend.GzipCodec{}, o.overwrite)
	case Bzip2Backend:
		b, err = backend.CreateBuffer(path, backend.Bzip2Codec{}, o.overwrite)
	default:
		b, err = backend.CreateFile(path, o.overwrite)
	}
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s (use the Overwrite option to replace it)", ErrExists, path)
		}
		return nil, err
	}

	obj := newObject(memStorage{})
	obj.keepFloat16 = o.keepFloat16
	return &File{Object: obj, path: path, backend: b}, nil
}

// NewMmap creates a memory-mapped MRC file of the given shape and element
// type directly at its final size. The size is claimed with a truncate
// call, so creating a very large file is cheap; the data block is
// zero-filled by the platform and is only written element-by-element when
// the WithFill option asks for a specific fill value.
//
// Statistics are left undetermined; call UpdateHeaderStats once the data
// is in place.
func NewMmap(path string, dims []int, dtype DType, opts ...Option) (*File, error) {
	o := applyOptions(opts)

	var mode Mode
	var err error
	if o.keepFloat16 {
		mode, err = format.ModeFromDTypeKeepFloat16(dtype)
	} else {
		mode, err = format.ModeFromDType(dtype)
	}
	if err != nil {
		return nil, err
	}
	stored, err := format.DTypeFromMode(mode)
	if err != nil {
		return nil, err
	}
	n, err := elementCount(dims)
	if err != nil {
		return nil, err
	}
	dataLen := n * int64(stored.Size())

	b, err := backend.CreateMmap(path, format.HeaderSize+dataLen, o.overwrite)
	if err != nil {
		switch {
		case os.IsExist(err):
			return nil, fmt.Errorf("%w: %s (use the Overwrite option to replace it)", ErrExists, path)
		case errors.Is(err, backend.ErrTooLarge):
			return nil, fmt.Errorf("%w: %d data bytes", ErrFileTooLarge, dataLen)
		}
		return nil, err
	}

	obj := newObject(nil)
	obj.keepFloat16 = o.keepFloat16
	obj.store = &mmapStorage{b: b, o: obj}

	raw := b.Bytes()[format.HeaderSize:]
	data, err := newArray(stored, dims, obj.header.order, raw)
	if err != nil {
		b.Close()
		os.Remove(path)
		return nil, err
	}
	obj.data = data
	if err := obj.UpdateHeaderFromData(); err != nil {
		b.Close()
		os.Remove(path)
		return nil, err
	}

	if o.fill != nil {
		fillArray(data, *o.fill)
	}

	f := &File{Object: obj, path: path, backend: b, mapped: true}
	if err := f.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return f, nil
}

// fillArray writes the given value to every element.
func fillArray(a *Array, v float64) {
	for i := 0; i < a.Len(); i++ {
		switch a.DType() {
		case Int8:
			a.SetInt8At(i, int8(v))
		case Int16:
			a.SetInt16At(i, int16(v))
		case Uint16:
			a.SetUint16At(i, uint16(v))
		case Float16:
			a.SetFloat16At(i, float32(v))
		case Float32:
			a.SetFloat32At(i, float32(v))
		case Complex64:
			a.SetComplex64At(i, complex(float32(v), 0))
		}
	}
}

// sniffBackend picks a backend from the file contents, preferring the map
// ID check so a plain MRC file whose dimensions happen to mimic a
// compression magic number is not misread.
func sniffBackend(path string) (BackendKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return AutoBackend, err
	}
	defer f.Close()

	head := make([]byte, format.MapIDOffset+4)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return AutoBackend, err
	}
	head = head[:n]

	if len(head) >= format.MapIDOffset+4 &&
		string(head[format.MapIDOffset:format.MapIDOffset+4]) == format.MapID {
		return PlainBackend, nil
	}
	if len(head) >= 2 {
		if head[0] == 0x1f && head[1] == 0x8b {
			return GzipBackend, nil
		}
		if head[0] == 'B' && head[1] == 'Z' {
			return Bzip2Backend, nil
		}
	}
	return PlainBackend, nil
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Flush writes the current header, extended header and data to the
// underlying stream. Flushing a read-only file is a no-op. Flush is
// idempotent: with no intervening mutation a second call produces
// byte-identical output.
func (f *File) Flush() error {
	if f.closed {
		return ErrClosed
	}
	if f.readOnly {
		return nil
	}
	if f.mapped {
		// Extended header and data live in the mapping already; only the
		// header record needs serializing.
		if _, err := f.backend.WriteAt(f.header.marshal(), 0); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		return f.backend.Sync()
	}
	if err := writeObject(f.backend, f.Object); err != nil {
		return err
	}
	return f.backend.Sync()
}

// Close flushes pending state if the file is writable, then releases the
// backend. Closing twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	if !f.readOnly {
		if err := f.Flush(); err != nil {
			f.closed = true
			f.backend.Close()
			return err
		}
	}
	f.closed = true
	return f.backend.Close()
}
