package backend

import (
	"fmt"
	"os"
)

// File is the plain-file backend, a thin wrapper over *os.File.
type File struct {
	f        *os.File
	readOnly bool
	closed   bool
}

// OpenFile opens an existing file.
func OpenFile(path string, readOnly bool) (*File, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	return &File{f: f, readOnly: readOnly}, nil
}

// CreateFile creates a new empty file. Unless overwrite is set, an
// existing file at the same path is an error.
func CreateFile(path string, overwrite bool) (*File, error) {
	flag := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag = os.O_RDWR | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o666)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

func (b *File) ReadAt(p []byte, off int64) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	return b.f.ReadAt(p, off)
}

func (b *File) WriteAt(p []byte, off int64) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if b.readOnly {
		return 0, ErrReadOnly
	}
	return b.f.WriteAt(p, off)
}

func (b *File) Size() (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}
	info, err := b.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (b *File) Truncate(size int64) error {
	if b.closed {
		return ErrClosed
	}
	if b.readOnly {
		return ErrReadOnly
	}
	return b.f.Truncate(size)
}

func (b *File) Sync() error {
	if b.closed {
		return ErrClosed
	}
	if b.readOnly {
		return nil
	}
	return b.f.Sync()
}

func (b *File) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if !b.readOnly {
		if err := b.f.Sync(); err != nil {
			b.f.Close()
			return fmt.Errorf("syncing file: %w", err)
		}
	}
	return b.f.Close()
}

func (b *File) ReadOnly() bool {
	return b.readOnly
}
