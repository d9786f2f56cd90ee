package backend

import (
	"fmt"
	"math"
	"os"

	mmapgo "github.com/edsrzf/mmap-go"
)

// Mmap is the memory-mapped backend. The whole file is mapped and exposed
// as a live byte region; a mapped region cannot change size, so Truncate
// implements the flush-unmap-truncate-remap protocol.
type Mmap struct {
	f        *os.File
	m        mmapgo.MMap
	readOnly bool
	closed   bool
}

// OpenMmap opens and maps an existing file.
func OpenMmap(path string, readOnly bool) (*Mmap, error) {
	flag := os.O_RDWR
	prot := mmapgo.RDWR
	if readOnly {
		flag = os.O_RDONLY
		prot = mmapgo.RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := checkMappable(info.Size()); err != nil {
		f.Close()
		return nil, err
	}
	m, err := mmapgo.Map(f, prot, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return &Mmap{f: f, m: m, readOnly: readOnly}, nil
}

// CreateMmap creates a file of the given final size and maps it. The size
// is claimed with a truncate call, so on platforms with sparse file
// support no data blocks are allocated until they are written.
func CreateMmap(path string, size int64, overwrite bool) (*Mmap, error) {
	if err := checkMappable(size); err != nil {
		return nil, err
	}
	flag := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag = os.O_RDWR | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o666)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%w: sizing %s to %d bytes: %v", ErrTooLarge, path, size, err)
	}
	m, err := mmapgo.Map(f, mmapgo.RDWR, 0)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return &Mmap{f: f, m: m}, nil
}

// checkMappable rejects sizes that cannot be addressed as a byte slice:
// negative sizes always, and on 32-bit platforms anything past MaxInt.
// On 64-bit platforms every int64 is addressable, so sizes the system
// cannot actually back are caught by the truncate and map calls instead,
// whose errors are wrapped as ErrTooLarge.
func checkMappable(size int64) error {
	if size < 0 || size > int64(math.MaxInt) {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return nil
}

// Bytes returns the live mapped region.
func (b *Mmap) Bytes() []byte {
	return b.m
}

func (b *Mmap) ReadAt(p []byte, off int64) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if off < 0 || off > int64(len(b.m)) {
		return 0, fmt.Errorf("read at %d outside mapped region of %d bytes", off, len(b.m))
	}
	return copy(p, b.m[off:]), nil
}

func (b *Mmap) WriteAt(p []byte, off int64) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if b.readOnly {
		return 0, ErrReadOnly
	}
	if off < 0 || off+int64(len(p)) > int64(len(b.m)) {
		return 0, fmt.Errorf("write at %d outside mapped region of %d bytes", off, len(b.m))
	}
	return copy(b.m[off:], p), nil
}

func (b *Mmap) Size() (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}
	return int64(len(b.m)), nil
}

// Truncate resizes the backing file and replaces the mapping. Bytes below
// the new size are preserved by the file system across the remap; any view
// previously returned by Bytes is invalid afterwards.
func (b *Mmap) Truncate(size int64) error {
	if b.closed {
		return ErrClosed
	}
	if b.readOnly {
		return ErrReadOnly
	}
	if err := checkMappable(size); err != nil {
		return err
	}
	if err := b.m.Flush(); err != nil {
		return fmt.Errorf("flushing mapping: %w", err)
	}
	if err := b.m.Unmap(); err != nil {
		return fmt.Errorf("unmapping: %w", err)
	}
	b.m = nil
	if err := b.f.Truncate(size); err != nil {
		return fmt.Errorf("%w: resizing to %d bytes: %v", ErrTooLarge, size, err)
	}
	m, err := mmapgo.Map(b.f, mmapgo.RDWR, 0)
	if err != nil {
		return fmt.Errorf("remapping: %w", err)
	}
	b.m = m
	return nil
}

func (b *Mmap) Sync() error {
	if b.closed {
		return ErrClosed
	}
	if b.readOnly {
		return nil
	}
	return b.m.Flush()
}

func (b *Mmap) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.m != nil {
		if !b.readOnly {
			if err := b.m.Flush(); err != nil {
				b.m.Unmap()
				b.f.Close()
				return fmt.Errorf("flushing mapping: %w", err)
			}
		}
		if err := b.m.Unmap(); err != nil {
			b.f.Close()
			return fmt.Errorf("unmapping: %w", err)
		}
		b.m = nil
	}
	return b.f.Close()
}

func (b *Mmap) ReadOnly() bool {
	return b.readOnly
}
