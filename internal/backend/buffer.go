package backend

import (
	"fmt"
	"io"
	"os"
)

// Codec is a sequential compression transform. It cannot seek, so the
// buffered backend always decodes the full stream on open and re-encodes
// the full stream on sync.
type Codec interface {
	// Name identifies the codec in error messages.
	Name() string

	// NewReader wraps r in a decompressing reader.
	NewReader(r io.Reader) (io.ReadCloser, error)

	// NewWriter wraps w in a compressing writer.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

// Buffer is the backend for compressed files. The decompressed stream is
// held in a growable in-memory buffer so the interpreter can edit it in
// place before it is re-encoded.
type Buffer struct {
	f        *os.File
	codec    Codec
	buf      []byte
	readOnly bool
	dirty    bool
	closed   bool
}

// OpenBuffer opens an existing compressed file and decompresses its full
// contents into memory.
func OpenBuffer(path string, codec Codec, readOnly bool) (*Buffer, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	cr, err := codec.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening %s stream: %w", codec.Name(), err)
	}
	buf, err := io.ReadAll(cr)
	if err != nil {
		cr.Close()
		f.Close()
		return nil, fmt.Errorf("decompressing %s stream: %w", codec.Name(), err)
	}
	if err := cr.Close(); err != nil {
		f.Close()
		return nil, fmt.Errorf("closing %s stream: %w", codec.Name(), err)
	}
	return &Buffer{f: f, codec: codec, buf: buf, readOnly: readOnly}, nil
}

// CreateBuffer creates a new empty compressed file.
func CreateBuffer(path string, codec Codec, overwrite bool) (*Buffer, error) {
	flag := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag = os.O_RDWR | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o666)
	if err != nil {
		return nil, err
	}
	return &Buffer{f: f, codec: codec, dirty: true}, nil
}

func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if b.readOnly {
		return 0, ErrReadOnly
	}
	if end := off + int64(len(p)); end > int64(len(b.buf)) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[off:], p)
	b.dirty = true
	return len(p), nil
}

func (b *Buffer) Size() (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}
	return int64(len(b.buf)), nil
}

func (b *Buffer) Truncate(size int64) error {
	if b.closed {
		return ErrClosed
	}
	if b.readOnly {
		return ErrReadOnly
	}
	switch {
	case size < int64(len(b.buf)):
		b.buf = b.buf[:size]
	case size > int64(len(b.buf)):
		grown := make([]byte, size)
		copy(grown, b.buf)
		b.buf = grown
	}
	b.dirty = true
	return nil
}

// Sync re-encodes the full buffer to the underlying file. A clean buffer
// is a no-op, which keeps repeated flushes byte-identical and cheap.
func (b *Buffer) Sync() error {
	if b.closed {
		return ErrClosed
	}
	if b.readOnly || !b.dirty {
		return nil
	}
	if _, err := b.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := b.f.Truncate(0); err != nil {
		return err
	}
	cw, err := b.codec.NewWriter(b.f)
	if err != nil {
		return fmt.Errorf("opening %s writer: %w", b.codec.Name(), err)
	}
	if _, err := cw.Write(b.buf); err != nil {
		cw.Close()
		return fmt.Errorf("compressing %s stream: %w", b.codec.Name(), err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("finishing %s stream: %w", b.codec.Name(), err)
	}
	if err := b.f.Sync(); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	if err := b.Sync(); err != nil {
		b.closed = true
		b.f.Close()
		return err
	}
	b.closed = true
	return b.f.Close()
}

func (b *Buffer) ReadOnly() bool {
	return b.readOnly
}
