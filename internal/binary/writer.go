package binary

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer encodes fixed-width fields sequentially into an in-memory record
// of known size.
type Writer struct {
	buf   []byte
	order binary.ByteOrder
	pos   int
}

// NewWriter creates a writer over buf using the given byte order.
func NewWriter(buf []byte, order binary.ByteOrder) *Writer {
	return &Writer{buf: buf, order: order}
}

// At returns a new writer positioned at the given offset. The new writer
// shares the underlying record but has independent position.
func (w *Writer) At(offset int) *Writer {
	return &Writer{buf: w.buf, order: w.order, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int {
	return w.pos
}

// WriteBytes writes the given bytes at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if w.pos+len(data) > len(w.buf) {
		return fmt.Errorf("%w: need %d bytes at offset %d, record is %d",
			ErrShortRecord, len(data), w.pos, len(w.buf))
	}
	copy(w.buf[w.pos:], data)
	w.pos += len(data)
	return nil
}

// WriteInt32 writes a signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// WriteUint32 writes an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	return w.WriteBytes(b[:])
}

// WriteFloat32 writes a 32-bit IEEE 754 float.
func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteVec3 writes three consecutive 32-bit floats.
func (w *Writer) WriteVec3(v [3]float32) error {
	for _, f := range v {
		if err := w.WriteFloat32(f); err != nil {
			return err
		}
	}
	return nil
}

// Skip advances the position by n bytes, leaving them unmodified.
func (w *Writer) Skip(n int) error {
	if w.pos+n > len(w.buf) {
		return fmt.Errorf("%w: skip %d at offset %d, record is %d",
			ErrShortRecord, n, w.pos, len(w.buf))
	}
	w.pos += n
	return nil
}
