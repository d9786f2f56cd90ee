// Package binary provides low-level binary codec helpers for the fixed-size
// MRC header record, with a configurable byte order.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortRecord is returned when a read or write would run past the end
// of the record.
var ErrShortRecord = errors.New("access past end of record")

// Reader decodes fixed-width fields sequentially from an in-memory record.
type Reader struct {
	buf   []byte
	order binary.ByteOrder
	pos   int
}

// NewReader creates a reader over buf using the given byte order.
func NewReader(buf []byte, order binary.ByteOrder) *Reader {
	return &Reader{buf: buf, order: order}
}

// At returns a new reader positioned at the given offset. The new reader
// shares the underlying record but has independent position.
func (r *Reader) At(offset int) *Reader {
	return &Reader{buf: r.buf, order: r.order, pos: offset}
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, record is %d",
			ErrShortRecord, n, r.pos, len(r.buf))
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadInt32 reads a signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return int32(r.order.Uint32(b)), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// ReadFloat32 reads a 32-bit IEEE 754 float.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadVec3 reads three consecutive 32-bit floats.
func (r *Reader) ReadVec3() ([3]float32, error) {
	var v [3]float32
	for i := range v {
		f, err := r.ReadFloat32()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// Skip advances the position by n bytes without interpreting them.
func (r *Reader) Skip(n int) error {
	_, err := r.ReadBytes(n)
	return err
}
