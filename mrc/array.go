package mrc

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/structbio/go-mrc/internal/format"
)

// DType identifies the element type of a data block.
type DType = format.DType

// Element types supported by the format. Uint8 and Float16 are accepted as
// input but widen on write unless mode 12 is kept explicitly; see SetData.
const (
	Int8      = format.Int8
	Int16     = format.Int16
	Uint8     = format.Uint8
	Uint16    = format.Uint16
	Float16   = format.Float16
	Float32   = format.Float32
	Complex64 = format.Complex64
)

// Array is an n-dimensional block of numeric elements over raw bytes.
//
// The axis order is fixed: the last axis is X (fastest varying), preceded
// by Y, Z and, for rank-4 data, the stack axis. Elements are addressed by
// flat index in that order.
//
// For memory-mapped files the raw bytes are a live view over the mapping,
// so element mutation reaches the file without an explicit flush. The
// header is never synchronised automatically; see Object.UpdateHeaderStats.
type Array struct {
	dtype DType
	dims  []int
	order binary.ByteOrder
	raw   []byte
}

// newArray validates the shape and wraps raw, which must hold exactly
// len(elements)*dtype.Size() bytes in the given byte order.
func newArray(dtype DType, dims []int, order binary.ByteOrder, raw []byte) (*Array, error) {
	n, err := elementCount(dims)
	if err != nil {
		return nil, err
	}
	if want := n * int64(dtype.Size()); int64(len(raw)) != want {
		return nil, fmt.Errorf("%v data of shape %v needs %d bytes, have %d",
			dtype, dims, want, len(raw))
	}
	return &Array{dtype: dtype, dims: append([]int(nil), dims...), order: order, raw: raw}, nil
}

// elementCount multiplies the dimensions, rejecting invalid ranks and
// extents and guarding against overflow.
func elementCount(dims []int) (int64, error) {
	if len(dims) < 2 || len(dims) > 4 {
		return 0, fmt.Errorf("%w: rank %d", ErrInvalidRank, len(dims))
	}
	n := int64(1)
	for _, d := range dims {
		if d <= 0 {
			return 0, fmt.Errorf("invalid dimension %d in shape %v", d, dims)
		}
		if n > math.MaxInt64/int64(d) {
			return 0, fmt.Errorf("%w: shape %v overflows", ErrFileTooLarge, dims)
		}
		n *= int64(d)
	}
	return n, nil
}

// NewEmpty creates a zero-filled array of the given element type and shape.
func NewEmpty(dtype DType, dims []int) (*Array, error) {
	n, err := elementCount(dims)
	if err != nil {
		return nil, err
	}
	if dtype.Size() == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, dtype)
	}
	total := n * int64(dtype.Size())
	if total > math.MaxInt {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, total)
	}
	return newArray(dtype, dims, binary.LittleEndian, make([]byte, total))
}

// NewInt8 creates an array of signed bytes with the given shape.
func NewInt8(dims []int, v []int8) (*Array, error) {
	raw := make([]byte, len(v))
	for i, x := range v {
		raw[i] = byte(x)
	}
	return newArray(Int8, dims, binary.LittleEndian, raw)
}

// NewInt16 creates an array of signed 16-bit integers with the given shape.
func NewInt16(dims []int, v []int16) (*Array, error) {
	raw := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(x))
	}
	return newArray(Int16, dims, binary.LittleEndian, raw)
}

// NewUint8 creates an array of unsigned bytes with the given shape. The
// elements widen to 16 bits (mode 6) when stored in a file.
func NewUint8(dims []int, v []uint8) (*Array, error) {
	return newArray(Uint8, dims, binary.LittleEndian, append([]byte(nil), v...))
}

// NewUint16 creates an array of unsigned 16-bit integers with the given shape.
func NewUint16(dims []int, v []uint16) (*Array, error) {
	raw := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(raw[2*i:], x)
	}
	return newArray(Uint16, dims, binary.LittleEndian, raw)
}

// NewFloat16 creates a half-precision array with the given shape from
// float32 values. Values outside the float16 range become infinities. The
// elements widen to 32 bits (mode 2) when stored, unless the file keeps
// float16 via the KeepFloat16 option.
func NewFloat16(dims []int, v []float32) (*Array, error) {
	raw := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(raw[2*i:], float16.Fromfloat32(x).Bits())
	}
	return newArray(Float16, dims, binary.LittleEndian, raw)
}

// NewFloat32 creates an array of 32-bit floats with the given shape.
func NewFloat32(dims []int, v []float32) (*Array, error) {
	raw := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(x))
	}
	return newArray(Float32, dims, binary.LittleEndian, raw)
}

// NewComplex64 creates an array of single-precision complex values with
// the given shape.
func NewComplex64(dims []int, v []complex64) (*Array, error) {
	raw := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(raw[8*i:], math.Float32bits(real(x)))
		binary.LittleEndian.PutUint32(raw[8*i+4:], math.Float32bits(imag(x)))
	}
	return newArray(Complex64, dims, binary.LittleEndian, raw)
}

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Dims returns the shape, slowest axis first.
func (a *Array) Dims() []int { return append([]int(nil), a.dims...) }

// NDim returns the rank.
func (a *Array) NDim() int { return len(a.dims) }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.raw) / a.dtype.Size() }

// ByteOrder returns the byte order of the raw element bytes.
func (a *Array) ByteOrder() binary.ByteOrder { return a.order }

// Bytes returns the raw element bytes. For memory-mapped files this is a
// live view over the file.
func (a *Array) Bytes() []byte { return a.raw }

// Int8At returns element i of an Int8 array.
func (a *Array) Int8At(i int) int8 {
	a.checkType(Int8)
	return int8(a.raw[i])
}

// SetInt8At sets element i of an Int8 array.
func (a *Array) SetInt8At(i int, v int8) {
	a.checkType(Int8)
	a.raw[i] = byte(v)
}

// Uint8At returns element i of a Uint8 array.
func (a *Array) Uint8At(i int) uint8 {
	a.checkType(Uint8)
	return a.raw[i]
}

// Int16At returns element i of an Int16 array.
func (a *Array) Int16At(i int) int16 {
	a.checkType(Int16)
	return int16(a.order.Uint16(a.raw[2*i:]))
}

// SetInt16At sets element i of an Int16 array.
func (a *Array) SetInt16At(i int, v int16) {
	a.checkType(Int16)
	a.order.PutUint16(a.raw[2*i:], uint16(v))
}

// Uint16At returns element i of a Uint16 array.
func (a *Array) Uint16At(i int) uint16 {
	a.checkType(Uint16)
	return a.order.Uint16(a.raw[2*i:])
}

// SetUint16At sets element i of a Uint16 array.
func (a *Array) SetUint16At(i int, v uint16) {
	a.checkType(Uint16)
	a.order.PutUint16(a.raw[2*i:], v)
}

// Float16At returns element i of a Float16 array, widened to float32.
func (a *Array) Float16At(i int) float32 {
	a.checkType(Float16)
	return float16.Frombits(a.order.Uint16(a.raw[2*i:])).Float32()
}

// SetFloat16At sets element i of a Float16 array from a float32 value.
func (a *Array) SetFloat16At(i int, v float32) {
	a.checkType(Float16)
	a.order.PutUint16(a.raw[2*i:], float16.Fromfloat32(v).Bits())
}

// Float32At returns element i of a Float32 array.
func (a *Array) Float32At(i int) float32 {
	a.checkType(Float32)
	return math.Float32frombits(a.order.Uint32(a.raw[4*i:]))
}

// SetFloat32At sets element i of a Float32 array.
func (a *Array) SetFloat32At(i int, v float32) {
	a.checkType(Float32)
	a.order.PutUint32(a.raw[4*i:], math.Float32bits(v))
}

// Complex64At returns element i of a Complex64 array.
func (a *Array) Complex64At(i int) complex64 {
	a.checkType(Complex64)
	re := math.Float32frombits(a.order.Uint32(a.raw[8*i:]))
	im := math.Float32frombits(a.order.Uint32(a.raw[8*i+4:]))
	return complex(re, im)
}

// SetComplex64At sets element i of a Complex64 array.
func (a *Array) SetComplex64At(i int, v complex64) {
	a.checkType(Complex64)
	a.order.PutUint32(a.raw[8*i:], math.Float32bits(real(v)))
	a.order.PutUint32(a.raw[8*i+4:], math.Float32bits(imag(v)))
}

func (a *Array) checkType(want DType) {
	if a.dtype != want {
		panic(fmt.Sprintf("mrc: %v accessor used on %v array", want, a.dtype))
	}
}

// floatAt returns element i as a float64 for statistics. Complex elements
// contribute their real part; the header statistics fields are scalar.
func (a *Array) floatAt(i int) float64 {
	switch a.dtype {
	case Int8:
		return float64(int8(a.raw[i]))
	case Uint8:
		return float64(a.raw[i])
	case Int16:
		return float64(int16(a.order.Uint16(a.raw[2*i:])))
	case Uint16:
		return float64(a.order.Uint16(a.raw[2*i:]))
	case Float16:
		return float64(float16.Frombits(a.order.Uint16(a.raw[2*i:])).Float32())
	case Float32:
		return float64(math.Float32frombits(a.order.Uint32(a.raw[4*i:])))
	case Complex64:
		return float64(math.Float32frombits(a.order.Uint32(a.raw[8*i:])))
	}
	return 0
}

// sameDims reports whether two shapes are identical.
func sameDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two arrays have the same element type, shape and
// element values. Byte order is not part of the comparison.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.dtype != b.dtype || !sameDims(a.dims, b.dims) {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if a.bitsAt(i) != b.bitsAt(i) {
			return false
		}
	}
	return true
}

// bitsAt returns the element's bit pattern independent of byte order.
func (a *Array) bitsAt(i int) uint64 {
	switch a.dtype.Size() {
	case 1:
		return uint64(a.raw[i])
	case 2:
		return uint64(a.order.Uint16(a.raw[2*i:]))
	case 4:
		return uint64(a.order.Uint32(a.raw[4*i:]))
	default:
		re := a.order.Uint32(a.raw[8*i:])
		im := a.order.Uint32(a.raw[8*i+4:])
		return uint64(re)<<32 | uint64(im)
	}
}
