package format

import (
	"errors"
	"fmt"
)

// Errors reported by mode and element type conversions.
var (
	ErrUnsupportedType = errors.New("element type has no MRC mode")
	ErrUnsupportedMode = errors.New("unsupported MRC mode")
)

// DType identifies the element type of a data block.
type DType int

const (
	Int8 DType = iota
	Int16
	Uint8
	Uint16
	Float16
	Float32
	Complex64
)

// String returns the conventional name of the element type.
func (t DType) String() string {
	switch t {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Complex64:
		return "complex64"
	}
	return fmt.Sprintf("DType(%d)", int(t))
}

// Size returns the element size in bytes.
func (t DType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16, Float16:
		return 2
	case Float32:
		return 4
	case Complex64:
		return 8
	}
	return 0
}

// Mode is the numeric code stored in the header's mode field.
type Mode int32

// Supported mode numbers.
const (
	ModeInt8      Mode = 0
	ModeInt16     Mode = 1
	ModeFloat32   Mode = 2
	ModeComplex64 Mode = 4
	ModeUint16    Mode = 6
	ModeFloat16   Mode = 12
)

// ModeFromDType returns the mode number used to store elements of type t.
//
// The mapping widens in two places: uint8 data is stored as mode 6
// (16-bit unsigned) and float16 data is stored as mode 2 (32-bit float).
// Callers that want native half-precision storage must ask for mode 12
// explicitly; see ModeFromDTypeKeepFloat16.
func ModeFromDType(t DType) (Mode, error) {
	switch t {
	case Int8:
		return ModeInt8, nil
	case Int16:
		return ModeInt16, nil
	case Float16, Float32:
		return ModeFloat32, nil
	case Complex64:
		return ModeComplex64, nil
	case Uint8, Uint16:
		return ModeUint16, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
}

// ModeFromDTypeKeepFloat16 is ModeFromDType except that float16 elements
// map to mode 12 instead of being widened to mode 2.
func ModeFromDTypeKeepFloat16(t DType) (Mode, error) {
	if t == Float16 {
		return ModeFloat16, nil
	}
	return ModeFromDType(t)
}

// DTypeFromMode returns the element type used for data stored with the
// given mode number.
//
// The conversion is not a full inverse of ModeFromDType: mode 6 always
// decodes to uint16 and mode 2 always decodes to float32, so uint8 and
// float16 data do not survive a round trip at the type level unless mode
// 12 was requested on write.
func DTypeFromMode(m Mode) (DType, error) {
	switch m {
	case ModeInt8:
		return Int8, nil
	case ModeInt16:
		return Int16, nil
	case ModeFloat32:
		return Float32, nil
	case ModeComplex64:
		return Complex64, nil
	case ModeUint16:
		return Uint16, nil
	case ModeFloat16:
		return Float16, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedMode, int32(m))
}

// ValidMode reports whether m is one of the supported mode numbers.
func ValidMode(m Mode) bool {
	_, err := DTypeFromMode(m)
	return err == nil
}
