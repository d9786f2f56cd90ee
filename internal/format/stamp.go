package format

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMachineStamp is returned when the header's machine stamp matches
// neither recognised byte-order marker.
var ErrMachineStamp = errors.New("unrecognised machine stamp")

// Machine stamps for the two recognised byte orders. Some writers emit
// 0x44 0x41 for little-endian; that variant is accepted on read but never
// written.
var (
	StampLittleEndian = [4]byte{0x44, 0x44, 0, 0}
	StampBigEndian    = [4]byte{0x11, 0x11, 0, 0}
)

// ByteOrderFromStamp decodes the machine stamp into a byte order.
func ByteOrderFromStamp(stamp [4]byte) (binary.ByteOrder, error) {
	if stamp[0] == 0x44 && (stamp[1] == 0x44 || stamp[1] == 0x41) {
		return binary.LittleEndian, nil
	}
	if stamp[0] == 0x11 && stamp[1] == 0x11 {
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("%w: % #x", ErrMachineStamp, stamp[:])
}

// StampFromByteOrder returns the canonical machine stamp for the given
// byte order.
func StampFromByteOrder(order binary.ByteOrder) [4]byte {
	if order == binary.BigEndian {
		return StampBigEndian
	}
	return StampLittleEndian
}
