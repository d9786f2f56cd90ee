package mrc

import (
	"fmt"

	"github.com/structbio/go-mrc/internal/format"
)

// ExtendedRecords is an indexed view over an extended header laid out as
// fixed-size per-section records, as the FEI1 and FEI2 layouts are. It
// does not copy: each record aliases the object's extended header bytes.
type ExtendedRecords struct {
	raw        []byte
	recordSize int
}

// ExtendedRecords returns an indexed view of the extended header, or an
// error when the header's exttyp tag does not name a layout with
// fixed-size records.
func (o *Object) ExtendedRecords() (*ExtendedRecords, error) {
	tag := o.header.ExtType()
	size, ok := format.ExtTypeRecordSizes[tag]
	if !ok {
		return nil, fmt.Errorf("extended header type %q is not recognised", tag)
	}
	if size == 0 {
		return nil, fmt.Errorf("extended header type %q has no fixed record layout", tag)
	}
	return &ExtendedRecords{raw: o.ext, recordSize: size}, nil
}

// RecordSize returns the per-section record size in bytes.
func (r *ExtendedRecords) RecordSize() int { return r.recordSize }

// Count returns the number of complete records present.
func (r *ExtendedRecords) Count() int { return len(r.raw) / r.recordSize }

// Record returns the bytes of record i. The slice aliases the extended
// header, so writes through it modify the object.
func (r *ExtendedRecords) Record(i int) ([]byte, error) {
	if i < 0 || i >= r.Count() {
		return nil, fmt.Errorf("record %d out of range, have %d", i, r.Count())
	}
	off := i * r.recordSize
	return r.raw[off : off+r.recordSize], nil
}
