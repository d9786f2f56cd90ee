package mrc

import (
	stdbin "encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	binpkg "github.com/structbio/go-mrc/internal/binary"
	"github.com/structbio/go-mrc/internal/format"
)

// Mode is the numeric code stored in the header identifying the data
// element's binary type.
type Mode = format.Mode

// Header statistics sentinel: these values mark dmin/dmax/dmean/rms as
// undetermined (dmax < dmin, rms < 0).
const (
	undeterminedDMin  = 0
	undeterminedDMax  = -1
	undeterminedDMean = -2
	undeterminedRMS   = -1
)

// Header is the fixed 1024-byte metadata record at the start of an MRC
// file. Fields may be modified in place; the dimension, mode and
// statistics fields are kept consistent with the data by the Object's
// update methods, not continuously.
type Header struct {
	Nx, Ny, Nz                int32 // data block extents: columns, rows, sections
	Mode                      Mode
	NxStart, NyStart, NzStart int32
	Mx, My, Mz                int32      // grid sampling
	CellA                     [3]float32 // cell edge lengths in angstroms
	CellB                     [3]float32 // cell angles in degrees
	MapC, MapR, MapS          int32      // axis mapping: 1=x, 2=y, 3=z
	DMin, DMax, DMean         float32
	ISpg                      int32 // space group, repurposed for stack/volume
	NSymBT                    int32 // extended header length in bytes
	Extra1                    [8]byte
	ExtTyp                    [4]byte // extended header type tag
	NVersion                  int32
	Extra2                    [84]byte
	Origin                    [3]float32
	MapID                     [4]byte // "MAP "
	MachSt                    [4]byte // machine stamp
	RMS                       float32
	NLabl                     int32
	Labels                    [format.LabelCount][format.LabelSize]byte

	// order governs how all multi-byte fields of the header and data are
	// encoded. It is not itself stored in the file beyond MachSt.
	order stdbin.ByteOrder
}

// NewHeader creates a default header: standard identification and version
// fields, volume space group, 90 degree cell angles, x/y/z axis mapping,
// undetermined statistics and a creation label.
func NewHeader() *Header {
	h := &Header{
		Mode:     format.ModeInt8,
		ISpg:     format.VolumeSpaceGroup,
		NVersion: format.VersionMRC2014,
		CellB:    [3]float32{90, 90, 90},
		MapC:     1,
		MapR:     2,
		MapS:     3,
		order:    stdbin.LittleEndian,
	}
	copy(h.MapID[:], format.MapID)
	h.MachSt = format.StampFromByteOrder(h.order)
	h.resetStats()

	now := time.Now().Format("2006-01-02 15:04:05")
	h.SetLabel(0, fmt.Sprintf("%-40s%40s", "Created by go-mrc", now))
	h.NLabl = 1
	return h
}

func (h *Header) resetStats() {
	h.DMin = undeterminedDMin
	h.DMax = undeterminedDMax
	h.DMean = undeterminedDMean
	h.RMS = undeterminedRMS
}

// statsUndetermined reports whether the statistics fields carry the
// documented "values not set" sentinel pattern.
func (h *Header) statsUndetermined() bool {
	return h.DMax < h.DMin && h.RMS < 0
}

// ByteOrder returns the byte order governing the header and data encoding.
func (h *Header) ByteOrder() stdbin.ByteOrder { return h.order }

// Label returns text label i with trailing padding removed.
func (h *Header) Label(i int) string {
	return strings.TrimRight(string(h.Labels[i][:]), "\x00 ")
}

// SetLabel stores a text label, truncated to the 80-byte label width and
// padded with spaces. It does not adjust NLabl.
func (h *Header) SetLabel(i int, s string) {
	var label [format.LabelSize]byte
	copy(label[:], s)
	for j := len(s); j < format.LabelSize; j++ {
		label[j] = ' '
	}
	h.Labels[i] = label
}

// ExtType returns the extended header type tag as a string.
func (h *Header) ExtType() string {
	return strings.TrimRight(string(h.ExtTyp[:]), "\x00 ")
}

// SetExtType stores the extended header type tag.
func (h *Header) SetExtType(tag string) {
	h.ExtTyp = [4]byte{' ', ' ', ' ', ' '}
	copy(h.ExtTyp[:], tag)
}

// unmarshalHeader decodes a 1024-byte header record using the given byte
// order. The record length has already been verified by the caller.
func unmarshalHeader(buf []byte, order stdbin.ByteOrder) (*Header, error) {
	r := binpkg.NewReader(buf, order)
	h := &Header{order: order}

	var err error
	read := func(dst *int32) {
		if err == nil {
			*dst, err = r.ReadInt32()
		}
	}
	readF := func(dst *float32) {
		if err == nil {
			*dst, err = r.ReadFloat32()
		}
	}
	readV := func(dst *[3]float32) {
		if err == nil {
			*dst, err = r.ReadVec3()
		}
	}
	readB := func(dst []byte) {
		if err == nil {
			var b []byte
			if b, err = r.ReadBytes(len(dst)); err == nil {
				copy(dst, b)
			}
		}
	}

	read(&h.Nx)
	read(&h.Ny)
	read(&h.Nz)
	read((*int32)(&h.Mode))
	read(&h.NxStart)
	read(&h.NyStart)
	read(&h.NzStart)
	read(&h.Mx)
	read(&h.My)
	read(&h.Mz)
	readV(&h.CellA)
	readV(&h.CellB)
	read(&h.MapC)
	read(&h.MapR)
	read(&h.MapS)
	readF(&h.DMin)
	readF(&h.DMax)
	readF(&h.DMean)
	read(&h.ISpg)
	read(&h.NSymBT)
	readB(h.Extra1[:])
	readB(h.ExtTyp[:])
	read(&h.NVersion)
	readB(h.Extra2[:])
	readV(&h.Origin)
	readB(h.MapID[:])
	readB(h.MachSt[:])
	readF(&h.RMS)
	read(&h.NLabl)
	for i := range h.Labels {
		readB(h.Labels[i][:])
	}
	if err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	return h, nil
}

// marshal encodes the header into a fresh 1024-byte record.
func (h *Header) marshal() []byte {
	buf := make([]byte, format.HeaderSize)
	w := binpkg.NewWriter(buf, h.order)

	var err error
	write := func(v int32) {
		if err == nil {
			err = w.WriteInt32(v)
		}
	}
	writeF := func(v float32) {
		if err == nil {
			err = w.WriteFloat32(v)
		}
	}
	writeV := func(v [3]float32) {
		if err == nil {
			err = w.WriteVec3(v)
		}
	}
	writeB := func(b []byte) {
		if err == nil {
			err = w.WriteBytes(b)
		}
	}

	write(h.Nx)
	write(h.Ny)
	write(h.Nz)
	write(int32(h.Mode))
	write(h.NxStart)
	write(h.NyStart)
	write(h.NzStart)
	write(h.Mx)
	write(h.My)
	write(h.Mz)
	writeV(h.CellA)
	writeV(h.CellB)
	write(h.MapC)
	write(h.MapR)
	write(h.MapS)
	writeF(h.DMin)
	writeF(h.DMax)
	writeF(h.DMean)
	write(h.ISpg)
	write(h.NSymBT)
	writeB(h.Extra1[:])
	writeB(h.ExtTyp[:])
	write(h.NVersion)
	writeB(h.Extra2[:])
	writeV(h.Origin)
	writeB(h.MapID[:])
	writeB(h.MachSt[:])
	writeF(h.RMS)
	write(h.NLabl)
	for i := range h.Labels {
		writeB(h.Labels[i][:])
	}
	if err != nil {
		// The record is allocated at the exact size the writes need, so
		// a short-record failure is a programming error.
		panic(fmt.Sprintf("mrc: header encoding: %v", err))
	}
	return buf
}

// Dump writes every header field name and value, one per line, in
// declaration order.
func (h *Header) Dump(w io.Writer) error {
	for _, f := range format.HeaderFields {
		if _, err := fmt.Fprintf(w, "%-15s : %s\n", f.Name, h.fieldValue(f)); err != nil {
			return err
		}
	}
	return nil
}

// fieldValue formats one field from the descriptor table.
func (h *Header) fieldValue(f format.Field) string {
	switch f.Name {
	case "nx":
		return fmt.Sprint(h.Nx)
	case "ny":
		return fmt.Sprint(h.Ny)
	case "nz":
		return fmt.Sprint(h.Nz)
	case "mode":
		return fmt.Sprint(int32(h.Mode))
	case "nxstart":
		return fmt.Sprint(h.NxStart)
	case "nystart":
		return fmt.Sprint(h.NyStart)
	case "nzstart":
		return fmt.Sprint(h.NzStart)
	case "mx":
		return fmt.Sprint(h.Mx)
	case "my":
		return fmt.Sprint(h.My)
	case "mz":
		return fmt.Sprint(h.Mz)
	case "cella":
		return formatVec3(h.CellA)
	case "cellb":
		return formatVec3(h.CellB)
	case "mapc":
		return fmt.Sprint(h.MapC)
	case "mapr":
		return fmt.Sprint(h.MapR)
	case "maps":
		return fmt.Sprint(h.MapS)
	case "dmin":
		return fmt.Sprintf("%g", h.DMin)
	case "dmax":
		return fmt.Sprintf("%g", h.DMax)
	case "dmean":
		return fmt.Sprintf("%g", h.DMean)
	case "ispg":
		return fmt.Sprint(h.ISpg)
	case "nsymbt":
		return fmt.Sprint(h.NSymBT)
	case "extra1":
		return fmt.Sprintf("% x", h.Extra1[:])
	case "exttyp":
		return fmt.Sprintf("%q", h.ExtType())
	case "nversion":
		return fmt.Sprint(h.NVersion)
	case "extra2":
		return fmt.Sprintf("<%d bytes>", len(h.Extra2))
	case "origin":
		return formatVec3(h.Origin)
	case "map":
		return fmt.Sprintf("%q", string(h.MapID[:]))
	case "machst":
		return fmt.Sprintf("% #x", h.MachSt[:])
	case "rms":
		return fmt.Sprintf("%g", h.RMS)
	case "nlabl":
		return fmt.Sprint(h.NLabl)
	case "label":
		labels := make([]string, 0, h.NLabl)
		for i := 0; i < int(h.NLabl) && i < format.LabelCount; i++ {
			labels = append(labels, h.Label(i))
		}
		return strings.Join(labels, " | ")
	}
	return "?"
}

func formatVec3(v [3]float32) string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}
