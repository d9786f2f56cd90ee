package mrc

import (
	"fmt"
	"io"

	"github.com/structbio/go-mrc/internal/format"
)

// Validate runs every format check over the object and returns one
// message per failed check, in header order. An empty slice means the
// object is a well-formed MRC2014 file. Checks never stop early: a file
// with several problems reports all of them in one pass.
func (o *Object) Validate() []string {
	var msgs []string
	fail := func(formatStr string, args ...interface{}) {
		msgs = append(msgs, fmt.Sprintf(formatStr, args...))
	}
	h := o.header

	if string(h.MapID[:]) != format.MapID {
		fail("map ID string is %q, should be %q", string(h.MapID[:]), format.MapID)
	}
	if _, err := format.ByteOrderFromStamp(h.MachSt); err != nil {
		fail("machine stamp % #x is not a recognised byte order mark", h.MachSt[:])
	}
	if !format.ValidMode(h.Mode) {
		fail("mode %d is not a recognised data mode", int32(h.Mode))
	}

	if h.Nx < 0 || h.Ny < 0 || h.Nz < 0 {
		fail("dimensions %d x %d x %d must not be negative", h.Nx, h.Ny, h.Nz)
	}
	if h.Mx <= 0 || h.My <= 0 || h.Mz <= 0 {
		fail("grid sampling %d x %d x %d must be positive", h.Mx, h.My, h.Mz)
	}
	for i, edge := range h.CellA {
		if edge < 0 {
			fail("cell edge %c = %g must not be negative", 'a'+byte(i), edge)
		}
	}
	for i, angle := range h.CellB {
		if angle <= 0 || angle >= 180 {
			fail("cell angle %s = %g is outside (0, 180)", []string{"alpha", "beta", "gamma"}[i], angle)
		}
	}

	axes := [3]int32{h.MapC, h.MapR, h.MapS}
	var seen [4]bool
	permutation := true
	for _, a := range axes {
		if a < 1 || a > 3 || seen[a] {
			permutation = false
			break
		}
		seen[a] = true
	}
	if !permutation {
		fail("axis mapping (%d, %d, %d) is not a permutation of (1, 2, 3)", h.MapC, h.MapR, h.MapS)
	}

	if format.SpaceGroupIsVolumeStack(h.ISpg) && h.Mz > 0 && h.Nz%h.Mz != 0 {
		fail("volume stack nz = %d is not a multiple of mz = %d", h.Nz, h.Mz)
	}

	if h.NLabl < 0 || h.NLabl > format.LabelCount {
		fail("label count %d is outside 0 to %d", h.NLabl, format.LabelCount)
	} else {
		for i := 0; i < int(h.NLabl); i++ {
			if h.Label(i) == "" {
				fail("label %d is counted by nlabl but empty", i)
			}
		}
		for i := int(h.NLabl); i < format.LabelCount; i++ {
			if h.Label(i) != "" {
				fail("label %d carries text beyond the nlabl count of %d", i, h.NLabl)
			}
		}
	}

	if h.NVersion != format.VersionMRC2014 {
		fail("nversion %d is not the MRC2014 value %d", h.NVersion, format.VersionMRC2014)
	}

	if h.NSymBT < 0 {
		fail("extended header length %d must not be negative", h.NSymBT)
	} else {
		if int(h.NSymBT) != len(o.ext) {
			fail("extended header length field says %d bytes, %d are present", h.NSymBT, len(o.ext))
		}
		if h.NSymBT > 0 && !format.KnownExtType(h.ExtType()) {
			fail("extended header type %q is not a recognised tag", h.ExtType())
		}
	}

	if o.data != nil && !h.statsUndetermined() {
		stats := computeStats(o.data)
		if h.DMin != stats.min || h.DMax != stats.max || h.DMean != stats.mean || h.RMS != stats.rms {
			fail("statistics (min %g, max %g, mean %g, rms %g) disagree with the data (min %g, max %g, mean %g, rms %g)",
				h.DMin, h.DMax, h.DMean, h.RMS, stats.min, stats.max, stats.mean, stats.rms)
		}
	}

	return msgs
}

// ValidateFile opens the file permissively, runs every check, and writes
// one line per problem to w. It reports whether the file passed every
// check with no open diagnostics.
func ValidateFile(path string, w io.Writer, opts ...Option) (bool, error) {
	f, err := Open(path, append(opts, Permissive())...)
	if err != nil {
		return false, err
	}
	defer f.Close()

	msgs := append(append([]string(nil), f.Warnings()...), f.Validate()...)
	for _, m := range msgs {
		if _, err := fmt.Fprintln(w, m); err != nil {
			return false, err
		}
	}
	return len(msgs) == 0, nil
}
