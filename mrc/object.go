package mrc

import (
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/structbio/go-mrc/internal/format"
)

// storage places the backing buffers for the extended header and data
// block. The in-memory implementation hands out heap slices; the
// memory-mapped implementation relayouts the file and hands out views over
// the new mapping.
type storage interface {
	// placeExtended returns a buffer for a new extended header of length
	// n. The data block bytes are preserved, relocating them if the
	// layout moves.
	placeExtended(n int) ([]byte, error)

	// placeData returns a buffer for a new data block of length n, with
	// the extended header preserved. The buffer contents are unspecified;
	// the caller overwrites them fully.
	placeData(n int) ([]byte, error)
}

// memStorage backs the extended header and data with plain heap slices.
type memStorage struct{}

func (memStorage) placeExtended(n int) ([]byte, error) { return make([]byte, n), nil }
func (memStorage) placeData(n int) ([]byte, error)     { return make([]byte, n), nil }

// Object owns an MRC header, extended header and data block and keeps the
// triad consistent across mutation. It is independent of I/O; the File
// type composes it with a storage backend.
type Object struct {
	header      *Header
	ext         []byte
	data        *Array
	readOnly    bool
	keepFloat16 bool
	warnings    []string
	store       storage
}

// newObject creates an empty Object with a default header over the given
// storage.
func newObject(store storage) *Object {
	return &Object{header: NewHeader(), ext: []byte{}, store: store}
}

// Header returns the header record. It may be modified in place on a
// writable object; such edits are flushed on the next Flush or Close.
func (o *Object) Header() *Header { return o.header }

// ExtendedHeader returns the raw extended header bytes. To replace it,
// call SetExtendedHeader.
func (o *Object) ExtendedHeader() []byte { return o.ext }

// Data returns the data block, or nil if no data could be read (fresh
// files, or permissive opens that could not read the block safely).
func (o *Object) Data() *Array { return o.data }

// ReadOnly reports whether mutation is rejected.
func (o *Object) ReadOnly() bool { return o.readOnly }

// Warnings returns the non-fatal diagnostics accumulated so far: permissive
// open recoveries and suspicious-data notices. They never alter control
// flow.
func (o *Object) Warnings() []string {
	return append([]string(nil), o.warnings...)
}

func (o *Object) warnf(formatStr string, args ...interface{}) {
	msg := fmt.Sprintf(formatStr, args...)
	o.warnings = append(o.warnings, msg)
	logrus.Warn(msg)
}

func (o *Object) checkWriteable() error {
	if o.readOnly {
		return ErrReadOnly
	}
	return nil
}

// SetData replaces the data block.
//
// The element type must map to an MRC mode; uint8 widens to uint16 and
// float16 widens to float32 unless the object keeps float16 (mode 12).
// The header's dimension, mode, space group and machine-stamp fields are
// recomputed from the new array, and the statistics fields are recomputed
// by scanning it. Non-finite values are accepted with a warning.
func (o *Object) SetData(a *Array) error {
	if err := o.checkWriteable(); err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: nil data", ErrInvalidRank)
	}
	if a.NDim() < 2 || a.NDim() > 4 {
		return fmt.Errorf("%w: rank %d", ErrInvalidRank, a.NDim())
	}

	mode, err := o.modeFor(a.DType())
	if err != nil {
		return err
	}
	stored, err := format.DTypeFromMode(mode)
	if err != nil {
		return err
	}

	// Statistics and the non-finite scan happen on the source array, in
	// the same pass, before any state is replaced.
	stats := computeStats(a)
	if stats.nonFinite > 0 {
		o.warnf("data array contains %d non-finite values (NaN or infinity)", stats.nonFinite)
	}

	n, err := elementCount(a.Dims())
	if err != nil {
		return err
	}
	dst, err := o.store.placeData(int(n) * stored.Size())
	if err != nil {
		return err
	}
	placed, err := newArray(stored, a.Dims(), a.ByteOrder(), dst)
	if err != nil {
		return err
	}
	widenInto(placed, a)

	o.data = placed
	if err := o.UpdateHeaderFromData(); err != nil {
		return err
	}
	o.header.DMin = stats.min
	o.header.DMax = stats.max
	o.header.DMean = stats.mean
	o.header.RMS = stats.rms
	return nil
}

// modeFor maps an element type to the stored mode, honouring the
// keep-float16 setting.
func (o *Object) modeFor(t DType) (Mode, error) {
	if o.keepFloat16 {
		return format.ModeFromDTypeKeepFloat16(t)
	}
	return format.ModeFromDType(t)
}

// widenInto copies src into dst, converting between the source element
// type and the (equal or wider) stored type. Shapes are already equal.
func widenInto(dst, src *Array) {
	if dst.DType() == src.DType() {
		copy(dst.Bytes(), src.Bytes())
		return
	}
	switch {
	case src.DType() == Uint8 && dst.DType() == Uint16:
		for i := 0; i < src.Len(); i++ {
			dst.SetUint16At(i, uint16(src.Uint8At(i)))
		}
	case src.DType() == Float16 && dst.DType() == Float32:
		for i := 0; i < src.Len(); i++ {
			dst.SetFloat32At(i, src.Float16At(i))
		}
	default:
		// The mode tables only ever widen along the two paths above.
		panic(fmt.Sprintf("mrc: no widening from %v to %v", src.DType(), dst.DType()))
	}
}

// SetExtendedHeader replaces the extended header and updates nsymbt to the
// new length. The exttyp tag is deliberately left alone: the layout of the
// new bytes cannot be guessed from their length, so identifying them is
// the caller's responsibility (see Header.SetExtType).
func (o *Object) SetExtendedHeader(ext []byte) error {
	if err := o.checkWriteable(); err != nil {
		return err
	}
	buf, err := o.store.placeExtended(len(ext))
	if err != nil {
		return err
	}
	copy(buf, ext)
	o.ext = buf
	o.header.NSymBT = int32(len(ext))
	return nil
}

// UpdateHeaderFromData recomputes the structural header fields -
// dimensions, mode, space group consistency, byte order and machine stamp
// - from the current data block. It inspects only the shape and type, so
// it is cheap regardless of data size, and it never touches the
// statistics fields.
//
// Rank-2 data becomes a single image (space group 0). Rank-3 data stays
// an image stack if the space group already denotes one, and is a volume
// otherwise. Rank-4 data becomes a volume stack (space group 401) unless
// the space group is already in the volume-stack range.
func (o *Object) UpdateHeaderFromData() error {
	if err := o.checkWriteable(); err != nil {
		return err
	}
	if o.data == nil {
		return fmt.Errorf("%w: no data block", ErrInvalidState)
	}

	h := o.header
	mode, err := o.modeForStored(o.data.DType())
	if err != nil {
		return err
	}
	h.Mode = mode
	h.order = o.data.ByteOrder()
	h.MachSt = format.StampFromByteOrder(h.order)

	dims := o.data.Dims()
	switch len(dims) {
	case 2:
		h.ISpg = format.ImageStackSpaceGroup
		h.Nx, h.Mx = int32(dims[1]), int32(dims[1])
		h.Ny, h.My = int32(dims[0]), int32(dims[0])
		h.Nz, h.Mz = 1, 1
	case 3:
		h.Nx, h.Mx = int32(dims[2]), int32(dims[2])
		h.Ny, h.My = int32(dims[1]), int32(dims[1])
		if h.ISpg == format.ImageStackSpaceGroup {
			h.Mz = 1
			h.Nz = int32(dims[0])
		} else {
			h.Nz, h.Mz = int32(dims[0]), int32(dims[0])
		}
	case 4:
		if !format.SpaceGroupIsVolumeStack(h.ISpg) {
			h.ISpg = format.VolumeStackSpaceGroup
		}
		h.Nx, h.Mx = int32(dims[3]), int32(dims[3])
		h.Ny, h.My = int32(dims[2]), int32(dims[2])
		h.Mz = int32(dims[1])
		h.Nz = int32(dims[0] * dims[1])
	default:
		return fmt.Errorf("%w: rank %d", ErrInvalidRank, len(dims))
	}
	return nil
}

// modeForStored maps a stored element type back to its mode. A float16
// data block is by definition mode 12 storage regardless of the
// keep-float16 setting.
func (o *Object) modeForStored(t DType) (Mode, error) {
	if t == Float16 {
		return format.ModeFloat16, nil
	}
	return format.ModeFromDType(t)
}

// UpdateHeaderStats recomputes dmin, dmax, dmean and rms by scanning the
// full data block. This is the only statistics-affecting call guaranteed
// correct after an in-place data edit; it can take a while for very large
// blocks.
func (o *Object) UpdateHeaderStats() error {
	if err := o.checkWriteable(); err != nil {
		return err
	}
	if o.data == nil {
		return fmt.Errorf("%w: no data block", ErrInvalidState)
	}
	stats := computeStats(o.data)
	o.header.DMin = stats.min
	o.header.DMax = stats.max
	o.header.DMean = stats.mean
	o.header.RMS = stats.rms
	return nil
}

// ResetHeaderStats marks all four statistics fields as undetermined
// (dmin=0, dmax=-1, dmean=-2, rms=-1) without scanning the data.
func (o *Object) ResetHeaderStats() error {
	if err := o.checkWriteable(); err != nil {
		return err
	}
	o.header.resetStats()
	return nil
}

// VoxelSize returns the physical spacing per axis in angstroms, computed
// from the cell edge lengths and the sampling counts. It is not stored
// directly in the file.
func (o *Object) VoxelSize() [3]float32 {
	h := o.header
	return [3]float32{
		h.CellA[0] / float32(h.Mx),
		h.CellA[1] / float32(h.My),
		h.CellA[2] / float32(h.Mz),
	}
}

// SetVoxelSize sets the voxel size by mutating the cell edge lengths
// using the currently-set sampling counts. Sampling counts themselves are
// unchanged.
func (o *Object) SetVoxelSize(x, y, z float32) error {
	if err := o.checkWriteable(); err != nil {
		return err
	}
	h := o.header
	h.CellA[0] = x * float32(h.Mx)
	h.CellA[1] = y * float32(h.My)
	h.CellA[2] = z * float32(h.Mz)
	return nil
}

// IsSingleImage reports whether the data is a single 2D image.
func (o *Object) IsSingleImage() bool {
	return o.data != nil && o.data.NDim() == 2
}

// IsImageStack reports whether the data is a stack of 2D images.
func (o *Object) IsImageStack() bool {
	return o.data != nil && o.data.NDim() == 3 &&
		o.header.ISpg == format.ImageStackSpaceGroup
}

// IsVolume reports whether the data is a 3D volume.
func (o *Object) IsVolume() bool {
	return o.data != nil && o.data.NDim() == 3 &&
		o.header.ISpg != format.ImageStackSpaceGroup
}

// IsVolumeStack reports whether the data is a stack of 3D volumes.
func (o *Object) IsVolumeStack() bool {
	return o.data != nil && o.data.NDim() == 4
}

// SetImageStack reinterprets 3D data as a stack of images: space group 0
// and a z sampling count of 1.
func (o *Object) SetImageStack() error {
	if err := o.checkWriteable(); err != nil {
		return err
	}
	if o.data == nil || o.data.NDim() != 3 {
		return fmt.Errorf("%w (image stack)", ErrInvalidState)
	}
	o.header.ISpg = format.ImageStackSpaceGroup
	o.header.Mz = 1
	return nil
}

// SetVolume reinterprets 3D data as a volume: space group 1 and a z
// sampling count matching nz.
func (o *Object) SetVolume() error {
	if err := o.checkWriteable(); err != nil {
		return err
	}
	if o.data == nil || o.data.NDim() != 3 {
		return fmt.Errorf("%w (volume)", ErrInvalidState)
	}
	if o.header.ISpg == format.ImageStackSpaceGroup {
		o.header.ISpg = format.VolumeSpaceGroup
		o.header.Mz = o.header.Nz
	}
	return nil
}

// Dump writes every header field name and value to w in declaration order.
func (o *Object) Dump(w io.Writer) error {
	return o.header.Dump(w)
}

// dataStats carries one full-scan summary of a data block.
type dataStats struct {
	min, max  float32
	mean, rms float32
	nonFinite int
}

// computeStats scans every element once. Mean and RMS use 32-bit float
// accumulators to bound cost on very large blocks, so they can overflow
// to infinity for extreme magnitudes; that is accepted behaviour. Complex
// elements contribute their real parts.
func computeStats(a *Array) dataStats {
	n := a.Len()
	s := dataStats{min: float32(math.Inf(1)), max: float32(math.Inf(-1))}

	var sum float32
	for i := 0; i < n; i++ {
		v := float32(a.floatAt(i))
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			s.nonFinite++
		}
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
		sum += v
	}
	s.mean = sum / float32(n)

	var sumSq float32
	for i := 0; i < n; i++ {
		d := float32(a.floatAt(i)) - s.mean
		sumSq += d * d
	}
	s.rms = float32(math.Sqrt(float64(sumSq / float32(n))))
	return s
}
