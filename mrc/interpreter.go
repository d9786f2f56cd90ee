package mrc

import (
	stdbin "encoding/binary"
	"fmt"
	"math"

	"github.com/structbio/go-mrc/internal/backend"
	"github.com/structbio/go-mrc/internal/format"
)

// readObject interprets the byte stream supplied by a backend into an
// Object. In permissive mode the four structural errors become recorded
// diagnostics and parsing continues as far as the byte layout permits,
// leaving the data block nil whenever it cannot be read safely.
//
// Buffer sizes are never taken from unverified header fields: the
// extended header and data lengths are checked against the remaining
// stream length before any allocation, so a corrupt header cannot demand
// an arbitrarily large buffer.
func readObject(b backend.Backend, permissive bool) (*Object, error) {
	size, err := b.Size()
	if err != nil {
		return nil, err
	}
	if size < format.HeaderSize {
		return nil, fmt.Errorf("%w: file is only %d bytes", ErrFormat, size)
	}

	block := make([]byte, format.HeaderSize)
	if _, err := b.ReadAt(block, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	obj := &Object{ext: []byte{}, store: memStorage{}, readOnly: b.ReadOnly()}
	mapped, isMapped := b.(backend.Mapper)
	if isMapped {
		obj.store = &mmapStorage{b: b.(*backend.Mmap), o: obj}
	}

	if string(block[format.MapIDOffset:format.MapIDOffset+4]) != format.MapID {
		if !permissive {
			return nil, ErrFormat
		}
		obj.warnf("%v", ErrFormat)
	}

	var stamp [4]byte
	copy(stamp[:], block[212:216])
	order, err := format.ByteOrderFromStamp(stamp)
	if err != nil {
		if !permissive {
			return nil, err
		}
		// Assume little-endian and let the downstream size and mode
		// checks catch whatever follows from a wrong guess.
		obj.warnf("%v; assuming little-endian", err)
		order = stdbin.LittleEndian
	}

	h, err := unmarshalHeader(block, order)
	if err != nil {
		return nil, err
	}
	obj.header = h

	// Extended header, bounds-checked before the main data read.
	nsymbt := int64(h.NSymBT)
	if nsymbt < 0 || format.HeaderSize+nsymbt > size {
		err := fmt.Errorf("%w: extended header of %d bytes, stream has %d after header",
			ErrSizeMismatch, nsymbt, size-format.HeaderSize)
		if !permissive {
			return nil, err
		}
		obj.warnf("%v", err)
		return obj, nil
	}
	if nsymbt > 0 {
		if isMapped {
			obj.ext = mapped.Bytes()[format.HeaderSize : format.HeaderSize+nsymbt]
		} else {
			ext := make([]byte, nsymbt)
			if _, err := b.ReadAt(ext, format.HeaderSize); err != nil {
				return nil, fmt.Errorf("reading extended header: %w", err)
			}
			obj.ext = ext
		}
	}

	dtype, err := format.DTypeFromMode(h.Mode)
	if err != nil {
		err = fmt.Errorf("%w: %d", ErrUnknownMode, int32(h.Mode))
		if !permissive {
			return nil, err
		}
		obj.warnf("%v", err)
		return obj, nil
	}

	if h.Nx == 0 && h.Ny == 0 && h.Nz == 0 {
		// Fresh or deliberately empty file: no data block.
		return obj, nil
	}
	if h.Nx < 0 || h.Ny < 0 || h.Nz < 0 {
		err := fmt.Errorf("%w: negative dimensions %dx%dx%d", ErrSizeMismatch, h.Nx, h.Ny, h.Nz)
		if !permissive {
			return nil, err
		}
		obj.warnf("%v", err)
		return obj, nil
	}

	expected, ok := dataLength(dtype, h.Nx, h.Ny, h.Nz)
	remaining := size - format.HeaderSize - nsymbt
	if !ok {
		err := fmt.Errorf("%w: dimensions %dx%dx%d overflow the data length",
			ErrSizeMismatch, h.Nx, h.Ny, h.Nz)
		if !permissive {
			return nil, err
		}
		obj.warnf("%v", err)
		return obj, nil
	}
	if expected > remaining {
		err := fmt.Errorf("%w: header declares %d data bytes, stream has %d",
			ErrSizeMismatch, expected, remaining)
		if !permissive {
			return nil, err
		}
		obj.warnf("%v", err)
		return obj, nil
	}
	if expected < remaining {
		// Oversized files open fine; record the excess in both modes.
		obj.warnf("file is %d bytes larger than expected from the header", remaining-expected)
	}

	dims := shapeFromHeader(h, obj)
	dataOff := format.HeaderSize + nsymbt
	var raw []byte
	if isMapped {
		raw = mapped.Bytes()[dataOff : dataOff+expected]
	} else {
		raw = make([]byte, expected)
		if expected > 0 {
			if _, err := b.ReadAt(raw, dataOff); err != nil {
				return nil, fmt.Errorf("reading data block: %w", err)
			}
		}
	}
	data, err := newArray(dtype, dims, order, raw)
	if err != nil {
		return nil, err
	}
	obj.data = data
	return obj, nil
}

// dataLength multiplies the element size by the three header dimensions,
// guarding each step against int64 overflow. Dimensions that each fit in
// int32 can still overflow the product, and a wrapped-negative length
// must never reach an allocation.
func dataLength(dtype format.DType, nx, ny, nz int32) (int64, bool) {
	n := int64(dtype.Size())
	for _, d := range []int64{int64(nx), int64(ny), int64(nz)} {
		if d > 0 && n > math.MaxInt64/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// shapeFromHeader converts header dimensions into an array shape,
// slowest axis first: volume stacks are rank 4, a single image (space
// group 0 with one section) is rank 2, everything else is rank 3.
func shapeFromHeader(h *Header, obj *Object) []int {
	nx, ny, nz, mz := int(h.Nx), int(h.Ny), int(h.Nz), int(h.Mz)
	switch {
	case format.SpaceGroupIsVolumeStack(h.ISpg):
		if mz > 0 && nz%mz == 0 {
			return []int{nz / mz, mz, ny, nx}
		}
		obj.warnf("volume stack nz=%d is not divisible by mz=%d; reading as a single volume", nz, mz)
		return []int{nz, ny, nx}
	case h.ISpg == format.ImageStackSpaceGroup && nz == 1:
		return []int{ny, nx}
	default:
		return []int{nz, ny, nx}
	}
}

// writeObject serializes header, extended header and data, in that fixed
// order, to the backend and trims it to the exact total length.
func writeObject(b backend.Backend, o *Object) error {
	if _, err := b.WriteAt(o.header.marshal(), 0); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if len(o.ext) > 0 {
		if _, err := b.WriteAt(o.ext, format.HeaderSize); err != nil {
			return fmt.Errorf("writing extended header: %w", err)
		}
	}
	total := int64(format.HeaderSize + len(o.ext))
	if o.data != nil {
		if _, err := b.WriteAt(o.data.Bytes(), total); err != nil {
			return fmt.Errorf("writing data block: %w", err)
		}
		total += int64(len(o.data.Bytes()))
	}
	if err := b.Truncate(total); err != nil {
		return fmt.Errorf("trimming stream: %w", err)
	}
	return nil
}

// mmapStorage seats the extended header and data directly over the mapped
// file. A mapped region cannot change size, so a layout change flushes and
// unmaps the region, resizes the backing file and remaps it, then reseats
// the views at the fixed offsets (header at 0, extended header at 1024,
// data immediately after).
type mmapStorage struct {
	b *backend.Mmap
	o *Object
}

func (s *mmapStorage) placeExtended(n int) ([]byte, error) {
	oldLen := len(s.o.ext)
	if n == oldLen {
		// Same length: the caller overwrites the view in place.
		return s.o.ext, nil
	}

	// The data block moves, so copy it out before the region goes away.
	var keep []byte
	if s.o.data != nil {
		keep = append([]byte(nil), s.o.data.Bytes()...)
	}
	if err := s.b.Truncate(int64(format.HeaderSize + n + len(keep))); err != nil {
		return nil, err
	}
	m := s.b.Bytes()
	ext := m[format.HeaderSize : format.HeaderSize+n]
	if s.o.data != nil {
		data := m[format.HeaderSize+n:]
		copy(data, keep)
		s.o.data.raw = data
	}
	return ext, nil
}

func (s *mmapStorage) placeData(n int) ([]byte, error) {
	extLen := len(s.o.ext)
	if s.o.data != nil && n == len(s.o.data.Bytes()) {
		return s.o.data.Bytes(), nil
	}

	// The extended header is a prefix byte range, so the file resize
	// preserves it; only its view needs reseating on the new mapping.
	if err := s.b.Truncate(int64(format.HeaderSize + extLen + n)); err != nil {
		return nil, err
	}
	m := s.b.Bytes()
	s.o.ext = m[format.HeaderSize : format.HeaderSize+extLen]
	return m[format.HeaderSize+extLen : format.HeaderSize+extLen+n], nil
}
