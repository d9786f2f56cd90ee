package mrc

import (
	stdbin "encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structbio/go-mrc/internal/format"
)

// writeVolume creates a file at path holding a small float32 volume and
// returns the array it was given.
func writeVolume(t *testing.T, path string, opts ...Option) *Array {
	t.Helper()
	f, err := New(path, append(opts, Overwrite())...)
	require.NoError(t, err)

	vals := make([]float32, 24)
	for i := range vals {
		vals[i] = float32(i) - 10
	}
	a, err := NewFloat32([]int{2, 3, 4}, vals)
	require.NoError(t, err)
	require.NoError(t, f.SetData(a))
	require.NoError(t, f.Close())
	return a
}

func TestRoundTripPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	want := writeVolume(t, path)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, f.ReadOnly())
	assert.Empty(t, f.Warnings())
	assert.Equal(t, int32(4), f.Header().Nx)
	assert.Equal(t, format.ModeFloat32, f.Header().Mode)
	assert.True(t, want.Equal(f.Data()))
}

func TestRoundTripElementTypes(t *testing.T) {
	dims := []int{2, 2}
	tests := []struct {
		name     string
		make     func(t *testing.T) *Array
		opts     []Option
		wantMode Mode
		want     func(t *testing.T) *Array
	}{
		{
			name: "int8",
			make: func(t *testing.T) *Array {
				a, err := NewInt8(dims, []int8{-128, -1, 0, 127})
				return mustArray(t, a, err)
			},
			wantMode: format.ModeInt8,
		},
		{
			name: "int16",
			make: func(t *testing.T) *Array {
				a, err := NewInt16(dims, []int16{-32768, -1, 0, 32767})
				return mustArray(t, a, err)
			},
			wantMode: format.ModeInt16,
		},
		{
			name: "uint16",
			make: func(t *testing.T) *Array {
				a, err := NewUint16(dims, []uint16{0, 1, 2, 65535})
				return mustArray(t, a, err)
			},
			wantMode: format.ModeUint16,
		},
		{
			name: "uint8 widens to mode 6",
			make: func(t *testing.T) *Array {
				a, err := NewUint8(dims, []uint8{0, 1, 128, 255})
				return mustArray(t, a, err)
			},
			wantMode: format.ModeUint16,
			want: func(t *testing.T) *Array {
				a, err := NewUint16(dims, []uint16{0, 1, 128, 255})
				return mustArray(t, a, err)
			},
		},
		{
			name: "float16 widens to mode 2",
			make: func(t *testing.T) *Array {
				a, err := NewFloat16(dims, []float32{0, 0.5, -1.5, 4})
				return mustArray(t, a, err)
			},
			wantMode: format.ModeFloat32,
			want: func(t *testing.T) *Array {
				a, err := NewFloat32(dims, []float32{0, 0.5, -1.5, 4})
				return mustArray(t, a, err)
			},
		},
		{
			name: "float16 kept as mode 12",
			make: func(t *testing.T) *Array {
				a, err := NewFloat16(dims, []float32{0, 0.5, -1.5, 4})
				return mustArray(t, a, err)
			},
			opts:     []Option{KeepFloat16()},
			wantMode: format.ModeFloat16,
		},
		{
			name: "complex64",
			make: func(t *testing.T) *Array {
				a, err := NewComplex64(dims, []complex64{1 + 2i, -3 - 4i, 0, 5i})
				return mustArray(t, a, err)
			},
			wantMode: format.ModeComplex64,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rt.mrc")
			f, err := New(path, tt.opts...)
			require.NoError(t, err)
			require.NoError(t, f.SetData(tt.make(t)))
			require.NoError(t, f.Close())

			g, err := Open(path, tt.opts...)
			require.NoError(t, err)
			defer g.Close()

			assert.Equal(t, tt.wantMode, g.Header().Mode)
			want := tt.make(t)
			if tt.want != nil {
				want = tt.want(t)
			}
			assert.True(t, want.Equal(g.Data()))
		})
	}
}

func mustArray(t *testing.T, a *Array, err error) *Array {
	t.Helper()
	require.NoError(t, err)
	return a
}

func TestRoundTripGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc.gz")
	want := writeVolume(t, path)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, want.Equal(f.Data()))
}

func TestRoundTripBzip2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc.bz2")
	want := writeVolume(t, path)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, want.Equal(f.Data()))
}

func TestOpenSniffsCompressionWithoutSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nosuffix")
	want := writeVolume(t, path, WithBackend(GzipBackend))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, want.Equal(f.Data()))
}

func TestNewRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	writeVolume(t, path)

	_, err := New(path)
	assert.ErrorIs(t, err, ErrExists)

	f, err := New(path, Overwrite())
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestOpenReadOnlyRejectsMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	writeVolume(t, path)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	a, err := NewEmpty(Int8, []int{2, 2})
	require.NoError(t, err)
	assert.ErrorIs(t, f.SetData(a), ErrReadOnly)
}

func TestReadWriteEditPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	writeVolume(t, path)

	f, err := Open(path, ReadWrite())
	require.NoError(t, err)
	f.Data().SetFloat32At(0, 99)
	require.NoError(t, f.UpdateHeaderStats())
	require.NoError(t, f.Close())

	g, err := Open(path)
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, float32(99), g.Data().Float32At(0))
	assert.Equal(t, float32(99), g.Header().DMax)
}

func TestExtendedHeaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	f, err := New(path)
	require.NoError(t, err)

	a, err := NewInt16([]int{2, 2}, []int16{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, f.SetData(a))
	ext := make([]byte, 96)
	for i := range ext {
		ext[i] = byte(i)
	}
	require.NoError(t, f.SetExtendedHeader(ext))
	f.Header().SetExtType("SERI")
	require.NoError(t, f.Close())

	g, err := Open(path)
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, ext, g.ExtendedHeader())
	assert.Equal(t, int32(96), g.Header().NSymBT)
	assert.Equal(t, "SERI", g.Header().ExtType())
	assert.True(t, a.Equal(g.Data()))
}

func TestFlushIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	f, err := New(path)
	require.NoError(t, err)
	defer f.Close()

	a, err := NewFloat32([]int{1, 2}, []float32{1, 2})
	require.NoError(t, err)
	require.NoError(t, f.SetData(a))

	require.NoError(t, f.Flush())
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, f.Flush())
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCloseTwiceIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	f, err := New(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.ErrorIs(t, f.Flush(), ErrClosed)
}

func TestMmapOpenAndEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	want := writeVolume(t, path)

	f, err := Mmap(path, ReadWrite())
	require.NoError(t, err)
	require.True(t, want.Equal(f.Data()))

	// Element writes land in the mapping itself.
	f.Data().SetFloat32At(5, 1234)
	require.NoError(t, f.Close())

	g, err := Open(path)
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, float32(1234), g.Data().Float32At(5))
}

func TestMmapExtendedHeaderResizePreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	want := writeVolume(t, path)

	f, err := Mmap(path, ReadWrite())
	require.NoError(t, err)
	ext := make([]byte, 128)
	for i := range ext {
		ext[i] = byte(255 - i)
	}
	require.NoError(t, f.SetExtendedHeader(ext))
	require.NoError(t, f.Close())

	g, err := Open(path)
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, ext, g.ExtendedHeader())
	assert.True(t, want.Equal(g.Data()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(format.HeaderSize+128+24*4), info.Size())
}

func TestMmapSetDataResize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	writeVolume(t, path)

	f, err := Mmap(path, ReadWrite())
	require.NoError(t, err)
	bigger, err := NewFloat32([]int{4, 3, 4}, make([]float32, 48))
	require.NoError(t, err)
	require.NoError(t, f.SetData(bigger))
	require.NoError(t, f.Close())

	g, err := Open(path)
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, []int{4, 3, 4}, g.Data().Dims())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(format.HeaderSize+48*4), info.Size())
}

func TestNewMmapCreatesAtFinalSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.mrc")
	f, err := NewMmap(path, []int{8, 16, 16}, Float32)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(format.HeaderSize+8*16*16*4), info.Size())

	assert.True(t, f.Header().statsUndetermined())
	assert.Zero(t, f.Data().Float32At(0))
	require.NoError(t, f.Close())

	g, err := Open(path)
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, []int{8, 16, 16}, g.Data().Dims())
}

func TestNewMmapWithFill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filled.mrc")
	f, err := NewMmap(path, []int{2, 3}, Int16, WithFill(-7))
	require.NoError(t, err)
	defer f.Close()

	for i := 0; i < f.Data().Len(); i++ {
		assert.Equal(t, int16(-7), f.Data().Int16At(i))
	}
}

func TestNewMmapRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	writeVolume(t, path)

	_, err := NewMmap(path, []int{2, 2}, Int8)
	assert.ErrorIs(t, err, ErrExists)
}

func TestOpenBigEndianFile(t *testing.T) {
	buf := make([]byte, format.HeaderSize+8)
	be := stdbin.BigEndian
	be.PutUint32(buf[0:], 2) // nx
	be.PutUint32(buf[4:], 2) // ny
	be.PutUint32(buf[8:], 1) // nz
	be.PutUint32(buf[12:], uint32(format.ModeInt16))
	copy(buf[format.MapIDOffset:], format.MapID)
	copy(buf[212:], format.StampBigEndian[:])
	for i, v := range []int16{100, -200, 300, -400} {
		be.PutUint16(buf[format.HeaderSize+2*i:], uint16(v))
	}

	path := filepath.Join(t.TempDir(), "be.mrc")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, stdbin.BigEndian, f.Header().ByteOrder())
	require.Equal(t, []int{2, 2}, f.Data().Dims())
	assert.Equal(t, int16(-200), f.Data().Int16At(1))
	assert.Equal(t, int16(-400), f.Data().Int16At(3))
}
