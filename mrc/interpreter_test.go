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

// corruptVolume writes a valid volume file, then applies edit to its raw
// bytes and writes it back.
func corruptVolume(t *testing.T, edit func(buf []byte) []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bad.mrc")
	writeVolume(t, path)

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, edit(buf), 0o644))
	return path
}

func TestOpenRejectsShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.mrc")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrFormat)

	// A file shorter than one header is unreadable in any mode.
	_, err = Open(path, Permissive())
	assert.ErrorIs(t, err, ErrFormat)
}

func TestOpenRejectsBadMapID(t *testing.T) {
	path := corruptVolume(t, func(buf []byte) []byte {
		copy(buf[format.MapIDOffset:], "XXXX")
		return buf
	})

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrFormat)

	f, err := Open(path, Permissive())
	require.NoError(t, err)
	defer f.Close()
	require.NotEmpty(t, f.Warnings())
	// The rest of the layout is intact, so the data still loads.
	require.NotNil(t, f.Data())
	assert.Equal(t, []int{2, 3, 4}, f.Data().Dims())
}

func TestOpenRejectsBadMachineStamp(t *testing.T) {
	path := corruptVolume(t, func(buf []byte) []byte {
		buf[212], buf[213] = 0xff, 0xff
		return buf
	})

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrMachineStamp)

	f, err := Open(path, Permissive())
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.Warnings())
	// Little-endian is assumed, which happens to be right for this file.
	require.NotNil(t, f.Data())
}

func TestOpenRejectsUnknownMode(t *testing.T) {
	path := corruptVolume(t, func(buf []byte) []byte {
		stdbin.LittleEndian.PutUint32(buf[12:], 99)
		return buf
	})

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrUnknownMode)

	f, err := Open(path, Permissive())
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.Warnings())
	// The element size is unknowable, so no data is read.
	assert.Nil(t, f.Data())
}

func TestOpenRejectsTruncatedData(t *testing.T) {
	path := corruptVolume(t, func(buf []byte) []byte {
		return buf[:len(buf)-40]
	})

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	f, err := Open(path, Permissive())
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.Warnings())
	assert.Nil(t, f.Data())
}

func TestOpenRejectsOversizedExtendedHeader(t *testing.T) {
	// nsymbt claims far more bytes than the stream holds; the claim must
	// be rejected before any allocation sized from it.
	path := corruptVolume(t, func(buf []byte) []byte {
		stdbin.LittleEndian.PutUint32(buf[92:], 1<<30)
		return buf
	})

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	f, err := Open(path, Permissive())
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.Warnings())
	assert.Nil(t, f.Data())
	assert.Empty(t, f.ExtendedHeader())
}

func TestOpenRejectsOverflowingDimensions(t *testing.T) {
	// Each dimension fits in int32 but the float32 data length is 2^63,
	// wrapping negative; the claim must be rejected before any allocation
	// is sized from it.
	path := corruptVolume(t, func(buf []byte) []byte {
		le := stdbin.LittleEndian
		le.PutUint32(buf[0:], 65536)     // nx
		le.PutUint32(buf[4:], 65536)     // ny
		le.PutUint32(buf[8:], 536870912) // nz
		return buf[:format.HeaderSize]
	})

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	f, err := Open(path, Permissive())
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.Warnings())
	assert.Nil(t, f.Data())
}

func TestOpenWarnsOnTrailingBytes(t *testing.T) {
	path := corruptVolume(t, func(buf []byte) []byte {
		return append(buf, make([]byte, 16)...)
	})

	// Extra bytes after the data block are tolerated in both modes.
	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	require.Len(t, f.Warnings(), 1)
	assert.Contains(t, f.Warnings()[0], "larger than expected")
	require.NotNil(t, f.Data())
	assert.Equal(t, []int{2, 3, 4}, f.Data().Dims())
}

func TestOpenEmptyDimensionsGiveNoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mrc")
	f, err := New(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	g, err := Open(path)
	require.NoError(t, err)
	defer g.Close()
	assert.Nil(t, g.Data())
	assert.Empty(t, g.Warnings())
}

func TestVolumeStackShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.mrc")
	f, err := New(path)
	require.NoError(t, err)
	a, err := NewEmpty(Int8, []int{2, 3, 4, 5})
	require.NoError(t, err)
	require.NoError(t, f.SetData(a))
	require.NoError(t, f.Close())

	g, err := Open(path)
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, []int{2, 3, 4, 5}, g.Data().Dims())
	assert.True(t, g.IsVolumeStack())
}

func TestVolumeStackIndivisibleFallsBackToVolume(t *testing.T) {
	path := corruptVolume(t, func(buf []byte) []byte {
		// Volume-stack space group with mz not dividing nz.
		le := stdbin.LittleEndian
		le.PutUint32(buf[88:], uint32(format.VolumeStackSpaceGroup))
		le.PutUint32(buf[36:], 5) // mz, nz is 2
		return buf
	})

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.Warnings())
	assert.Equal(t, []int{2, 3, 4}, f.Data().Dims())
}
