package mrc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAsync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.mrc")
	want := writeVolume(t, path)

	fut := OpenAsync(path)
	f, err := fut.Wait()
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, fut.Done())
	assert.True(t, want.Equal(f.Data()))

	// Wait is repeatable.
	again, err := fut.Wait()
	require.NoError(t, err)
	assert.Same(t, f, again)
}

func TestOpenAsyncPropagatesError(t *testing.T) {
	fut := OpenAsync(filepath.Join(t.TempDir(), "missing.mrc"))
	f, err := fut.Wait()
	assert.Nil(t, f)
	assert.Error(t, err)
	assert.True(t, fut.Done())
}
