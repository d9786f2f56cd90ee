package mrc

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structbio/go-mrc/internal/format"
)

func validObject(t *testing.T) *Object {
	t.Helper()
	o := newObject(memStorage{})
	a, err := NewFloat32([]int{2, 3, 4}, make([]float32, 24))
	require.NoError(t, err)
	require.NoError(t, o.SetData(a))
	return o
}

func TestValidatePassesWellFormedObject(t *testing.T) {
	o := validObject(t)
	assert.Empty(t, o.Validate())
}

func TestValidateFlagsHeaderProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Object)
		want   string
	}{
		{"map id", func(o *Object) { copy(o.Header().MapID[:], "XXXX") }, "map ID"},
		{"machine stamp", func(o *Object) { o.Header().MachSt = [4]byte{0xff, 0xff, 0, 0} }, "machine stamp"},
		{"mode", func(o *Object) { o.Header().Mode = 99 }, "mode 99"},
		{"negative dims", func(o *Object) { o.Header().Nz = -1 }, "negative"},
		{"grid sampling", func(o *Object) { o.Header().Mx = 0 }, "grid sampling"},
		{"cell edge", func(o *Object) { o.Header().CellA[1] = -5 }, "cell edge"},
		{"cell angle", func(o *Object) { o.Header().CellB[0] = 200 }, "cell angle"},
		{"axis mapping", func(o *Object) { o.Header().MapR = 1 }, "permutation"},
		{"nversion", func(o *Object) { o.Header().NVersion = 0 }, "nversion"},
		{"label count", func(o *Object) { o.Header().NLabl = 11 }, "label count"},
		{"counted empty label", func(o *Object) { o.Header().NLabl = 3 }, "empty"},
		{"uncounted label", func(o *Object) { o.Header().SetLabel(5, "stray") }, "beyond the nlabl count"},
		{"stats", func(o *Object) { o.Header().DMean = 1000 }, "statistics"},
		{"ext length", func(o *Object) { o.Header().NSymBT = 12 }, "extended header length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validObject(t)
			tt.mutate(o)
			msgs := o.Validate()
			require.NotEmpty(t, msgs)
			assert.Contains(t, strings.Join(msgs, "\n"), tt.want)
		})
	}
}

func TestValidateAcceptsUndeterminedStats(t *testing.T) {
	o := validObject(t)
	require.NoError(t, o.ResetHeaderStats())
	assert.Empty(t, o.Validate())
}

func TestValidateFlagsUnknownExtType(t *testing.T) {
	o := validObject(t)
	require.NoError(t, o.SetExtendedHeader(make([]byte, 32)))
	o.Header().SetExtType("BOGUS")
	msgs := o.Validate()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "BOGUS")

	o.Header().SetExtType("FEI1")
	assert.Empty(t, o.Validate())
}

func TestValidateVolumeStackDivisibility(t *testing.T) {
	o := validObject(t)
	o.Header().ISpg = format.VolumeStackSpaceGroup
	o.Header().Mz = 5 // nz is 2
	msgs := o.Validate()
	require.NotEmpty(t, msgs)
	assert.Contains(t, strings.Join(msgs, "\n"), "multiple of mz")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	o := validObject(t)
	copy(o.Header().MapID[:], "XXXX")
	o.Header().NVersion = 0
	o.Header().Mx = -1
	assert.GreaterOrEqual(t, len(o.Validate()), 3)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.mrc")
	writeVolume(t, good)
	var sb strings.Builder
	valid, err := ValidateFile(good, &sb)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, sb.String())

	bad := corruptVolume(t, func(buf []byte) []byte {
		copy(buf[format.MapIDOffset:], "XXXX")
		return buf
	})
	sb.Reset()
	valid, err = ValidateFile(bad, &sb)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.NotEmpty(t, sb.String())
}
