package tpgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/tpgo/engine"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		n    int
		want EntrySize
	}{
		{-1, Bytes8},
		{0, Bytes8},
		{1, Bytes8},
		{8, Bytes8},
		{9, Bytes16},
		{16, Bytes16},
		{17, Bytes32},
		{100, Bytes128},
		{513, Bytes1024},
		{1024, Bytes1024},
	}
	for _, tt := range tests {
		got, err := Classify(tt.n)
		require.NoError(t, err, "Classify(%d)", tt.n)
		assert.Equal(t, tt.want, got, "Classify(%d)", tt.n)
	}
}

func TestClassifyTooLarge(t *testing.T) {
	_, err := Classify(1025)
	assert.ErrorIs(t, err, ErrNoFittingSizeClass)
}

func TestSizesMatchEngineContract(t *testing.T) {
	sizes := Sizes()
	require.Len(t, sizes, len(engine.SupportedEntrySizes))
	for i, s := range sizes {
		assert.Equal(t, engine.SupportedEntrySizes[i], s.NumBytes())
		assert.True(t, s.Valid())
		if i > 0 {
			assert.Greater(t, s, sizes[i-1], "sizes must be strictly increasing")
		}
	}
	assert.Equal(t, MaxEntrySize, sizes[len(sizes)-1])
}

func TestEntrySizeString(t *testing.T) {
	assert.Equal(t, "Bytes64", Bytes64.String())
	assert.Equal(t, "EntrySize(12)", EntrySize(12).String())
	assert.False(t, EntrySize(12).Valid())
}

func TestParseEntrySize(t *testing.T) {
	s, err := ParseEntrySize("256")
	require.NoError(t, err)
	assert.Equal(t, Bytes256, s)

	s, err = ParseEntrySize("Bytes16")
	require.NoError(t, err)
	assert.Equal(t, Bytes16, s)

	_, err = ParseEntrySize("100")
	assert.ErrorIs(t, err, ErrUnsupportedEntrySize)

	_, err = ParseEntrySize("big")
	assert.Error(t, err)
}
