package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_Empty(t *testing.T) {
	r := NewRing(8)
	assert.Nil(t, r.Snapshot())
	assert.Zero(t, r.Len())
	assert.Equal(t, 8, r.Capacity())
}

func TestRing_PartialFill(t *testing.T) {
	r := NewRing(8)
	r.Write([]int8{1, 2, 3})
	assert.Equal(t, []int8{1, 2, 3}, r.Snapshot())
	assert.Equal(t, 3, r.Len())
}

func TestRing_WrapAround(t *testing.T) {
	r := NewRing(4)
	r.Write([]int8{1, 2, 3})
	r.Write([]int8{4, 5, 6})
	assert.Equal(t, []int8{3, 4, 5, 6}, r.Snapshot())
	assert.Equal(t, uint64(6), r.Written())
}

func TestRing_WriteLargerThanCapacity(t *testing.T) {
	r := NewRing(4)
	r.Write([]int8{9})
	r.Write([]int8{1, 2, 3, 4, 5, 6, 7})
	assert.Equal(t, []int8{4, 5, 6, 7}, r.Snapshot())
	assert.Equal(t, uint64(8), r.Written())
}

func TestRing_Clear(t *testing.T) {
	r := NewRing(4)
	r.Write([]int8{1, 2})
	r.Clear()
	assert.Nil(t, r.Snapshot())
	r.Write([]int8{7})
	assert.Equal(t, []int8{7}, r.Snapshot())
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := NewRing(0)
	r.Write([]int8{1, 2})
	assert.Equal(t, []int8{2}, r.Snapshot())
}

func TestWriteWAVFile(t *testing.T) {
	samples := []int8{0, 99, 0, -99, 0, 99, 0, -99}
	path := filepath.Join(t.TempDir(), "carrier.wav")

	require.NoError(t, WriteWAVFile(path, samples, 112_000_000))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, rate, err := ReadWAV(f)
	require.NoError(t, err)
	assert.Equal(t, 112_000_000, rate)
	assert.Equal(t, samples, got)
}

func TestWriteWAV_InvalidRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	err := WriteWAVFile(path, []int8{1}, 0)
	require.ErrorIs(t, err, ErrSampleRate)
}
