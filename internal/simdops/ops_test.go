package simdops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOps64(t *testing.T) {
	o := For[float64]()
	a := []float64{0, 99, 0, -99}

	assert.InDelta(t, 0, o.Sum(a), 1e-12)
	assert.InDelta(t, 2*99*99, o.Energy(a), 1e-9)
	assert.InDelta(t, 0, o.Mean(a), 1e-12)
	assert.InDelta(t, 99, o.DotProduct(a, []float64{0, 1, 0, 0}), 1e-12)

	dst := make([]float64, len(a))
	o.Scale(dst, a, 1.0/99)
	assert.InDeltaSlice(t, []float64{0, 1, 0, -1}, dst, 1e-12)
}

func TestOps32(t *testing.T) {
	o := For[float32]()
	a := []float32{1, 2, 3, 4}
	assert.InDelta(t, 10, o.Sum(a), 1e-6)
	assert.InDelta(t, 2.5, o.Mean(a), 1e-6)
	assert.InDelta(t, 30, o.Energy(a), 1e-5)
}

func TestEmpty(t *testing.T) {
	o := For[float64]()
	assert.Zero(t, o.Energy(nil))
	assert.Zero(t, o.Mean(nil))
}

func TestWiden(t *testing.T) {
	dst := make([]float64, 3)
	Widen(dst, []int8{-99, 0, 99, 42}, 0.5)
	assert.Equal(t, []float64{-49.5, 0, 49.5}, dst)
}

func BenchmarkEnergy(b *testing.B) {
	o := For[float64]()
	a := make([]float64, 4096)
	for i := range a {
		a[i] = float64(i%8) * 0.1
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = o.Energy(a)
	}
}
