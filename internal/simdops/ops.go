// Package simdops wraps the SIMD vector kernels used by the table analysis
// for float32 and float64 behind one generic type.
package simdops

import (
	"github.com/tphakala/simd/f32"
	"github.com/tphakala/simd/f64"
)

// Float is the type constraint for supported floating-point types.
type Float interface {
	float32 | float64
}

// Ops provides SIMD-accelerated operations for type F.
type Ops[F Float] struct {
	// DotProduct returns sum(a[i]*b[i]) over the shorter slice.
	DotProduct func(a, b []F) F

	// DotProductUnsafe is DotProduct without length checks.
	// Use only when slices are guaranteed to have equal length.
	DotProductUnsafe func(a, b []F) F

	// Sum returns the sum of all elements.
	Sum func(a []F) F

	// Scale multiplies each element by scalar s: dst[i] = a[i] * s
	Scale func(dst, a []F, s F)
}

var (
	ops32 = Ops[float32]{
		DotProduct:       f32.DotProduct,
		DotProductUnsafe: f32.DotProductUnsafe,
		Sum:              f32.Sum,
		Scale:            f32.Scale,
	}
	ops64 = Ops[float64]{
		DotProduct:       f64.DotProduct,
		DotProductUnsafe: f64.DotProductUnsafe,
		Sum:              f64.Sum,
		Scale:            f64.Scale,
	}
)

// For returns the Ops instance for type F.
func For[F Float]() *Ops[F] {
	var zero F
	switch any(zero).(type) {
	case float32:
		ops, ok := any(&ops32).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float32")
		}
		return ops
	case float64:
		ops, ok := any(&ops64).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float64")
		}
		return ops
	default:
		panic("simdops: unsupported float type")
	}
}

// Energy returns sum(a[i]^2).
func (o *Ops[F]) Energy(a []F) F {
	if len(a) == 0 {
		return 0
	}
	return o.DotProductUnsafe(a, a)
}

// Mean returns the arithmetic mean of a, zero for an empty slice.
func (o *Ops[F]) Mean(a []F) F {
	if len(a) == 0 {
		return 0
	}
	return o.Sum(a) / F(len(a))
}

// Widen converts int8 samples to F, scaled by s, up to the shorter length.
func Widen[F Float](dst []F, src []int8, s F) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = F(src[i]) * s
	}
}
