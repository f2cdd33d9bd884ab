// Package wavetable builds quantized single-cycle sine tables for a fixed
// samples-per-cycle ratio.
//
// Only the first half of a cycle is evaluated with math.Sin. The second half
// is the exact negation of the first, so the table has odd half-wave
// symmetry and sums to zero regardless of how the first half rounds.
package wavetable

import (
	"errors"
	"fmt"
	"math"
)

// Limits of the signed 8-bit sample range.
const (
	maxInt8Amplitude = math.MaxInt8
	minRatio         = 2
	halfDivisor      = 2
	quarterDivisor   = 4
)

var (
	// ErrRatio is returned for a ratio that cannot form a symmetric cycle.
	ErrRatio = errors.New("wavetable: ratio must be an even number >= 2")

	// ErrAmplitude is returned for an amplitude outside 1..127.
	ErrAmplitude = errors.New("wavetable: amplitude must be within 1..127")
)

// PhaseOffset returns the phase (radians) of sample 0 for the given ratio.
//
// When ratio is a multiple of four a sample already falls on the peak at
// pi/2. Otherwise the grid is shifted by half a step (pi/ratio), which puts
// a sample on the peak and straddles the zero crossings symmetrically.
func PhaseOffset(ratio int) float64 {
	if ratio%quarterDivisor == 0 {
		return 0
	}
	return math.Pi / float64(ratio)
}

// Ideal returns the unquantized sample values for one cycle.
func Ideal(ratio int, amplitude float64) []float64 {
	out := make([]float64, ratio)
	step := 2 * math.Pi / float64(ratio)
	offset := PhaseOffset(ratio)
	for k := range out {
		out[k] = amplitude * math.Sin(float64(k)*step+offset)
	}
	return out
}

// Build returns one quantized cycle of length ratio.
func Build(ratio, amplitude int) ([]int8, error) {
	if ratio < minRatio || ratio%halfDivisor != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrRatio, ratio)
	}
	if amplitude < 1 || amplitude > maxInt8Amplitude {
		return nil, fmt.Errorf("%w: got %d", ErrAmplitude, amplitude)
	}

	half := ratio / halfDivisor
	shift := 0
	if PhaseOffset(ratio) != 0 {
		shift = 1
	}

	cycle := make([]int8, ratio)
	for k := range half {
		// Sample k sits at n*pi/ratio. Folding n onto the rising quarter makes
		// samples mirrored about the peak bit-identical.
		n := halfDivisor*k + shift
		m := min(n, ratio-n)
		v := quantize(float64(amplitude)*math.Sin(float64(m)*math.Pi/float64(ratio)), amplitude)
		cycle[k] = v
		cycle[k+half] = -v
	}
	return cycle, nil
}

// quantize rounds half away from zero and clamps to [-limit, limit].
func quantize(v float64, limit int) int8 {
	r := math.Round(v)
	if r > float64(limit) {
		r = float64(limit)
	} else if r < -float64(limit) {
		r = -float64(limit)
	}
	return int8(r)
}
