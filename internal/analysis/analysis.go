// Package analysis measures ratio tables and captured streams.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-fl2k-carrier/internal/simdops"
)

const (
	// fftHermitianDivisor: a real FFT of size N has N/2 + 1 unique bins.
	fftHermitianDivisor = 2

	// dbFloor is reported for bins with no energy.
	dbFloor = -200.0

	dbPerDecade = 20.0
)

// ErrEmptyCycle is returned for a zero-length cycle.
var ErrEmptyCycle = errors.New("analysis: empty cycle")

// Harmonic is one spectral bin of a cycle. Because the cycle repeats every
// Bin-th sample, every harmonic of the carrier above Nyquist folds onto
// one of these bins.
type Harmonic struct {
	Bin       int     `yaml:"bin"`
	Magnitude float64 `yaml:"magnitude"`
	DBc       float64 `yaml:"dbc"`
}

// Report describes one quantized cycle.
type Report struct {
	Ratio       int        `yaml:"ratio"`
	Amplitude   int        `yaml:"amplitude"`
	Samples     []int8     `yaml:"samples,flow"`
	DC          float64    `yaml:"dc"`
	Fundamental float64    `yaml:"fundamental"`
	Harmonics   []Harmonic `yaml:"harmonics,omitempty"`
	THD         float64    `yaml:"thd"`
	THDdB       float64    `yaml:"thd_db"`
	RMSError    float64    `yaml:"rms_error"`
	PeakError   float64    `yaml:"peak_error"`
}

// Analyze measures cycle against ideal, the unquantized samples it was
// rounded from. ideal may be nil, in which case the error fields are zero.
func Analyze(cycle []int8, ideal []float64, amplitude int) (*Report, error) {
	n := len(cycle)
	if n == 0 {
		return nil, ErrEmptyCycle
	}
	if ideal != nil && len(ideal) != n {
		return nil, fmt.Errorf("analysis: ideal has %d samples, cycle has %d", len(ideal), n)
	}

	ops := simdops.For[float64]()
	x := make([]float64, n)
	simdops.Widen(x, cycle, 1)

	r := &Report{
		Ratio:     n,
		Amplitude: amplitude,
		Samples:   append([]int8(nil), cycle...),
		DC:        ops.Mean(x),
	}

	mags := spectrum(x)
	if len(mags) > 1 {
		r.Fundamental = mags[1]
	}

	var distortion float64
	for k := 2; k < len(mags); k++ {
		distortion += mags[k] * mags[k]
		r.Harmonics = append(r.Harmonics, Harmonic{
			Bin:       k,
			Magnitude: mags[k],
			DBc:       toDB(mags[k], r.Fundamental),
		})
	}
	if r.Fundamental > 0 {
		r.THD = math.Sqrt(distortion) / r.Fundamental
	}
	r.THDdB = toDB(r.THD, 1)

	if ideal != nil {
		diff := make([]float64, n)
		for i := range diff {
			diff[i] = x[i] - ideal[i]
			r.PeakError = max(r.PeakError, math.Abs(diff[i]))
		}
		r.RMSError = math.Sqrt(ops.Energy(diff) / float64(n))
	}
	return r, nil
}

// spectrum returns the sinusoid amplitude of each unique bin of x.
func spectrum(x []float64) []float64 {
	n := len(x)
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, x)

	mags := make([]float64, len(coeffs))
	for k, c := range coeffs {
		m := cmplx.Abs(c) / float64(n)
		// DC and Nyquist bins are not mirrored.
		if k != 0 && !(n%fftHermitianDivisor == 0 && k == n/fftHermitianDivisor) {
			m *= 2
		}
		mags[k] = m
	}
	return mags
}

func toDB(v, ref float64) float64 {
	if v <= 0 || ref <= 0 {
		return dbFloor
	}
	return max(dbPerDecade*math.Log10(v/ref), dbFloor)
}
