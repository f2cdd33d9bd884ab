package carrier

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tphakala/go-fl2k-carrier/internal/wavetable"
)

var (
	// ErrUnsupportedRatio is returned for a ratio outside SupportedRatios.
	ErrUnsupportedRatio = errors.New("unsupported sample rate / carrier ratio")

	// ErrAmplitude is returned for an amplitude that would saturate the
	// sink's signed 8-bit range or produce a silent table.
	ErrAmplitude = errors.New("amplitude must be within 1..127")
)

// RatioTable is one quantized carrier cycle at a fixed samples-per-cycle
// ratio. It is immutable once built and safe for concurrent reads.
type RatioTable struct {
	ratio     int
	amplitude int
	samples   []int8
}

// SupportedRatios returns the ratios NewRatioTable accepts.
func SupportedRatios() []int {
	return slices.Clone(supportedRatios)
}

// IsSupportedRatio reports whether ratio has a closed-form table.
func IsSupportedRatio(ratio int) bool {
	return slices.Contains(supportedRatios, ratio)
}

// NewRatioTable builds the table for ratio with peak value amplitude.
//
// Samples are taken at k*2*pi/ratio, shifted by half a step when ratio is
// not a multiple of four so that a sample lands on each peak. Only the
// first half-cycle is computed; the second half is its negation, which
// keeps the cycle free of DC and even-order rounding artifacts.
func NewRatioTable(ratio, amplitude int) (*RatioTable, error) {
	if !IsSupportedRatio(ratio) {
		return nil, fmt.Errorf("%w: %d (supported: %v)", ErrUnsupportedRatio, ratio, supportedRatios)
	}
	samples, err := wavetable.Build(ratio, amplitude)
	if err != nil {
		if errors.Is(err, wavetable.ErrAmplitude) {
			return nil, fmt.Errorf("%w: got %d", ErrAmplitude, amplitude)
		}
		return nil, err
	}
	return &RatioTable{
		ratio:     ratio,
		amplitude: amplitude,
		samples:   samples,
	}, nil
}

// DefaultRatioTable builds the table for DefaultRatio at SignalMax.
func DefaultRatioTable() *RatioTable {
	t, err := NewRatioTable(DefaultRatio, SignalMax)
	if err != nil {
		panic("carrier: default ratio table: " + err.Error())
	}
	return t
}

// Ratio returns the number of samples per carrier cycle.
func (t *RatioTable) Ratio() int { return t.ratio }

// Amplitude returns the peak sample value.
func (t *RatioTable) Amplitude() int { return t.amplitude }

// Len returns the cycle length, equal to Ratio.
func (t *RatioTable) Len() int { return len(t.samples) }

// At returns the sample at phase modulo the cycle length.
func (t *RatioTable) At(phase int) int8 {
	p := phase % len(t.samples)
	if p < 0 {
		p += len(t.samples)
	}
	return t.samples[p]
}

// Samples returns a copy of the cycle.
func (t *RatioTable) Samples() []int8 {
	return slices.Clone(t.samples)
}

func (t *RatioTable) String() string {
	return fmt.Sprintf("ratio %d, amplitude %d: %v", t.ratio, t.amplitude, t.samples)
}
