package carrier

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/tphakala/go-fl2k-carrier/internal/metrics"
)

var (
	// ErrRateRejected is returned when the sink refuses a sample rate. The
	// previously applied rate stays in effect.
	ErrRateRejected = errors.New("sample rate rejected by sink")

	// ErrRateOverflow is returned when frequency * ratio does not fit the
	// sink's 32-bit rate register. The sink is not called.
	ErrRateOverflow = errors.New("sample rate exceeds 32-bit range")
)

// CarrierState is the outcome of the last retune.
type CarrierState struct {
	// RequestedHz is the carrier frequency asked for.
	RequestedHz uint32

	// SubmittedRateHz is RequestedHz * ratio, as passed to the sink.
	SubmittedRateHz uint32

	// AppliedRateHz is the sample rate read back from the sink. It can
	// differ from SubmittedRateHz due to clock quantization, or equal the
	// previous rate when the request was rejected.
	AppliedRateHz uint32

	// EffectiveHz is AppliedRateHz / ratio, the carrier actually produced.
	EffectiveHz uint32
}

// Controller retunes the carrier by reprogramming the sink's sample rate.
// The table content does not depend on the rate, so retuning never touches
// the transfer buffer and needs no coordination with supply calls.
type Controller struct {
	dev    Device
	ratio  uint32
	step   uint32
	logger *zap.Logger

	mu    sync.Mutex
	state CarrierState
}

// NewController returns a controller for dev streaming a table of the given
// ratio. stepHz is the Raise/Lower increment; zero means CarrierStepHz.
func NewController(dev Device, ratio int, stepHz uint32, logger *zap.Logger) *Controller {
	if stepHz == 0 {
		stepHz = CarrierStepHz
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		dev:    dev,
		ratio:  uint32(ratio),
		step:   stepHz,
		logger: logger,
	}
}

// SetCarrierFrequency requests freqHz * ratio from the sink and reads back
// the applied rate. A rejected rate is logged and returned as
// ErrRateRejected; the returned state still reflects the rate in effect.
// The request is not retried.
func (c *Controller) SetCarrierFrequency(freqHz uint32) (CarrierState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(freqHz)
}

// Raise retunes to the current effective carrier plus one step.
func (c *Controller) Raise() (CarrierState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := uint64(c.currentLocked()) + uint64(c.step)
	if next > math.MaxUint32 {
		next = math.MaxUint32
	}
	return c.setLocked(uint32(next))
}

// Lower retunes to the current effective carrier minus one step, stopping
// at zero. The sink rejects rates it cannot produce.
func (c *Controller) Lower() (CarrierState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next uint32
	if cur := c.currentLocked(); cur > c.step {
		next = cur - c.step
	}
	return c.setLocked(next)
}

// currentLocked is the carrier implied by the rate the sink reports now.
func (c *Controller) currentLocked() uint32 {
	return c.dev.SampleRate() / c.ratio
}

func (c *Controller) setLocked(freqHz uint32) (CarrierState, error) {
	rate := uint64(freqHz) * uint64(c.ratio)
	if rate > math.MaxUint32 {
		c.logger.Warn("sample rate out of range",
			zap.Uint32("carrier_hz", freqHz),
			zap.Uint64("sample_rate_hz", rate))
		return c.state, fmt.Errorf("%w: %d Hz * %d", ErrRateOverflow, freqHz, c.ratio)
	}

	var setErr error
	if err := c.dev.SetSampleRate(uint32(rate)); err != nil {
		metrics.RateSetFailuresTotal.Inc()
		c.logger.Warn("failed to set sample rate",
			zap.Uint64("sample_rate_hz", rate),
			zap.Error(err))
		setErr = fmt.Errorf("%w: %d Hz: %w", ErrRateRejected, rate, err)
	}

	applied := c.dev.SampleRate()
	c.state = CarrierState{
		RequestedHz:     freqHz,
		SubmittedRateHz: uint32(rate),
		AppliedRateHz:   applied,
		EffectiveHz:     applied / c.ratio,
	}
	metrics.AppliedSampleRate.Set(float64(applied))
	metrics.EffectiveCarrier.Set(float64(c.state.EffectiveHz))

	c.logger.Info("carrier retuned",
		zap.Uint32("requested_hz", freqHz),
		zap.Uint32("applied_rate_hz", applied),
		zap.Uint32("effective_hz", c.state.EffectiveHz))

	return c.state, setErr
}

// State returns the outcome of the last retune.
func (c *Controller) State() CarrierState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ratio returns the samples-per-cycle ratio used for rate conversion.
func (c *Controller) Ratio() int { return int(c.ratio) }

// Step returns the Raise/Lower increment in Hz.
func (c *Controller) Step() uint32 { return c.step }
