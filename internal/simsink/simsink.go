// Package simsink is an in-process stand-in for the FL2000 DAC. It pulls
// transfers through the same callback contract as the USB driver and models
// the device clock, so the generator can run and be tested without hardware.
package simsink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	carrier "github.com/tphakala/go-fl2k-carrier"
	"github.com/tphakala/go-fl2k-carrier/internal/capture"
)

// Clock model defaults. The quantum is the PLL step: requested rates are
// rounded to the nearest multiple of it, ties going down, so 112 MHz reads
// back as 111 998 976 Hz.
const (
	DefaultMinRate uint32 = 1_000_000
	DefaultMaxRate uint32 = 150_000_000
	DefaultQuantum uint32 = 2048
	DefaultDevices        = 1

	// Pull interval used before any rate has been set.
	idleInterval = 10 * time.Millisecond
)

var (
	// ErrNoDevice is returned by Open for an index with no device.
	ErrNoDevice = errors.New("simsink: no such device")

	// ErrClosed is returned by any call on a closed sink.
	ErrClosed = errors.New("simsink: device closed")

	// ErrRateRange is returned by SetSampleRate for a rate the clock cannot
	// produce. The previous rate stays in effect.
	ErrRateRange = errors.New("simsink: sample rate out of range")

	// ErrStreaming is returned by StartStreaming when already streaming.
	ErrStreaming = errors.New("simsink: already streaming")

	// ErrNotStreaming is returned by Step when no callback is registered.
	ErrNotStreaming = errors.New("simsink: not streaming")

	// ErrPaced is returned by Step on a sink that pulls on its own.
	ErrPaced = errors.New("simsink: manual step on paced sink")
)

// Config describes the simulated device.
type Config struct {
	// Devices is the number of devices Open accepts. Zero means DefaultDevices.
	Devices int

	// TransferLen is the expected transfer size. Transfers of any other
	// length are counted as short. Zero means carrier.TransferLen.
	TransferLen int

	// MinRate and MaxRate bound the clock. Zero means the defaults.
	MinRate uint32
	MaxRate uint32

	// Quantum is the clock step. Zero means DefaultQuantum.
	Quantum uint32

	// Paced starts a goroutine that pulls one transfer per
	// TransferLen/rate seconds. When false, transfers are pulled by Step.
	Paced bool

	// Capture, when set, receives every transfer pulled.
	Capture *capture.Ring
}

func (c Config) withDefaults() Config {
	if c.Devices == 0 {
		c.Devices = DefaultDevices
	}
	if c.TransferLen == 0 {
		c.TransferLen = carrier.TransferLen
	}
	if c.MinRate == 0 {
		c.MinRate = DefaultMinRate
	}
	if c.MaxRate == 0 {
		c.MaxRate = DefaultMaxRate
	}
	if c.Quantum == 0 {
		c.Quantum = DefaultQuantum
	}
	return c
}

// Stats counts calls made on a sink.
type Stats struct {
	Starts         uint64
	Stops          uint64
	Closes         uint64
	RateSets       uint64
	RateRejects    uint64
	Transfers      uint64
	ShortTransfers uint64
}

// Sink is one opened simulated device. It implements carrier.Device.
type Sink struct {
	index  int
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	rate      uint32
	supply    carrier.SupplyFunc
	closed    bool
	cancel    context.CancelFunc
	done      chan struct{}
	seq       uint64
	errInject int

	// pullMu is held for the duration of every supply call, so that
	// StopStreaming can wait for an in-flight call to finish.
	pullMu sync.Mutex

	starts, stops, closes  atomic.Uint64
	rateSets, rateRejects  atomic.Uint64
	transfers, shortTransf atomic.Uint64
}

var _ carrier.Device = (*Sink)(nil)

// New returns an opened sink.
func New(index int, cfg Config, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		index:  index,
		cfg:    cfg.withDefaults(),
		logger: logger.With(zap.Int("device", index)),
	}
}

// StartStreaming registers supply. A paced sink starts pulling immediately.
func (s *Sink) StartStreaming(supply carrier.SupplyFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.supply != nil {
		return ErrStreaming
	}
	if supply == nil {
		return errors.New("simsink: nil supply callback")
	}

	s.starts.Add(1)
	s.supply = supply
	if s.cfg.Paced {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.run(ctx, s.done)
	}
	s.logger.Debug("streaming started", zap.Bool("paced", s.cfg.Paced))
	return nil
}

// StopStreaming unregisters the callback. No supply call is in progress
// or made after it returns.
func (s *Sink) StopStreaming() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.stops.Add(1)
	s.stopLocked()
	s.mu.Unlock()

	s.waitIdle()
	s.logger.Debug("streaming stopped")
	return nil
}

// stopLocked clears the callback and cancels the pull loop. The caller
// must follow with waitIdle after releasing mu.
func (s *Sink) stopLocked() {
	s.supply = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Sink) waitIdle() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	s.pullMu.Lock()
	s.pullMu.Unlock() //nolint:staticcheck // barrier for in-flight Step calls
}

// SetSampleRate applies the multiple of the clock quantum closest to hz,
// taking the lower one on a tie. Requests or results outside
// [MinRate, MaxRate] are rejected and the previous rate kept.
func (s *Sink) SetSampleRate(hz uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.rateSets.Add(1)

	q := nearestStep(hz, s.cfg.Quantum)
	if hz < s.cfg.MinRate || hz > s.cfg.MaxRate || q < uint64(s.cfg.MinRate) || q > uint64(s.cfg.MaxRate) {
		s.rateRejects.Add(1)
		return fmt.Errorf("%w: %d Hz (range %d..%d)", ErrRateRange, hz, s.cfg.MinRate, s.cfg.MaxRate)
	}
	s.rate = uint32(q)
	s.logger.Debug("sample rate set", zap.Uint32("requested_hz", hz), zap.Uint32("applied_hz", s.rate))
	return nil
}

// nearestStep rounds hz to the closest multiple of quantum, ties down. The
// result can exceed MaxUint32 when rounding up, so it is returned widened.
func nearestStep(hz, quantum uint32) uint64 {
	q := uint64(quantum)
	return (uint64(hz) + (q-1)/2) / q * q
}

// SampleRate returns the rate in effect, zero before the first successful set.
func (s *Sink) SampleRate() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// Close releases the device, stopping the pull loop if still running.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.closes.Add(1)
	s.stopLocked()
	s.mu.Unlock()

	s.waitIdle()
	s.logger.Debug("device closed")
	return nil
}

// InjectErrors marks the next n transfers as completed in error.
func (s *Sink) InjectErrors(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errInject += n
}

// Step pulls one transfer on a manual sink and returns it.
func (s *Sink) Step() (carrier.Transfer, error) {
	if s.cfg.Paced {
		return carrier.Transfer{}, ErrPaced
	}
	return s.pull()
}

func (s *Sink) pull() (carrier.Transfer, error) {
	s.pullMu.Lock()
	defer s.pullMu.Unlock()

	s.mu.Lock()
	supply := s.supply
	if supply == nil {
		s.mu.Unlock()
		return carrier.Transfer{}, ErrNotStreaming
	}
	n := carrier.Notification{Sequence: s.seq}
	s.seq++
	if s.errInject > 0 {
		s.errInject--
		n.DeviceError = true
	}
	s.mu.Unlock()

	tr := supply(n)
	s.transfers.Add(1)
	if len(tr.Data) != s.cfg.TransferLen {
		s.shortTransf.Add(1)
		s.logger.Warn("unexpected transfer length",
			zap.Int("got", len(tr.Data)),
			zap.Int("want", s.cfg.TransferLen))
	}
	if s.cfg.Capture != nil {
		s.cfg.Capture.Write(tr.Data)
	}
	return tr, nil
}

func (s *Sink) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if _, err := s.pull(); err != nil {
			return
		}
		timer.Reset(s.interval())
	}
}

// interval is the wall time one transfer lasts at the current rate.
func (s *Sink) interval() time.Duration {
	rate := s.SampleRate()
	if rate == 0 {
		return idleInterval
	}
	return time.Duration(uint64(s.cfg.TransferLen) * uint64(time.Second) / uint64(rate))
}

// Stats returns the call counters.
func (s *Sink) Stats() Stats {
	return Stats{
		Starts:         s.starts.Load(),
		Stops:          s.stops.Load(),
		Closes:         s.closes.Load(),
		RateSets:       s.rateSets.Load(),
		RateRejects:    s.rateRejects.Load(),
		Transfers:      s.transfers.Load(),
		ShortTransfers: s.shortTransf.Load(),
	}
}

// Index returns the device index the sink was opened with.
func (s *Sink) Index() int { return s.index }

// Opener opens simulated sinks and keeps track of them.
type Opener struct {
	cfg    Config
	logger *zap.Logger

	mu    sync.Mutex
	sinks []*Sink
}

var _ carrier.Opener = (*Opener)(nil)

// NewOpener returns an Opener for devices described by cfg.
func NewOpener(cfg Config, logger *zap.Logger) *Opener {
	return &Opener{cfg: cfg.withDefaults(), logger: logger}
}

// Open returns a new sink for index.
func (o *Opener) Open(index int) (carrier.Device, error) {
	if index < 0 || index >= o.cfg.Devices {
		return nil, fmt.Errorf("%w: index %d (have %d)", ErrNoDevice, index, o.cfg.Devices)
	}
	s := New(index, o.cfg, o.logger)

	o.mu.Lock()
	o.sinks = append(o.sinks, s)
	o.mu.Unlock()
	return s, nil
}

// Last returns the most recently opened sink, or nil.
func (o *Opener) Last() *Sink {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sinks) == 0 {
		return nil
	}
	return o.sinks[len(o.sinks)-1]
}
