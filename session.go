package carrier

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tphakala/go-fl2k-carrier/internal/metrics"
)

var (
	// ErrOpen is returned when the sink cannot be opened.
	ErrOpen = errors.New("failed to open device")

	// ErrInvalidState is returned for a lifecycle call made in the wrong state.
	ErrInvalidState = errors.New("invalid session state")
)

// State is a Session lifecycle state.
type State int32

// Lifecycle states, in order.
const (
	StateUninitialized State = iota
	StateOpened
	StateStreaming
	StateStopping
	StateClosed
)

var stateNames = [...]string{
	StateUninitialized: "uninitialized",
	StateOpened:        "opened",
	StateStreaming:     "streaming",
	StateStopping:      "stopping",
	StateClosed:        "closed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Config describes a streaming session.
type Config struct {
	// DeviceIndex selects the sink passed to Opener.Open.
	DeviceIndex int

	// Ratio is the number of samples per carrier cycle. Must be one of
	// SupportedRatios.
	Ratio int

	// Amplitude is the table peak value, 1..127. Zero means SignalMax.
	Amplitude int

	// CarrierHz is the carrier to tune to right after streaming starts.
	CarrierHz uint32

	// StepHz is the Raise/Lower increment. Zero means CarrierStepHz.
	StepHz uint32

	// TransferLen is the sink's per-callback sample count. Zero means TransferLen.
	TransferLen int

	// Strategy selects the transfer buffer layout.
	Strategy Strategy

	// KeyingInterval enables the phase-keying test pattern when non-zero.
	KeyingInterval int
}

// DefaultConfig returns the configuration of the stock generator: ratio 4,
// amplitude 99, 28 MHz carrier, FL2000 transfer size.
func DefaultConfig() Config {
	return Config{
		Ratio:       DefaultRatio,
		Amplitude:   SignalMax,
		CarrierHz:   DefaultCarrierHz,
		StepHz:      CarrierStepHz,
		TransferLen: TransferLen,
	}
}

// Session owns the sink handle, the ratio table, the supplier and the
// controller for one streaming run, and sequences their lifecycle:
//
//	Uninitialized -> Opened -> Streaming -> Stopping -> Closed
//
// Shutdown may be called from any goroutine, any number of times.
type Session struct {
	id       uuid.UUID
	cfg      Config
	opener   Opener
	logger   *zap.Logger
	table    *RatioTable
	supplier *Supplier

	mu         sync.Mutex // serializes transitions
	state      atomic.Int32
	dev        Device
	controller *Controller
}

// NewSession builds the ratio table and transfer buffer. Configuration
// errors (unsupported ratio, bad amplitude, layout errors) surface here,
// before any device is touched.
func NewSession(cfg Config, opener Opener, logger *zap.Logger) (*Session, error) {
	if opener == nil {
		return nil, fmt.Errorf("%w: nil opener", ErrOpen)
	}
	if cfg.Amplitude == 0 {
		cfg.Amplitude = SignalMax
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	table, err := NewRatioTable(cfg.Ratio, cfg.Amplitude)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	logger = logger.With(zap.String("session", id.String()))

	supplier, err := NewSupplier(table, SupplierOptions{
		TransferLen:    cfg.TransferLen,
		Strategy:       cfg.Strategy,
		KeyingInterval: cfg.KeyingInterval,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:       id,
		cfg:      cfg,
		opener:   opener,
		logger:   logger,
		table:    table,
		supplier: supplier,
	}
	s.setState(StateUninitialized)

	logger.Info("ratio table built",
		zap.Int("ratio", table.Ratio()),
		zap.Int("amplitude", table.Amplitude()),
		zap.Stringer("strategy", supplier.Strategy()),
		zap.Int("regions", supplier.Regions()),
		zap.Int("buffer_samples", supplier.BufferSize()))
	return s, nil
}

// Open opens the sink. On failure the session stays uninitialized.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st != StateUninitialized {
		return fmt.Errorf("%w: open in state %s", ErrInvalidState, st)
	}

	dev, err := s.opener.Open(s.cfg.DeviceIndex)
	if err == nil && dev == nil {
		err = errors.New("no device returned")
	}
	if err != nil {
		s.logger.Error("failed to open device", zap.Int("index", s.cfg.DeviceIndex), zap.Error(err))
		return fmt.Errorf("%w #%d: %w", ErrOpen, s.cfg.DeviceIndex, err)
	}

	s.dev = dev
	s.controller = NewController(dev, s.table.Ratio(), s.cfg.StepHz, s.logger)
	s.setState(StateOpened)
	s.logger.Info("opened device", zap.Int("index", s.cfg.DeviceIndex))
	return nil
}

// Start registers the supplier with the sink and starts streaming.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st != StateOpened {
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, st)
	}
	if err := s.dev.StartStreaming(s.supplier.Supply); err != nil {
		return fmt.Errorf("failed to start streaming: %w", err)
	}
	s.setState(StateStreaming)
	s.logger.Info("streaming started")
	return nil
}

// Shutdown stops streaming (if started) and then closes the device. Calls
// after the first return nil without touching the device. Stop and close
// errors are joined; close is attempted even if stop fails.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.State()
	switch st {
	case StateClosed:
		return nil
	case StateUninitialized:
		s.setState(StateClosed)
		return nil
	}

	s.setState(StateStopping)

	var errs []error
	if st == StateStreaming {
		if err := s.dev.StopStreaming(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop streaming: %w", err))
		}
	}
	if err := s.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close device: %w", err))
	}
	s.setState(StateClosed)

	stats := s.supplier.Stats()
	s.logger.Info("session closed",
		zap.Uint64("transfers", stats.Calls),
		zap.Uint64("device_errors", stats.DeviceErrors))
	return errors.Join(errs...)
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	metrics.SessionState.Set(float64(st))
}

// State returns the current lifecycle state without blocking.
func (s *Session) State() State { return State(s.state.Load()) }

// ID returns the session identifier used in log fields.
func (s *Session) ID() uuid.UUID { return s.id }

// Config returns the session configuration with defaults applied.
func (s *Session) Config() Config { return s.cfg }

// Table returns the ratio table.
func (s *Session) Table() *RatioTable { return s.table }

// Supplier returns the buffer supplier registered with the sink.
func (s *Session) Supplier() *Supplier { return s.supplier }

// Controller returns the carrier controller, or nil before Open succeeds.
func (s *Session) Controller() *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller
}
