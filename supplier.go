package carrier

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tphakala/go-fl2k-carrier/internal/metrics"
	"github.com/tphakala/go-fl2k-carrier/internal/txbuf"
)

// Strategy selects how the transfer buffer is laid out. See the txbuf
// constants re-exported below.
type Strategy = txbuf.Strategy

// Buffer layout strategies.
const (
	StrategyAuto        = txbuf.StrategyAuto
	StrategyStatic      = txbuf.StrategyStatic
	StrategyAlternating = txbuf.StrategyAlternating
	StrategyRotating    = txbuf.StrategyRotating
)

// ParseStrategy maps "auto", "static", "alternating" or "rotating" to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	return txbuf.ParseStrategy(name)
}

// SupplierOptions configures NewSupplier.
type SupplierOptions struct {
	// TransferLen is the number of samples the sink pulls per call.
	// Zero means TransferLen.
	TransferLen int

	// Strategy selects the buffer layout. Zero value is StrategyAuto.
	Strategy Strategy

	// KeyingInterval inverts the carrier every KeyingInterval samples when
	// non-zero. Must be a multiple of the ratio.
	KeyingInterval int

	// Logger receives device-error warnings. Nil disables logging.
	Logger *zap.Logger
}

// SupplyStats is a snapshot of supplier counters.
type SupplyStats struct {
	Calls        uint64
	DeviceErrors uint64
}

// Supplier serves the sink's pull callback from a preallocated buffer
// holding the ratio table tiled to the transfer length.
//
// Supply does not allocate, lock or block. Its only mutable state is an
// atomic call counter that selects the next region.
type Supplier struct {
	table  *RatioTable
	layout *txbuf.Layout
	logger *zap.Logger

	calls        atomic.Uint64
	deviceErrors atomic.Uint64
}

// NewSupplier allocates the transfer buffer for table.
func NewSupplier(table *RatioTable, opts SupplierOptions) (*Supplier, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", ErrUnsupportedRatio)
	}
	transferLen := opts.TransferLen
	if transferLen == 0 {
		transferLen = TransferLen
	}
	layout, err := txbuf.New(table.samples, transferLen, txbuf.Options{
		Strategy:       opts.Strategy,
		KeyingInterval: opts.KeyingInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to lay out transfer buffer: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supplier{
		table:  table,
		layout: layout,
		logger: logger,
	}, nil
}

// Supply returns the next transfer. A device error in n is counted and
// logged; the data returned is the same as without it, so a transient
// error never stops or shifts the stream.
func (s *Supplier) Supply(n Notification) Transfer {
	seq := s.calls.Add(1) - 1
	metrics.SupplyCallsTotal.Inc()

	if n.DeviceError {
		count := s.deviceErrors.Add(1)
		metrics.DeviceErrorsTotal.Inc()
		s.logger.Warn("device error",
			zap.Uint64("transfer", n.Sequence),
			zap.Uint64("device_errors", count))
	}

	return Transfer{Data: s.layout.Region(seq), Signed: true}
}

// Stats returns the current counters. Safe to call from any goroutine.
func (s *Supplier) Stats() SupplyStats {
	return SupplyStats{
		Calls:        s.calls.Load(),
		DeviceErrors: s.deviceErrors.Load(),
	}
}

// Table returns the ratio table being streamed.
func (s *Supplier) Table() *RatioTable { return s.table }

// TransferLen returns the number of samples per transfer.
func (s *Supplier) TransferLen() int { return s.layout.TransferLen() }

// Strategy returns the resolved buffer layout strategy.
func (s *Supplier) Strategy() Strategy { return s.layout.Strategy() }

// Regions returns the number of distinct regions the supplier cycles through.
func (s *Supplier) Regions() int { return s.layout.Regions() }

// BufferSize returns the physical buffer length in samples.
func (s *Supplier) BufferSize() int { return s.layout.Size() }
