// Package txbuf lays out the physical transfer buffer handed to the sink.
//
// A Layout tiles one waveform cycle across a fixed buffer and exposes a
// small set of transfer-length regions. Region i+1 always starts at the
// waveform phase at which region i ended, so the sink can read regions back
// to back forever without a phase jump at any seam.
package txbuf

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy selects how regions are arranged in the physical buffer.
type Strategy int

const (
	// StrategyAuto picks StrategyStatic when the cycle divides the transfer
	// length and StrategyRotating otherwise.
	StrategyAuto Strategy = iota

	// StrategyStatic uses one region holding the tiled cycle. Every transfer
	// returns the same region.
	StrategyStatic

	// StrategyAlternating uses two identical regions and toggles between
	// them on each transfer.
	StrategyAlternating

	// StrategyRotating handles transfer lengths that are not a multiple of
	// the cycle. Regions start at successive phase offsets
	// o(i+1) = (o(i) + transferLen) mod ratio.
	StrategyRotating
)

const alternatingRegions = 2

var (
	// ErrEmptyCycle is returned when no cycle samples are given.
	ErrEmptyCycle = errors.New("txbuf: empty cycle")

	// ErrTransferLen is returned for a non-positive transfer length.
	ErrTransferLen = errors.New("txbuf: transfer length must be positive")

	// ErrRemainder is returned when a strategy needs the cycle to divide the
	// transfer length and it does not.
	ErrRemainder = errors.New("txbuf: transfer length is not a multiple of the cycle")

	// ErrKeyingInterval is returned for an unusable keying interval.
	ErrKeyingInterval = errors.New("txbuf: invalid keying interval")

	// ErrStrategy is returned by ParseStrategy for unknown names.
	ErrStrategy = errors.New("txbuf: unknown strategy")
)

var strategyNames = map[Strategy]string{
	StrategyAuto:        "auto",
	StrategyStatic:      "static",
	StrategyAlternating: "alternating",
	StrategyRotating:    "rotating",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StrategyAuto, nil
	}
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return StrategyAuto, fmt.Errorf("%w: %q", ErrStrategy, name)
}

// Options tunes Layout construction.
type Options struct {
	// Strategy selects the region arrangement. Zero value is StrategyAuto.
	Strategy Strategy

	// KeyingInterval, when non-zero, inverts the carrier every
	// KeyingInterval samples (a half-cycle phase shift). It must be a
	// multiple of the cycle length and is only valid for the static and
	// alternating strategies. Inversions are intentional and are the only
	// discontinuities in the stream.
	KeyingInterval int
}

// Layout is an immutable, preallocated transfer buffer.
type Layout struct {
	data        []int8
	regions     [][]int8
	offsets     []int
	ratio       int
	transferLen int
	strategy    Strategy
	keying      int
}

// New tiles cycle across a buffer serving transfers of transferLen samples.
func New(cycle []int8, transferLen int, opts Options) (*Layout, error) {
	ratio := len(cycle)
	if ratio == 0 {
		return nil, ErrEmptyCycle
	}
	if transferLen <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrTransferLen, transferLen)
	}

	remainder := transferLen % ratio
	strategy := opts.Strategy
	if strategy == StrategyAuto {
		strategy = StrategyStatic
		if remainder != 0 {
			strategy = StrategyRotating
		}
	}

	if opts.KeyingInterval != 0 {
		if opts.KeyingInterval < 0 || opts.KeyingInterval%ratio != 0 {
			return nil, fmt.Errorf("%w: %d is not a positive multiple of %d",
				ErrKeyingInterval, opts.KeyingInterval, ratio)
		}
		if strategy == StrategyRotating {
			return nil, fmt.Errorf("%w: keying needs the static or alternating strategy", ErrKeyingInterval)
		}
	}

	var offsets []int
	var size int
	switch strategy {
	case StrategyStatic:
		if remainder != 0 {
			return nil, fmt.Errorf("%w: %d %% %d = %d", ErrRemainder, transferLen, ratio, remainder)
		}
		offsets = []int{0}
		size = transferLen
	case StrategyAlternating:
		if remainder != 0 {
			return nil, fmt.Errorf("%w: %d %% %d = %d", ErrRemainder, transferLen, ratio, remainder)
		}
		offsets = []int{0, transferLen}
		size = alternatingRegions * transferLen
	case StrategyRotating:
		offsets = rotatingOffsets(ratio, transferLen)
		size = transferLen + ratio
	default:
		return nil, fmt.Errorf("%w: %v", ErrStrategy, strategy)
	}

	l := &Layout{
		data:        make([]int8, size),
		offsets:     offsets,
		ratio:       ratio,
		transferLen: transferLen,
		strategy:    strategy,
		keying:      opts.KeyingInterval,
	}
	l.fill(cycle)

	l.regions = make([][]int8, len(offsets))
	for i, o := range offsets {
		l.regions[i] = l.data[o : o+transferLen : o+transferLen]
	}
	return l, nil
}

// rotatingOffsets walks the start phase of each region until it returns to
// zero. The walk length is ratio / gcd(transferLen, ratio).
func rotatingOffsets(ratio, transferLen int) []int {
	offsets := []int{0}
	for o := transferLen % ratio; o != 0; o = (o + transferLen) % ratio {
		offsets = append(offsets, o)
	}
	return offsets
}

func (l *Layout) fill(cycle []int8) {
	for i := range l.data {
		v := cycle[i%l.ratio]
		if l.keying > 0 && (i/l.keying)%2 == 1 {
			v = -v
		}
		l.data[i] = v
	}
}

// Region returns the region served for the n-th transfer (n counts from 0).
// It never allocates.
func (l *Layout) Region(n uint64) []int8 {
	return l.regions[n%uint64(len(l.regions))]
}

// Offset returns the start index in the physical buffer of the n-th transfer.
func (l *Layout) Offset(n uint64) int {
	return l.offsets[n%uint64(len(l.offsets))]
}

// Regions returns the number of distinct regions.
func (l *Layout) Regions() int { return len(l.regions) }

// TransferLen returns the number of samples per transfer.
func (l *Layout) TransferLen() int { return l.transferLen }

// Ratio returns the cycle length the buffer was tiled with.
func (l *Layout) Ratio() int { return l.ratio }

// Strategy returns the resolved strategy (never StrategyAuto).
func (l *Layout) Strategy() Strategy { return l.strategy }

// KeyingInterval returns the keying interval, or 0 when keying is off.
func (l *Layout) KeyingInterval() int { return l.keying }

// Size returns the physical buffer length in samples.
func (l *Layout) Size() int { return len(l.data) }
