// Command fl2k-capture streams a number of transfers through the simulated
// sink, checks that the captured output is one unbroken carrier and writes
// it to a WAV file.
//
// Usage:
//
//	fl2k-capture -ratio 6 -transfers 4 out.wav
//	fl2k-capture -ratio 4 -strategy alternating -errors 2 out.wav
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/zap"

	carrier "github.com/tphakala/go-fl2k-carrier"
	"github.com/tphakala/go-fl2k-carrier/internal/analysis"
	"github.com/tphakala/go-fl2k-carrier/internal/capture"
	"github.com/tphakala/go-fl2k-carrier/internal/logging"
	"github.com/tphakala/go-fl2k-carrier/internal/simsink"
)

const (
	defaultTransfers = 3
	minRequiredArgs  = 1
)

var errUsage = errors.New("usage: fl2k-capture [flags] output.wav")

type options struct {
	output      string
	ratio       int
	amplitude   int
	freqHz      uint
	transfers   int
	transferLen int
	strategy    string
	keying      int
	errors      int
	logLevel    string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (*options, error) {
	fs := flag.NewFlagSet("fl2k-capture", flag.ContinueOnError)
	o := &options{}
	fs.IntVar(&o.ratio, "ratio", carrier.DefaultRatio, "Samples per carrier cycle")
	fs.IntVar(&o.amplitude, "amplitude", carrier.SignalMax, "Peak sample value")
	fs.UintVar(&o.freqHz, "freq", carrier.DefaultCarrierHz, "Carrier frequency in Hz")
	fs.IntVar(&o.transfers, "transfers", defaultTransfers, "Number of transfers to capture")
	fs.IntVar(&o.transferLen, "transfer-len", carrier.TransferLen, "Samples per transfer")
	fs.StringVar(&o.strategy, "strategy", "auto", "Buffer layout: auto, static, alternating, rotating")
	fs.IntVar(&o.keying, "keying", 0, "Invert the carrier every N samples (0 disables)")
	fs.IntVar(&o.errors, "errors", 0, "Mark the first N transfers as device errors")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < minRequiredArgs {
		return nil, errUsage
	}
	if o.transfers < 1 {
		return nil, fmt.Errorf("transfers must be positive, got %d", o.transfers)
	}
	if o.freqHz > math.MaxUint32 {
		return nil, fmt.Errorf("freq %d exceeds %d Hz", o.freqHz, uint64(math.MaxUint32))
	}
	o.output = fs.Arg(0)
	return o, nil
}

func run(args []string, stdout io.Writer) error {
	o, err := parseArgs(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(o.logLevel, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	strategy, err := carrier.ParseStrategy(o.strategy)
	if err != nil {
		return err
	}

	ring := capture.NewRing(o.transfers * o.transferLen)
	opener := simsink.NewOpener(simsink.Config{
		TransferLen: o.transferLen,
		Capture:     ring,
	}, logger)

	sess, err := carrier.NewSession(carrier.Config{
		Ratio:          o.ratio,
		Amplitude:      o.amplitude,
		CarrierHz:      uint32(o.freqHz),
		TransferLen:    o.transferLen,
		Strategy:       strategy,
		KeyingInterval: o.keying,
	}, opener, logger)
	if err != nil {
		return err
	}
	if err := sess.Open(); err != nil {
		return err
	}
	defer func() {
		if err := sess.Shutdown(); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	if err := sess.Start(); err != nil {
		return err
	}
	st, err := sess.Controller().SetCarrierFrequency(uint32(o.freqHz))
	if err != nil {
		return err
	}

	sink := opener.Last()
	sink.InjectErrors(o.errors)
	for range o.transfers {
		if _, err := sink.Step(); err != nil {
			return fmt.Errorf("failed to pull transfer: %w", err)
		}
	}
	if err := sess.Shutdown(); err != nil {
		return err
	}

	samples := ring.Snapshot()
	supplier := sess.Supplier()
	stats := supplier.Stats()
	fmt.Fprintf(stdout, "Captured %d samples (%d transfers, %d device errors)\n",
		len(samples), stats.Calls, stats.DeviceErrors)
	fmt.Fprintf(stdout, "Layout: %s, %d region(s), %d buffer samples\n",
		supplier.Strategy(), supplier.Regions(), supplier.BufferSize())
	fmt.Fprintf(stdout, "Actual {sample rate,frequency} = {%d,%d}\n", st.AppliedRateHz, st.EffectiveHz)

	if o.keying == 0 {
		phase, err := analysis.CheckContinuity(samples, sess.Table().Samples())
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Continuity: ok (starting phase %d)\n", phase)
	}

	if err := capture.WriteWAVFile(o.output, samples, int(st.AppliedRateHz)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s\n", o.output)
	return nil
}
