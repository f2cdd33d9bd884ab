// Command fl2k-carrier streams a fixed-frequency carrier to a DAC sink and
// retunes it interactively: u raises the carrier by one step, d lowers it,
// q quits.
//
// Exit status is 0 after q, end of input, a termination signal, or a device
// that fails to open or start. Status 1 is reserved for configuration the
// generator cannot use (bad flags, config file, ratio, amplitude or buffer
// layout); nothing is opened in that case.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	carrier "github.com/tphakala/go-fl2k-carrier"
	"github.com/tphakala/go-fl2k-carrier/internal/config"
	"github.com/tphakala/go-fl2k-carrier/internal/console"
	"github.com/tphakala/go-fl2k-carrier/internal/logging"
	"github.com/tphakala/go-fl2k-carrier/internal/simsink"
)

// env is everything run takes from the process, so tests can substitute it.
type env struct {
	args    []string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	signals <-chan os.Signal

	// opener overrides the sink; nil opens the simulated sink described
	// by the sim.* settings.
	opener carrier.Opener
}

func main() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGINT, unix.SIGTERM, unix.SIGQUIT)
	signal.Ignore(unix.SIGPIPE)

	os.Exit(run(env{
		args:    os.Args[1:],
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		signals: sigs,
	}))
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"device":    config.KeyDeviceIndex,
	"freq":      config.KeyCarrierHz,
	"step":      config.KeyStepHz,
	"ratio":     config.KeyRatio,
	"amplitude": config.KeyAmplitude,
	"strategy":  config.KeyStrategy,
	"keying":    config.KeyKeyingInterval,
	"log-level": config.KeyLogLevel,
	"metrics":   config.KeyMetricsAddr,
}

func parseFlags(args []string, stderr io.Writer) (*viper.Viper, error) {
	fs := flag.NewFlagSet("fl2k-carrier", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: fl2k-carrier [flags]")
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), exitStatusHelp)
	}

	configPath := fs.String("config", "", "Config file (default: ./fl2k-carrier.yaml if present)")
	fs.Int("device", 0, "Device index")
	fs.Uint("freq", carrier.DefaultCarrierHz, "Initial carrier frequency in Hz")
	fs.Uint("step", carrier.CarrierStepHz, "Raise/lower step in Hz")
	fs.Int("ratio", carrier.DefaultRatio, "Samples per carrier cycle: 2, 4, 6, 8 or 10")
	fs.Int("amplitude", carrier.SignalMax, "Peak sample value, 1..127")
	fs.String("strategy", "auto", "Buffer layout: auto, static, alternating, rotating")
	fs.Int("keying", 0, "Invert the carrier every N samples (0 disables)")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("metrics", "", "Serve Prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := config.New()
	if err := config.Read(v, *configPath); err != nil {
		return nil, err
	}
	// Only flags given explicitly override file and environment values.
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})
	return v, nil
}

func run(e env) int {
	v, err := parseFlags(e.args, e.stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return exitConfig
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return exitConfig
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return exitConfig
	}
	defer func() { _ = logger.Sync() }()

	sessCfg, err := cfg.SessionConfig()
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return exitConfig
	}

	opener := e.opener
	if opener == nil {
		opener = simsink.NewOpener(cfg.SimsinkConfig(), logger)
	}

	sess, err := carrier.NewSession(sessCfg, opener, logger)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return exitConfig
	}

	if err := sess.Open(); err != nil {
		fmt.Fprintf(e.stdout, "Failed to open fl2k device #%d\n", sessCfg.DeviceIndex)
		_ = sess.Shutdown()
		return exitOK
	}
	fmt.Fprintln(e.stdout, "Opened device")

	defer func() {
		if err := sess.Shutdown(); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	if err := sess.Start(); err != nil {
		logger.Error("failed to start streaming", zap.Error(err))
		fmt.Fprintf(e.stdout, "Failed to start streaming: %v\n", err)
		return exitOK
	}

	ctrl := sess.Controller()
	st, err := ctrl.SetCarrierFrequency(sessCfg.CarrierHz)
	printCarrier(e.stdout, st, err)

	if err := serve(e, cfg.MetricsAddr, ctrl, logger); err != nil {
		logger.Error("command loop failed", zap.Error(err))
	}
	return exitOK
}

// serve runs the command loop, the signal watcher and the optional metrics
// endpoint until one of them ends the session.
func serve(e env, metricsAddr string, ctrl *carrier.Controller, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		exit, err := console.Run(ctx, e.stdin, e.stdout, func(c console.Command) {
			var (
				st  carrier.CarrierState
				err error
			)
			switch c {
			case console.CmdRaise:
				st, err = ctrl.Raise()
			case console.CmdLower:
				st, err = ctrl.Lower()
			default:
				return
			}
			printCarrier(e.stdout, st, err)
		})
		logger.Info("command loop ended", zap.Stringer("reason", exit))
		return err
	})

	g.Go(func() error {
		select {
		case sig := <-e.signals:
			logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(metricsPath, promhttp.Handler())
		srv := &http.Server{
			Addr:        metricsAddr,
			Handler:     mux,
			ReadTimeout: metricsReadTimeout,
		}

		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// printCarrier reports a retune the way the FL2K tools do.
func printCarrier(w io.Writer, st carrier.CarrierState, err error) {
	if err != nil {
		fmt.Fprintf(w, "WARNING: Failed to set sample rate. %v\n", err)
	}
	fmt.Fprintf(w, "Actual {sample rate,frequency} = {%d,%d}\n", st.AppliedRateHz, st.EffectiveHz)
}
