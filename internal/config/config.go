// Package config loads generator settings from defaults, an optional YAML
// file and FL2K_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	carrier "github.com/tphakala/go-fl2k-carrier"
	"github.com/tphakala/go-fl2k-carrier/internal/simsink"
	"github.com/tphakala/go-fl2k-carrier/internal/txbuf"
)

const (
	envPrefix      = "FL2K"
	configName     = "fl2k-carrier"
	defaultLogLvl  = "info"
	defaultCfgPath = "."
)

// Configuration keys.
const (
	KeyDeviceIndex    = "device.index"
	KeyCarrierHz      = "carrier.frequency"
	KeyStepHz         = "carrier.step"
	KeyRatio          = "table.ratio"
	KeyAmplitude      = "table.amplitude"
	KeyStrategy       = "stream.strategy"
	KeyTransferLength = "stream.transfer_length"
	KeyKeyingInterval = "stream.keying_interval"
	KeySimMinRate     = "sim.min_rate"
	KeySimMaxRate     = "sim.max_rate"
	KeySimQuantum     = "sim.quantum"
	KeySimPaced       = "sim.paced"
	KeyLogLevel       = "log.level"
	KeyLogDevelopment = "log.development"
	KeyMetricsAddr    = "metrics.addr"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved generator configuration.
type Config struct {
	DeviceIndex    int
	CarrierHz      uint64
	StepHz         uint64
	Ratio          int
	Amplitude      int
	Strategy       string
	TransferLength int
	KeyingInterval int

	Sim SimConfig

	LogLevel       string
	LogDevelopment bool
	MetricsAddr    string
}

// SimConfig configures the simulated sink.
type SimConfig struct {
	MinRate uint64
	MaxRate uint64
	Quantum uint64
	Paced   bool
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDeviceIndex, 0)
	v.SetDefault(KeyCarrierHz, carrier.DefaultCarrierHz)
	v.SetDefault(KeyStepHz, carrier.CarrierStepHz)
	v.SetDefault(KeyRatio, carrier.DefaultRatio)
	v.SetDefault(KeyAmplitude, carrier.SignalMax)
	v.SetDefault(KeyStrategy, txbuf.StrategyAuto.String())
	v.SetDefault(KeyTransferLength, carrier.TransferLen)
	v.SetDefault(KeyKeyingInterval, 0)
	v.SetDefault(KeySimMinRate, simsink.DefaultMinRate)
	v.SetDefault(KeySimMaxRate, simsink.DefaultMaxRate)
	v.SetDefault(KeySimQuantum, simsink.DefaultQuantum)
	v.SetDefault(KeySimPaced, true)
	v.SetDefault(KeyLogLevel, defaultLogLvl)
	v.SetDefault(KeyLogDevelopment, false)
	v.SetDefault(KeyMetricsAddr, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the config file into v. An empty path searches the working
// directory for fl2k-carrier.{yaml,yml,json,toml}; a missing file is not an
// error in that case. An explicit path must exist.
func Read(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.AddConfigPath(defaultCfgPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load resolves and validates the configuration.
func Load(path string) (*Config, error) {
	v := New()
	if err := Read(v, path); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper extracts a validated Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DeviceIndex:    v.GetInt(KeyDeviceIndex),
		CarrierHz:      v.GetUint64(KeyCarrierHz),
		StepHz:         v.GetUint64(KeyStepHz),
		Ratio:          v.GetInt(KeyRatio),
		Amplitude:      v.GetInt(KeyAmplitude),
		Strategy:       v.GetString(KeyStrategy),
		TransferLength: v.GetInt(KeyTransferLength),
		KeyingInterval: v.GetInt(KeyKeyingInterval),
		Sim: SimConfig{
			MinRate: v.GetUint64(KeySimMinRate),
			MaxRate: v.GetUint64(KeySimMaxRate),
			Quantum: v.GetUint64(KeySimQuantum),
			Paced:   v.GetBool(KeySimPaced),
		},
		LogLevel:       v.GetString(KeyLogLevel),
		LogDevelopment: v.GetBool(KeyLogDevelopment),
		MetricsAddr:    v.GetString(KeyMetricsAddr),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that can be judged without building the table.
// Ratio and amplitude are checked by carrier.NewRatioTable.
func (c *Config) Validate() error {
	// Frequencies are read wide so that out-of-range input is rejected
	// rather than wrapped into the sink's 32-bit registers.
	for _, f := range []struct {
		key string
		val uint64
	}{
		{KeyCarrierHz, c.CarrierHz},
		{KeyStepHz, c.StepHz},
		{KeySimMinRate, c.Sim.MinRate},
		{KeySimMaxRate, c.Sim.MaxRate},
		{KeySimQuantum, c.Sim.Quantum},
	} {
		if f.val > math.MaxUint32 {
			return fmt.Errorf("%w: %s = %d exceeds %d", ErrInvalid, f.key, f.val, uint64(math.MaxUint32))
		}
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("%w: %s must be >= 0", ErrInvalid, KeyDeviceIndex)
	}
	if c.TransferLength <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, KeyTransferLength)
	}
	if c.KeyingInterval < 0 {
		return fmt.Errorf("%w: %s must be >= 0", ErrInvalid, KeyKeyingInterval)
	}
	if _, err := txbuf.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, KeyStrategy, err)
	}
	if c.Sim.Quantum == 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, KeySimQuantum)
	}
	if c.Sim.MinRate > c.Sim.MaxRate {
		return fmt.Errorf("%w: %s (%d) exceeds %s (%d)", ErrInvalid,
			KeySimMinRate, c.Sim.MinRate, KeySimMaxRate, c.Sim.MaxRate)
	}
	return nil
}

// SessionConfig maps the loaded values onto a carrier.Config. It validates
// first, so the narrowing conversions below never truncate.
func (c *Config) SessionConfig() (carrier.Config, error) {
	if err := c.Validate(); err != nil {
		return carrier.Config{}, err
	}
	strategy, err := txbuf.ParseStrategy(c.Strategy)
	if err != nil {
		return carrier.Config{}, fmt.Errorf("%w: %s: %w", ErrInvalid, KeyStrategy, err)
	}
	return carrier.Config{
		DeviceIndex:    c.DeviceIndex,
		Ratio:          c.Ratio,
		Amplitude:      c.Amplitude,
		CarrierHz:      uint32(c.CarrierHz),
		StepHz:         uint32(c.StepHz),
		TransferLen:    c.TransferLength,
		Strategy:       strategy,
		KeyingInterval: c.KeyingInterval,
	}, nil
}

// SimsinkConfig maps the loaded values onto a simsink.Config. Call it only
// on a Config that passed Validate.
func (c *Config) SimsinkConfig() simsink.Config {
	return simsink.Config{
		TransferLen: c.TransferLength,
		MinRate:     uint32(c.Sim.MinRate),
		MaxRate:     uint32(c.Sim.MaxRate),
		Quantum:     uint32(c.Sim.Quantum),
		Paced:       c.Sim.Paced,
	}
}
