package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	carrier "github.com/tphakala/go-fl2k-carrier"
	"github.com/tphakala/go-fl2k-carrier/internal/simsink"
	"github.com/tphakala/go-fl2k-carrier/internal/txbuf"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(New())
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.DeviceIndex)
	assert.Equal(t, uint64(carrier.DefaultCarrierHz), cfg.CarrierHz)
	assert.Equal(t, uint64(carrier.CarrierStepHz), cfg.StepHz)
	assert.Equal(t, carrier.DefaultRatio, cfg.Ratio)
	assert.Equal(t, carrier.SignalMax, cfg.Amplitude)
	assert.Equal(t, "auto", cfg.Strategy)
	assert.Equal(t, carrier.TransferLen, cfg.TransferLength)
	assert.Equal(t, uint64(simsink.DefaultQuantum), cfg.Sim.Quantum)
	assert.True(t, cfg.Sim.Paced)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)

	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, carrier.DefaultConfig(), sc)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fl2k.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
carrier:
  frequency: 20000000
table:
  ratio: 6
stream:
  strategy: rotating
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(20_000_000), cfg.CarrierHz)
	assert.Equal(t, 6, cfg.Ratio)
	assert.Equal(t, "debug", cfg.LogLevel)

	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, txbuf.StrategyRotating, sc.Strategy)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_NoDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, carrier.DefaultRatio, cfg.Ratio)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FL2K_TABLE_RATIO", "8")
	t.Setenv("FL2K_CARRIER_FREQUENCY", "10000000")

	cfg, err := FromViper(New())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Ratio)
	assert.Equal(t, uint64(10_000_000), cfg.CarrierHz)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative device", func(c *Config) { c.DeviceIndex = -1 }},
		{"zero transfer length", func(c *Config) { c.TransferLength = 0 }},
		{"negative keying", func(c *Config) { c.KeyingInterval = -4 }},
		{"unknown strategy", func(c *Config) { c.Strategy = "spiral" }},
		{"zero quantum", func(c *Config) { c.Sim.Quantum = 0 }},
		{"inverted range", func(c *Config) { c.Sim.MinRate, c.Sim.MaxRate = 10, 5 }},
		{"carrier above 32 bits", func(c *Config) { c.CarrierHz = 1 << 32 }},
		{"step above 32 bits", func(c *Config) { c.StepHz = 5_000_000_000 }},
		{"max rate above 32 bits", func(c *Config) { c.Sim.MaxRate = 1 << 33 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromViper(New())
			require.NoError(t, err)
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestFromViper_RejectsWrappingFrequency(t *testing.T) {
	// 2^32 + 28 MHz would wrap to 28 MHz if narrowed.
	v := New()
	v.Set(KeyCarrierHz, "4322967296")

	_, err := FromViper(v)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), KeyCarrierHz)

	cfg := &Config{CarrierHz: 4_322_967_296, TransferLength: 1, Strategy: "auto", Sim: SimConfig{Quantum: 1}}
	_, err = cfg.SessionConfig()
	require.ErrorIs(t, err, ErrInvalid)
}

func TestSimsinkConfig(t *testing.T) {
	cfg, err := FromViper(New())
	require.NoError(t, err)

	sc := cfg.SimsinkConfig()
	assert.Equal(t, carrier.TransferLen, sc.TransferLen)
	assert.Equal(t, simsink.DefaultMinRate, sc.MinRate)
	assert.Equal(t, simsink.DefaultMaxRate, sc.MaxRate)
	assert.True(t, sc.Paced)
}
