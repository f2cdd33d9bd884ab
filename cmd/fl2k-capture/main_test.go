package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	carrier "github.com/tphakala/go-fl2k-carrier"
	"github.com/tphakala/go-fl2k-carrier/internal/analysis"
	"github.com/tphakala/go-fl2k-carrier/internal/capture"
)

func TestRun_Strategies(t *testing.T) {
	tests := []struct {
		name        string
		ratio       string
		transferLen string
		strategy    string
		wantRegions string
	}{
		{"static ratio 4", "4", "16", "auto", "static, 1 region(s)"},
		{"alternating ratio 4", "4", "16", "alternating", "alternating, 2 region(s)"},
		{"rotating ratio 6", "6", "16", "auto", "rotating, 3 region(s)"},
		{"rotating ratio 10", "10", "24", "rotating", "rotating, 5 region(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "capture.wav")
			var buf bytes.Buffer

			err := run([]string{
				"-ratio", tt.ratio,
				"-transfer-len", tt.transferLen,
				"-strategy", tt.strategy,
				"-freq", "10000000",
				"-transfers", "7",
				"-errors", "2",
				out,
			}, &buf)
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.wantRegions)
			assert.Contains(t, buf.String(), "Continuity: ok")
			assert.Contains(t, buf.String(), "7 transfers, 2 device errors")

			f, err := os.Open(out)
			require.NoError(t, err)
			defer f.Close()
			samples, rate, err := capture.ReadWAV(f)
			require.NoError(t, err)
			assert.Positive(t, rate)
			assert.NotEmpty(t, samples)
		})
	}
}

func TestRun_WAVHoldsContinuousCarrier(t *testing.T) {
	out := filepath.Join(t.TempDir(), "capture.wav")
	require.NoError(t, run([]string{"-ratio", "6", "-freq", "10000000", "-transfer-len", "16", "-transfers", "5", out}, &bytes.Buffer{}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	samples, _, err := capture.ReadWAV(f)
	require.NoError(t, err)
	require.Len(t, samples, 5*16)

	table, err := carrier.NewRatioTable(6, carrier.SignalMax)
	require.NoError(t, err)
	phase, err := analysis.CheckContinuity(samples, table.Samples())
	require.NoError(t, err)
	assert.Zero(t, phase)
}

func TestRun_Keying(t *testing.T) {
	out := filepath.Join(t.TempDir(), "psk.wav")
	var buf bytes.Buffer
	require.NoError(t, run([]string{"-ratio", "4", "-transfer-len", "32", "-keying", "8", out}, &buf))
	assert.NotContains(t, buf.String(), "Continuity")
	assert.FileExists(t, out)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"missing output", nil},
		{"bad ratio", []string{"-ratio", "5", filepath.Join(dir, "a.wav")}},
		{"bad strategy", []string{"-strategy", "spiral", filepath.Join(dir, "b.wav")}},
		{"zero transfers", []string{"-transfers", "0", filepath.Join(dir, "c.wav")}},
		{"rate out of range", []string{"-freq", "100000000", filepath.Join(dir, "d.wav")}},
		{"frequency above 32 bits", []string{"-freq", "4322967296", filepath.Join(dir, "e.wav")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, run(tt.args, &bytes.Buffer{}))
		})
	}
}
