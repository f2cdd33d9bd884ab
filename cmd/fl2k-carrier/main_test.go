package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-fl2k-carrier/internal/simsink"
)

func newEnv(t *testing.T, stdin io.Reader, args ...string) (env, *simsink.Opener, *bytes.Buffer) {
	t.Helper()
	t.Chdir(t.TempDir())

	opener := simsink.NewOpener(simsink.Config{}, nil)
	var out bytes.Buffer
	return env{
		args:   append([]string{"-log-level", "error"}, args...),
		stdin:  stdin,
		stdout: &out,
		stderr: io.Discard,
		opener: opener,
	}, opener, &out
}

func TestRun_QuitStopsAndClosesOnce(t *testing.T) {
	e, opener, out := newEnv(t, strings.NewReader("u\nd\nq\n"))

	code := run(e)
	assert.Equal(t, exitOK, code)

	sink := opener.Last()
	require.NotNil(t, sink)
	st := sink.Stats()
	assert.Equal(t, uint64(1), st.Starts)
	assert.Equal(t, uint64(1), st.Stops)
	assert.Equal(t, uint64(1), st.Closes)
	assert.Equal(t, uint64(3), st.RateSets)

	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, "Opened device", lines[0])
	assert.Equal(t, "Actual {sample rate,frequency} = {111998976,27999744}", lines[1])
	assert.Equal(t, 3, strings.Count(out.String(), "Actual {sample rate,frequency}"))
}

func TestRun_EOFExitsCleanly(t *testing.T) {
	e, opener, _ := newEnv(t, strings.NewReader(""))

	assert.Equal(t, exitOK, run(e))
	assert.Equal(t, uint64(1), opener.Last().Stats().Stops)
	assert.Equal(t, uint64(1), opener.Last().Stats().Closes)
}

func TestRun_Signal(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	e, opener, _ := newEnv(t, pr)
	sigs := make(chan os.Signal, 1)
	e.signals = sigs

	done := make(chan int, 1)
	go func() { done <- run(e) }()

	require.Eventually(t, func() bool {
		s := opener.Last()
		return s != nil && s.Stats().RateSets == 1
	}, 2*time.Second, 5*time.Millisecond)

	sigs <- syscall.SIGTERM
	select {
	case code := <-done:
		assert.Equal(t, exitOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after signal")
	}
	assert.Equal(t, uint64(1), opener.Last().Stats().Stops)
	assert.Equal(t, uint64(1), opener.Last().Stats().Closes)
}

func TestRun_OpenFailure(t *testing.T) {
	e, opener, out := newEnv(t, strings.NewReader("q"), "-device", "3")

	assert.Equal(t, exitOK, run(e))
	assert.Nil(t, opener.Last())
	assert.Contains(t, out.String(), "Failed to open fl2k device #3")
}

func TestRun_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unsupported ratio", []string{"-ratio", "5"}},
		{"amplitude", []string{"-amplitude", "200"}},
		{"strategy", []string{"-strategy", "spiral"}},
		{"unknown flag", []string{"-bogus"}},
		{"missing config file", []string{"-config", "/nonexistent/fl2k.yaml"}},
		{"frequency above 32 bits", []string{"-freq", "4322967296"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, opener, _ := newEnv(t, strings.NewReader("q"), tt.args...)
			assert.Equal(t, exitConfig, run(e))
			assert.Nil(t, opener.Last(), "no device opened on configuration error")
		})
	}
}

func TestRun_RateRejectedKeepsRunning(t *testing.T) {
	// 40 MHz * 4 exceeds the simulated clock range.
	e, opener, out := newEnv(t, strings.NewReader("q"), "-freq", "40000000")

	assert.Equal(t, exitOK, run(e))
	assert.Contains(t, out.String(), "WARNING: Failed to set sample rate.")
	assert.Contains(t, out.String(), "Actual {sample rate,frequency} = {0,0}")
	assert.Equal(t, uint64(1), opener.Last().Stats().Closes)
}

func TestRun_Help(t *testing.T) {
	e, _, _ := newEnv(t, strings.NewReader(""), "-h")
	var usage bytes.Buffer
	e.stderr = &usage

	assert.Equal(t, exitOK, run(e))
	assert.Contains(t, usage.String(), "Usage: fl2k-carrier")
	assert.Contains(t, usage.String(), "Exit status:")
	assert.Contains(t, usage.String(), "1  configuration error")
}
