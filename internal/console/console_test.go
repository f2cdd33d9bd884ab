package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-fl2k-carrier/internal/testutil"
)

func record(got *[]Command) HandlerFunc {
	return func(c Command) { *got = append(*got, c) }
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantExit Exit
		wantCmds []Command
		wantOut  string
	}{
		{"quit", "q\n", ExitQuit, nil, Banner},
		{"raise lower quit", "u\nd\nq\n", ExitQuit, []Command{CmdRaise, CmdLower}, Banner + Prompt + Prompt},
		{"unknown keys ignored", "x\nU\nq", ExitQuit, nil, Banner + Prompt + Prompt},
		{"eof", "u\n", ExitEOF, []Command{CmdRaise}, Banner + Prompt},
		{"empty input", "", ExitEOF, nil, Banner},
		{"stops at quit", "qu\n", ExitQuit, nil, Banner},
		{"keys without newline", "uud", ExitEOF, []Command{CmdRaise, CmdRaise, CmdLower}, Banner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			var got []Command

			exit, err := Run(context.Background(), strings.NewReader(tt.input), &out, record(&got))
			require.NoError(t, err)
			assert.Equal(t, tt.wantExit, exit)
			assert.Equal(t, tt.wantCmds, got)
			assert.Equal(t, tt.wantOut, out.String())
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("tty gone") }

func TestRun_ReadError(t *testing.T) {
	exit, err := Run(context.Background(), failingReader{}, io.Discard, func(Command) {})
	require.Error(t, err)
	assert.Equal(t, ExitEOF, exit)
}

func TestRun_Canceled(t *testing.T) {
	baseline := runtime.NumGoroutine()

	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Exit, 1)
	go func() {
		exit, _ := Run(ctx, pr, io.Discard, func(Command) {})
		done <- exit
	}()

	cancel()
	select {
	case exit := <-done:
		assert.Equal(t, ExitCanceled, exit)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// Unblock the reader goroutine.
	require.NoError(t, pw.Close())
	testutil.AssertNoGoroutineLeaks(t, baseline, 0)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "raise", CmdRaise.String())
	assert.Equal(t, "quit", ExitQuit.String())
	assert.Equal(t, "canceled", ExitCanceled.String())
	assert.Equal(t, "Command('x')", Command('x').String())
}
