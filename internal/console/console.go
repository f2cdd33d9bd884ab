// Package console runs the single-key command loop of the generator.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// Banner is printed once when the loop starts.
const Banner = "Press u,d,q to raise or lower frequency, or quit: "

// Prompt is printed after every newline.
const Prompt = "> "

// Command is a recognized key.
type Command byte

// Recognized keys.
const (
	CmdRaise Command = 'u'
	CmdLower Command = 'd'
	CmdQuit  Command = 'q'
)

func (c Command) String() string {
	switch c {
	case CmdRaise:
		return "raise"
	case CmdLower:
		return "lower"
	case CmdQuit:
		return "quit"
	default:
		return fmt.Sprintf("Command(%q)", byte(c))
	}
}

// Exit says why Run returned.
type Exit int

// Loop exit reasons.
const (
	ExitQuit Exit = iota
	ExitEOF
	ExitCanceled
)

func (e Exit) String() string {
	switch e {
	case ExitQuit:
		return "quit"
	case ExitEOF:
		return "eof"
	case ExitCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("Exit(%d)", int(e))
	}
}

// HandlerFunc executes a raise or lower command.
type HandlerFunc func(Command)

type readResult struct {
	b   byte
	err error
}

// Run prints Banner, then reads r one byte at a time until 'q', end of
// input or ctx cancellation. 'u' and 'd' are passed to handle; other bytes
// are ignored. A read error other than io.EOF is returned with ExitEOF.
//
// Reads happen on a helper goroutine that only forwards bytes. Run returns
// at once when ctx is canceled; the helper exits after its pending read.
func Run(ctx context.Context, r io.Reader, w io.Writer, handle HandlerFunc) (Exit, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan readResult)
	go func() {
		br := bufio.NewReader(r)
		for {
			b, err := br.ReadByte()
			select {
			case in <- readResult{b, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	if _, err := io.WriteString(w, Banner); err != nil {
		return ExitEOF, fmt.Errorf("failed to write prompt: %w", err)
	}

	for {
		var res readResult
		select {
		case <-ctx.Done():
			return ExitCanceled, nil
		case res = <-in:
		}

		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				return ExitEOF, nil
			}
			return ExitEOF, fmt.Errorf("failed to read command: %w", res.err)
		}

		switch c := Command(res.b); c {
		case CmdQuit:
			return ExitQuit, nil
		case CmdRaise, CmdLower:
			handle(c)
		case '\n':
			if _, err := io.WriteString(w, Prompt); err != nil {
				return ExitEOF, fmt.Errorf("failed to write prompt: %w", err)
			}
		}
	}
}
