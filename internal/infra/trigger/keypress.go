package trigger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/term"

	"voice-assistant/internal/domain"
)

const keyCtrlC = 0x03

// Keypress maps single key presses to commands. When the input is a terminal
// it is switched to raw mode so keys arrive without Enter.
//
// A run key is delivered only if the controller is currently waiting in Next;
// presses that land while a turn is running are dropped. The exit key aborts
// any running turn through Interrupts.
type Keypress struct {
	in     io.Reader
	logger *slog.Logger

	events   chan domain.Command
	exited   chan struct{}
	exitOnce sync.Once
	dropped  atomic.Int64

	fd       int
	oldState *term.State
}

func NewKeypress(in io.Reader, logger *slog.Logger) *Keypress {
	return &Keypress{
		in:     in,
		logger: logger,
		events: make(chan domain.Command),
		exited: make(chan struct{}),
		fd:     -1,
	}
}

func (k *Keypress) Name() string {
	return "keypress"
}

func (k *Keypress) Start(_ context.Context) error {
	if f, ok := k.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("enabling raw terminal mode: %w", err)
		}
		k.fd = fd
		k.oldState = state
	}

	go k.readLoop()

	k.logger.Info("listening for keys", "record", "r", "exit", "x")
	return nil
}

func (k *Keypress) Stop() error {
	if k.oldState != nil {
		if err := term.Restore(k.fd, k.oldState); err != nil {
			return fmt.Errorf("restoring terminal: %w", err)
		}
		k.oldState = nil
	}
	return nil
}

func (k *Keypress) Next(ctx context.Context) (domain.Command, error) {
	select {
	case <-ctx.Done():
		return domain.CommandNone, ctx.Err()
	case <-k.exited:
		return domain.CommandExit, nil
	case cmd := <-k.events:
		return cmd, nil
	}
}

func (k *Keypress) Interrupts() <-chan struct{} {
	return k.exited
}

// Dropped reports how many run keys arrived while no one was waiting.
func (k *Keypress) Dropped() int64 {
	return k.dropped.Load()
}

func (k *Keypress) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := k.in.Read(buf)
		if err != nil {
			if err != io.EOF {
				k.logger.Error("reading keys", "error", err)
			}
			k.exit()
			return
		}
		if n == 0 {
			continue
		}

		switch buf[0] {
		case 'r', 'R':
			select {
			case k.events <- domain.CommandRun:
			default:
				k.dropped.Add(1)
				k.logger.Warn("turn in progress, ignoring key")
			}
		case 'x', 'X', keyCtrlC:
			k.exit()
			return
		}
	}
}

func (k *Keypress) exit() {
	k.exitOnce.Do(func() {
		close(k.exited)
	})
}

// RawOutput wraps w so that every newline is written as CRLF. A terminal in
// raw mode no longer returns the carriage by itself, so log and diagnostic
// lines written during a keypress session go through this writer.
func RawOutput(w io.Writer) io.Writer {
	return crlfWriter{w: w}
}

type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
