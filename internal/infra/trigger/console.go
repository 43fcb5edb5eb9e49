package trigger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"voice-assistant/internal/domain"
)

const (
	Prompt       = "Press 'r' + Enter to record, 'x' + Enter to exit: "
	UsageMessage = "Invalid input. Type 'r' to record or 'x' to exit."
)

type lineResult struct {
	line string
	err  error
}

// Console reads one command per line. A line read is started only when the
// controller asks for the next command, so input typed during a turn waits in
// the terminal buffer until the turn is over.
type Console struct {
	scanner *bufio.Scanner
	out     io.Writer
	pending chan lineResult
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

func (c *Console) Name() string {
	return "console"
}

func (c *Console) Start(_ context.Context) error {
	return nil
}

func (c *Console) Stop() error {
	return nil
}

func (c *Console) Next(ctx context.Context) (domain.Command, error) {
	for {
		fmt.Fprint(c.out, Prompt)

		line, err := c.readLine(ctx)
		if err == io.EOF {
			return domain.CommandExit, nil
		}
		if err != nil {
			return domain.CommandNone, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "r":
			return domain.CommandRun, nil
		case "x":
			return domain.CommandExit, nil
		default:
			fmt.Fprintln(c.out, UsageMessage)
		}
	}
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	if c.pending == nil {
		ch := make(chan lineResult, 1)
		c.pending = ch
		go func() {
			if c.scanner.Scan() {
				ch <- lineResult{line: c.scanner.Text()}
				return
			}
			err := c.scanner.Err()
			if err == nil {
				err = io.EOF
			}
			ch <- lineResult{err: err}
		}()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-c.pending:
		c.pending = nil
		return res.line, res.err
	}
}
