package application

import (
	"context"
	"errors"
	"fmt"
	"io"
)

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

// ConsoleNotifier prints diagnostics for the person at the keyboard.
type ConsoleNotifier struct {
	Out io.Writer
}

func (c *ConsoleNotifier) Notify(_ context.Context, message string) error {
	_, err := fmt.Fprintln(c.Out, message)
	return err
}

type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
