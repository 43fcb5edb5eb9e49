package application

import (
	"context"

	"voice-assistant/internal/domain"
)

// TriggerSource decides when a turn runs. Console prompts, raw key presses
// and HTTP requests all sit behind it so the controller loop is written once.
type TriggerSource interface {
	Start(ctx context.Context) error
	Stop() error
	Next(ctx context.Context) (domain.Command, error)
	Name() string
}

// Interrupter is implemented by sources whose exit command must abort a turn
// that is already running.
type Interrupter interface {
	Interrupts() <-chan struct{}
}
