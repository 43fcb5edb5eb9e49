package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every stage failure wraps exactly one of these.
var (
	ErrDevice   = errors.New("device error")
	ErrDecode   = errors.New("decode error")
	ErrService  = errors.New("service error")
	ErrPlayback = errors.New("playback error")

	ErrTurnInProgress = errors.New("turn already in progress")
)

type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap tags err with kind. A nil err still yields an error so callers can
// report conditions that have no underlying cause.
func Wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Kind returns the taxonomy sentinel carried by err, or nil when err falls
// outside the taxonomy.
func Kind(err error) error {
	for _, k := range []error{ErrDevice, ErrDecode, ErrService, ErrPlayback} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// StageError records which pipeline stage failed.
type StageError struct {
	Stage TurnState
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
