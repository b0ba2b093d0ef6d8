package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, or event cannot be nil")
	ErrInvalidEvent      = errors.New("invalid event: event cannot be nil")
	ErrInvalidState      = errors.New("invalid state: initial state cannot be nil")

	// ErrNoTransition means the definition has no edge for the state and event.
	ErrNoTransition = errors.New("no transition")
	// ErrRejected means every edge for the state and event failed a guard.
	ErrRejected = errors.New("transition rejected by guards")
)

// TransitionError reports a Fire that left the machine where it was. It
// wraps ErrNoTransition or ErrRejected.
type TransitionError struct {
	From  string
	Event string
	cause error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: state %q, event %q", e.cause, e.From, e.Event)
}

func (e *TransitionError) Unwrap() error { return e.cause }
