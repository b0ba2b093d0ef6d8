package statemachine

import "context"

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// Action runs during a transition, before the state changes. Returning an
// error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard decides whether a transition may proceed.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Transition defines a state change triggered by an event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// StringState is a string-backed State.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is a string-backed Event.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }
