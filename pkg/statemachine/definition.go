package statemachine

import (
	"context"
	"fmt"
)

// Definition is an immutable transition table. One Definition is shared by
// any number of Machine instances, so per-instance cost is a single state
// value.
type Definition struct {
	initial     State
	transitions map[string]map[string][]Transition
}

// Option configures a Definition during construction.
type Option func(*Definition) error

// TransitionOption configures a single transition.
type TransitionOption func(*Transition)

// Define builds a transition table whose machines start in initial.
func Define(initial State, opts ...Option) (*Definition, error) {
	if initial == nil {
		return nil, ErrInvalidState
	}
	d := &Definition{
		initial:     initial,
		transitions: make(map[string]map[string][]Transition),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustDefine is Define that panics on error. Meant for package-level tables.
func MustDefine(initial State, opts ...Option) *Definition {
	d, err := Define(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return d
}

// WithTransition adds a transition. Several transitions may share a source
// state and event; the first one whose guards pass is taken.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(d *Definition) error {
		if from == nil || to == nil || event == nil {
			return ErrInvalidTransition
		}
		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		byEvent, ok := d.transitions[from.Name()]
		if !ok {
			byEvent = make(map[string][]Transition)
			d.transitions[from.Name()] = byEvent
		}
		byEvent[event.Name()] = append(byEvent[event.Name()], t)
		return nil
	}
}

// WithSources adds the same event transition from each of several states.
func WithSources(to State, event Event, from ...State) Option {
	return func(d *Definition) error {
		for _, f := range from {
			if err := WithTransition(f, to, event)(d); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithGuard adds a guard to a transition.
func WithGuard(guard Guard) TransitionOption {
	return func(t *Transition) {
		if guard != nil {
			t.Guards = append(t.Guards, guard)
		}
	}
}

// WithAction adds an action to a transition.
func WithAction(action Action) TransitionOption {
	return func(t *Transition) {
		if action != nil {
			t.Actions = append(t.Actions, action)
		}
	}
}

// Initial returns the starting state of new machines.
func (d *Definition) Initial() State { return d.initial }

// New returns a machine in the initial state.
func (d *Definition) New() *Machine {
	return &Machine{def: d, current: d.initial}
}

// NewAt returns a machine positioned at state.
func (d *Definition) NewAt(state State) *Machine {
	if state == nil {
		state = d.initial
	}
	return &Machine{def: d, current: state}
}

func (d *Definition) match(ctx context.Context, from State, event Event, data any) (*Transition, error) {
	candidates := d.transitions[from.Name()][event.Name()]
	if len(candidates) == 0 {
		return nil, &TransitionError{From: from.Name(), Event: event.Name(), cause: ErrNoTransition}
	}
	for i := range candidates {
		if guardsPass(ctx, &candidates[i], from, event, data) {
			return &candidates[i], nil
		}
	}
	return nil, &TransitionError{From: from.Name(), Event: event.Name(), cause: ErrRejected}
}

func guardsPass(ctx context.Context, t *Transition, from State, event Event, data any) bool {
	for _, g := range t.Guards {
		if !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
