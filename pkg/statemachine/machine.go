package statemachine

import (
	"context"
	"fmt"
)

// Machine tracks the current state of one entity. It is not synchronized;
// callers guard it with the lock that protects the owning entity.
type Machine struct {
	def     *Definition
	current State
}

func (m *Machine) Current() State { return m.current }

// Is reports whether the machine is in state s.
func (m *Machine) Is(s State) bool {
	return s != nil && m.current.Name() == s.Name()
}

// Fire applies event, running the matching transition's actions first.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}
	t, err := m.def.match(ctx, m.current, event, data)
	if err != nil {
		return err
	}
	for _, action := range t.Actions {
		if err := action(ctx, m.current, t.To, event, data); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}
	m.current = t.To
	return nil
}

// CanFire reports whether event would be accepted in the current state.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}
	_, err := m.def.match(ctx, m.current, event, data)
	return err == nil
}

// Reset returns the machine to the definition's initial state.
func (m *Machine) Reset() {
	m.current = m.def.initial
}
