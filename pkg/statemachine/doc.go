// Package statemachine implements small finite state machines.
//
// A Definition holds the transition table and is built once, usually at
// package level. Each entity then owns a Machine created from it, which only
// stores the current state:
//
//	var lifecycle = statemachine.MustDefine(Enqueued,
//	    statemachine.WithTransition(Enqueued, Posted, Post),
//	    statemachine.WithSources(Canceled, Cancel, Enqueued, Posted),
//	)
//
//	m := lifecycle.New()
//	if err := m.Fire(ctx, Post, nil); err != nil {
//	    // illegal transition
//	}
//
// Guards select between several transitions sharing a source state and
// event; actions run before the state changes and may veto it by returning
// an error.
package statemachine
