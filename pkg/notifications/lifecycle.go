package notifications

import "github.com/notifykit/notifyd/pkg/statemachine"

const (
	StateEnqueued = statemachine.StringState("enqueued")
	StatePosted   = statemachine.StringState("posted")
	StateSnoozed  = statemachine.StringState("snoozed")
	StateCanceled = statemachine.StringState("canceled")
)

const (
	eventPost      = statemachine.StringEvent("post")
	eventSnooze    = statemachine.StringEvent("snooze")
	eventRepost    = statemachine.StringEvent("repost")
	eventCancel    = statemachine.StringEvent("cancel")
	eventSupersede = statemachine.StringEvent("supersede")
)

var lifecycle = statemachine.MustDefine(StateEnqueued,
	statemachine.WithTransition(StateEnqueued, StatePosted, eventPost),
	statemachine.WithSources(StateSnoozed, eventSnooze, StateEnqueued, StatePosted),
	statemachine.WithTransition(StateSnoozed, StateEnqueued, eventRepost),
	statemachine.WithSources(StateCanceled, eventCancel, StateEnqueued, StatePosted, StateSnoozed),
	statemachine.WithTransition(StatePosted, StateCanceled, eventSupersede),
)
