package dispatch

import "github.com/notifykit/notifyd/pkg/notifications"

// EventKind names an event for transports.
type EventKind string

const (
	KindPosted        EventKind = "posted"
	KindRemoved       EventKind = "removed"
	KindRankingUpdate EventKind = "ranking_update"
	KindHintsChanged  EventKind = "hints_changed"
	KindEnqueued      EventKind = "enqueued"
	KindSnoozed       EventKind = "snoozed"
	KindSeen          EventKind = "seen"
)

// Event is one of the event types declared in this package.
type Event interface {
	Kind() EventKind
	event()
}

// PostedEvent reports a new or updated notification.
type PostedEvent struct {
	Notification notifications.View       `json:"notification"`
	Ranking      notifications.RankingMap `json:"ranking"`
}

// RemovedEvent reports that a notification left the observer's view.
type RemovedEvent struct {
	Notification notifications.View         `json:"notification"`
	Ranking      notifications.RankingMap   `json:"ranking"`
	Reason       notifications.CancelReason `json:"reason"`
}

// RankingUpdateEvent carries a new ranking snapshot.
type RankingUpdateEvent struct {
	Ranking notifications.RankingMap `json:"ranking"`
}

// HintsChangedEvent carries the combined listener hints.
type HintsChangedEvent struct {
	Hints notifications.ListenerHints `json:"hints"`
}

// EnqueuedEvent is sent to the assistant before a notification is posted.
type EnqueuedEvent struct {
	Notification notifications.View `json:"notification"`
}

// SnoozedEvent is sent to the assistant when a notification is snoozed.
type SnoozedEvent struct {
	Notification notifications.View `json:"notification"`
	Criterion    string             `json:"criterion,omitempty"`
}

// SeenEvent is sent to the assistant when notifications were shown.
type SeenEvent struct {
	Keys []string `json:"keys"`
}

func (PostedEvent) Kind() EventKind        { return KindPosted }
func (RemovedEvent) Kind() EventKind       { return KindRemoved }
func (RankingUpdateEvent) Kind() EventKind { return KindRankingUpdate }
func (HintsChangedEvent) Kind() EventKind  { return KindHintsChanged }
func (EnqueuedEvent) Kind() EventKind      { return KindEnqueued }
func (SnoozedEvent) Kind() EventKind       { return KindSnoozed }
func (SeenEvent) Kind() EventKind          { return KindSeen }

func (PostedEvent) event()        {}
func (RemovedEvent) event()       {}
func (RankingUpdateEvent) event() {}
func (HintsChangedEvent) event()  {}
func (EnqueuedEvent) event()      {}
func (SnoozedEvent) event()       {}
func (SeenEvent) event()          {}
