package dispatch

import "github.com/notifykit/notifyd/pkg/notifications"

// Delivery is one event addressed to one observer.
type Delivery struct {
	ObserverID string
	Observer   Observer
	Event      Event
}

func deliver(reg Registration, e Event) Delivery {
	return Delivery{ObserverID: reg.ID, Observer: reg.Observer, Event: e}
}

// PostedBatch addresses rec to every listener. old is the record rec
// replaces, if any. A listener that saw old but cannot see rec receives a
// removal instead.
func (r *Registry) PostedBatch(rec, old *notifications.Record, posted []*notifications.Record) []Delivery {
	var out []Delivery
	for _, reg := range r.Listeners() {
		switch {
		case r.SeesRecord(reg, rec):
			out = append(out, deliver(reg, PostedEvent{
				Notification: rec.View(reg.Trim == TrimLight),
				Ranking:      r.RankingFor(reg, posted),
			}))
		case old != nil && r.SeesRecord(reg, old):
			out = append(out, deliver(reg, RemovedEvent{
				Notification: old.View(true),
				Ranking:      r.RankingFor(reg, posted),
				Reason:       notifications.ReasonHidden,
			}))
		}
	}
	return out
}

// RemovedBatch addresses the removal of rec to every listener that saw it.
func (r *Registry) RemovedBatch(rec *notifications.Record, posted []*notifications.Record, reason notifications.CancelReason) []Delivery {
	var out []Delivery
	for _, reg := range r.Listeners() {
		if r.SeesRecord(reg, rec) {
			out = append(out, deliver(reg, RemovedEvent{
				Notification: rec.View(true),
				Ranking:      r.RankingFor(reg, posted),
				Reason:       reason,
			}))
		}
	}
	return out
}

// RankingBatch addresses a ranking update to every listener.
func (r *Registry) RankingBatch(posted []*notifications.Record) []Delivery {
	var out []Delivery
	for _, reg := range r.Listeners() {
		out = append(out, deliver(reg, RankingUpdateEvent{Ranking: r.RankingFor(reg, posted)}))
	}
	return out
}

// HintsBatch addresses a hints change to every listener.
func (r *Registry) HintsBatch(hints notifications.ListenerHints) []Delivery {
	var out []Delivery
	for _, reg := range r.Listeners() {
		out = append(out, deliver(reg, HintsChangedEvent{Hints: hints}))
	}
	return out
}

// AssistantBatch addresses e to the assistant of userID, if there is one.
func (r *Registry) AssistantBatch(userID int, e Event) []Delivery {
	reg, ok := r.Assistant(userID)
	if !ok {
		return nil
	}
	return []Delivery{deliver(reg, e)}
}

// HiddenChangedBatch tells listeners that do not see hidden notifications
// that rec appeared or disappeared. Listeners that see hidden
// notifications learn about the change from the next ranking update.
func (r *Registry) HiddenChangedBatch(rec *notifications.Record, posted []*notifications.Record) []Delivery {
	var out []Delivery
	for _, reg := range r.Listeners() {
		if reg.SeesHidden || !r.Sees(reg, rec.UserID(), false) {
			continue
		}
		if rec.IsHidden() {
			out = append(out, deliver(reg, RemovedEvent{
				Notification: rec.View(true),
				Ranking:      r.RankingFor(reg, posted),
				Reason:       notifications.ReasonHidden,
			}))
			continue
		}
		out = append(out, deliver(reg, PostedEvent{
			Notification: rec.View(reg.Trim == TrimLight),
			Ranking:      r.RankingFor(reg, posted),
		}))
	}
	return out
}
