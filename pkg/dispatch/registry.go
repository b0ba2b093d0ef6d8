package dispatch

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/notifykit/notifyd/pkg/notifications"
	"github.com/notifykit/notifyd/pkg/policy"
)

// UserAll registers an observer for every user.
const UserAll = -1

// Trim selects how much payload an observer receives.
type Trim int

const (
	TrimFull Trim = iota
	TrimLight
)

// Registration describes one observer.
type Registration struct {
	ID         string
	Component  string
	UserID     int
	Assistant  bool
	Trim       Trim
	Enabled    bool
	SeesHidden bool
	// Capabilities lists the adjustment types an assistant may apply. Nil
	// allows every type.
	Capabilities []notifications.AdjustmentType
	Hints        notifications.ListenerHints
	Observer     Observer
}

// Allows reports whether the assistant may apply adjustments of type t.
func (r Registration) Allows(t notifications.AdjustmentType) bool {
	return r.Capabilities == nil || slices.Contains(r.Capabilities, t)
}

// Registry holds the registered listeners and assistants. Safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	regs     map[string]*Registration
	order    []string
	profiles policy.Profiles
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithProfiles lets observers see notifications of users in the same
// profile group.
func WithProfiles(p policy.Profiles) RegistryOption {
	return func(r *Registry) {
		r.profiles = p
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{regs: make(map[string]*Registration)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds reg and returns its id. An empty ID is generated.
func (r *Registry) Register(reg Registration) (string, error) {
	if reg.Observer == nil {
		return "", ErrNilObserver
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if reg.Assistant {
		for _, other := range r.regs {
			if other.Assistant && other.UserID == reg.UserID {
				return "", ErrAssistantRegistered
			}
		}
	}
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	if _, ok := r.regs[reg.ID]; !ok {
		r.order = append(r.order, reg.ID)
	}
	reg.Capabilities = slices.Clone(reg.Capabilities)
	r.regs[reg.ID] = &reg
	return reg.ID, nil
}

// Unregister removes the observer and returns its registration.
func (r *Registry) Unregister(id string) (Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[id]
	if !ok {
		return Registration{}, ErrUnknownObserver
	}
	delete(r.regs, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return *reg, nil
}

// Get returns the registration for id.
func (r *Registry) Get(id string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.regs[id]
	if !ok {
		return Registration{}, false
	}
	return *reg, true
}

func (r *Registry) update(id string, fn func(*Registration)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[id]
	if !ok {
		return ErrUnknownObserver
	}
	fn(reg)
	return nil
}

// SetTrim changes the payload trim of an observer.
func (r *Registry) SetTrim(id string, trim Trim) error {
	return r.update(id, func(reg *Registration) { reg.Trim = trim })
}

// SetEnabled enables or disables delivery to an observer.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	return r.update(id, func(reg *Registration) { reg.Enabled = enabled })
}

// SetHints records the hints requested by a listener and returns the
// combined hints of all listeners.
func (r *Registry) SetHints(id string, hints notifications.ListenerHints) (notifications.ListenerHints, error) {
	if err := r.update(id, func(reg *Registration) { reg.Hints = hints }); err != nil {
		return 0, err
	}
	return r.Hints(), nil
}

// Hints returns the hints of all listeners OR-ed together.
func (r *Registry) Hints() notifications.ListenerHints {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var h notifications.ListenerHints
	for _, reg := range r.regs {
		h |= reg.Hints
	}
	return h
}

// Assistant returns the assistant serving userID.
func (r *Registry) Assistant(userID int) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		reg := r.regs[id]
		if reg.Assistant && reg.Enabled && (reg.UserID == userID || reg.UserID == UserAll) {
			return *reg, true
		}
	}
	return Registration{}, false
}

// Snapshot returns every registration in registration order.
func (r *Registry) Snapshot() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.regs[id])
	}
	return out
}

// Listeners returns the enabled non-assistant observers.
func (r *Registry) Listeners() []Registration {
	return slices.DeleteFunc(r.Snapshot(), func(reg Registration) bool {
		return reg.Assistant || !reg.Enabled
	})
}

// Sees reports whether reg may see a notification of userID.
func (r *Registry) Sees(reg Registration, userID int, hidden bool) bool {
	if !reg.Enabled || (hidden && !reg.SeesHidden) {
		return false
	}
	if reg.UserID == UserAll || reg.UserID == userID {
		return true
	}
	return r.profiles != nil && r.profiles.SameProfileGroup(reg.UserID, userID)
}

// SeesRecord reports whether reg may see rec.
func (r *Registry) SeesRecord(reg Registration, rec *notifications.Record) bool {
	return r.Sees(reg, rec.UserID(), rec.IsHidden())
}

// RankingFor snapshots the part of posted that reg may see.
func (r *Registry) RankingFor(reg Registration, posted []*notifications.Record) notifications.RankingMap {
	out := make(notifications.RankingMap, 0, len(posted))
	for _, rec := range posted {
		if r.SeesRecord(reg, rec) {
			out = append(out, rec.Ranking(len(out)))
		}
	}
	return out
}

// Visible filters records to those reg may see.
func (r *Registry) Visible(reg Registration, records []*notifications.Record) []notifications.View {
	out := make([]notifications.View, 0, len(records))
	for _, rec := range records {
		if r.SeesRecord(reg, rec) {
			out = append(out, rec.View(reg.Trim == TrimLight))
		}
	}
	return out
}
