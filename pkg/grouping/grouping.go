package grouping

import (
	"context"
	"log/slog"
	"slices"

	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/statemachine"
)

// DefaultThreshold is the number of ungrouped notifications a package may
// show before they are bundled.
const DefaultThreshold = 4

// AutogroupName returns the group name used for pkg's synthesized bundle.
func AutogroupName(pkg string) string { return pkg + ":autogroup" }

const (
	StateIdle              = statemachine.StringState("idle")
	StateThresholdExceeded = statemachine.StringState("threshold_exceeded")
	StateSummaryPosted     = statemachine.StringState("summary_posted")
)

const (
	eventExceed         = statemachine.StringEvent("exceed")
	eventSummaryPosted  = statemachine.StringEvent("summary_posted")
	eventSummaryRemoved = statemachine.StringEvent("summary_removed")
	eventRetract        = statemachine.StringEvent("retract")
)

// Callback receives the engine's decisions. It is invoked synchronously
// from the engine's methods.
type Callback interface {
	AddAutogroup(key string)
	RemoveAutogroup(key string)
	AddAutogroupSummary(userID int, pkg, triggerKey string)
	RemoveAutogroupSummary(userID int, pkg string)
}

// Member is the grouping-relevant view of a posted notification.
type Member struct {
	Key     string
	UserID  int
	Package string
	// AppGrouped is set when the app chose a group itself.
	AppGrouped bool
}

type bundleKey struct {
	userID int
	pkg    string
}

type bundle struct {
	bundleKey
	keys  []string
	state *statemachine.Machine
}

type firing struct {
	cb      Callback
	b       *bundle
	trigger string
}

var definition = statemachine.MustDefine(StateIdle,
	statemachine.WithTransition(StateIdle, StateThresholdExceeded, eventExceed, statemachine.WithAction(exceed)),
	statemachine.WithTransition(StateThresholdExceeded, StateSummaryPosted, eventSummaryPosted),
	statemachine.WithTransition(StateSummaryPosted, StateThresholdExceeded, eventSummaryRemoved),
	statemachine.WithTransition(StateThresholdExceeded, StateIdle, eventRetract, statemachine.WithAction(retract)),
	statemachine.WithTransition(StateSummaryPosted, StateIdle, eventRetract, statemachine.WithAction(retract)),
)

func exceed(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	f := data.(firing)
	for _, k := range f.b.keys {
		f.cb.AddAutogroup(k)
	}
	f.cb.AddAutogroupSummary(f.b.userID, f.b.pkg, f.trigger)
	return nil
}

func retract(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	f := data.(firing)
	for _, k := range f.b.keys {
		f.cb.RemoveAutogroup(k)
	}
	f.cb.RemoveAutogroupSummary(f.b.userID, f.b.pkg)
	return nil
}

// Engine tracks ungrouped notifications per user and package and bundles
// them once a package shows more than the threshold. It is not safe for
// concurrent use.
type Engine struct {
	cb        Callback
	threshold int
	logger    *slog.Logger
	bundles   map[bundleKey]*bundle
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the bundling threshold.
func WithThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.threshold = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine reporting to cb.
func New(cb Callback, opts ...Option) *Engine {
	e := &Engine{
		cb:        cb,
		threshold: DefaultThreshold,
		logger:    logger.Discard(),
		bundles:   make(map[bundleKey]*bundle),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the configured threshold.
func (e *Engine) Threshold() int { return e.threshold }

func (e *Engine) bundle(userID int, pkg string, create bool) *bundle {
	k := bundleKey{userID: userID, pkg: pkg}
	b, ok := e.bundles[k]
	if !ok && create {
		b = &bundle{bundleKey: k, state: definition.New()}
		e.bundles[k] = b
	}
	return b
}

func (e *Engine) fire(b *bundle, event statemachine.Event, trigger string) {
	err := b.state.Fire(context.Background(), event, firing{cb: e.cb, b: b, trigger: trigger})
	if err != nil {
		e.logger.Debug("grouping transition skipped",
			logger.Package(b.pkg),
			logger.UserID(b.userID),
			logger.Event(event.Name()),
			logger.Error(err),
		)
	}
}

// OnPosted updates the engine after a notification other than an autogroup
// summary is posted or updated.
func (e *Engine) OnPosted(m Member) {
	if m.AppGrouped {
		b := e.bundle(m.UserID, m.Package, false)
		if b == nil || !b.remove(m.Key) {
			return
		}
		if !b.state.Is(StateIdle) {
			e.cb.RemoveAutogroup(m.Key)
		}
		e.maybeRetract(b)
		return
	}

	b := e.bundle(m.UserID, m.Package, true)
	if !slices.Contains(b.keys, m.Key) {
		b.keys = append(b.keys, m.Key)
	}
	switch b.state.Current() {
	case StateIdle:
		if len(b.keys) > e.threshold {
			e.fire(b, eventExceed, m.Key)
		}
	case StateThresholdExceeded:
		e.cb.AddAutogroup(m.Key)
		e.cb.AddAutogroupSummary(m.UserID, m.Package, m.Key)
	case StateSummaryPosted:
		e.cb.AddAutogroup(m.Key)
	}
}

// OnRemoved updates the engine after a notification left the posted list.
func (e *Engine) OnRemoved(m Member) {
	b := e.bundle(m.UserID, m.Package, false)
	if b == nil || !b.remove(m.Key) {
		return
	}
	e.maybeRetract(b)
}

func (e *Engine) maybeRetract(b *bundle) {
	if !b.state.Is(StateIdle) && len(b.keys) < e.threshold {
		e.fire(b, eventRetract, "")
	}
	if len(b.keys) == 0 && b.state.Is(StateIdle) {
		delete(e.bundles, b.bundleKey)
	}
}

// OnSummaryPosted records that the synthesized summary is live.
func (e *Engine) OnSummaryPosted(userID int, pkg string) {
	if b := e.bundle(userID, pkg, false); b != nil && b.state.Is(StateThresholdExceeded) {
		e.fire(b, eventSummaryPosted, "")
	}
}

// OnSummaryRemoved records that the synthesized summary went away while
// the bundle may still be needed.
func (e *Engine) OnSummaryRemoved(userID int, pkg string) {
	if b := e.bundle(userID, pkg, false); b != nil && b.state.Is(StateSummaryPosted) {
		e.fire(b, eventSummaryRemoved, "")
	}
}

// Active reports whether pkg currently needs a bundle.
func (e *Engine) Active(userID int, pkg string) bool {
	b := e.bundle(userID, pkg, false)
	return b != nil && !b.state.Is(StateIdle)
}

// State returns the bundle state of pkg.
func (e *Engine) State(userID int, pkg string) statemachine.State {
	if b := e.bundle(userID, pkg, false); b != nil {
		return b.state.Current()
	}
	return StateIdle
}

// Tracked returns the ungrouped keys tracked for pkg.
func (e *Engine) Tracked(userID int, pkg string) []string {
	if b := e.bundle(userID, pkg, false); b != nil {
		return slices.Clone(b.keys)
	}
	return nil
}

// Forget drops all state for pkg without invoking callbacks.
func (e *Engine) Forget(userID int, pkg string) {
	delete(e.bundles, bundleKey{userID: userID, pkg: pkg})
}

// ForgetUser drops all state for a user without invoking callbacks.
func (e *Engine) ForgetUser(userID int) {
	for k := range e.bundles {
		if k.userID == userID {
			delete(e.bundles, k)
		}
	}
}

func (b *bundle) remove(key string) bool {
	i := slices.Index(b.keys, key)
	if i < 0 {
		return false
	}
	b.keys = slices.Delete(b.keys, i, i+1)
	return true
}
