package alerting

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
)

// InCallSound is played instead of the notification's sound during a call.
const InCallSound = "in_call_notification"

// UserAll addresses every user.
const UserAll = -1

// RingerMode is the device ringer setting.
type RingerMode int

const (
	RingerNormal RingerMode = iota
	RingerVibrate
	RingerSilent
)

// DeviceState is the device context alerting depends on.
type DeviceState struct {
	ScreenOn       bool
	KeyguardLocked bool
	InCall         bool
	Ringer         RingerMode
}

// Config tunes the engine.
type Config struct {
	CurrentUser        int
	AlertInterval      time.Duration
	LightsWhenScreenOn bool
	FallbackVibration  []time.Duration
}

// Lookup returns the live posted record for key, or nil.
type Lookup func(key string) *notifications.Record

type litState struct {
	key   string
	light notifications.Light
}

// Engine decides which sounds, vibrations and lights a notification
// triggers and tracks which notification owns each effector. All methods
// except Execute must be called with the owner's lock held.
type Engine struct {
	cfg       Config
	lookup    Lookup
	effectors Effectors
	logger    *slog.Logger
	now       func() time.Time

	device          DeviceState
	hints           notifications.ListenerHints
	effectsDisabled bool
	limiters        map[string]*rate.Limiter

	soundKey   string
	vibrateKey string
	lights     []string
	lit        litState
}

// Option configures an Engine.
type Option func(*Engine)

// WithEffectors sets the output devices used by Execute.
func WithEffectors(e Effectors) Option {
	return func(en *Engine) { en.effectors = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an engine. lookup resolves light owners to live records.
func New(cfg Config, lookup Lookup, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		lookup:   lookup,
		logger:   logger.Discard(),
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(e)
	}
	fallback := LogEffectors(e.logger)
	if e.effectors.Sound == nil {
		e.effectors.Sound = fallback.Sound
	}
	if e.effectors.Vibrator == nil {
		e.effectors.Vibrator = fallback.Vibrator
	}
	if e.effectors.Light == nil {
		e.effectors.Light = fallback.Light
	}
	return e
}

// Decide computes the alerts for r, which must already be in the posted
// list. summary is the posted summary of r's group, if any.
func (e *Engine) Decide(r, summary *notifications.Record) Plan {
	var plan Plan
	key := r.Key()
	aboveThreshold := r.Importance() >= notifications.ImportanceDefault
	silentUpdate := r.IsUpdate() && r.HasFlag(notifications.FlagOnlyAlertOnce)

	wasBeep := key == e.soundKey
	wasBuzz := key == e.vibrateKey

	sound, pattern := e.effective(r)
	hasSound, hasVibration := sound != "", len(pattern) > 0

	if aboveThreshold && e.forCurrentUser(r) && (hasSound || hasVibration) {
		plan.MuteReason = e.muteReason(r, summary)
		if plan.MuteReason == "" {
			if hasSound {
				if e.soundKey != "" && e.soundKey != key {
					plan.add(Command{Kind: StopSound, Key: e.soundKey})
				}
				e.soundKey = key
				s, repeat := sound, r.HasFlag(notifications.FlagInsistent)
				if e.device.InCall {
					s, repeat = InCallSound, false
				}
				plan.add(Command{Kind: PlaySound, Key: key, Sound: s, Repeat: repeat})
				plan.Beep = true
			}
			if hasVibration && !e.device.InCall {
				if e.vibrateKey != "" && e.vibrateKey != key {
					plan.add(Command{Kind: CancelVibration, Key: e.vibrateKey})
				}
				e.vibrateKey = key
				plan.add(Command{
					Kind:    Vibrate,
					Key:     key,
					Pattern: slices.Clone(pattern),
					Repeat:  r.HasFlag(notifications.FlagInsistent),
				})
				plan.Buzz = true
			}
		}
	}

	if wasBeep && !hasSound {
		e.soundKey = ""
		plan.add(Command{Kind: StopSound, Key: key})
	}
	if wasBuzz && !hasVibration {
		e.vibrateKey = ""
		plan.add(Command{Kind: CancelVibration, Key: key})
	}

	wasLit := e.removeLight(key)
	if r.Light() != nil && aboveThreshold && !r.SuppressedEffects().Has(notifications.SuppressLights) {
		e.lights = append(e.lights, key)
		plan.add(e.updateLights()...)
		plan.Blink = !silentUpdate
	} else if wasLit {
		plan.add(e.updateLights()...)
	}

	if plan.Buzz || plan.Beep || plan.Blink {
		r.SetInterruptive(true)
	}
	if plan.Buzz || plan.Beep {
		r.SetAudiblyAlerted(e.now())
	}
	return plan
}

// effective applies the ringer mode to the record's sound and vibration.
func (e *Engine) effective(r *notifications.Record) (string, []time.Duration) {
	sound, pattern := r.Sound(), r.Vibration()
	switch e.device.Ringer {
	case RingerVibrate:
		if len(pattern) == 0 && sound != "" {
			pattern = e.cfg.FallbackVibration
		}
		sound = ""
	case RingerSilent:
		sound, pattern = "", nil
	}
	return sound, pattern
}

func (e *Engine) forCurrentUser(r *notifications.Record) bool {
	return r.UserID() == UserAll || r.UserID() == e.cfg.CurrentUser
}

// muteReason returns why r may not make noise, or "". The per-package
// throttle is consulted last so a muted alert never consumes it.
func (e *Engine) muteReason(r, summary *notifications.Record) string {
	switch {
	case r.IsUpdate() && r.HasFlag(notifications.FlagOnlyAlertOnce):
		return "alert_once"
	case e.effectsDisabled:
		return "effects_disabled"
	case e.hints.Has(notifications.HintDisableEffects):
		return "hint_effects"
	case !r.IsCall() && e.hints.Has(notifications.HintDisableNotificationEffects):
		return "hint_notification_effects"
	case r.IsCall() && e.hints.Has(notifications.HintDisableCallEffects):
		return "hint_call_effects"
	case r.IsIntercepted():
		return "intercepted"
	case e.suppressedByGroup(r, summary):
		return "group"
	case !e.allow(r.Package()):
		return "rate_limited"
	}
	return ""
}

func (e *Engine) suppressedByGroup(r, summary *notifications.Record) bool {
	if !r.IsGrouped() {
		return false
	}
	behavior := r.Payload().GroupAlertBehavior
	if r.IsGroupSummary() {
		return behavior == notifications.GroupAlertChildren
	}
	if behavior == notifications.GroupAlertSummary {
		return true
	}
	if summary == nil || summary == r || summary.LastAudiblyAlerted().IsZero() {
		return false
	}
	return e.now().Sub(summary.LastAudiblyAlerted()) < e.cfg.AlertInterval
}

func (e *Engine) allow(pkg string) bool {
	if e.cfg.AlertInterval <= 0 {
		return true
	}
	l, ok := e.limiters[pkg]
	if !ok {
		l = rate.NewLimiter(rate.Every(e.cfg.AlertInterval), 1)
		e.limiters[pkg] = l
	}
	return l.AllowN(e.now(), 1)
}

func (e *Engine) removeLight(key string) bool {
	i := slices.Index(e.lights, key)
	if i < 0 {
		return false
	}
	e.lights = slices.Delete(e.lights, i, i+1)
	return true
}

// updateLights recomputes the light owner and returns a command only when
// the visible light state changes.
func (e *Engine) updateLights() []Command {
	var owner *notifications.Record
	for owner == nil && len(e.lights) > 0 {
		k := e.lights[len(e.lights)-1]
		if owner = e.lookup(k); owner == nil || owner.Light() == nil {
			e.logger.Warn("dropping stale light owner", logger.NotificationKey(k))
			e.lights = e.lights[:len(e.lights)-1]
			owner = nil
		}
	}

	var want litState
	if owner != nil && e.lightsAllowed() {
		want = litState{key: owner.Key(), light: *owner.Light()}
	}
	if want == e.lit {
		return nil
	}
	e.lit = want
	if want.key == "" {
		return []Command{{Kind: LightOff}}
	}
	return []Command{{Kind: LightOn, Key: want.key, Light: want.light}}
}

func (e *Engine) lightsAllowed() bool {
	if e.device.InCall {
		return false
	}
	if e.device.ScreenOn && !e.device.KeyguardLocked && !e.cfg.LightsWhenScreenOn {
		return false
	}
	return true
}

// Clear releases every effector owned by key.
func (e *Engine) Clear(key string) Plan {
	var plan Plan
	if e.soundKey == key && key != "" {
		e.soundKey = ""
		plan.add(Command{Kind: StopSound, Key: key})
	}
	if e.vibrateKey == key && key != "" {
		e.vibrateKey = ""
		plan.add(Command{Kind: CancelVibration, Key: key})
	}
	if e.removeLight(key) {
		plan.add(e.updateLights()...)
	}
	return plan
}

// StopAll stops any playing sound and vibration.
func (e *Engine) StopAll() Plan {
	var plan Plan
	if e.soundKey != "" {
		plan.add(Command{Kind: StopSound, Key: e.soundKey})
		e.soundKey = ""
	}
	if e.vibrateKey != "" {
		plan.add(Command{Kind: CancelVibration, Key: e.vibrateKey})
		e.vibrateKey = ""
	}
	return plan
}

// SetHints replaces the effective listener hints.
func (e *Engine) SetHints(h notifications.ListenerHints) Plan {
	e.hints = h
	if h.Has(notifications.HintDisableEffects) {
		return e.StopAll()
	}
	return Plan{}
}

// SetEffectsDisabled globally disables sound and vibration.
func (e *Engine) SetEffectsDisabled(disabled bool) Plan {
	e.effectsDisabled = disabled
	if disabled {
		return e.StopAll()
	}
	return Plan{}
}

// SetScreen updates screen and keyguard state.
func (e *Engine) SetScreen(on, keyguardLocked bool) Plan {
	e.device.ScreenOn = on
	e.device.KeyguardLocked = keyguardLocked
	return Plan{Commands: e.updateLights()}
}

// SetInCall updates call state.
func (e *Engine) SetInCall(inCall bool) Plan {
	e.device.InCall = inCall
	return Plan{Commands: e.updateLights()}
}

// SetRinger updates the ringer mode.
func (e *Engine) SetRinger(mode RingerMode) { e.device.Ringer = mode }

// Device returns the current device state.
func (e *Engine) Device() DeviceState { return e.device }

// ForgetPackage drops the package's alert throttle.
func (e *Engine) ForgetPackage(pkg string) { delete(e.limiters, pkg) }

func (e *Engine) SoundOwner() string     { return e.soundKey }
func (e *Engine) VibrationOwner() string { return e.vibrateKey }
func (e *Engine) LightOwner() string     { return e.lit.key }

// LightStack returns the keys competing for the light, oldest first.
func (e *Engine) LightStack() []string { return slices.Clone(e.lights) }

// Execute performs the plan's effector calls. It must run without the
// owner's lock. Effector failures are logged and skipped.
func (e *Engine) Execute(ctx context.Context, plan Plan) {
	for _, c := range plan.Commands {
		if err := e.run(ctx, c); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelWarn, "effector failed",
				logger.NotificationKey(c.Key),
				slog.String("command", c.Kind.String()),
				logger.Error(err),
			)
		}
	}
}

func (e *Engine) run(ctx context.Context, c Command) error {
	switch c.Kind {
	case PlaySound:
		return e.effectors.Sound.PlayAsync(ctx, c.Key, c.Sound, c.Repeat)
	case StopSound:
		return e.effectors.Sound.StopAsync(ctx)
	case Vibrate:
		return e.effectors.Vibrator.Vibrate(ctx, c.Key, c.Pattern, c.Repeat)
	case CancelVibration:
		return e.effectors.Vibrator.Cancel(ctx)
	case LightOn:
		if c.Light.On <= 0 || c.Light.Off <= 0 {
			return e.effectors.Light.SetColor(ctx, c.Light.Color)
		}
		return e.effectors.Light.SetFlashing(ctx, c.Light.Color, c.Light.On, c.Light.Off)
	case LightOff:
		return e.effectors.Light.TurnOff(ctx)
	}
	return nil
}
