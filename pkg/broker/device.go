package broker

import (
	"context"

	"github.com/notifykit/notifyd/pkg/alerting"
)

// SetScreen reports a screen or keyguard change.
func (b *Broker) SetScreen(ctx context.Context, on, keyguardLocked bool) {
	b.mu.Lock()
	b.addPlan(b.alerts.SetScreen(on, keyguardLocked))
	b.unlock(ctx)
}

// SetInCall reports whether a phone call is in progress.
func (b *Broker) SetInCall(ctx context.Context, inCall bool) {
	b.mu.Lock()
	b.addPlan(b.alerts.SetInCall(inCall))
	b.unlock(ctx)
}

// SetRinger reports a ringer mode change. It affects later alerts only.
func (b *Broker) SetRinger(mode alerting.RingerMode) {
	b.mu.Lock()
	b.alerts.SetRinger(mode)
	b.mu.Unlock()
}

// SetEffectsDisabled turns sound and vibration off for every notification,
// stopping whatever is playing.
func (b *Broker) SetEffectsDisabled(ctx context.Context, disabled bool) {
	b.mu.Lock()
	b.addPlan(b.alerts.SetEffectsDisabled(disabled))
	b.unlock(ctx)
}

// Device returns the device state alerting currently assumes.
func (b *Broker) Device() alerting.DeviceState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alerts.Device()
}
