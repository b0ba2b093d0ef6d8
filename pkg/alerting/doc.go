// Package alerting decides whether a posted notification makes a sound,
// vibrates or flashes the light, and drives the effectors that do so.
//
// Engine.Decide is called with the owner's lock held, right after a record
// is posted. It updates effector ownership (which key owns the sound, the
// vibration and the light) and returns a Plan. Engine.Execute performs the
// plan's effector calls and must be called after the lock is released.
//
// Sound and vibration require importance of at least default, a
// notification for the current user, and no mute reason. Mute reasons are
// checked in order: silent update, global disable, listener hints, call
// state, do-not-disturb, group alert behavior and finally a per-package
// throttle allowing one alert per Config.AlertInterval.
//
// Lights are tracked as a stack; the newest live notification with a light
// owns it. A light command is emitted only when the visible state changes.
package alerting
