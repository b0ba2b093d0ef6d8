package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/notifykit/notifyd/pkg/logger"
)

// SoundPlayer plays notification sounds.
type SoundPlayer interface {
	PlayAsync(ctx context.Context, key, sound string, looping bool) error
	StopAsync(ctx context.Context) error
}

// Vibrator drives the vibration motor.
type Vibrator interface {
	Vibrate(ctx context.Context, key string, pattern []time.Duration, repeat bool) error
	Cancel(ctx context.Context) error
}

// Light drives the notification LED.
type Light interface {
	SetColor(ctx context.Context, color uint32) error
	SetFlashing(ctx context.Context, color uint32, on, off time.Duration) error
	TurnOff(ctx context.Context) error
}

// Effectors groups the output devices.
type Effectors struct {
	Sound    SoundPlayer
	Vibrator Vibrator
	Light    Light
}

// LogEffectors returns effectors that only log what they would do.
func LogEffectors(log *slog.Logger) Effectors {
	l := logEffector{log: log.With(logger.Component("effector"))}
	return Effectors{Sound: l, Vibrator: l, Light: l}
}

type logEffector struct {
	log *slog.Logger
}

func (l logEffector) PlayAsync(ctx context.Context, key, sound string, looping bool) error {
	l.log.InfoContext(ctx, "play sound", logger.NotificationKey(key), slog.String("sound", sound), slog.Bool("looping", looping))
	return nil
}

func (l logEffector) StopAsync(ctx context.Context) error {
	l.log.InfoContext(ctx, "stop sound")
	return nil
}

func (l logEffector) Vibrate(ctx context.Context, key string, pattern []time.Duration, repeat bool) error {
	l.log.InfoContext(ctx, "vibrate", logger.NotificationKey(key), slog.Any("pattern", pattern), slog.Bool("repeat", repeat))
	return nil
}

func (l logEffector) Cancel(ctx context.Context) error {
	l.log.InfoContext(ctx, "cancel vibration")
	return nil
}

func (l logEffector) SetColor(ctx context.Context, color uint32) error {
	l.log.InfoContext(ctx, "light on", slog.String("color", hexColor(color)))
	return nil
}

func (l logEffector) SetFlashing(ctx context.Context, color uint32, on, off time.Duration) error {
	l.log.InfoContext(ctx, "light flashing",
		slog.String("color", hexColor(color)),
		slog.Duration("on", on),
		slog.Duration("off", off),
	)
	return nil
}

func (l logEffector) TurnOff(ctx context.Context) error {
	l.log.InfoContext(ctx, "light off")
	return nil
}

func hexColor(c uint32) string { return fmt.Sprintf("#%08x", c) }
