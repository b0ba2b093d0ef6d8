package broker

import (
	"fmt"
	"slices"
	"time"
)

// Config tunes the broker. It is loaded from NOTIFY_-prefixed environment
// variables by the daemon.
type Config struct {
	MaxEnqueueRate          int             `env:"MAX_ENQUEUE_RATE" envDefault:"5"`
	MaxPackageNotifications int             `env:"MAX_PACKAGE_NOTIFICATIONS" envDefault:"25"`
	AutogroupThreshold      int             `env:"AUTOGROUP_THRESHOLD" envDefault:"4"`
	AssistantDelay          time.Duration   `env:"ASSISTANT_DELAY" envDefault:"100ms"`
	AlertInterval           time.Duration   `env:"ALERT_INTERVAL" envDefault:"1s"`
	LightsWhenScreenOn      bool            `env:"LIGHTS_WHEN_SCREEN_ON" envDefault:"false"`
	DispatchTimeout         time.Duration   `env:"DISPATCH_TIMEOUT" envDefault:"5s"`
	FallbackVibration       []time.Duration `env:"FALLBACK_VIBRATION" envDefault:"0s,100ms,150ms,100ms" envSeparator:","`
	CurrentUser             int             `env:"CURRENT_USER" envDefault:"0"`
	HistorySize             int             `env:"HISTORY_SIZE" envDefault:"256"`
}

// DefaultConfig returns the same values as the environment defaults.
func DefaultConfig() Config {
	return Config{
		MaxEnqueueRate:          5,
		MaxPackageNotifications: 25,
		AutogroupThreshold:      4,
		AssistantDelay:          100 * time.Millisecond,
		AlertInterval:           time.Second,
		DispatchTimeout:         5 * time.Second,
		FallbackVibration:       []time.Duration{0, 100 * time.Millisecond, 150 * time.Millisecond, 100 * time.Millisecond},
		HistorySize:             256,
	}
}

func (c Config) validate() error {
	switch {
	case c.MaxEnqueueRate <= 0:
		return fmt.Errorf("%w: max enqueue rate must be positive", ErrInvalidConfig)
	case c.MaxPackageNotifications <= 0:
		return fmt.Errorf("%w: max package notifications must be positive", ErrInvalidConfig)
	case c.AutogroupThreshold <= 0:
		return fmt.Errorf("%w: autogroup threshold must be positive", ErrInvalidConfig)
	case c.AssistantDelay < 0, c.AlertInterval < 0, c.DispatchTimeout < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	case c.HistorySize <= 0:
		return fmt.Errorf("%w: history size must be positive", ErrInvalidConfig)
	case slices.ContainsFunc(c.FallbackVibration, func(d time.Duration) bool { return d < 0 }):
		return fmt.Errorf("%w: fallback vibration has a negative step", ErrInvalidConfig)
	}
	return nil
}
