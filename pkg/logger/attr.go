package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the device user (profile) under the key "user_id".
func UserID(id int) slog.Attr {
	return slog.Int("user_id", id)
}

// NotificationKey records a notification key under the key "notification_key".
// An empty key yields an empty Attr.
func NotificationKey(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("notification_key", key)
}

// Package records the posting application under the key "package".
func Package(pkg string) slog.Attr {
	return slog.String("package", pkg)
}

// ListenerID records an observer registration under the key "listener_id".
func ListenerID(id string) slog.Attr {
	return slog.String("listener_id", id)
}

// Reason records why something happened (drop reason, cancel reason).
func Reason(reason any) slog.Attr {
	return slog.Any("reason", reason)
}

// Count records a cardinality under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Task records the name of a queued unit of work.
func Task(name string) slog.Attr {
	return slog.String("task", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
