package queue

import "log/slog"

// Option configures a Serial queue.
type Option func(*Serial)

// WithLogger sets the logger used for lifecycle and panic reports.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Serial) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithTracker shares an in-flight counter between several queues so that
// callers can wait until all of them are idle at once.
func WithTracker(t *Tracker) Option {
	return func(q *Serial) {
		if t != nil {
			q.tracker = t
		}
	}
}
