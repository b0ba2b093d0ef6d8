package queue

import "errors"

var (
	// ErrQueueClosed is returned when work is submitted to a stopped queue.
	ErrQueueClosed = errors.New("queue: closed")

	// ErrAlreadyStarted is returned by Start on a running queue.
	ErrAlreadyStarted = errors.New("queue: already started")

	// ErrNotStarted is returned by Stop on a queue that was never started.
	ErrNotStarted = errors.New("queue: not started")

	// ErrNilTask is returned when a nil task is enqueued.
	ErrNilTask = errors.New("queue: nil task")
)
