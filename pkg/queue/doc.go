// Package queue provides the serial work queues that drive the broker.
//
// A Serial queue accepts tasks from any goroutine and runs them one at a
// time, in order, on a single consumer goroutine. Delayed work is scheduled
// with EnqueueAfter: the timer only enqueues, so delayed tasks observe the
// same ordering guarantees as everything else. Panics inside a task are
// recovered and logged; the queue keeps running.
//
// Several queues can share a Tracker to wait for global quiescence, which is
// how tests and shutdown code know that a chain of follow-up tasks spread
// over multiple queues has fully drained:
//
//	tracker := queue.NewTracker()
//	work := queue.NewSerial("pipeline", queue.WithTracker(tracker))
//	rank := queue.NewSerial("ranking", queue.WithTracker(tracker))
//	...
//	_ = tracker.Wait(ctx)
package queue
