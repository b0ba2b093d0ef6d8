// Package snooze keeps notifications the user or an assistant put aside
// until a duration elapses or a criterion triggers.
//
// Duration snoozes schedule a wake-up through a Scheduler, normally the
// broker's pipeline queue, so the WakeFunc runs on the same goroutine as
// every other pipeline step. The store itself only holds records; moving
// them back into the pipeline and applying group rules is the broker's job.
package snooze
