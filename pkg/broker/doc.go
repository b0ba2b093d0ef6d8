// Package broker is the notification broker core.
//
// Apps post notifications with Enqueue and remove them with Cancel and
// CancelAll. A request is validated and authorized in the caller's
// goroutine, then checked against policy: unknown channels, blocked or
// suspended packages, snoozed keys, the per-package quota and the enqueue
// rate limit each drop it with a DropReason. Dropped requests are not
// errors; only malformed or unauthorized requests are reported.
//
// Admitted records move through a single pipeline queue:
//
//	enqueue -> extract signals -> (assistant delay) -> post -> rank -> dispatch
//
// Posting applies pending assistant adjustments, replaces any record with
// the same key, maintains group summaries, feeds the autogrouping engine,
// re-sorts the posted list and asks the alerting engine for sound,
// vibration and light commands. Those commands run after the broker lock
// is released.
//
// Listeners and assistants are registered with RegisterListener and
// RegisterAssistant. Their events are delivered in order on a separate
// dispatch queue, so a slow observer never blocks the pipeline.
//
// Basic usage:
//
//	pol, err := policy.LoadFile("policy.yaml")
//	if err != nil {
//		return err
//	}
//	b, err := broker.New(broker.DefaultConfig(), broker.Deps{
//		Preferences: pol,
//		Zen:         pol,
//		Packages:    pol,
//		Profiles:    pol,
//		Authorizer:  pol,
//	}, broker.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	if err := b.Start(ctx); err != nil {
//		return err
//	}
//	defer b.Stop()
//
//	err = b.Enqueue(ctx, broker.EnqueueRequest{
//		Package:    "com.example.mail",
//		CallingUID: 10010,
//		ID:         1,
//		Payload:    &notifications.Payload{ChannelID: "inbox", Icon: "mail", Title: "New mail"},
//	})
//
// Sync waits until every queued task, including delayed posts and the
// ranking and dispatch work they cause, has run. Tests use it instead of
// sleeping.
package broker
