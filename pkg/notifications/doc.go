// Package notifications defines the notification domain model shared by the
// broker and its collaborators.
//
// A Record is the broker's mutable view of one notification, identified by
// a key built from user, package, id and tag (see Key). Each record moves
// through a small lifecycle:
//
//	enqueued --post--> posted
//	enqueued|posted --snooze--> snoozed --repost--> enqueued
//	enqueued|posted|snoozed --cancel--> canceled
//	posted --supersede--> canceled
//
// Illegal moves return ErrIllegalTransition.
//
// Store keeps the enqueued list (records accepted but not yet posted, in
// arrival order), the posted list (one record per key, kept in rank order by
// its owner) and the group summary index.
//
// Observers never see records. They receive a View or a Ranking, both plain
// values safe to share across goroutines.
//
// Policy oracles read a SignalInput snapshot and return Signals, which the
// owner applies with Record.ApplySignals. Assistant changes arrive as an
// Adjustment, queued with Record.AddAdjustment and folded in by
// Record.ApplyPendingAdjustments.
//
// Nothing in this package is safe for concurrent use. The broker guards all
// records and the store with one lock.
package notifications
