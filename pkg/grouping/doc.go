// Package grouping bundles a package's ungrouped notifications under a
// synthesized summary once there are too many of them.
//
// The Engine keeps one state machine per user and package:
//
//	idle --exceed--> threshold_exceeded --summary_posted--> summary_posted
//	threshold_exceeded|summary_posted --retract--> idle
//	summary_posted --summary_removed--> threshold_exceeded
//
// Posting more than the threshold of ungrouped notifications fires exceed,
// which asks the Callback to regroup every tracked key and to create a
// summary. Falling below the threshold fires retract, which reverses both.
// Notifications the app groups itself leave the tracked set.
package grouping
