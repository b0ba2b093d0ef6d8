// Package policy defines the oracles the broker consults while accepting,
// ranking and alerting notifications: do-not-disturb (Zen), per-package
// and per-channel preferences, the package directory, profile groups and
// caller authorization.
//
// The broker depends only on the interfaces. Static implements all of them
// from a YAML document:
//
//	packages:
//	  app1:
//	    uid: 10010
//	    launch_intent: app1/.Main
//	    blocked_groups: [promo]
//	    channels:
//	      - id: general
//	        importance: high
//	        sound: default
//	        should_vibrate: true
//	        vibration: [0s, 200ms, 100ms, 200ms]
//	zen:
//	  mode: priority
//	  allow_messages: true
//	  messages_from: starred
//	  starred: [alice]
//	profile_groups:
//	  - [0, 10]
//
// Omitted package importance means "let the channel decide"; omitted
// channel importance is default. Static is safe for concurrent use and its
// setters take effect for subsequent oracle reads.
package policy
