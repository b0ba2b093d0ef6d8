// Package ranking computes notification signals and the order of the posted
// list.
//
// Signal extraction runs a chain of Extractor values over a
// notifications.SignalInput snapshot, so oracle calls can happen without
// holding the broker lock. The resulting Signals are applied to the record
// afterwards.
//
// Sort orders records in two stable passes. The first pass ranks by
// assistant score, importance, interception and recency. The second keeps
// each group together at the position of its best member.
//
// Take and Snapshot.Changed decide whether a ranking pass changed anything
// observers can see.
package ranking
