// Package dispatch fans notification state out to listeners and
// assistants.
//
// A Registry holds the registered observers together with their user
// scope, payload trim, enablement and requested hints. The Registry also
// builds the per-observer deliveries for each kind of change: it decides
// visibility (user scope, profile group, hidden records) and snapshots the
// ranking each observer is allowed to see.
//
// A Dispatcher drains published batches on its own queue. Every observer in
// a batch is served concurrently; an observer receives its events in
// publication order, and the next batch starts only after the current one
// completed. Handle calls are bounded by a timeout and their failures are
// logged, never propagated to the publisher.
//
// Observers implement Observer directly, or use Callbacks for optional
// per-event functions, or StreamObserver to follow the events through a
// broadcast subscription.
package dispatch
