// Package broadcast fans typed messages out to in-process subscribers.
//
// Broadcast never blocks on a consumer. A subscriber that cannot keep up is
// evicted and its channel closed, which streaming transports translate into
// a reconnect; a reconnecting client fetches the current state and then
// follows the stream again.
//
//	b := broadcast.NewMemoryBroadcaster[Event](64)
//	sub := b.Subscribe(ctx)
//	for msg := range sub.Receive() {
//	    fmt.Println(msg.Seq, msg.Data)
//	}
package broadcast
