// Package async runs functions concurrently and collects their results
// through typed futures.
//
//	futures := make([]*async.Future[struct{}], 0, len(targets))
//	for _, t := range targets {
//	    futures = append(futures, async.Async(ctx, t, deliver))
//	}
//	_, err := async.WaitAll(futures...) // every error, joined
//
// Panics inside the function are recovered and reported as *PanicError,
// so one misbehaving callee cannot take down its caller.
package async
