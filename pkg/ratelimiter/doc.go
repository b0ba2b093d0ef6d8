// Package ratelimiter implements a token bucket keyed by an arbitrary string.
//
// The broker keys buckets by package name to bound how fast an application
// may enqueue notifications. Denied requests do not consume tokens, so a
// package that bursts past the limit is admitted again as soon as the bucket
// refills rather than being penalised for the rejected attempts.
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, _ := ratelimiter.NewBucket(store, ratelimiter.PerSecond(5))
//	res, _ := limiter.Allow(ctx, "com.example.app")
//	if !res.Allowed() {
//	    // drop
//	}
package ratelimiter
