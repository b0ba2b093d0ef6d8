package ratelimiter

import "time"

// Result contains the result of a rate limit check.
type Result struct {
	Limit     int       // bucket capacity
	Remaining int       // tokens left; negative when the request was denied
	ResetAt   time.Time // next refill
}

// Allowed reports whether the request was admitted.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long a denied caller should wait, measured from now.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed() || !r.ResetAt.After(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Config defines the token bucket configuration.
type Config struct {
	Capacity       int           // burst limit
	RefillRate     int           // tokens added per interval
	RefillInterval time.Duration // refill period
}

// PerSecond returns a config admitting a sustained n requests per second with
// a burst of n: one token is added every 1s/n.
func PerSecond(n int) Config {
	if n <= 0 {
		return Config{}
	}
	return Config{
		Capacity:       n,
		RefillRate:     1,
		RefillInterval: time.Second / time.Duration(n),
	}
}
