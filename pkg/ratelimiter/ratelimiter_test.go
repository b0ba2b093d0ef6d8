package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/ratelimiter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, cfg ratelimiter.Config) (*ratelimiter.Bucket, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithClock(clock.Now), ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)
	limiter, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	return limiter, clock
}

func TestPerSecond(t *testing.T) {
	t.Parallel()

	cfg := ratelimiter.PerSecond(5)
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillRate)
	assert.Equal(t, 200*time.Millisecond, cfg.RefillInterval)
	assert.Equal(t, ratelimiter.Config{}, ratelimiter.PerSecond(0))
}

func TestBucket_BurstBoundary(t *testing.T) {
	t.Parallel()

	limiter, clock := newLimiter(t, ratelimiter.PerSecond(5))
	ctx := context.Background()

	denied := 0
	for range 6 {
		res, err := limiter.Allow(ctx, "app1")
		require.NoError(t, err)
		if !res.Allowed() {
			denied++
		}
		clock.Advance(10 * time.Millisecond)
	}
	assert.Equal(t, 1, denied)

	// one request per second never trips the limit
	for range 10 {
		clock.Advance(time.Second)
		res, err := limiter.Allow(ctx, "app1")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	}
}

func TestBucket_DeniedRequestsDoNotConsume(t *testing.T) {
	t.Parallel()

	limiter, clock := newLimiter(t, ratelimiter.PerSecond(2))
	ctx := context.Background()

	for range 2 {
		res, err := limiter.Allow(ctx, "app1")
		require.NoError(t, err)
		require.True(t, res.Allowed())
	}
	for range 5 {
		res, err := limiter.Allow(ctx, "app1")
		require.NoError(t, err)
		assert.False(t, res.Allowed())
		assert.Equal(t, 500*time.Millisecond, res.RetryAfter(clock.Now()))
	}

	clock.Advance(500 * time.Millisecond)
	res, err := limiter.Allow(ctx, "app1")
	require.NoError(t, err)
	assert.True(t, res.Allowed(), "one refill must admit the next request")
}

func TestBucket_RefillKeepsRemainder(t *testing.T) {
	t.Parallel()

	limiter, clock := newLimiter(t, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: 100 * time.Millisecond})
	ctx := context.Background()

	_, err := limiter.AllowN(ctx, "k", 3)
	require.NoError(t, err)

	clock.Advance(150 * time.Millisecond)
	res, err := limiter.Status(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Remaining)

	clock.Advance(50 * time.Millisecond)
	res, err = limiter.Status(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining, "partial interval must carry over")
}

func TestBucket_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	limiter, _ := newLimiter(t, ratelimiter.PerSecond(1))
	ctx := context.Background()

	res, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	res, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	res, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	require.NoError(t, limiter.Reset(ctx, "a"))
	res, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestBucket_Validation(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	tests := []struct {
		name string
		cfg  ratelimiter.Config
	}{
		{"zero capacity", ratelimiter.Config{RefillRate: 1, RefillInterval: time.Second}},
		{"zero rate", ratelimiter.Config{Capacity: 1, RefillInterval: time.Second}},
		{"zero interval", ratelimiter.Config{Capacity: 1, RefillRate: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ratelimiter.NewBucket(store, tt.cfg)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}

	_, err := ratelimiter.NewBucket(nil, ratelimiter.PerSecond(1))
	assert.ErrorIs(t, err, ratelimiter.ErrNilStore)

	limiter, err := ratelimiter.NewBucket(store, ratelimiter.PerSecond(1))
	require.NoError(t, err)
	_, err = limiter.AllowN(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}

func TestMemoryStore_RemoveStale(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithClock(clock.Now),
		ratelimiter.WithCleanupInterval(0),
		ratelimiter.WithStaleAfter(time.Minute),
	)
	_, _, err := store.ConsumeTokens(context.Background(), "old", 1, ratelimiter.PerSecond(1))
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, _, err = store.ConsumeTokens(context.Background(), "fresh", 1, ratelimiter.PerSecond(1))
	require.NoError(t, err)

	store.RemoveStale()
	assert.Equal(t, 1, store.Len())
}
