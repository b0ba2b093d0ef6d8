package queue_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/queue"
)

func startQueue(t *testing.T, opts ...queue.Option) *queue.Serial {
	t.Helper()
	q := queue.NewSerial("test", opts...)
	require.NoError(t, q.Start(context.Background()))
	t.Cleanup(func() { _ = q.Stop() })
	return q
}

func TestSerial_RunsInOrder(t *testing.T) {
	t.Parallel()

	q := startQueue(t)

	var mu sync.Mutex
	var got []int
	for i := range 100 {
		require.NoError(t, q.Enqueue("append", func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	require.NoError(t, q.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestSerial_NeverRunsConcurrently(t *testing.T) {
	t.Parallel()

	q := startQueue(t)

	var running, maxRunning atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = q.Enqueue("work", func(context.Context) {
					n := running.Add(1)
					if n > maxRunning.Load() {
						maxRunning.Store(n)
					}
					running.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestSerial_EnqueueBeforeStart(t *testing.T) {
	t.Parallel()

	q := queue.NewSerial("test")
	var ran atomic.Bool
	require.NoError(t, q.Enqueue("early", func(context.Context) { ran.Store(true) }))
	assert.Equal(t, 1, q.Pending())

	require.NoError(t, q.Start(context.Background()))
	require.NoError(t, q.Flush(context.Background()))
	assert.True(t, ran.Load())
	assert.Equal(t, 0, q.Pending())
	require.NoError(t, q.Stop())
}

func TestSerial_RecoversPanics(t *testing.T) {
	t.Parallel()

	q := startQueue(t)
	var after atomic.Bool
	require.NoError(t, q.Enqueue("boom", func(context.Context) { panic("boom") }))
	require.NoError(t, q.Enqueue("after", func(context.Context) { after.Store(true) }))
	require.NoError(t, q.Flush(context.Background()))
	assert.True(t, after.Load())
}

func TestSerial_EnqueueAfter(t *testing.T) {
	t.Parallel()

	t.Run("fires on queue", func(t *testing.T) {
		q := startQueue(t)
		var fired atomic.Bool
		q.EnqueueAfter(10*time.Millisecond, "delayed", func(context.Context) { fired.Store(true) })
		assert.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)
	})

	t.Run("cancel prevents run", func(t *testing.T) {
		q := startQueue(t)
		var fired atomic.Bool
		cancel := q.EnqueueAfter(50*time.Millisecond, "delayed", func(context.Context) { fired.Store(true) })
		assert.True(t, cancel())
		assert.False(t, cancel(), "second cancel reports nothing pending")
		time.Sleep(80 * time.Millisecond)
		require.NoError(t, q.Flush(context.Background()))
		assert.False(t, fired.Load())
	})
}

func TestSerial_StopDrainsAndRejects(t *testing.T) {
	t.Parallel()

	q := queue.NewSerial("test")
	require.NoError(t, q.Start(context.Background()))

	var count atomic.Int32
	for range 10 {
		require.NoError(t, q.Enqueue("work", func(context.Context) {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}))
	}
	require.NoError(t, q.Stop())
	assert.Equal(t, int32(10), count.Load())

	assert.ErrorIs(t, q.Enqueue("late", func(context.Context) {}), queue.ErrQueueClosed)
	assert.ErrorIs(t, q.Start(context.Background()), queue.ErrAlreadyStarted)
}

func TestSerial_Errors(t *testing.T) {
	t.Parallel()

	q := queue.NewSerial("test")
	assert.ErrorIs(t, q.Enqueue("nil", nil), queue.ErrNilTask)
	assert.ErrorIs(t, q.Stop(), queue.ErrNotStarted)
	require.NoError(t, q.Start(context.Background()))
	assert.ErrorIs(t, q.Start(context.Background()), queue.ErrAlreadyStarted)
	require.NoError(t, q.Stop())
}

func TestSerial_Run(t *testing.T) {
	t.Parallel()

	q := queue.NewSerial("test")
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx)() }()

	assert.Eventually(t, func() bool {
		return q.Enqueue("probe", func(context.Context) {}) == nil && q.Flush(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return")
	}
}

func TestTracker_WaitsForChains(t *testing.T) {
	t.Parallel()

	tracker := queue.NewTracker()
	a := startQueue(t, queue.WithTracker(tracker))
	b := startQueue(t, queue.WithTracker(tracker))

	var done atomic.Bool
	require.NoError(t, a.Enqueue("first", func(context.Context) {
		time.Sleep(5 * time.Millisecond)
		_ = b.Enqueue("second", func(context.Context) {
			time.Sleep(5 * time.Millisecond)
			_ = a.Enqueue("third", func(context.Context) { done.Store(true) })
		})
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tracker.Wait(ctx))
	assert.True(t, done.Load())
	assert.Equal(t, 0, tracker.Pending())
}

func TestTracker_WaitHonoursContext(t *testing.T) {
	t.Parallel()

	tracker := queue.NewTracker()
	q := queue.NewSerial("never-started", queue.WithTracker(tracker))
	require.NoError(t, q.Enqueue("stuck", func(context.Context) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tracker.Wait(ctx), context.DeadlineExceeded)
}
