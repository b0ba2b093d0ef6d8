package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/async"
)

func double(_ context.Context, n int) (int, error) { return n * 2, nil }

func TestAsync_Await(t *testing.T) {
	t.Parallel()

	f := async.Async(context.Background(), 21, double)
	v, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, f.IsComplete())
}

func TestAsync_CanceledContextSkipsFunction(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	f := async.Async(ctx, 1, func(context.Context, int) (int, error) {
		called = true
		return 1, nil
	})
	_, err := f.Await()
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAsync_RecoversPanic(t *testing.T) {
	t.Parallel()

	f := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
		panic("observer exploded")
	})
	_, err := f.Await()
	require.ErrorIs(t, err, async.ErrPanic)

	var pe *async.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "observer exploded", pe.Value)
}

func TestFuture_AwaitContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	f := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.AwaitContext(ctx)
	assert.ErrorIs(t, err, async.ErrTimeout)
	assert.False(t, f.IsComplete())

	close(release)
	v, err := f.AwaitContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestWaitAll_CollectsEveryError(t *testing.T) {
	t.Parallel()

	errA := errors.New("a failed")
	errC := errors.New("c failed")
	fail := func(err error) func(context.Context, int) (int, error) {
		return func(_ context.Context, n int) (int, error) { return n, err }
	}

	ctx := context.Background()
	results, err := async.WaitAll(
		async.Async(ctx, 1, fail(errA)),
		async.Async(ctx, 2, double),
		async.Async(ctx, 3, fail(errC)),
	)
	assert.Equal(t, []int{1, 4, 3}, results)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)

	results, err = async.WaitAll[int]()
	require.NoError(t, err)
	assert.Empty(t, results)
}
