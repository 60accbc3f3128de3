package concurrent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shape/pkg/logger"
)

func TestWorkerPool_ProcessesSubmittedJobs(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	pool := NewWorkerPool[int]("test", 3, 10, time.Second, func(_ context.Context, job int) error {
		mu.Lock()
		seen = append(seen, job)
		mu.Unlock()
		return nil
	}, logger.NewNop())
	pool.Start()

	for i := 0; i < 5; i++ {
		require.True(t, pool.Submit(i))
	}

	require.NoError(t, pool.Stop(context.Background()))

	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, seen)
	stats := pool.GetStats()
	assert.EqualValues(t, 5, stats.Submitted)
	assert.EqualValues(t, 5, stats.Completed)
	assert.Zero(t, stats.Failed)
}

func TestWorkerPool_RejectsWhenNotRunning(t *testing.T) {
	pool := NewWorkerPool[int]("test", 1, 1, 0, func(context.Context, int) error { return nil }, logger.NewNop())

	assert.False(t, pool.Submit(1), "not started")

	pool.Start()
	require.NoError(t, pool.Stop(context.Background()))

	assert.False(t, pool.Submit(2), "stopped")
	assert.EqualValues(t, 2, pool.GetStats().Rejected)
}

func TestWorkerPool_RejectsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	pool := NewWorkerPool[int]("test", 1, 1, 0, func(ctx context.Context, _ int) error {
		started <- struct{}{}
		<-release
		return nil
	}, logger.NewNop())
	pool.Start()

	require.True(t, pool.Submit(1))
	<-started // worker is busy with job 1
	require.True(t, pool.Submit(2))
	assert.False(t, pool.Submit(3))

	close(release)
	require.NoError(t, pool.Stop(context.Background()))

	stats := pool.GetStats()
	assert.EqualValues(t, 2, stats.Completed)
	assert.EqualValues(t, 1, stats.Rejected)
}

func TestWorkerPool_CountsFailuresAndPanics(t *testing.T) {
	pool := NewWorkerPool[string]("test", 1, 4, 0, func(_ context.Context, job string) error {
		switch job {
		case "fail":
			return errors.New("boom")
		case "panic":
			panic("kaboom")
		}
		return nil
	}, logger.NewNop())
	pool.Start()

	pool.Submit("fail")
	pool.Submit("panic")
	pool.Submit("ok")
	require.NoError(t, pool.Stop(context.Background()))

	stats := pool.GetStats()
	assert.EqualValues(t, 2, stats.Failed)
	assert.EqualValues(t, 1, stats.Completed)
}

func TestWorkerPool_JobContextHasTimeout(t *testing.T) {
	deadlines := make(chan bool, 1)
	pool := NewWorkerPool[int]("test", 1, 1, 50*time.Millisecond, func(ctx context.Context, _ int) error {
		_, ok := ctx.Deadline()
		deadlines <- ok
		return nil
	}, logger.NewNop())
	pool.Start()

	pool.Submit(1)
	require.NoError(t, pool.Stop(context.Background()))
	assert.True(t, <-deadlines)
}

func TestWorkerPool_StopHonoursContext(t *testing.T) {
	pool := NewWorkerPool[int]("test", 1, 1, 0, func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	}, logger.NewNop())
	pool.Start()
	pool.Submit(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, pool.GetStats().Failed)
}
