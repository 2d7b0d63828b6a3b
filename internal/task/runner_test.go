package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_ExecutesTasks(t *testing.T) {
	r := NewRunner(RunnerConfig{WorkerCount: 2, QueueSize: 10}, testLogger())

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Submit(Task{Name: "count", Run: func(context.Context) error {
			count.Add(1)
			return nil
		}}))
	}
	require.NoError(t, r.Stop(context.Background()))
	assert.EqualValues(t, 5, count.Load(), "Stop drains queued tasks")
}

func TestRunner_ErrorHandler(t *testing.T) {
	r := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 4}, testLogger())

	var (
		mu     sync.Mutex
		failed []string
	)
	r.SetErrorHandler(func(tk Task, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, tk.Name+": "+err.Error())
	})

	require.NoError(t, r.Submit(Task{Name: "boom", Run: func(context.Context) error { return errors.New("failed") }}))
	require.NoError(t, r.Submit(Task{Name: "panic", Run: func(context.Context) error { panic("oops") }}))
	require.NoError(t, r.Submit(Task{Name: "ok", Run: func(context.Context) error { return nil }}))
	require.NoError(t, r.Stop(context.Background()))

	require.Len(t, failed, 2)
	assert.Equal(t, "boom: failed", failed[0])
	assert.Contains(t, failed[1], `task "panic" panicked: oops`)
}

func TestRunner_DedupByKey(t *testing.T) {
	r := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 4}, testLogger())

	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32
	job := Task{Name: "gen", Key: "gen:N5", Run: func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	}}

	require.NoError(t, r.Submit(job))
	<-started
	assert.True(t, r.Pending("gen:N5"))
	assert.ErrorIs(t, r.Submit(job), ErrDuplicate)

	close(release)
	require.NoError(t, r.Stop(context.Background()))
	assert.False(t, r.Pending("gen:N5"))
	assert.EqualValues(t, 1, runs.Load())
}

func TestRunner_QueueFull(t *testing.T) {
	r := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 1}, testLogger())

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, r.Submit(Task{Name: "blocker", Run: func(context.Context) error {
		close(started)
		<-block
		return nil
	}}))
	<-started

	noop := func(context.Context) error { return nil }
	require.NoError(t, r.Submit(Task{Name: "buffered", Run: noop}))
	assert.ErrorIs(t, r.Submit(Task{Name: "overflow", Run: noop}), ErrQueueFull)

	close(block)
	require.NoError(t, r.Stop(context.Background()))
	assert.ErrorIs(t, r.Submit(Task{Name: "late", Run: noop}), ErrStopped)
	assert.NoError(t, r.Stop(context.Background()), "second Stop is a no-op")
}

func TestRunner_StopDeadlineCancelsRunningTask(t *testing.T) {
	r := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 1}, testLogger())

	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, r.Submit(Task{Name: "slow", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Stop(ctx), context.DeadlineExceeded)
	assert.True(t, cancelled.Load())
}

func TestRunner_Timeout(t *testing.T) {
	r := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 1, Timeout: 10 * time.Millisecond}, testLogger())

	errs := make(chan error, 1)
	r.SetErrorHandler(func(_ Task, err error) { errs <- err })
	require.NoError(t, r.Submit(Task{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task did not time out")
	}
	require.NoError(t, r.Stop(context.Background()))
}

func TestRunner_Validation(t *testing.T) {
	r := NewRunner(RunnerConfig{WorkerCount: 0}, testLogger())
	defer r.Stop(context.Background())

	assert.Error(t, r.Submit(Task{Name: "no-run"}))
	assert.Equal(t, 1, r.config.WorkerCount)
}
