// Package task runs detached background work: cache top-ups and queue
// refills that the caller never waits on.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of fire-and-forget work.
type Task struct {
	// Name labels the task in logs.
	Name string

	// Key deduplicates submissions: while a task with the same non-empty
	// key is queued or running, further submissions are dropped.
	Key string

	Run func(ctx context.Context) error
}

var (
	// ErrQueueFull is returned when the buffer has no room.
	ErrQueueFull = errors.New("task queue is full, try again later")

	// ErrDuplicate is returned when a task with the same key is in flight.
	ErrDuplicate = errors.New("task already in flight")

	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("task runner stopped")
)

// RunnerConfig holds configuration for the task runner.
type RunnerConfig struct {
	// WorkerCount determines how many tasks run concurrently. If zero or
	// negative, defaults to 1.
	WorkerCount int

	// QueueSize is the buffer size of the pending task channel.
	QueueSize int

	// Timeout bounds a single task run. Zero means no limit.
	Timeout time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		QueueSize:   32,
		Timeout:     2 * time.Minute,
	}
}

// Runner executes submitted tasks on a fixed set of worker goroutines.
type Runner struct {
	tasks  chan Task
	config RunnerConfig
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	stopped  bool
	inflight map[string]bool

	errHandler func(t Task, err error)
}

// NewRunner creates and starts a Runner.
func NewRunner(config RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		tasks:    make(chan Task, config.QueueSize),
		config:   config,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]bool),
	}
	r.errHandler = func(t Task, err error) {
		logger.Error("task execution failed", "task", t.Name, "key", t.Key, "error", err)
	}

	for i := 0; i < config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return r
}

// SetErrorHandler replaces the default logging error handler.
func (r *Runner) SetErrorHandler(handler func(t Task, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errHandler = handler
}

// Submit enqueues t without blocking.
func (r *Runner) Submit(t Task) error {
	if t.Run == nil {
		return fmt.Errorf("task %q has no Run function", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrStopped
	}
	if t.Key != "" && r.inflight[t.Key] {
		return ErrDuplicate
	}

	select {
	case r.tasks <- t:
		if t.Key != "" {
			r.inflight[t.Key] = true
		}
		return nil
	default:
		return ErrQueueFull
	}
}

// Go submits t and logs instead of returning a rejection.
func (r *Runner) Go(t Task) {
	if err := r.Submit(t); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrDuplicate) {
			level = slog.LevelDebug
		}
		r.logger.Log(context.Background(), level, "task not submitted", "task", t.Name, "key", t.Key, "error", err)
	}
}

// Pending reports whether a task with key is queued or running.
func (r *Runner) Pending(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight[key]
}

// Stop refuses new tasks, lets queued tasks finish, and waits for the
// workers to exit. Running tasks see their context cancelled only when
// ctx expires first.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.tasks)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()
	r.logger.Debug("starting worker", "worker_id", id)

	for t := range r.tasks {
		r.process(t, id)
	}
	r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
}

func (r *Runner) process(t Task, workerID int) {
	defer func() {
		if t.Key != "" {
			r.mu.Lock()
			delete(r.inflight, t.Key)
			r.mu.Unlock()
		}
	}()

	ctx := r.ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := r.safeRun(ctx, t)
	logger := r.logger.With("task", t.Name, "worker_id", workerID, "duration", time.Since(start))
	if err != nil {
		r.mu.Lock()
		handler := r.errHandler
		r.mu.Unlock()
		handler(t, err)
		return
	}
	logger.Debug("task completed")
}

func (r *Runner) safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %q panicked: %v", t.Name, p)
		}
	}()
	return t.Run(ctx)
}
