package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"taskpulse/internal/types"
)

var (
	// ErrTrackerClosed is returned once Drain has started.
	ErrTrackerClosed = errors.New("tracker: draining, no new tasks accepted")
	// ErrTrackerFull is returned by TryGo when the tracker is at capacity.
	ErrTrackerFull = errors.New("tracker: at capacity")
)

// Tracker runs fire-and-forget tasks with bounded concurrency. Each task
// gets its own timeout and is detached from the caller's cancellation, so
// the code path that started it never waits on it. Drain waits for
// in-flight tasks during shutdown.
type Tracker struct {
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   types.Logger
	abort    context.Context
	abortFn  context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	inFlight atomic.Int64
}

// NewTracker creates a Tracker running at most maxInFlight tasks at once,
// each bounded by timeout.
func NewTracker(maxInFlight int64, timeout time.Duration, logger types.Logger) *Tracker {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	abort, abortFn := context.WithCancel(context.Background())
	return &Tracker{
		sem:     semaphore.NewWeighted(maxInFlight),
		timeout: timeout,
		logger:  logger,
		abort:   abort,
		abortFn: abortFn,
	}
}

// Go starts fn asynchronously. It blocks only while the tracker is at
// capacity, and returns an error if ctx ends first or the tracker is
// draining. Errors returned by fn are logged under name.
func (t *Tracker) Go(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("tracker: acquire slot for %s: %w", name, err)
	}
	return t.start(ctx, name, fn)
}

// TryGo is Go without waiting: it returns ErrTrackerFull when every slot
// is taken.
func (t *Tracker) TryGo(ctx context.Context, name string, fn func(context.Context) error) error {
	if !t.sem.TryAcquire(1) {
		return ErrTrackerFull
	}
	return t.start(ctx, name, fn)
}

// start runs fn in a goroutine. The caller holds one semaphore slot.
func (t *Tracker) start(ctx context.Context, name string, fn func(context.Context) error) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.sem.Release(1)
		return ErrTrackerClosed
	}
	t.wg.Add(1)
	t.mu.Unlock()

	t.inFlight.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.sem.Release(1)
		defer t.inFlight.Add(-1)

		taskCtx, cancel := t.taskContext(ctx)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("tracked task panicked", "task", name, "panic", fmt.Sprint(r))
			}
		}()

		if err := fn(taskCtx); err != nil {
			t.logger.Error("tracked task failed", "task", name, "error", err)
		}
	}()
	return nil
}

// taskContext keeps the values of parent (trace IDs) but not its
// cancellation. The task ends on its own timeout or when Drain aborts.
func (t *Tracker) taskContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	var cancel context.CancelFunc
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	stop := context.AfterFunc(t.abort, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// InFlight returns the number of running tasks.
func (t *Tracker) InFlight() int64 {
	return t.inFlight.Load()
}

// Drain stops accepting tasks and waits up to grace for running ones.
// Tasks still running after grace are cancelled and counted as abandoned.
func (t *Tracker) Drain(grace time.Duration) (abandoned int64) {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		t.abortFn()
		return 0
	case <-timer.C:
	}

	abandoned = t.inFlight.Load()
	t.logger.Warn("drain grace elapsed; abandoning in-flight tasks",
		"abandoned", abandoned,
		"grace", grace.String(),
	)
	t.abortFn()
	return abandoned
}
