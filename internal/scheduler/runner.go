package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"taskpulse/internal/types"
)

// IntervalRunner drives a Job on a fixed interval inside the process.
//
// At most one cycle of the job runs at a time. A tick that fires while the
// previous cycle is still running is skipped and logged. Each cycle gets a
// context bounded by the interval and detached from the runner's context, so
// a shutdown lets the current cycle finish instead of cutting it off mid-row.
type IntervalRunner struct {
	job      Job
	interval time.Duration
	clock    types.Clock
	metrics  CycleMetrics
	logger   *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewIntervalRunner creates a runner for job. A nil clock uses the system
// clock, a nil logger uses slog.Default(), and metrics may be nil.
func NewIntervalRunner(job Job, interval time.Duration, clock types.Clock, metrics CycleMetrics, logger *slog.Logger) *IntervalRunner {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IntervalRunner{
		job:      job,
		interval: interval,
		clock:    clock,
		metrics:  metrics,
		logger:   logger.With("job", job.Name()),
	}
}

// Run executes one cycle immediately and then one per interval until ctx is
// cancelled. It waits for the in-flight cycle before returning and always
// returns nil; cycle errors are logged, never fatal.
func (r *IntervalRunner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "interval runner started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			r.logger.Info("interval runner stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick starts a cycle in the background unless one is already running. It
// reports whether a cycle was started.
func (r *IntervalRunner) tick(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.WarnContext(ctx, "previous cycle still running, skipping tick")
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)
		r.RunOnce(ctx)
	}()
	return true
}

// RunOnce runs a single cycle synchronously and returns its result.
func (r *IntervalRunner) RunOnce(ctx context.Context) (int, error) {
	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.interval)
	defer cancel()
	cycleCtx = types.WithJobName(types.WithTraceID(cycleCtx, uuid.NewString()), r.job.Name())

	start := time.Now()
	items, err := r.job.Run(cycleCtx, r.clock.Now())
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.RecordCycle(cycleCtx, r.job.Name(), items, elapsed, err)
	}

	log := r.logger.With("trace_id", types.GetTraceID(cycleCtx), "items", items, "duration_ms", elapsed.Milliseconds())
	switch {
	case err != nil:
		log.ErrorContext(cycleCtx, "cycle failed", "error", err)
	default:
		log.InfoContext(cycleCtx, "cycle completed")
	}
	if elapsed > r.interval {
		log.WarnContext(cycleCtx, "cycle exceeded interval", "interval", r.interval)
	}
	return items, err
}
