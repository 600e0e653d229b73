// Package main is the long-running taskpulse service.
//
// One process runs, under a single lifecycle:
//   - the due-date scanner and recurring-task processor on their intervals,
//     plus daily delivery ledger pruning;
//   - the SQS poller that routes bus events to the notification dispatcher
//     (when POLLER_ENABLED);
//   - the HTTP server for push delivery (POST /events/{topic}) and /healthz.
//
// On SIGINT/SIGTERM the runners finish their current cycle, the poller and
// HTTP server stop, and in-flight dispatches get DRAIN_GRACE to complete.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"taskpulse/internal/app"
	"taskpulse/internal/config"
	"taskpulse/internal/notifications/router"
	"taskpulse/internal/scheduler"
	"taskpulse/internal/types"
)

// pruneInterval is how often the delivery ledger is pruned in-process.
const pruneInterval = 24 * time.Hour

// shutdownTimeout bounds the HTTP server's graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.NewEnvVarProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("taskpulse scheduler starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"due_check_interval", cfg.Scheduler.DueCheckInterval(),
		"recurring_check_interval", cfg.Scheduler.RecurringCheckInterval(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if abandoned := a.Close(); abandoned > 0 {
			logger.Warn("dispatches abandoned at shutdown; their claims stay pending", "count", abandoned)
		}
		logger.Info("taskpulse scheduler stopped")
	}()

	typed := types.NewSlogLogger(logger)
	g, gctx := errgroup.WithContext(ctx)

	for _, r := range newRunners(cfg.Scheduler, a.Jobs(), a.Metrics, logger) {
		g.Go(func() error { return r.Run(gctx) })
	}

	if cfg.Server.PollerEnabled && cfg.AWS.EventsQueue != "" {
		poller := router.NewSQSPoller(a.SQS, router.SQSPollerConfig{QueueURL: cfg.AWS.EventsQueue},
			a.Router, a.Tracker, typed.With("component", "sqs_poller"))
		g.Go(func() error { return poller.Run(gctx) })
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.NewHTTPHandler(a.Router, typed.With("component", "http"), a.HealthProbes()...),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newRunners builds one IntervalRunner per scheduled job.
func newRunners(s config.SchedulerConfig, jobs map[scheduler.TaskType]scheduler.Job, metrics scheduler.CycleMetrics, logger *slog.Logger) []*scheduler.IntervalRunner {
	intervals := map[scheduler.TaskType]time.Duration{
		scheduler.TaskScanDueTasks:     s.DueCheckInterval(),
		scheduler.TaskProcessRecurring: s.RecurringCheckInterval(),
		scheduler.TaskPruneLedger:      pruneInterval,
	}

	var runners []*scheduler.IntervalRunner
	for _, task := range []scheduler.TaskType{
		scheduler.TaskScanDueTasks,
		scheduler.TaskProcessRecurring,
		scheduler.TaskPruneLedger,
	} {
		job, ok := jobs[task]
		if !ok {
			continue
		}
		runners = append(runners, scheduler.NewIntervalRunner(job, intervals[task], nil, metrics, logger))
	}
	return runners
}

// newLogger creates a JSON slog.Logger for the given level name.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
