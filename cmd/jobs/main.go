// Package main is the entrypoint for the jobs Lambda function.
//
// EventBridge cron rules invoke it with a JobPayload naming one scheduled
// job. It runs a single cycle of that job and records the run in
// job_history. This is the external alternative to the in-process interval
// runners of cmd/scheduler; both drive the same scheduler.Job values.
//
// With APP_ENV=local the payload is read from stdin:
//
//	echo '{"task":"scan_due_tasks"}' | go run ./cmd/jobs
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"taskpulse/internal/app"
	"taskpulse/internal/config"
	"taskpulse/internal/db"
	"taskpulse/internal/scheduler"
	"taskpulse/internal/types"
)

// JobHistorian records job runs. Implemented by db.JobHistoryRepository.
type JobHistorian interface {
	Start(ctx context.Context, jobType string) (int64, error)
	Finish(ctx context.Context, id int64, status string, items int, err error) error
}

// Handler holds the dependencies for the jobs Lambda handler.
type Handler struct {
	Jobs     map[scheduler.TaskType]scheduler.Job
	History  JobHistorian
	WorkerID string
	Logger   *slog.Logger
}

// Handle runs the job named by payload once.
//
//  1. Resolve the reference time (payload override or now).
//  2. Record the start in job_history.
//  3. Run the job.
//  4. Record the outcome.
func (h *Handler) Handle(ctx context.Context, payload scheduler.JobPayload) (string, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := time.Now().UTC()
	if payload.ReferenceTime != nil {
		now = payload.ReferenceTime.UTC()
	}

	taskStr := string(payload.Task)
	logger.InfoContext(ctx, "jobs handler invoked",
		"task", taskStr,
		"reference_time", now.Format(time.RFC3339),
		"worker_id", h.WorkerID,
	)

	if payload.Task == "" {
		return "", fmt.Errorf("empty task type in job payload")
	}
	job, ok := h.Jobs[payload.Task]
	if !ok {
		return "", fmt.Errorf("unknown task type: %q", payload.Task)
	}

	var jobID int64
	if h.History != nil {
		id, err := h.History.Start(ctx, taskStr)
		if err != nil {
			// Non-fatal: run the job without history.
			logger.ErrorContext(ctx, "failed to start job history", "task", taskStr, "error", err)
		} else {
			jobID = id
		}
	}

	runCtx := types.WithJobName(types.WithTraceID(ctx, uuid.NewString()), taskStr)
	items, execErr := job.Run(runCtx, now)

	status := db.JobStatusSuccess
	if execErr != nil {
		status = db.JobStatusFailed
	}
	if jobID != 0 {
		if err := h.History.Finish(ctx, jobID, status, items, execErr); err != nil {
			logger.ErrorContext(ctx, "failed to finish job history",
				"job_id", jobID,
				"task", taskStr,
				"error", err,
			)
		}
	}

	if execErr != nil {
		logger.ErrorContext(ctx, "task execution failed",
			"task", taskStr,
			"error", execErr,
			"items_before_error", items,
		)
		return "", fmt.Errorf("task %s failed: %w", taskStr, execErr)
	}

	result := fmt.Sprintf("task %s complete: %d items processed", taskStr, items)
	logger.InfoContext(ctx, result, "task", taskStr, "items", items)
	return result, nil
}

func main() {
	cfg, err := config.LoadConfig(config.NewEnvVarProvider())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("jobs Lambda initializing (cold start)", "version", cfg.Build.Version)

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	handler := &Handler{
		Jobs:     a.Jobs(),
		History:  db.NewJobHistoryRepository(a.Pool),
		WorkerID: uuid.NewString(),
		Logger:   logger,
	}
	logger.Info("jobs Lambda initialized", "worker_id", handler.WorkerID)

	if cfg.IsLocal() {
		os.Exit(runLocal(handler, os.Stdin, logger, a))
	}

	lambda.Start(handler.Handle)
}

// runLocal runs one payload read from r and returns the exit code.
func runLocal(h *Handler, r io.Reader, logger *slog.Logger, a *app.App) int {
	defer a.Close()

	logger.Info("APP_ENV=local: reading job payload from stdin")
	raw, err := io.ReadAll(r)
	if err != nil {
		logger.Error("failed to read stdin", "error", err)
		return 1
	}
	var payload scheduler.JobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Error("failed to parse stdin as job payload", "error", err)
		return 1
	}
	if _, err := h.Handle(context.Background(), payload); err != nil {
		return 1
	}
	return 0
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
