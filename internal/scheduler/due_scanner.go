package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskpulse/internal/types"
)

// TaskStore is the data access the due-date scanner needs.
// Implemented by db.TaskRepository.
type TaskStore interface {
	ListDueSoon(ctx context.Context, from, to time.Time, afterID int64, limit int) ([]types.Task, error)
	MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error)
}

// DueScanner finds incomplete tasks entering their due window and emits one
// task-due-soon event per task.
//
// notified_at is set before the event is published, and only the scanner
// whose conditional update flips it publishes. Concurrent replicas scanning
// the same rows therefore emit each event once between them.
type DueScanner struct {
	tasks     TaskStore
	publisher types.EventPublisher
	threshold time.Duration
	batchSize int
	logger    *slog.Logger
}

// NewDueScanner creates a DueScanner looking threshold ahead of each cycle's
// reference time, reading batchSize rows per page.
func NewDueScanner(tasks TaskStore, publisher types.EventPublisher, threshold time.Duration, batchSize int, logger *slog.Logger) *DueScanner {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DueScanner{
		tasks:     tasks,
		publisher: publisher,
		threshold: threshold,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Name implements Job.
func (s *DueScanner) Name() string { return string(TaskScanDueTasks) }

// Run scans the window [now, now+threshold]. It returns the number of tasks
// it marked notified. A database error aborts the cycle; the next cycle
// picks up whatever this one did not reach.
func (s *DueScanner) Run(ctx context.Context, now time.Time) (int, error) {
	to := now.Add(s.threshold)
	var afterID int64
	notified := 0

	for {
		if err := ctx.Err(); err != nil {
			return notified, err
		}

		page, err := s.tasks.ListDueSoon(ctx, now, to, afterID, s.batchSize)
		if err != nil {
			return notified, fmt.Errorf("list due tasks: %w", err)
		}

		for i := range page {
			task := &page[i]
			won, err := s.tasks.MarkNotified(ctx, task.ID, now)
			if err != nil {
				return notified, fmt.Errorf("mark task %d notified: %w", task.ID, err)
			}
			if !won {
				s.logger.DebugContext(ctx, "task already notified elsewhere", "task_id", task.ID)
				continue
			}
			notified++

			stamped := now
			task.NotifiedAt = &stamped
			if err := s.publisher.Publish(ctx, types.EventTaskDueSoon, task.EntityID(), types.SnapshotTask(task)); err != nil {
				// notified_at stays set: the event is lost rather than sent twice.
				s.logger.ErrorContext(ctx, "due-soon event not published",
					"task_id", task.ID,
					"error", err,
				)
			}
		}

		if len(page) < s.batchSize {
			return notified, nil
		}
		afterID = page[len(page)-1].ID
	}
}
