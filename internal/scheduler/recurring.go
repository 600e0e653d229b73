package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskpulse/internal/recurrence"
	"taskpulse/internal/types"
)

// TemplateStore is the data access the recurring-task processor needs.
// Implemented by db.TemplateRepository.
type TemplateStore interface {
	ListDue(ctx context.Context, now time.Time, afterID int64, limit int) ([]types.RecurringTaskTemplate, error)
	Materialize(ctx context.Context, tmpl *types.RecurringTaskTemplate, nextDueAt time.Time) (*types.Task, error)
}

// RecurringProcessor materializes the current occurrence of every active
// template whose next_due_at has arrived and advances the template.
//
// Each template is handled at most once per cycle. A template that is
// several occurrences behind catches up one occurrence per cycle.
type RecurringProcessor struct {
	templates TemplateStore
	publisher types.EventPublisher
	batchSize int
	logger    *slog.Logger
}

// NewRecurringProcessor creates a RecurringProcessor.
func NewRecurringProcessor(templates TemplateStore, publisher types.EventPublisher, batchSize int, logger *slog.Logger) *RecurringProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &RecurringProcessor{
		templates: templates,
		publisher: publisher,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Name implements Job.
func (p *RecurringProcessor) Name() string { return string(TaskProcessRecurring) }

// Run processes all due templates as of now and returns how many tasks were
// materialized. Only a failure to list templates aborts the cycle; a bad
// pattern or a failed transaction skips that template alone.
func (p *RecurringProcessor) Run(ctx context.Context, now time.Time) (int, error) {
	var afterID int64
	created := 0

	for {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		page, err := p.templates.ListDue(ctx, now, afterID, p.batchSize)
		if err != nil {
			return created, fmt.Errorf("list due templates: %w", err)
		}

		for i := range page {
			if p.process(ctx, &page[i]) {
				created++
			}
		}

		if len(page) < p.batchSize {
			return created, nil
		}
		afterID = page[len(page)-1].ID
	}
}

// process materializes one template and publishes its event. It reports
// whether a task was created.
func (p *RecurringProcessor) process(ctx context.Context, tmpl *types.RecurringTaskTemplate) bool {
	log := p.logger.With("template_id", tmpl.ID, "pattern", tmpl.Pattern)

	pattern, err := recurrence.ParsePattern(string(tmpl.Pattern))
	if err != nil {
		log.ErrorContext(ctx, "skipping template with invalid recurrence pattern", "error", err)
		return false
	}

	anchor := 0
	if tmpl.AnchorDay != nil {
		anchor = *tmpl.AnchorDay
	}
	next, err := recurrence.NextOccurrenceAnchored(pattern, tmpl.NextDueAt, anchor)
	if err != nil {
		log.ErrorContext(ctx, "skipping template with invalid recurrence pattern", "error", err)
		return false
	}

	task, err := p.templates.Materialize(ctx, tmpl, next)
	if err != nil {
		if types.HasCode(err, types.ErrCodeConflictConcurrent) {
			log.InfoContext(ctx, "template already materialized by another worker")
			return false
		}
		log.ErrorContext(ctx, "failed to materialize recurring task", "error", err)
		return false
	}

	payload := types.SnapshotTask(task)
	payload.Pattern = pattern
	if err := p.publisher.Publish(ctx, types.EventRecurringTaskDue, task.EntityID(), payload); err != nil {
		log.ErrorContext(ctx, "recurring-task-due event not published",
			"task_id", task.ID,
			"error", err,
		)
	}

	log.InfoContext(ctx, "recurring task materialized",
		"task_id", task.ID,
		"due_date", tmpl.NextDueAt,
		"next_due_at", next,
	)
	return true
}
