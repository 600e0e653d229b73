package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"taskpulse/internal/types"
)

// errTemplateMoved aborts the materialization transaction when the guarded
// template update matched no row.
var errTemplateMoved = errors.New("template next_due_at changed or template inactive")

// TemplateRepository provides data access for recurring_task_templates.
// next_due_at is only ever written through Materialize.
type TemplateRepository struct {
	db TxDB
}

// NewTemplateRepository creates a new TemplateRepository. db must be able to
// open transactions (normally the pool).
func NewTemplateRepository(db TxDB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// ListDue returns active templates whose next occurrence has arrived,
// ordered by id, using keyset paging on afterID.
//
// SQL: SELECT ... FROM recurring_task_templates
//
//	WHERE status = 'active' AND next_due_at <= $1 AND id > $2
//	ORDER BY id LIMIT $3
func (r *TemplateRepository) ListDue(ctx context.Context, now time.Time, afterID int64, limit int) ([]types.RecurringTaskTemplate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, title, description, pattern, next_due_at,
		        status, anchor_day, created_at, updated_at
		 FROM recurring_task_templates
		 WHERE status = 'active'
		   AND next_due_at <= $1
		   AND id > $2
		 ORDER BY id
		 LIMIT $3`,
		now, afterID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list due templates", err)
	}
	defer rows.Close()

	var templates []types.RecurringTaskTemplate
	for rows.Next() {
		var t types.RecurringTaskTemplate
		var pattern, status string
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &t.Title, &t.Description, &pattern, &t.NextDueAt,
			&status, &t.AnchorDay, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan template", err)
		}
		t.Pattern = types.RecurrencePattern(pattern)
		t.Status = types.TemplateStatus(status)
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating due templates", err)
	}
	return templates, nil
}

// Materialize creates the task for tmpl's current occurrence and advances
// the template to nextDueAt, in one transaction.
//
// The template update is guarded on the observed next_due_at and on the
// template still being active, so of several replicas racing on the same
// occurrence exactly one commits. The losers get an AppError with
// ErrCodeConflictConcurrent and nothing is written.
//
// SQL (in one transaction):
//
//	UPDATE recurring_task_templates SET next_due_at = $1, updated_at = NOW()
//	  WHERE id = $2 AND next_due_at = $3 AND status = 'active'
//	INSERT INTO tasks (owner_id, title, description, due_date, completed, template_id)
//	  VALUES ($1, $2, $3, $4, false, $5) RETURNING id, created_at, updated_at
func (r *TemplateRepository) Materialize(ctx context.Context, tmpl *types.RecurringTaskTemplate, nextDueAt time.Time) (*types.Task, error) {
	task := tmpl.Instantiate()

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE recurring_task_templates
			 SET next_due_at = $1, updated_at = NOW()
			 WHERE id = $2 AND next_due_at = $3 AND status = 'active'`,
			nextDueAt, tmpl.ID, tmpl.NextDueAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errTemplateMoved
		}

		return tx.QueryRow(ctx,
			`INSERT INTO tasks (owner_id, title, description, due_date, completed, template_id)
			 VALUES ($1, $2, $3, $4, false, $5)
			 RETURNING id, created_at, updated_at`,
			task.OwnerID, task.Title, task.Description, task.DueDate, task.TemplateID,
		).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, errTemplateMoved) {
			return nil, types.NewAppError(types.ErrCodeConflictConcurrent, "template already advanced", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to materialize recurring task", err)
	}
	return task, nil
}
