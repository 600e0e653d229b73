package db

import (
	"context"
	"time"

	"taskpulse/internal/types"
)

// TaskRepository reads tasks and performs the single mutation this
// subsystem owns on them: stamping notified_at.
type TaskRepository struct {
	db DBTX
}

// NewTaskRepository creates a new TaskRepository backed by the given
// database connection (pool or transaction).
func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, owner_id, title, description, due_date, completed,
		        notified_at, template_id, created_at, updated_at`

// ListDueSoon returns incomplete, un-notified tasks whose due date falls in
// [from, to], ordered by id. Paging is keyset-based: pass the last returned
// id as afterID to fetch the next page.
//
// SQL: SELECT ... FROM tasks
//
//	WHERE due_date BETWEEN $1 AND $2 AND notified_at IS NULL
//	  AND completed = false AND id > $3
//	ORDER BY id LIMIT $4
func (r *TaskRepository) ListDueSoon(ctx context.Context, from, to time.Time, afterID int64, limit int) ([]types.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE due_date >= $1 AND due_date <= $2
		   AND notified_at IS NULL
		   AND completed = false
		   AND id > $3
		 ORDER BY id
		 LIMIT $4`,
		from, to, afterID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list due tasks", err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		var t types.Task
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.DueDate, &t.Completed,
			&t.NotifiedAt, &t.TemplateID, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating due tasks", err)
	}
	return tasks, nil
}

// MarkNotified stamps notified_at on a task that is still un-notified and
// incomplete. It reports whether this call made the transition; false means
// another scanner got there first (or the task was completed meanwhile).
//
// SQL: UPDATE tasks SET notified_at = $2, updated_at = $2
//
//	WHERE id = $1 AND notified_at IS NULL AND completed = false
func (r *TaskRepository) MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks
		 SET notified_at = $2, updated_at = $2
		 WHERE id = $1 AND notified_at IS NULL AND completed = false`,
		id, at,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to mark task notified", err)
	}
	return tag.RowsAffected() == 1, nil
}
