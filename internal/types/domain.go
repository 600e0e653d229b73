package types

import (
	"strconv"
	"time"
)

// Task is a unit of work owned by a user. Tasks are created and updated by
// the external CRUD layer; this subsystem only reads them and sets NotifiedAt.
type Task struct {
	ID          int64      `json:"id" db:"id"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	Completed   bool       `json:"completed" db:"completed"`
	NotifiedAt  *time.Time `json:"notified_at,omitempty" db:"notified_at"`
	TemplateID  *int64     `json:"template_id,omitempty" db:"template_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// EntityID returns the task ID in the string form used for event identity.
func (t *Task) EntityID() string {
	return strconv.FormatInt(t.ID, 10)
}

// RecurringTaskTemplate describes a series of tasks. NextDueAt is mutated
// exclusively by the recurring-task processor and strictly increases after
// each materialization.
type RecurringTaskTemplate struct {
	ID          int64             `json:"id" db:"id"`
	OwnerID     string            `json:"owner_id" db:"owner_id"`
	Title       string            `json:"title" db:"title"`
	Description string            `json:"description,omitempty" db:"description"`
	Pattern     RecurrencePattern `json:"pattern" db:"pattern"`
	NextDueAt   time.Time         `json:"next_due_at" db:"next_due_at"`
	Status      TemplateStatus    `json:"status" db:"status"`
	// AnchorDay is the day of month the series was started on. Monthly and
	// yearly series use it to return to the original day after a month-end
	// clamp. Nil means "use the day of NextDueAt".
	AnchorDay *int      `json:"anchor_day,omitempty" db:"anchor_day"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Active reports whether the template participates in scanning.
func (t *RecurringTaskTemplate) Active() bool {
	return t.Status == TemplateActive
}

// Instantiate returns the Task materialized for the template's current
// occurrence. The due date is the template's NextDueAt before advancing.
func (t *RecurringTaskTemplate) Instantiate() *Task {
	due := t.NextDueAt
	id := t.ID
	return &Task{
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     &due,
		TemplateID:  &id,
	}
}

// DeliveryRecord is one entry of the idempotency ledger. It is inserted as a
// claim before any external delivery call and only updated to record the
// outcome.
type DeliveryRecord struct {
	EventID       string          `db:"event_id"`
	EventType     EventType       `db:"event_type"`
	ClaimedAt     time.Time       `db:"claimed_at"`
	DeliveredAt   *time.Time      `db:"delivered_at"`
	Outcome       DeliveryOutcome `db:"outcome"`
	FailureReason string          `db:"failure_reason"`
}

// Recipient is the resolved delivery address for a task owner.
type Recipient struct {
	OwnerID string
	Email   string
	Name    string
}
