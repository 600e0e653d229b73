package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Envelope is the canonical event published to and consumed from the event
// bus. It is immutable once published. JSON tags use snake_case to match
// the wire contract shared with other consumers of the bus.
type Envelope struct {
	EventID    string      `json:"event_id" validate:"required"`
	EventType  EventType   `json:"event_type" validate:"required"`
	OccurredAt time.Time   `json:"occurred_at" validate:"required"`
	Payload    TaskPayload `json:"payload"`
}

// TaskPayload is the entity snapshot carried by every envelope.
type TaskPayload struct {
	TaskID      int64             `json:"task_id"`
	OwnerID     string            `json:"owner_id" validate:"required"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	Completed   bool              `json:"completed"`
	TemplateID  *int64            `json:"template_id,omitempty"`
	Pattern     RecurrencePattern `json:"pattern,omitempty"`
}

// SnapshotTask builds the envelope payload for a task.
func SnapshotTask(t *Task) TaskPayload {
	return TaskPayload{
		TaskID:      t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		TemplateID:  t.TemplateID,
	}
}

// BuildEventID derives the deterministic event identifier from the event
// type, the subject entity, and the time bucket containing occurredAt.
// Publishing the same logical event twice within one bucket yields the same
// identifier, which is what lets the idempotency ledger collapse retries.
//
// A non-positive bucket disables bucketing (the exact second is used).
func BuildEventID(eventType EventType, entityID string, occurredAt time.Time, bucket time.Duration) string {
	ts := occurredAt.UTC()
	if bucket > 0 {
		ts = ts.Truncate(bucket)
	} else {
		ts = ts.Truncate(time.Second)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", eventType, entityID, strconv.FormatInt(ts.Unix(), 10))
	return hex.EncodeToString(h.Sum(nil))
}
