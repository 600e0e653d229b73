// Package core implements idempotent notification dispatch: the delivery
// ledger, the dispatcher that turns an envelope into one delivery API call,
// the tracker that runs dispatches asynchronously with a drain on shutdown,
// and the direct path the CRUD layer uses after task mutations.
package core

import (
	"context"
	"time"

	"taskpulse/internal/notifications/email"
	"taskpulse/internal/types"
)

// LedgerStore is the persistence the Ledger needs. *db.DeliveryRepository
// satisfies it.
type LedgerStore interface {
	// Get returns (nil, nil) when no record exists for eventID.
	Get(ctx context.Context, eventID string) (*types.DeliveryRecord, error)

	// Claim inserts a pending record with ON CONFLICT DO NOTHING and reports
	// whether this caller created it.
	Claim(ctx context.Context, eventID string, eventType types.EventType, at time.Time) (bool, error)

	// SetOutcome records the terminal outcome of a pending record.
	SetOutcome(ctx context.Context, eventID string, outcome types.DeliveryOutcome, reason string, at time.Time) error
}

// RecipientResolver maps a task owner to a delivery address.
// *db.UserRepository satisfies it.
type RecipientResolver interface {
	GetRecipient(ctx context.Context, ownerID string) (*types.Recipient, error)
}

// Renderer turns an event into a subject and body. *email.Renderer
// satisfies it.
type Renderer interface {
	Render(eventType types.EventType, payload types.TaskPayload, recipient types.Recipient) (*email.Rendered, error)
}

// MetricResult is the value of the Result dimension on delivery metrics.
type MetricResult string

const (
	MetricSuccess   MetricResult = "success"
	MetricFailed    MetricResult = "failed"
	MetricDuplicate MetricResult = "duplicate"
)

// NotificationMetrics records dispatch outcomes.
type NotificationMetrics interface {
	RecordDelivery(ctx context.Context, eventType types.EventType, result MetricResult)
	RecordLatency(ctx context.Context, eventType types.EventType, duration time.Duration)
}
