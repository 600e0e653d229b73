package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"taskpulse/internal/types"
)

// DeliveryRepository provides data access for the delivery_records table,
// the idempotency ledger of the notification dispatcher. Records are
// append-only apart from the outcome columns and are pruned by age.
type DeliveryRepository struct {
	db DBTX
}

// NewDeliveryRepository creates a new DeliveryRepository backed by the given
// database connection (pool or transaction).
func NewDeliveryRepository(db DBTX) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Get returns the ledger record for eventID, or (nil, nil) when none exists.
func (r *DeliveryRepository) Get(ctx context.Context, eventID string) (*types.DeliveryRecord, error) {
	var rec types.DeliveryRecord
	var eventType string
	var outcome, reason *string
	err := r.db.QueryRow(ctx,
		`SELECT event_id, event_type, claimed_at, delivered_at, outcome, failure_reason
		 FROM delivery_records
		 WHERE event_id = $1`,
		eventID,
	).Scan(&rec.EventID, &eventType, &rec.ClaimedAt, &rec.DeliveredAt, &outcome, &reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get delivery record", err)
	}
	rec.EventType = types.EventType(eventType)
	if outcome != nil {
		rec.Outcome = types.DeliveryOutcome(*outcome)
	}
	if reason != nil {
		rec.FailureReason = *reason
	}
	return &rec, nil
}

// Claim inserts a pending record for eventID. It reports whether this call
// created the record; false means a record already existed and the caller
// must not deliver.
//
// SQL: INSERT INTO delivery_records (event_id, event_type, claimed_at)
//
//	VALUES ($1, $2, $3) ON CONFLICT (event_id) DO NOTHING
func (r *DeliveryRepository) Claim(ctx context.Context, eventID string, eventType types.EventType, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO delivery_records (event_id, event_type, claimed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID, string(eventType), at,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to claim delivery", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetOutcome records the terminal result of a claimed delivery. Only a
// pending record is updated, so an outcome is written at most once.
func (r *DeliveryRepository) SetOutcome(ctx context.Context, eventID string, outcome types.DeliveryOutcome, reason string, at time.Time) error {
	var reasonArg *string
	if reason != "" {
		reasonArg = &reason
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE delivery_records
		 SET outcome = $2, failure_reason = $3, delivered_at = $4
		 WHERE event_id = $1 AND outcome IS NULL`,
		eventID, string(outcome), reasonArg, at,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record delivery outcome", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictConcurrent, "delivery record missing or already finalized", nil)
	}
	return nil
}

// PruneOlderThan deletes ledger records claimed before cutoff and returns
// the number removed.
func (r *DeliveryRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM delivery_records WHERE claimed_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to prune delivery records", err)
	}
	return tag.RowsAffected(), nil
}
