package core

import (
	"context"
	"fmt"

	"taskpulse/internal/types"
)

// Ledger is the idempotency ledger. A record is claimed before any
// delivery call, so a redelivered event finds the claim and is skipped.
type Ledger struct {
	store  LedgerStore
	clock  types.Clock
	logger types.Logger
}

// NewLedger creates a Ledger over store.
func NewLedger(store LedgerStore, clock types.Clock, logger types.Logger) *Ledger {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Ledger{store: store, clock: clock, logger: logger}
}

// Seen reports whether any record, pending or terminal, exists for eventID.
func (l *Ledger) Seen(ctx context.Context, eventID string) (bool, error) {
	rec, err := l.store.Get(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("ledger seen: %w", err)
	}
	return rec != nil, nil
}

// Claim writes the pending record for env. It returns false when another
// dispatch claimed the event first.
func (l *Ledger) Claim(ctx context.Context, env types.Envelope) (bool, error) {
	created, err := l.store.Claim(ctx, env.EventID, env.EventType, l.clock.Now())
	if err != nil {
		return false, fmt.Errorf("ledger claim: %w", err)
	}
	if created {
		l.logger.Info("delivery claimed",
			"event_id", env.EventID,
			"event_type", string(env.EventType),
		)
	}
	return created, nil
}

// MarkSent records a successful delivery.
func (l *Ledger) MarkSent(ctx context.Context, eventID string) error {
	if err := l.store.SetOutcome(ctx, eventID, types.OutcomeSent, "", l.clock.Now()); err != nil {
		return fmt.Errorf("ledger mark sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery with its reason.
func (l *Ledger) MarkFailed(ctx context.Context, eventID, reason string) error {
	if err := l.store.SetOutcome(ctx, eventID, types.OutcomeFailed, reason, l.clock.Now()); err != nil {
		return fmt.Errorf("ledger mark failed: %w", err)
	}
	return nil
}
