package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LedgerStore is the ledger maintenance access. Implemented by
// db.DeliveryRepository.
type LedgerStore interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// LedgerPruner deletes delivery records older than the retention period.
// Events that old can no longer be redelivered by the bus, so their records
// no longer suppress anything.
type LedgerPruner struct {
	store     LedgerStore
	retention time.Duration
	logger    *slog.Logger
}

// NewLedgerPruner creates a LedgerPruner.
func NewLedgerPruner(store LedgerStore, retention time.Duration, logger *slog.Logger) *LedgerPruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerPruner{store: store, retention: retention, logger: logger}
}

// Name implements Job.
func (p *LedgerPruner) Name() string { return string(TaskPruneLedger) }

// Run deletes records claimed before now minus the retention period.
func (p *LedgerPruner) Run(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-p.retention)
	n, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune delivery ledger: %w", err)
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "pruned delivery records", "count", n, "cutoff", cutoff)
	}
	return int(n), nil
}
