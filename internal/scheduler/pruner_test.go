package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockLedgerStore struct {
	cutoff time.Time
	n      int64
	err    error
}

func (m *mockLedgerStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.cutoff = cutoff
	return m.n, m.err
}

func TestLedgerPruner_Run(t *testing.T) {
	now := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	store := &mockLedgerStore{n: 42}
	p := NewLedgerPruner(store, 30*24*time.Hour, schedulerTestLogger())

	n, err := p.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 42 {
		t.Errorf("pruned = %d, want 42", n)
	}
	if want := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC); !store.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", store.cutoff, want)
	}
	if p.Name() != "prune_delivery_ledger" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestLedgerPruner_Error(t *testing.T) {
	p := NewLedgerPruner(&mockLedgerStore{err: errDBDown}, time.Hour, nil)
	if _, err := p.Run(context.Background(), time.Now()); !errors.Is(err, errDBDown) {
		t.Fatalf("Run() error = %v, want wrapped errDBDown", err)
	}
}
