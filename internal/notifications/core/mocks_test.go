package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"taskpulse/internal/external"
	"taskpulse/internal/notifications/email"
	"taskpulse/internal/types"
)

type mockLogger struct{}

func (l *mockLogger) Info(msg string, args ...any)  {}
func (l *mockLogger) Error(msg string, args ...any) {}
func (l *mockLogger) Warn(msg string, args ...any)  {}
func (l *mockLogger) With(args ...any) types.Logger { return l }

// memLedger is an in-memory LedgerStore with the same conflict semantics as
// the delivery_records table.
type memLedger struct {
	mu       sync.Mutex
	records  map[string]*types.DeliveryRecord
	getErr   error
	claimErr error
	claims   int
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]*types.DeliveryRecord)}
}

func (m *memLedger) Get(_ context.Context, eventID string) (*types.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[eventID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memLedger) Claim(_ context.Context, eventID string, eventType types.EventType, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return false, m.claimErr
	}
	if _, ok := m.records[eventID]; ok {
		return false, nil
	}
	m.claims++
	m.records[eventID] = &types.DeliveryRecord{EventID: eventID, EventType: eventType, ClaimedAt: at}
	return true, nil
}

func (m *memLedger) SetOutcome(_ context.Context, eventID string, outcome types.DeliveryOutcome, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[eventID]
	if !ok || rec.Outcome != types.OutcomePending {
		return types.NewAppError(types.ErrCodeConflictConcurrent, "no pending record", nil)
	}
	rec.Outcome = outcome
	rec.FailureReason = reason
	if outcome == types.OutcomeSent {
		rec.DeliveredAt = &at
	}
	return nil
}

func (m *memLedger) record(eventID string) *types.DeliveryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[eventID]
}

type mockRecipients struct {
	recipients map[string]types.Recipient
}

func (m *mockRecipients) GetRecipient(_ context.Context, ownerID string) (*types.Recipient, error) {
	r, ok := m.recipients[ownerID]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return &r, nil
}

type stubRenderer struct {
	err error
}

func (s *stubRenderer) Render(eventType types.EventType, payload types.TaskPayload, _ types.Recipient) (*email.Rendered, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &email.Rendered{Subject: string(eventType) + ": " + payload.Title, Body: "<p>" + payload.Title + "</p>", IsHTML: true}, nil
}

// mockDeliverer records sent messages. When block is set, Send waits for
// the context to end and returns its error.
type mockDeliverer struct {
	mu    sync.Mutex
	sent  []external.Message
	err   error
	block bool
}

func (m *mockDeliverer) Send(ctx context.Context, msg external.Message) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *mockDeliverer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingMetrics struct {
	mu      sync.Mutex
	results []MetricResult
}

func (r *recordingMetrics) RecordDelivery(_ context.Context, _ types.EventType, result MetricResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingMetrics) RecordLatency(context.Context, types.EventType, time.Duration) {}

var errDBDown = errors.New("connection refused")

func testRecipients() *mockRecipients {
	return &mockRecipients{recipients: map[string]types.Recipient{
		"user-1": {OwnerID: "user-1", Email: "ann@example.com", Name: "Ann"},
	}}
}

func testEnvelope(eventType types.EventType) types.Envelope {
	due := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	return types.Envelope{
		EventID:    "evt-" + string(eventType),
		EventType:  eventType,
		OccurredAt: due.Add(-12 * time.Hour),
		Payload:    types.TaskPayload{TaskID: 7, OwnerID: "user-1", Title: "Pay rent", DueDate: &due},
	}
}
