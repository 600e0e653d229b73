package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"taskpulse/internal/types"
)

func schedulerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var errDBDown = errors.New("connection refused")

// ============================================================
// Mock: TaskStore
// ============================================================

// memTaskStore applies the same predicates as the SQL in db.TaskRepository.
type memTaskStore struct {
	mu    sync.Mutex
	tasks map[int64]*types.Task

	listErr  error
	markErr  error
	listCall int
}

func newMemTaskStore(tasks ...types.Task) *memTaskStore {
	s := &memTaskStore{tasks: make(map[int64]*types.Task)}
	for i := range tasks {
		t := tasks[i]
		s.tasks[t.ID] = &t
	}
	return s
}

func (s *memTaskStore) ListDueSoon(_ context.Context, from, to time.Time, afterID int64, limit int) ([]types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCall++
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []types.Task
	for _, t := range s.tasks {
		if t.DueDate == nil || t.DueDate.Before(from) || t.DueDate.After(to) {
			continue
		}
		if t.NotifiedAt != nil || t.Completed || t.ID <= afterID {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memTaskStore) MarkNotified(_ context.Context, id int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	t, ok := s.tasks[id]
	if !ok || t.NotifiedAt != nil || t.Completed {
		return false, nil
	}
	stamped := at
	t.NotifiedAt = &stamped
	return true, nil
}

func (s *memTaskStore) get(id int64) types.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tasks[id]
}

// ============================================================
// Mock: TemplateStore
// ============================================================

type materializeCall struct {
	TemplateID int64
	DueDate    time.Time
	NextDueAt  time.Time
}

// memTemplateStore guards Materialize on the observed next_due_at like the
// transaction in db.TemplateRepository.
type memTemplateStore struct {
	mu        sync.Mutex
	templates map[int64]*types.RecurringTaskTemplate
	nextID    int64

	listErr        error
	materializeErr map[int64]error
	calls          []materializeCall
}

func newMemTemplateStore(templates ...types.RecurringTaskTemplate) *memTemplateStore {
	s := &memTemplateStore{
		templates:      make(map[int64]*types.RecurringTaskTemplate),
		nextID:         1000,
		materializeErr: make(map[int64]error),
	}
	for i := range templates {
		t := templates[i]
		s.templates[t.ID] = &t
	}
	return s
}

func (s *memTemplateStore) ListDue(_ context.Context, now time.Time, afterID int64, limit int) ([]types.RecurringTaskTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []types.RecurringTaskTemplate
	for _, t := range s.templates {
		if !t.Active() || t.NextDueAt.After(now) || t.ID <= afterID {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memTemplateStore) Materialize(_ context.Context, tmpl *types.RecurringTaskTemplate, nextDueAt time.Time) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.materializeErr[tmpl.ID]; err != nil {
		return nil, err
	}
	stored, ok := s.templates[tmpl.ID]
	if !ok || !stored.NextDueAt.Equal(tmpl.NextDueAt) || !stored.Active() {
		return nil, types.NewAppError(types.ErrCodeConflictConcurrent, "template already advanced", nil)
	}
	stored.NextDueAt = nextDueAt

	task := tmpl.Instantiate()
	s.nextID++
	task.ID = s.nextID
	s.calls = append(s.calls, materializeCall{TemplateID: tmpl.ID, DueDate: tmpl.NextDueAt, NextDueAt: nextDueAt})
	return task, nil
}

func (s *memTemplateStore) template(id int64) types.RecurringTaskTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.templates[id]
}

func (s *memTemplateStore) materialized() []materializeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]materializeCall(nil), s.calls...)
}

// ============================================================
// Mock: EventPublisher
// ============================================================

type publishedEvent struct {
	EventType types.EventType
	EntityID  string
	Payload   types.TaskPayload
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, eventType types.EventType, entityID string, payload types.TaskPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{EventType: eventType, EntityID: entityID, Payload: payload})
	return m.err
}

func (m *mockPublisher) published() []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedEvent(nil), m.events...)
}

// ============================================================
// Mock: CycleMetrics
// ============================================================

type cycleRecord struct {
	Job   string
	Items int
	Err   error
}

type mockCycleMetrics struct {
	mu      sync.Mutex
	records []cycleRecord
}

func (m *mockCycleMetrics) RecordCycle(_ context.Context, job string, items int, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, cycleRecord{Job: job, Items: items, Err: err})
}

func (m *mockCycleMetrics) all() []cycleRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cycleRecord(nil), m.records...)
}

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(i int) *int { return &i }
