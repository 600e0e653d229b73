// Package events builds canonical event envelopes and puts them on the
// event bus (an SQS queue, or an SNS topic fanning out to queues).
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"taskpulse/internal/types"
)

// Bus delivers a serialized envelope. groupKey identifies the subject entity
// and is used for ordering on FIFO transports.
type Bus interface {
	Send(ctx context.Context, env types.Envelope, groupKey string) error
}

// Metrics records publish outcomes. A nil Metrics is ignored.
type Metrics interface {
	RecordPublish(ctx context.Context, eventType types.EventType, ok bool)
}

// Buckets holds the time bucket used to derive event IDs for each kind of
// event. Scheduled detections use their scanner interval so that a retried
// publish inside one cycle collapses to one ID.
type Buckets struct {
	DueSoon      time.Duration
	RecurringDue time.Duration
	Mutation     time.Duration
}

// For returns the bucket for eventType.
func (b Buckets) For(eventType types.EventType) time.Duration {
	switch eventType {
	case types.EventTaskDueSoon:
		return b.DueSoon
	case types.EventRecurringTaskDue:
		return b.RecurringDue
	default:
		return b.Mutation
	}
}

// Publisher builds envelopes and sends them on a Bus. It satisfies
// types.EventPublisher.
type Publisher struct {
	bus      Bus
	buckets  Buckets
	clock    types.Clock
	validate *validator.Validate
	metrics  Metrics
	logger   *slog.Logger
}

// NewPublisher creates a Publisher. A nil clock uses the system clock and a
// nil logger uses slog.Default().
func NewPublisher(bus Bus, buckets Buckets, clock types.Clock, logger *slog.Logger) *Publisher {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		bus:      bus,
		buckets:  buckets,
		clock:    clock,
		validate: validator.New(),
		logger:   logger,
	}
}

// WithMetrics attaches a publish outcome recorder.
func (p *Publisher) WithMetrics(m Metrics) *Publisher {
	p.metrics = m
	return p
}

// Build assembles the envelope for eventType on entityID. occurred_at is the
// publisher clock's current time and event_id is derived from it.
func (p *Publisher) Build(eventType types.EventType, entityID string, payload types.TaskPayload) (types.Envelope, error) {
	if !eventType.Valid() {
		return types.Envelope{}, types.NewAppError(types.ErrCodeValidationEventType,
			fmt.Sprintf("unknown event type %q", eventType), nil)
	}
	if entityID == "" {
		return types.Envelope{}, types.NewAppError(types.ErrCodeValidationMissingField, "entity id is required", nil)
	}

	now := p.clock.Now().UTC()
	env := types.Envelope{
		EventID:    types.BuildEventID(eventType, entityID, now, p.buckets.For(eventType)),
		EventType:  eventType,
		OccurredAt: now,
		Payload:    payload,
	}
	if err := p.validate.Struct(env); err != nil {
		return types.Envelope{}, types.NewAppError(types.ErrCodeValidationEnvelope, "invalid envelope", err)
	}
	return env, nil
}

// Send puts a built envelope on the bus. Failures are logged and returned;
// callers never roll back state because of them.
func (p *Publisher) Send(ctx context.Context, env types.Envelope) error {
	groupKey := groupKeyFor(env)
	if err := p.bus.Send(ctx, env, groupKey); err != nil {
		p.logger.ErrorContext(ctx, "event publish failed",
			"event_id", env.EventID,
			"event_type", env.EventType,
			"error", err,
		)
		p.record(ctx, env.EventType, false)
		return types.NewAppError(types.ErrCodeUpstreamEventBus, "failed to publish event", err)
	}

	p.logger.InfoContext(ctx, "event published",
		"event_id", env.EventID,
		"event_type", env.EventType,
		"task_id", env.Payload.TaskID,
	)
	p.record(ctx, env.EventType, true)
	return nil
}

// Publish is Build followed by Send.
func (p *Publisher) Publish(ctx context.Context, eventType types.EventType, entityID string, payload types.TaskPayload) error {
	env, err := p.Build(eventType, entityID, payload)
	if err != nil {
		return err
	}
	return p.Send(ctx, env)
}

func (p *Publisher) record(ctx context.Context, eventType types.EventType, ok bool) {
	if p.metrics != nil {
		p.metrics.RecordPublish(ctx, eventType, ok)
	}
}

func groupKeyFor(env types.Envelope) string {
	if env.Payload.TaskID != 0 {
		return fmt.Sprintf("task-%d", env.Payload.TaskID)
	}
	return env.Payload.OwnerID
}
