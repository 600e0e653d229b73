package core

import (
	"context"

	"taskpulse/internal/types"
)

// EnvelopeBuilder builds and sends envelopes. *events.Publisher satisfies it.
type EnvelopeBuilder interface {
	Build(eventType types.EventType, entityID string, payload types.TaskPayload) (types.Envelope, error)
	Send(ctx context.Context, env types.Envelope) error
}

// MutationNotifier is what the CRUD layer calls after a task mutation. It
// publishes the event to the bus and dispatches it locally through the
// tracker. Both carry the same event_id, so the ledger delivers once.
type MutationNotifier struct {
	builder    EnvelopeBuilder
	dispatcher *Dispatcher
	tracker    *Tracker
	logger     types.Logger
}

// NewMutationNotifier creates a MutationNotifier. A nil dispatcher or
// tracker disables the local dispatch and leaves delivery to the bus
// consumer.
func NewMutationNotifier(builder EnvelopeBuilder, dispatcher *Dispatcher, tracker *Tracker, logger types.Logger) *MutationNotifier {
	return &MutationNotifier{
		builder:    builder,
		dispatcher: dispatcher,
		tracker:    tracker,
		logger:     logger,
	}
}

// Notify reports a mutation of task. It never returns an error and never
// waits for delivery: a notification problem must not fail the mutation.
func (n *MutationNotifier) Notify(ctx context.Context, eventType types.EventType, task *types.Task) {
	if task == nil {
		n.logger.Warn("mutation notify called without a task", "event_type", string(eventType))
		return
	}
	if !eventType.IsMutation() {
		n.logger.Warn("not a mutation event; ignored", "event_type", string(eventType), "task_id", task.ID)
		return
	}

	env, err := n.builder.Build(eventType, task.EntityID(), types.SnapshotTask(task))
	if err != nil {
		n.logger.Error("failed to build mutation event", "event_type", string(eventType), "task_id", task.ID, "error", err)
		return
	}

	if err := n.builder.Send(ctx, env); err != nil {
		// Lost events are accepted; the local dispatch below still runs.
		n.logger.Warn("mutation event not published", "event_id", env.EventID, "error", err)
	}

	if n.dispatcher == nil || n.tracker == nil {
		return
	}
	if err := n.tracker.TryGo(ctx, "dispatch "+env.EventID, func(ctx context.Context) error {
		return n.dispatcher.Dispatch(ctx, env)
	}); err != nil {
		n.logger.Warn("local dispatch not started", "event_id", env.EventID, "error", err)
	}
}
