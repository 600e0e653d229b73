// Package router routes inbound event envelopes to their handlers. It
// owns the acknowledgement rule shared by every transport: malformed or
// unrouted messages are acknowledged and dropped, handler failures are not
// acknowledged so the bus redelivers them.
package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"taskpulse/internal/types"
)

// Handler processes one envelope. It must be idempotent: the bus delivers
// at least once.
type Handler func(ctx context.Context, env types.Envelope) error

// Routes maps every event type to its handler. A nil field leaves that
// topic unrouted.
type Routes struct {
	TaskCreated      Handler
	TaskUpdated      Handler
	TaskCompleted    Handler
	TaskDeleted      Handler
	TaskDueSoon      Handler
	RecurringTaskDue Handler
}

// RouteAll sends every event type to h.
func RouteAll(h Handler) Routes {
	return Routes{
		TaskCreated:      h,
		TaskUpdated:      h,
		TaskCompleted:    h,
		TaskDeleted:      h,
		TaskDueSoon:      h,
		RecurringTaskDue: h,
	}
}

// handlerFor must list every types.EventType.
func (r Routes) handlerFor(eventType types.EventType) Handler {
	switch eventType {
	case types.EventTaskCreated:
		return r.TaskCreated
	case types.EventTaskUpdated:
		return r.TaskUpdated
	case types.EventTaskCompleted:
		return r.TaskCompleted
	case types.EventTaskDeleted:
		return r.TaskDeleted
	case types.EventTaskDueSoon:
		return r.TaskDueSoon
	case types.EventRecurringTaskDue:
		return r.RecurringTaskDue
	}
	return nil
}

// Router applies Routes to raw message bodies.
type Router struct {
	routes   Routes
	validate *validator.Validate
	logger   types.Logger
}

// New creates a Router.
func New(routes Routes, logger types.Logger) *Router {
	return &Router{
		routes:   routes,
		validate: validator.New(),
		logger:   logger,
	}
}

// Route decodes body and routes it. A nil return means the message may be
// acknowledged.
func (r *Router) Route(ctx context.Context, body []byte) error {
	env, err := r.Decode(body)
	if err != nil {
		r.logger.Warn("dropping undecodable message", "error", err, "body_bytes", len(body))
		return nil
	}
	return r.RouteEnvelope(ctx, env)
}

// RouteEnvelope routes a decoded envelope.
func (r *Router) RouteEnvelope(ctx context.Context, env types.Envelope) error {
	log := r.logger.With("event_id", env.EventID, "event_type", string(env.EventType))

	h := r.routes.handlerFor(env.EventType)
	if h == nil {
		log.Warn("no handler for event type; acknowledging")
		return nil
	}

	ctx = types.WithTraceID(ctx, env.EventID)
	if err := h(ctx, env); err != nil {
		log.Error("handler failed; leaving message for redelivery", "error", err)
		return fmt.Errorf("route %s: %w", env.EventType, err)
	}
	return nil
}

// snsNotification is the wrapper SNS puts around a message delivered to
// SQS without raw message delivery.
type snsNotification struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// Decode parses an envelope from body, unwrapping an SNS notification if
// present, and validates it.
func (r *Router) Decode(body []byte) (types.Envelope, error) {
	var wrapper snsNotification
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Type == "Notification" && wrapper.Message != "" {
		body = []byte(wrapper.Message)
	}

	var env types.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return types.Envelope{}, types.NewAppError(types.ErrCodeValidationEnvelope, "malformed envelope JSON", err)
	}
	if err := r.validate.Struct(env); err != nil {
		return types.Envelope{}, types.NewAppError(types.ErrCodeValidationEnvelope, "invalid envelope", err)
	}
	if !env.EventType.Valid() {
		return types.Envelope{}, types.NewAppError(types.ErrCodeValidationEventType,
			fmt.Sprintf("unknown event type %q", env.EventType), nil)
	}
	return env, nil
}
