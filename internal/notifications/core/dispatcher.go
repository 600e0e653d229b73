package core

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"taskpulse/internal/external"
	"taskpulse/internal/notifications/email"
	"taskpulse/internal/types"
)

// DefaultDispatchTimeout bounds one delivery API call.
const DefaultDispatchTimeout = 10 * time.Second

// maxFailureReason caps the reason stored on a failed record.
const maxFailureReason = 500

// DispatcherConfig holds the collaborators of a Dispatcher.
type DispatcherConfig struct {
	Ledger     *Ledger
	Recipients RecipientResolver
	Renderer   Renderer
	Deliverer  external.Deliverer
	Metrics    NotificationMetrics
	Timeout    time.Duration
	Logger     types.Logger
}

// Dispatcher delivers one notification per event_id.
//
// Only ledger read and claim errors are returned, so the bus redelivers the
// event. Anything after the claim is logged and recorded on the ledger, and
// Dispatch returns nil: delivery failure never reaches the producer of the
// event and is never retried here.
type Dispatcher struct {
	ledger     *Ledger
	recipients RecipientResolver
	renderer   Renderer
	deliverer  external.Deliverer
	metrics    NotificationMetrics
	timeout    time.Duration
	logger     types.Logger
}

// NewDispatcher creates a Dispatcher. A zero Timeout uses DefaultDispatchTimeout.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Dispatcher{
		ledger:     cfg.Ledger,
		recipients: cfg.Recipients,
		renderer:   cfg.Renderer,
		deliverer:  cfg.Deliverer,
		metrics:    metrics,
		timeout:    timeout,
		logger:     cfg.Logger,
	}
}

// Dispatch handles one envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, env types.Envelope) error {
	log := d.logger.With("event_id", env.EventID, "event_type", string(env.EventType))

	seen, err := d.ledger.Seen(ctx, env.EventID)
	if err != nil {
		log.Error("ledger lookup failed", "error", err)
		return err
	}
	if seen {
		log.Info("duplicate event skipped")
		d.metrics.RecordDelivery(ctx, env.EventType, MetricDuplicate)
		return nil
	}

	claimed, err := d.ledger.Claim(ctx, env)
	if err != nil {
		log.Error("ledger claim failed", "error", err)
		return err
	}
	if !claimed {
		log.Info("event claimed by another dispatcher")
		d.metrics.RecordDelivery(ctx, env.EventType, MetricDuplicate)
		return nil
	}

	msg, err := d.prepare(ctx, env)
	if err != nil {
		d.fail(ctx, log, env, err)
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err = d.deliverer.Send(sendCtx, msg)
	d.metrics.RecordLatency(ctx, env.EventType, time.Since(start))
	if err != nil {
		d.fail(ctx, log, env, err)
		return nil
	}

	if err := d.ledger.MarkSent(ctx, env.EventID); err != nil {
		log.Error("failed to record sent outcome", "error", err)
	}
	d.metrics.RecordDelivery(ctx, env.EventType, MetricSuccess)
	log.Info("notification delivered", "to", email.RedactEmail(msg.To))
	return nil
}

// prepare resolves the recipient and renders the message.
func (d *Dispatcher) prepare(ctx context.Context, env types.Envelope) (external.Message, error) {
	recipient, err := d.recipients.GetRecipient(ctx, env.Payload.OwnerID)
	if err != nil {
		return external.Message{}, err
	}

	rendered, err := d.renderer.Render(env.EventType, env.Payload, *recipient)
	if err != nil {
		return external.Message{}, err
	}

	return external.Message{
		To:      recipient.Email,
		Subject: rendered.Subject,
		Body:    rendered.Body,
		IsHTML:  rendered.IsHTML,
	}, nil
}

func (d *Dispatcher) fail(ctx context.Context, log types.Logger, env types.Envelope, cause error) {
	reason := truncateReason(cause.Error(), maxFailureReason)
	log.Warn("notification delivery failed", "owner_id", env.Payload.OwnerID, "error", reason)

	// The dispatch context may already be past its deadline here; the
	// outcome write gets its own short budget.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.ledger.MarkFailed(markCtx, env.EventID, reason); err != nil {
		log.Error("failed to record failed outcome", "error", err)
	}
	d.metrics.RecordDelivery(ctx, env.EventType, MetricFailed)
}

// truncateReason cuts s to at most n bytes on a rune boundary and drops
// invalid UTF-8, which the failure_reason column rejects.
func truncateReason(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
