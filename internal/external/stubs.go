package external

import (
	"context"
	"log/slog"
)

// StubDeliveryClient implements Deliverer by logging the message instead
// of sending it. Used when no delivery endpoint is configured (APP_ENV=local).
type StubDeliveryClient struct {
	logger *slog.Logger
}

// NewStubDeliveryClient creates a new StubDeliveryClient.
func NewStubDeliveryClient(logger *slog.Logger) *StubDeliveryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubDeliveryClient{logger: logger}
}

func (s *StubDeliveryClient) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "stub: delivery skipped",
		"to", msg.To,
		"subject", msg.Subject,
		"body_bytes", len(msg.Body),
	)
	return nil
}

var _ Deliverer = (*StubDeliveryClient)(nil)
