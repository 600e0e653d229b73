package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"taskpulse/internal/types"
)

// maxErrorBody caps how much of a failed response is kept for the ledger.
const maxErrorBody = 512

// DeliveryClientConfig holds the configuration for creating a DeliveryClient.
type DeliveryClientConfig struct {
	Endpoint      string
	APIKey        types.SecretString
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Logger        *slog.Logger
}

// DeliveryClient implements Deliverer against the notification delivery
// API: POST <endpoint> with a bearer key and a JSON message. Only HTTP 200
// counts as success. Requests are never retried.
type DeliveryClient struct {
	base     *BaseClient
	endpoint string
	apiKey   types.SecretString
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewDeliveryClient creates a DeliveryClient with its own http.Client.
func NewDeliveryClient(cfg DeliveryClientConfig) *DeliveryClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := NewBaseClient(
		&http.Client{Timeout: timeout},
		"delivery-api",
		NoRetryPolicy(),
		"TaskPulse/1.0",
	)
	return NewDeliveryClientWithBase(base, cfg)
}

// NewDeliveryClientWithBase creates a DeliveryClient with a pre-configured
// BaseClient.
func NewDeliveryClientWithBase(base *BaseClient, cfg DeliveryClientConfig) *DeliveryClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &DeliveryClient{
		base:     base,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
}

// Send posts msg to the delivery API.
//
// Error mapping:
//   - rate limiter wait cancelled -> types.ErrCodeUpstreamTimeout
//   - transport failure, 5xx, breaker open -> from BaseClient
//   - any other non-200 status -> types.ErrCodeUpstreamDeliveryProvider
func (c *DeliveryClient) Send(ctx context.Context, msg Message) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamTimeout, "delivery rate limiter wait aborted", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal delivery message", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create delivery request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())

	start := time.Now()
	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		c.logger.DebugContext(ctx, "delivery accepted",
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	// The limit can cut a multi-byte rune; the ledger column is UTF-8 text.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	errBody := strings.ToValidUTF8(string(bytes.TrimSpace(snippet)), "")
	return types.NewAppError(
		types.ErrCodeUpstreamDeliveryProvider,
		fmt.Sprintf("delivery API returned %d: %s", resp.StatusCode, errBody),
		nil,
	).WithDetails(map[string]any{"status": resp.StatusCode})
}

// Compile-time assertion that DeliveryClient satisfies Deliverer.
var _ Deliverer = (*DeliveryClient)(nil)
