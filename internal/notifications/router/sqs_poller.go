package router

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"taskpulse/internal/notifications/core"
	"taskpulse/internal/types"
)

// SQSAPI is the subset of the SQS client the poller uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSPollerConfig configures an SQSPoller.
type SQSPollerConfig struct {
	QueueURL    string
	MaxMessages int32
	WaitSeconds int32
	// ErrorBackoff is the pause after a failed receive.
	ErrorBackoff time.Duration
}

// SQSPoller long-polls a queue and routes each message as a tracked task.
// Acknowledged messages are deleted; nacked ones are left to become
// visible again after the queue's visibility timeout.
type SQSPoller struct {
	client  SQSAPI
	cfg     SQSPollerConfig
	router  *Router
	tracker *core.Tracker
	logger  types.Logger
}

// NewSQSPoller creates an SQSPoller.
func NewSQSPoller(client SQSAPI, cfg SQSPollerConfig, r *Router, tracker *core.Tracker, logger types.Logger) *SQSPoller {
	if cfg.MaxMessages <= 0 || cfg.MaxMessages > 10 {
		cfg.MaxMessages = 10
	}
	if cfg.WaitSeconds <= 0 || cfg.WaitSeconds > 20 {
		cfg.WaitSeconds = 20
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 5 * time.Second
	}
	return &SQSPoller{client: client, cfg: cfg, router: r, tracker: tracker, logger: logger}
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (p *SQSPoller) Run(ctx context.Context) error {
	p.logger.Info("sqs poller started", "queue_url", p.cfg.QueueURL)
	defer p.logger.Info("sqs poller stopped", "queue_url", p.cfg.QueueURL)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, core.ErrTrackerClosed) {
				return nil
			}
			p.logger.Error("sqs receive failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.cfg.ErrorBackoff):
			}
		}
	}
}

// PollOnce receives one batch and hands every message to the tracker.
func (p *SQSPoller) PollOnce(ctx context.Context) error {
	out, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(p.cfg.QueueURL),
		MaxNumberOfMessages:   p.cfg.MaxMessages,
		WaitTimeSeconds:       p.cfg.WaitSeconds,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return err
	}

	for _, msg := range out.Messages {
		if err := p.tracker.Go(ctx, "sqs "+aws.ToString(msg.MessageId), p.handle(msg)); err != nil {
			// The message stays on the queue and is redelivered.
			return err
		}
	}
	return nil
}

func (p *SQSPoller) handle(msg sqstypes.Message) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := p.router.Route(ctx, []byte(aws.ToString(msg.Body))); err != nil {
			return err
		}
		_, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(p.cfg.QueueURL),
			ReceiptHandle: msg.ReceiptHandle,
		})
		if err != nil {
			p.logger.Warn("failed to delete acknowledged message; it will be redelivered",
				"message_id", aws.ToString(msg.MessageId),
				"error", err,
			)
		}
		return nil
	}
}
