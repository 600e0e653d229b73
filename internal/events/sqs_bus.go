package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"taskpulse/internal/types"
)

// Message attribute names carried alongside every envelope. Consumers and
// SNS filter policies route on them without parsing the body.
const (
	AttrEventType = "event_type"
	AttrEventID   = "event_id"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSBus publishes envelopes straight to an SQS queue. FIFO queues (URL
// ending in ".fifo") get the event ID as deduplication ID, so SQS itself
// drops a re-published event inside its dedup window.
type SQSBus struct {
	client   SQSSender
	queueURL string
	fifo     bool
}

// NewSQSBus creates an SQSBus targeting queueURL.
func NewSQSBus(client SQSSender, queueURL string) *SQSBus {
	return &SQSBus{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

// Send serializes env and sends it to the queue.
func (b *SQSBus) Send(ctx context.Context, env types.Envelope, groupKey string) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("sqs bus: failed to marshal envelope: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(b.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			AttrEventType: {DataType: aws.String("String"), StringValue: aws.String(string(env.EventType))},
			AttrEventID:   {DataType: aws.String("String"), StringValue: aws.String(env.EventID)},
		},
	}
	if b.fifo {
		input.MessageDeduplicationId = aws.String(env.EventID)
		input.MessageGroupId = aws.String(groupKey)
	}

	if _, err := b.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("sqs bus: failed to send message to %s: %w", b.queueURL, err)
	}
	return nil
}
