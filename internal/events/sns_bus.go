package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"taskpulse/internal/types"
)

// SNSPublisher abstracts the SNS Publish operation for testability.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSBus publishes envelopes to an SNS topic. Queues subscribe with raw
// message delivery and a filter policy on the event_type attribute.
type SNSBus struct {
	client   SNSPublisher
	topicARN string
	fifo     bool
}

// NewSNSBus creates an SNSBus targeting topicARN.
func NewSNSBus(client SNSPublisher, topicARN string) *SNSBus {
	return &SNSBus{
		client:   client,
		topicARN: topicARN,
		fifo:     strings.HasSuffix(topicARN, ".fifo"),
	}
}

// Send serializes env and publishes it to the topic.
func (b *SNSBus) Send(ctx context.Context, env types.Envelope, groupKey string) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("sns bus: failed to marshal envelope: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(b.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			AttrEventType: {DataType: aws.String("String"), StringValue: aws.String(string(env.EventType))},
			AttrEventID:   {DataType: aws.String("String"), StringValue: aws.String(env.EventID)},
		},
	}
	if b.fifo {
		input.MessageDeduplicationId = aws.String(env.EventID)
		input.MessageGroupId = aws.String(groupKey)
	}

	if _, err := b.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns bus: failed to publish to %s: %w", b.topicARN, err)
	}
	return nil
}
