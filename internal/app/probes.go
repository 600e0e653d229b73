package app

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

type poolProbe struct {
	pool pinger
}

func (p poolProbe) Name() string { return "database" }

func (p poolProbe) Check(ctx context.Context) error { return p.pool.Ping(ctx) }

// queueAttributesGetter is satisfied by *sqs.Client.
type queueAttributesGetter interface {
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

type queueProbe struct {
	client   queueAttributesGetter
	queueURL string
}

func (p queueProbe) Name() string { return "events_queue" }

func (p queueProbe) Check(ctx context.Context) error {
	_, err := p.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(p.queueURL),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameApproximateNumberOfMessages},
	})
	return err
}
