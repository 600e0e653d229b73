package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpulse/internal/config"
	"taskpulse/internal/events"
	"taskpulse/internal/external"
	"taskpulse/internal/notifications/core"
	"taskpulse/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopSQS struct{}

func (nopSQS) SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return &sqs.SendMessageOutput{}, nil
}

type nopSNS struct{}

func (nopSNS) Publish(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return &sns.PublishOutput{}, nil
}

func TestNewBus(t *testing.T) {
	t.Run("sqs", func(t *testing.T) {
		bus, err := newBus(config.AWSConfig{BusDriver: "sqs", EventsQueue: "https://sqs/q"}, nopSQS{}, nopSNS{})
		require.NoError(t, err)
		assert.IsType(t, &events.SQSBus{}, bus)
	})
	t.Run("default driver is sqs", func(t *testing.T) {
		bus, err := newBus(config.AWSConfig{EventsQueue: "https://sqs/q"}, nopSQS{}, nopSNS{})
		require.NoError(t, err)
		assert.IsType(t, &events.SQSBus{}, bus)
	})
	t.Run("sns", func(t *testing.T) {
		bus, err := newBus(config.AWSConfig{BusDriver: "sns", EventsTopicARN: "arn:aws:sns:us-east-1:1:events"}, nopSQS{}, nopSNS{})
		require.NoError(t, err)
		assert.IsType(t, &events.SNSBus{}, bus)
	})
	t.Run("missing queue", func(t *testing.T) {
		_, err := newBus(config.AWSConfig{BusDriver: "sqs"}, nopSQS{}, nopSNS{})
		assert.ErrorContains(t, err, "SQS_EVENTS")
	})
	t.Run("missing topic", func(t *testing.T) {
		_, err := newBus(config.AWSConfig{BusDriver: "sns"}, nopSQS{}, nopSNS{})
		assert.ErrorContains(t, err, "SNS_EVENTS_TOPIC_ARN")
	})
	t.Run("unknown driver", func(t *testing.T) {
		_, err := newBus(config.AWSConfig{BusDriver: "kafka"}, nopSQS{}, nopSNS{})
		assert.Error(t, err)
	})
}

func TestNewDeliverer(t *testing.T) {
	stub := newDeliverer(config.DeliveryConfig{}, discardLogger())
	assert.IsType(t, &external.StubDeliveryClient{}, stub)

	live := newDeliverer(config.DeliveryConfig{
		Endpoint: "https://mail.example.com/send",
		APIKey:   types.SecretString("key"),
		Timeout:  time.Second,
		Burst:    1,
	}, discardLogger())
	assert.IsType(t, &external.DeliveryClient{}, live)
}

func TestNewMetrics(t *testing.T) {
	off := newMetrics(config.ObservabilityConfig{MetricsEnabled: false}, nil, nil)
	assert.IsType(t, core.NoopMetrics{}, off)

	on := newMetrics(config.ObservabilityConfig{MetricsEnabled: true, MetricNamespace: "TaskPulse"}, nil, nil)
	assert.IsType(t, &core.CloudWatchMetrics{}, on)
}

func TestBucketsFor(t *testing.T) {
	b := bucketsFor(config.SchedulerConfig{
		DueCheckIntervalSeconds:       900,
		RecurringCheckIntervalSeconds: 3600,
		MutationEventBucket:           time.Minute,
	})
	assert.Equal(t, 15*time.Minute, b.For(types.EventTaskDueSoon))
	assert.Equal(t, time.Hour, b.For(types.EventRecurringTaskDue))
	assert.Equal(t, time.Minute, b.For(types.EventTaskCompleted))
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeQueue struct {
	err  error
	seen *sqs.GetQueueAttributesInput
}

func (f *fakeQueue) GetQueueAttributes(_ context.Context, in *sqs.GetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	f.seen = in
	return &sqs.GetQueueAttributesOutput{}, f.err
}

func TestProbes(t *testing.T) {
	down := errors.New("down")

	assert.Equal(t, "database", poolProbe{}.Name())
	assert.NoError(t, poolProbe{pool: fakePinger{}}.Check(context.Background()))
	assert.ErrorIs(t, poolProbe{pool: fakePinger{err: down}}.Check(context.Background()), down)

	q := &fakeQueue{}
	p := queueProbe{client: q, queueURL: "https://sqs/q"}
	assert.Equal(t, "events_queue", p.Name())
	require.NoError(t, p.Check(context.Background()))
	require.NotNil(t, q.seen)
	assert.Equal(t, "https://sqs/q", *q.seen.QueueUrl)

	q.err = down
	assert.ErrorIs(t, p.Check(context.Background()), down)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	assert.Error(t, err)
}
