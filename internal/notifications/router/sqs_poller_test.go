package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpulse/internal/notifications/core"
	"taskpulse/internal/types"
)

// fakeSQS serves one prepared batch, then empty receives.
type fakeSQS struct {
	mu         sync.Mutex
	batches    [][]sqstypes.Message
	receiveErr error
	receives   int
	deleted    []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receives++
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	if len(f.batches) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) deletedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func sqsMessage(id, body string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("rh-" + id),
		Body:          aws.String(body),
	}
}

func TestSQSPoller_PollOnce_DeletesOnlyAcked(t *testing.T) {
	client := &fakeSQS{batches: [][]sqstypes.Message{{
		sqsMessage("ok", string(envelopeJSON(t, types.EventTaskDueSoon))),
		sqsMessage("fail", string(envelopeJSON(t, types.EventRecurringTaskDue))),
		sqsMessage("poison", "garbage"),
	}}}
	r := New(Routes{
		TaskDueSoon:      func(context.Context, types.Envelope) error { return nil },
		RecurringTaskDue: func(context.Context, types.Envelope) error { return errors.New("claim failed") },
	}, nopLogger{})
	tracker := core.NewTracker(4, time.Second, nopLogger{})
	p := NewSQSPoller(client, SQSPollerConfig{QueueURL: "https://sqs.local/q"}, r, tracker, nopLogger{})

	require.NoError(t, p.PollOnce(context.Background()))
	require.Zero(t, tracker.Drain(time.Second))

	assert.ElementsMatch(t, []string{"rh-ok", "rh-poison"}, client.deletedHandles())
}

func TestSQSPoller_Run_StopsOnCancel(t *testing.T) {
	client := &fakeSQS{}
	tracker := core.NewTracker(1, time.Second, nopLogger{})
	p := NewSQSPoller(client, SQSPollerConfig{QueueURL: "q"}, New(Routes{}, nopLogger{}), tracker, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestSQSPoller_Run_BacksOffOnReceiveError(t *testing.T) {
	client := &fakeSQS{receiveErr: errors.New("AccessDenied")}
	tracker := core.NewTracker(1, time.Second, nopLogger{})
	p := NewSQSPoller(client, SQSPollerConfig{QueueURL: "q", ErrorBackoff: time.Hour}, New(Routes{}, nopLogger{}), tracker, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, 1, client.receives, "poller must wait out the backoff after an error")
}

func TestSQSPoller_StopsWhenTrackerDraining(t *testing.T) {
	client := &fakeSQS{batches: [][]sqstypes.Message{{sqsMessage("late", "{}")}}}
	tracker := core.NewTracker(1, time.Second, nopLogger{})
	tracker.Drain(time.Millisecond)
	p := NewSQSPoller(client, SQSPollerConfig{QueueURL: "q"}, New(Routes{}, nopLogger{}), tracker, nopLogger{})

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller kept running after drain")
	}
	assert.Empty(t, client.deletedHandles(), "unhandled message must stay on the queue")
}
