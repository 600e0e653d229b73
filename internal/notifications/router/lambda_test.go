package router

import (
	"context"
	"errors"
	"testing"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpulse/internal/types"
)

func TestLambdaHandler_PartialBatchFailure(t *testing.T) {
	r := New(Routes{
		TaskDueSoon: func(context.Context, types.Envelope) error { return nil },
		TaskCreated: func(context.Context, types.Envelope) error { return errors.New("db down") },
	}, nopLogger{})
	h := NewLambdaHandler(r)

	resp, err := h.Handle(context.Background(), lambdaevents.SQSEvent{Records: []lambdaevents.SQSMessage{
		{MessageId: "ok", Body: string(envelopeJSON(t, types.EventTaskDueSoon))},
		{MessageId: "nack", Body: string(envelopeJSON(t, types.EventTaskCreated))},
		{MessageId: "poison", Body: "not json"},
	}})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "nack", resp.BatchItemFailures[0].ItemIdentifier)
}

func TestLambdaHandler_EmptyBatch(t *testing.T) {
	resp, err := NewLambdaHandler(New(Routes{}, nopLogger{})).Handle(context.Background(), lambdaevents.SQSEvent{})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
}
