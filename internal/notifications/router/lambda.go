package router

import (
	"context"

	lambdaevents "github.com/aws/aws-lambda-go/events"
)

// LambdaHandler adapts the Router to an SQS-triggered Lambda with partial
// batch responses. Only nacked messages are reported back to SQS.
type LambdaHandler struct {
	router *Router
}

// NewLambdaHandler creates a LambdaHandler.
func NewLambdaHandler(r *Router) *LambdaHandler {
	return &LambdaHandler{router: r}
}

// Handle processes a batch. Each record is routed independently.
func (h *LambdaHandler) Handle(ctx context.Context, sqsEvent lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error) {
	response := lambdaevents.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.router.Route(ctx, []byte(record.Body)); err != nil {
			response.BatchItemFailures = append(response.BatchItemFailures,
				lambdaevents.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}
