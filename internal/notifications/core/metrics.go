package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"taskpulse/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics emits subsystem metrics to CloudWatch:
//   - DeliveryAttempt: Dims {EventType, Result}
//   - DeliveryLatency: Dims {EventType}
//   - EventPublished / PublishFailure: Dims {EventType}
//   - CycleItems / CycleDuration / CycleFailure: Dims {Job}
//
// Emission failures are logged and never returned.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// Compile-time assertion that CloudWatchMetrics implements NotificationMetrics.
var _ NotificationMetrics = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to namespace
// (types.MetricNamespace when empty).
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordDelivery emits one DeliveryAttempt datum.
func (m *CloudWatchMetrics) RecordDelivery(ctx context.Context, eventType types.EventType, result MetricResult) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dim(types.DimEventType, string(eventType)),
			dim(types.DimResult, string(result)),
		},
	})
}

// RecordLatency emits the delivery API latency in milliseconds.
func (m *CloudWatchMetrics) RecordLatency(ctx context.Context, eventType types.EventType, duration time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{dim(types.DimEventType, string(eventType))},
	})
}

// RecordPublish emits EventPublished or PublishFailure. It satisfies
// events.Metrics.
func (m *CloudWatchMetrics) RecordPublish(ctx context.Context, eventType types.EventType, ok bool) {
	name := types.MetricEventPublished
	if !ok {
		name = types.MetricPublishFailure
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim(types.DimEventType, string(eventType))},
	})
}

// RecordCycle emits the outcome of one scheduler cycle.
func (m *CloudWatchMetrics) RecordCycle(ctx context.Context, job string, items int, duration time.Duration, err error) {
	jobDim := []cwtypes.Dimension{dim(types.DimJob, job)}
	data := []cwtypes.MetricDatum{
		{
			MetricName: aws.String(types.MetricCycleItems),
			Value:      aws.Float64(float64(items)),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: jobDim,
		},
		{
			MetricName: aws.String(types.MetricCycleDuration),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: jobDim,
		},
	}
	if err != nil {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricCycleFailure),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: jobDim,
		})
	}
	m.put(ctx, data...)
}

func (m *CloudWatchMetrics) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to put metric data",
			"error", err.Error(),
			"metric", aws.ToString(data[0].MetricName),
		)
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// NoopMetrics discards everything. Used when METRICS_ENABLED=false.
type NoopMetrics struct{}

func (NoopMetrics) RecordDelivery(context.Context, types.EventType, MetricResult)  {}
func (NoopMetrics) RecordLatency(context.Context, types.EventType, time.Duration)  {}
func (NoopMetrics) RecordPublish(context.Context, types.EventType, bool)           {}
func (NoopMetrics) RecordCycle(context.Context, string, int, time.Duration, error) {}
