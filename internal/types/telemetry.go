package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryLatency = "DeliveryLatency"
	MetricDuplicateEvent  = "DuplicateEvent"
	MetricEventPublished  = "EventPublished"
	MetricPublishFailure  = "PublishFailure"
	MetricCycleItems      = "CycleItems"
	MetricCycleDuration   = "CycleDuration"
	MetricCycleFailure    = "CycleFailure"

	// Dimension Keys
	DimEventType = "EventType"
	DimResult    = "Result"
	DimJob       = "Job"

	// Metric Namespace
	MetricNamespace = "TaskPulse"
)
