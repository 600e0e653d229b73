package types

// TemplateStatus represents the lifecycle state of a RecurringTaskTemplate.
// Only active templates are scanned by the recurring-task processor. The
// transient "materializing" state exists only inside the processor's
// transaction and is never persisted.
type TemplateStatus string

const (
	TemplateActive    TemplateStatus = "active"
	TemplatePaused    TemplateStatus = "paused"
	TemplateCancelled TemplateStatus = "cancelled"
)

// RecurrencePattern names the rule used to compute a template's next occurrence.
type RecurrencePattern string

const (
	PatternDaily   RecurrencePattern = "daily"
	PatternWeekly  RecurrencePattern = "weekly"
	PatternMonthly RecurrencePattern = "monthly"
	PatternYearly  RecurrencePattern = "yearly"
)

// EventType identifies the kind of notification event. It doubles as the
// topic name on the event bus.
type EventType string

const (
	EventTaskCreated      EventType = "task-created"
	EventTaskUpdated      EventType = "task-updated"
	EventTaskCompleted    EventType = "task-completed"
	EventTaskDeleted      EventType = "task-deleted"
	EventTaskDueSoon      EventType = "task-due-soon"
	EventRecurringTaskDue EventType = "recurring-task-due"
)

// AllEventTypes is the closed set of event types, in declaration order.
var AllEventTypes = []EventType{
	EventTaskCreated,
	EventTaskUpdated,
	EventTaskCompleted,
	EventTaskDeleted,
	EventTaskDueSoon,
	EventRecurringTaskDue,
}

// Valid reports whether e is one of the known event types.
func (e EventType) Valid() bool {
	switch e {
	case EventTaskCreated, EventTaskUpdated, EventTaskCompleted,
		EventTaskDeleted, EventTaskDueSoon, EventRecurringTaskDue:
		return true
	}
	return false
}

// IsMutation reports whether the event originates from a direct task
// mutation in the CRUD layer rather than from a scheduled detection.
func (e EventType) IsMutation() bool {
	switch e {
	case EventTaskCreated, EventTaskUpdated, EventTaskCompleted, EventTaskDeleted:
		return true
	}
	return false
}

// DeliveryOutcome is the terminal result recorded on a DeliveryRecord.
// An empty outcome means the record is a claim whose delivery has not
// finished (or was abandoned during shutdown).
type DeliveryOutcome string

const (
	OutcomePending DeliveryOutcome = ""
	OutcomeSent    DeliveryOutcome = "sent"
	OutcomeFailed  DeliveryOutcome = "failed"
)
