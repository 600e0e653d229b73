// Package scheduler implements the periodic jobs of taskpulse: the due-date
// scanner, the recurring-task processor, and delivery ledger pruning.
//
// Every job implements Job. The same Job value is driven either in-process
// by an IntervalRunner or by an external trigger (cmd/jobs), which sends a
// JobPayload naming the task to run.
package scheduler

import (
	"context"
	"time"
)

// TaskType identifies which job an external trigger should run.
type TaskType string

const (
	TaskScanDueTasks     TaskType = "scan_due_tasks"
	TaskProcessRecurring TaskType = "process_recurring"
	TaskPruneLedger      TaskType = "prune_delivery_ledger"
)

// JobPayload is the JSON payload sent by EventBridge rules to the jobs
// Lambda.
//
//	{
//	  "task": "scan_due_tasks",
//	  "reference_time": "2026-02-06T03:00:00Z"  // optional
//	}
type JobPayload struct {
	Task TaskType `json:"task"`
	// ReferenceTime overrides "now" for manual runs and backfills. If nil,
	// the current UTC time is used.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}

// Job is one unit of scheduled work. Run performs a single cycle as of now
// and reports how many items it acted on.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) (items int, err error)
}

// CycleMetrics records the outcome of each cycle. A nil CycleMetrics is
// ignored.
type CycleMetrics interface {
	RecordCycle(ctx context.Context, job string, items int, duration time.Duration, err error)
}

