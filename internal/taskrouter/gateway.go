package taskrouter

import (
	"context"
	"errors"
)

// ErrTaskNotFound is returned when neither a direct fetch nor an attribute
// search can resolve the requested task.
var ErrTaskNotFound = errors.New("taskrouter: task not found")

// BestEffort is the outcome of a side effect that must never interrupt an
// active call. Callers inspect Err when they care, and ignore it when the
// "never strand the caller" policy applies.
type BestEffort struct {
	Err error
}

// OK reports whether the side effect succeeded.
func (b BestEffort) OK() bool { return b.Err == nil }

// TaskSummary is the normalized view of a routable task that the voice flows
// and agent utilities operate on.
type TaskSummary struct {
	TaskSid       string
	TaskQueueSid  string
	TaskQueueName string
	WorkflowSid   string
	WorkspaceSid  string
	// Attributes is the raw attributes JSON as stored on the task.
	Attributes string
}

// WaitStats are the wait-duration-until-accepted statistics of a workflow,
// sampled over a rolling window.
type WaitStats struct {
	MinSeconds float64
	AvgSeconds float64
	MaxSeconds float64
}

// AvgWaitMinutes returns the whole-minutes component of the average wait,
// matching how the wait time is quoted to callers.
func (s WaitStats) AvgWaitMinutes() int {
	return (int(s.AvgSeconds) % 3600) / 60
}

// CreateTaskParams describes a task to be created on a workflow.
type CreateTaskParams struct {
	Channel     string
	Priority    int
	WorkflowSid string
	// Attributes is the serialized attributes JSON for the new task.
	Attributes string
}

// Gateway is the narrow capability surface this service needs from the
// task-routing and telephony provider. One implementation wraps the Twilio
// REST API; tests substitute fakes.
type Gateway interface {
	// FindTask resolves a task by task sid, or by the correlated call sid
	// when id has the call-identifier shape.
	FindTask(ctx context.Context, id string) (*TaskSummary, error)

	CancelTask(ctx context.Context, taskSid, reason string) BestEffort
	CompleteTask(ctx context.Context, taskSid, reason string) BestEffort

	// CreateTask creates a new task and returns its sid. Failures are
	// reported through the BestEffort result, never panicked or lost.
	CreateTask(ctx context.Context, p CreateTaskParams) (string, BestEffort)

	// UpdateTaskAttributes replaces the task's attributes JSON.
	// Read-modify-write with no version check; last writer wins.
	UpdateTaskAttributes(ctx context.Context, taskSid, attributes string) BestEffort

	// QueuePosition returns the zero-based position of the task among the
	// pending/reserved tasks of its queue, or -1 when the task is not within
	// the first 20.
	QueuePosition(ctx context.Context, t *TaskSummary) (int, error)

	// WorkflowStats fetches cumulative wait statistics for a workflow over
	// the trailing windowMinutes.
	WorkflowStats(ctx context.Context, workflowSid string, windowMinutes int) (*WaitStats, error)

	// RedirectCall points an in-progress call leg at a new webhook URL.
	RedirectCall(ctx context.Context, callSid, url string) BestEffort

	DeleteRecording(ctx context.Context, recordingSid string) BestEffort
	DeleteTranscription(ctx context.Context, transcriptionSid string) BestEffort
}
