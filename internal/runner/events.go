package runner

import "time"

// EventType constants identify the lifecycle phase of an Event. They populate
// the Type field of Event and are consumed by the console reporter and
// structured log output.
const (
	// EventRunStarted is emitted once when a run begins.
	EventRunStarted = "run_started"

	// EventRunCompleted is emitted once when every task has reached a
	// terminal state, regardless of the overall outcome.
	EventRunCompleted = "run_completed"

	// EventTaskReady is emitted when a task's last dependency resolves and it
	// becomes eligible for dispatch.
	EventTaskReady = "task_ready"

	// EventTaskStarted is emitted when a task is dispatched to the worker pool.
	EventTaskStarted = "task_started"

	// EventTaskSucceeded is emitted when a task's action completes successfully.
	EventTaskSucceeded = "task_succeeded"

	// EventTaskFailed is emitted when a task's action fails, times out, or
	// its worker crashes.
	EventTaskFailed = "task_failed"

	// EventTaskSkipped is emitted when a task reaches a terminal state
	// without its action being invoked: up to date, upstream failure, or
	// run abort.
	EventTaskSkipped = "task_skipped"
)

// Event is a structured message emitted by the scheduler during execution.
// Events are sent over a channel for real-time consumption by the console
// reporter; the scheduler itself has no rendering responsibility.
type Event struct {
	// Type is one of the Event* constants describing the lifecycle milestone.
	Type string `json:"type"`

	// Task is the name of the task that produced this event. Empty for
	// run-level events.
	Task string `json:"task,omitempty"`

	// Reason qualifies EventTaskSkipped (up_to_date, upstream_failure,
	// aborted). Empty otherwise.
	Reason string `json:"reason,omitempty"`

	// Message is a human-readable description of the event.
	Message string `json:"message"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// Error holds the error message when Type is EventTaskFailed.
	Error string `json:"error,omitempty"`
}
