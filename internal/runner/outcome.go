package runner

import "time"

// Outcome is the result of executing one task's action, delivered by the
// worker pool. Every submitted task yields exactly one Outcome; abnormal
// worker termination is reported with Crashed set rather than dropped.
type Outcome struct {
	// Task is the name of the task this outcome belongs to.
	Task string

	// ExitCode is the action's exit status. Zero on success; -1 when the
	// action never produced an exit status (in-process call failure, crash).
	ExitCode int

	// Stdout and Stderr hold the action's captured output.
	Stdout string
	Stderr string

	// Err is non-nil when the action failed. It carries the failure cause:
	// non-zero exit, callable error, panic, timeout, or worker crash.
	Err error

	// Crashed marks a process-backed worker that terminated abnormally
	// (killed, or produced an unreadable result) rather than reporting a
	// clean action failure. Treated like a failure for propagation but
	// recorded distinctly: it indicates an execution-environment fault, not
	// a task-logic fault.
	Crashed bool

	// Attempts is the number of times the action was invoked (1 plus any
	// retries).
	Attempts int

	// Duration is the wall-clock time spent executing, including retries and
	// backoff waits.
	Duration time.Duration
}

// Failed reports whether the outcome represents a failure.
func (o *Outcome) Failed() bool { return o.Err != nil }
