// Package task defines the task data model shared by the graph builder and
// the scheduler: the Task type itself, its tagged Action variants, the task
// state machine constants, the in-process call registry, and the staleness
// policy that decides whether a task's action must actually run.
package task

import (
	"strings"
	"time"
)

// State represents the lifecycle state of a task during a run.
// String values are used (not iota) so states round-trip cleanly through the
// JSON report output.
type State string

const (
	// StatePending indicates the task still has unresolved dependencies.
	StatePending State = "pending"

	// StateReady indicates all dependencies resolved; the task is eligible
	// for dispatch subject to pool capacity.
	StateReady State = "ready"

	// StateRunning indicates the task was dispatched to the worker pool and
	// its outcome is still outstanding.
	StateRunning State = "running"

	// StateSucceeded indicates the task's action ran and exited successfully.
	StateSucceeded State = "succeeded"

	// StateFailed indicates the task's action ran and failed, timed out, or
	// its worker crashed.
	StateFailed State = "failed"

	// StateSkipped indicates the task's action was never invoked. The
	// SkipReason distinguishes why.
	StateSkipped State = "skipped"
)

// Terminal reports whether s is a terminal state (no further transitions).
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateSkipped:
		return true
	}
	return false
}

// SkipReason qualifies StateSkipped for reporting purposes.
type SkipReason string

const (
	// SkipUpToDate means the staleness check proved the task's outputs are
	// current. Counts as a non-failing terminal state: successors still run.
	SkipUpToDate SkipReason = "up_to_date"

	// SkipUpstreamFailure means a transitive dependency failed; the task was
	// never dispatched. Counts as a failing terminal state.
	SkipUpstreamFailure SkipReason = "upstream_failure"

	// SkipAborted means the run was cancelled before the task could start.
	SkipAborted SkipReason = "aborted"
)

// ActionKind tags the variant carried by an Action.
type ActionKind string

const (
	// ActionNone marks a task with no action of its own; it exists purely to
	// aggregate dependencies (e.g. a "check" task depending on lint + test).
	// Such tasks succeed trivially once their dependencies resolve.
	ActionNone ActionKind = "none"

	// ActionShell runs an argv vector as a subprocess.
	ActionShell ActionKind = "shell"

	// ActionCall invokes a named in-process callable from the call Registry.
	ActionCall ActionKind = "call"
)

// Action is a tagged variant describing the work a task performs. It carries
// plain data rather than a closure so the process-backed worker pool can
// serialize it across a process boundary.
type Action struct {
	Kind ActionKind `json:"kind"`

	// Argv is the command vector for ActionShell. Argv[0] is the program.
	Argv []string `json:"argv,omitempty"`

	// Env holds extra KEY=VALUE pairs appended to the inherited environment
	// for ActionShell.
	Env []string `json:"env,omitempty"`

	// Call is the registered callable identifier for ActionCall.
	Call string `json:"call,omitempty"`

	// Args are the string arguments passed to the callable for ActionCall.
	Args []string `json:"args,omitempty"`
}

// Task is the atomic unit of work. It is an immutable definition: all mutable
// run state (lifecycle state, pending predecessor counts, outcomes) lives in
// the graph and the scheduler, never on the Task itself, so a Task can be
// handed to a worker as a read-only snapshot.
type Task struct {
	// Name uniquely identifies the task within a graph.
	Name string `json:"name"`

	// Description is an optional human-readable summary shown by `kestrel list`.
	Description string `json:"description,omitempty"`

	// Dependencies are the names of tasks that must reach a non-failing
	// terminal state before this task may run.
	Dependencies []string `json:"dependencies,omitempty"`

	// Action describes the work to perform. An ActionNone task completes
	// without dispatching anything.
	Action Action `json:"action"`

	// Inputs and Outputs are filesystem paths used by the staleness check.
	// A task with no Outputs is always considered stale.
	Inputs  []string `json:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty"`

	// Fingerprint enables content-hash staleness on top of the mtime policy:
	// the task is additionally considered up to date when the xxhash of its
	// inputs and action matches the cached fingerprint from a previous
	// successful run.
	Fingerprint bool `json:"fingerprint,omitempty"`

	// Retries is the number of times a failing action is re-invoked (with
	// exponential backoff) before the task is marked failed. Zero means a
	// single attempt.
	Retries int `json:"retries,omitempty"`

	// Timeout bounds the task's total wall-clock execution time, including
	// retries. Zero means no per-task limit.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Hidden reports whether the task is a helper hidden from `kestrel list`.
// Hidden tasks are named with a leading underscore and behave normally in
// every other respect.
func (t *Task) Hidden() bool {
	return strings.HasPrefix(t.Name, "_")
}
