package runner

import (
	"sort"
	"time"

	"github.com/kestrelbuild/kestrel/internal/task"
)

// TaskResult captures the final state of one task after a run.
type TaskResult struct {
	// Name is the task's unique name.
	Name string `json:"name"`

	// State is the terminal state the task reached.
	State task.State `json:"state"`

	// Reason qualifies StateSkipped.
	Reason task.SkipReason `json:"reason,omitempty"`

	// ExitCode is the action's exit status, when an action ran.
	ExitCode int `json:"exit_code"`

	// Output and Stderr hold the action's captured output.
	Output string `json:"output,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// Error is the failure message for failed tasks.
	Error string `json:"error,omitempty"`

	// Crashed marks an execution-environment fault (worker death) rather
	// than a task-logic failure.
	Crashed bool `json:"crashed,omitempty"`

	// Attempts is the number of times the action was invoked.
	Attempts int `json:"attempts,omitempty"`

	// Duration is the wall-clock execution time, including retries.
	Duration time.Duration `json:"duration,omitempty"`
}

// Failing reports whether the result counts against the run outcome: a
// failure, or a skip caused by an upstream failure or an abort. A skip
// because the task was up to date does not count.
func (r *TaskResult) Failing() bool {
	if r.State == task.StateFailed {
		return true
	}
	return r.State == task.StateSkipped && r.Reason != task.SkipUpToDate
}

// Report is the aggregate result of one run. It enumerates every task's
// terminal state; the overall outcome is Success only when no task is
// failing.
type Report struct {
	// Results holds one entry per task, sorted by task name.
	Results []*TaskResult `json:"results"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration"`

	// Aborted is true when the run was cancelled externally before every
	// task could complete.
	Aborted bool `json:"aborted,omitempty"`
}

// Success reports whether every task reached Succeeded or Skipped-as-up-to-date.
func (r *Report) Success() bool {
	for _, res := range r.Results {
		if res.Failing() {
			return false
		}
	}
	return !r.Aborted
}

// Failures returns the failing results, sorted by task name.
func (r *Report) Failures() []*TaskResult {
	var out []*TaskResult
	for _, res := range r.Results {
		if res.Failing() {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result for the named task, or nil if the task was not
// part of the run.
func (r *Report) Result(name string) *TaskResult {
	for _, res := range r.Results {
		if res.Name == name {
			return res
		}
	}
	return nil
}

// CountByState tallies results per terminal state.
func (r *Report) CountByState() map[task.State]int {
	counts := make(map[task.State]int)
	for _, res := range r.Results {
		counts[res.State]++
	}
	return counts
}

// sortResults orders results by task name for deterministic reporting.
func sortResults(results []*TaskResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
}
