package graph

import (
	"fmt"
	"strings"
)

// Issue code constants classify each DefinitionIssue by its structural
// category. Codes are stable strings so callers can switch on them without
// matching message text.
const (
	// IssueEmptyName is reported when a task definition has an empty name.
	IssueEmptyName = "EMPTY_TASK_NAME"

	// IssueDuplicateName is reported when two or more tasks share a name.
	IssueDuplicateName = "DUPLICATE_TASK_NAME"

	// IssueUnknownDependency is reported when a task depends on a name that
	// matches no task in the definition set.
	IssueUnknownDependency = "UNKNOWN_DEPENDENCY"

	// IssueSelfDependency is reported when a task lists itself as a
	// dependency (the degenerate one-task cycle).
	IssueSelfDependency = "SELF_DEPENDENCY"
)

// DefinitionIssue describes a single structural problem found in a task
// definition set.
type DefinitionIssue struct {
	// Code is one of the Issue* constants identifying the problem category.
	Code string

	// Task is the name of the task involved, or empty for set-level issues.
	Task string

	// Message is a human-readable description of the problem.
	Message string
}

// DefinitionError aggregates every structural problem found while building a
// graph. Validation is exhaustive: all issues are collected in one pass so
// the user can fix a broken taskfile without replaying build-fail cycles.
type DefinitionError struct {
	Issues []DefinitionIssue
}

// Error returns a multi-line summary of all issues.
func (e *DefinitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid task definitions (%d issues):", len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Task != "" {
			fmt.Fprintf(&b, "\n  [%s] task %q: %s", issue.Code, issue.Task, issue.Message)
		} else {
			fmt.Fprintf(&b, "\n  [%s] %s", issue.Code, issue.Message)
		}
	}
	return b.String()
}

// CycleError reports a dependency cycle. Build stops at the first cycle
// found; Cycle holds the offending task names in dependency order, with the
// starting task repeated at the end to close the loop.
type CycleError struct {
	Cycle []string
}

// Error returns the cycle in "A -> B -> A" form.
func (e *CycleError) Error() string {
	return "cyclic dependency detected: " + strings.Join(e.Cycle, " -> ")
}
