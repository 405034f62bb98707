// Package runner executes a validated task graph: it dispatches ready tasks
// to a bounded worker pool (thread- or process-backed), applies the staleness
// policy, propagates failures to downstream dependents, and produces the
// final run report.
package runner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kestrelbuild/kestrel/internal/graph"
	"github.com/kestrelbuild/kestrel/internal/task"
)

// Options configures a single run.
type Options struct {
	// Jobs is the worker pool width. Values below 1 mean "one worker per
	// CPU". A value of 1 yields strictly sequential execution respecting
	// dependency order.
	Jobs int

	// Force bypasses the staleness check: every task's action runs.
	Force bool

	// UseProcesses selects the process-backed pool (fault isolation, true
	// parallel CPU use) instead of the default in-process workers.
	UseProcesses bool

	// Timeout bounds the whole run's wall-clock time. Zero means no limit.
	Timeout time.Duration

	// Checker decides staleness. A nil Checker uses the plain mtime policy
	// with no fingerprint cache.
	Checker *task.Checker

	// Registry resolves in-process callables for the thread backend. Nil
	// means task.DefaultRegistry.
	Registry *task.Registry

	// WorkerArgv overrides the worker command for the process backend.
	// Empty means "this binary with the hidden worker subcommand".
	WorkerArgv []string

	// Events, when non-nil, receives lifecycle events. Sends are
	// non-blocking: a slow consumer drops events but never stalls
	// scheduling.
	Events chan<- Event

	// Logger receives structured scheduling logs. Nil means silent.
	Logger *log.Logger

	// RetryInterval overrides the initial retry backoff interval. Zero
	// keeps the default.
	RetryInterval time.Duration
}

// scheduler drives one run. All graph state mutation happens on the single
// goroutine executing run(); workers only ever see immutable task snapshots
// and report outcomes over a channel, so no lock guards the graph.
type scheduler struct {
	graph   *graph.Graph
	pool    *Pool
	checker *task.Checker
	opts    Options
	logger  *log.Logger

	results    map[string]*TaskResult
	unfinished int
	inflight   int
	aborted    bool
}

// Run executes the graph to completion and returns the run report. It
// returns a non-nil error only for setup problems or a scheduler invariant
// violation; ordinary task failures are expressed in the report, whose
// Success method defines the process exit contract.
//
// Run returns after every task has reached a terminal state, including when
// ctx is cancelled: pending tasks are marked skipped immediately and
// in-flight actions are killed (process groups) or cooperatively cancelled.
func Run(ctx context.Context, g *graph.Graph, opts Options) (*Report, error) {
	if g == nil || g.Len() == 0 {
		return nil, fmt.Errorf("runner: no tasks to run")
	}

	if opts.Jobs < 1 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.Checker == nil {
		opts.Checker = &task.Checker{}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var poolOpts []PoolOption
	if opts.Logger != nil {
		poolOpts = append(poolOpts, WithPoolLogger(opts.Logger))
	}
	if opts.RetryInterval > 0 {
		poolOpts = append(poolOpts, WithRetryInterval(opts.RetryInterval))
	}

	var pool *Pool
	if opts.UseProcesses {
		var err error
		pool, err = NewProcessPool(ctx, opts.Jobs, g.Len(), opts.WorkerArgv, poolOpts...)
		if err != nil {
			return nil, err
		}
	} else {
		pool = NewThreadPool(ctx, opts.Jobs, g.Len(), opts.Registry, poolOpts...)
	}

	s := &scheduler{
		graph:      g,
		pool:       pool,
		checker:    opts.Checker,
		opts:       opts,
		logger:     opts.Logger,
		results:    make(map[string]*TaskResult, g.Len()),
		unfinished: g.Len(),
	}
	return s.run(ctx)
}

func (s *scheduler) run(ctx context.Context) (*Report, error) {
	started := time.Now()
	s.emit(Event{Type: EventRunStarted, Message: fmt.Sprintf("running %d tasks with %d jobs", s.graph.Len(), s.opts.Jobs)})
	s.log("run started", "tasks", s.graph.Len(), "jobs", s.opts.Jobs, "force", s.opts.Force)

	var runErr error
	done := ctx.Done()

	for s.unfinished > 0 {
		s.dispatchReady()
		if s.unfinished == 0 {
			break
		}

		if s.inflight == 0 {
			// No running work and nothing became ready: unreachable on a
			// validated DAG, but fail loudly rather than spin.
			runErr = fmt.Errorf("runner: scheduler stalled with %d unfinished tasks", s.unfinished)
			s.failRemaining(runErr)
			break
		}

		select {
		case out := <-s.pool.Outcomes():
			s.inflight--
			s.handleOutcome(&out)
		case <-done:
			done = nil // only abort once; keep draining outcomes
			s.abort()
		}
	}

	s.pool.Close()

	report := s.buildReport(started)
	s.emit(Event{Type: EventRunCompleted, Message: fmt.Sprintf("run finished: success=%t", report.Success())})
	s.log("run finished", "success", report.Success(), "duration", report.Duration)
	return report, runErr
}

// dispatchReady promotes every Pending task whose predecessor count reached
// zero and either skips it (up to date, or run aborted) or submits it to the
// pool. Skipping resolves successors immediately, so the loop repeats until
// no new task becomes ready.
func (s *scheduler) dispatchReady() {
	for {
		var ready []string
		for _, name := range s.graph.Names() {
			node := s.graph.Node(name)
			if node.State == task.StatePending && node.Pending == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			return
		}

		// Names() is sorted, so dispatch order among simultaneously-ready
		// tasks is lexicographic and reproducible.
		for _, name := range ready {
			node := s.graph.Node(name)
			node.State = task.StateReady
			s.emit(Event{Type: EventTaskReady, Task: name, Message: fmt.Sprintf("task %q ready", name)})

			switch {
			case s.aborted:
				s.finishSkipped(node, task.SkipAborted, "run aborted")
			case !s.checker.IsStale(node.Task, s.opts.Force):
				s.finishSkipped(node, task.SkipUpToDate, "outputs up to date")
			default:
				node.State = task.StateRunning
				s.inflight++
				s.emit(Event{Type: EventTaskStarted, Task: name, Message: fmt.Sprintf("task %q started", name)})
				s.log("task dispatched", "task", name)
				s.pool.Submit(node.Task)
			}
		}
	}
}

// handleOutcome records a worker outcome and updates the graph: successes
// resolve successors, failures cascade skips through every not-yet-started
// descendant.
func (s *scheduler) handleOutcome(out *Outcome) {
	node := s.graph.Node(out.Task)
	result := &TaskResult{
		Name:     out.Task,
		ExitCode: out.ExitCode,
		Output:   out.Stdout,
		Stderr:   out.Stderr,
		Crashed:  out.Crashed,
		Attempts: out.Attempts,
		Duration: out.Duration,
	}

	if out.Failed() {
		node.State = task.StateFailed
		result.State = task.StateFailed
		result.Error = out.Err.Error()
		if out.Crashed {
			if hint := workerCrashHint(out.Stderr); hint != "" {
				result.Error += " (" + hint + ")"
			}
		}
		s.results[out.Task] = result
		s.unfinished--

		s.emit(Event{Type: EventTaskFailed, Task: out.Task, Message: fmt.Sprintf("task %q failed", out.Task), Error: result.Error})
		s.log("task failed", "task", out.Task, "error", result.Error, "attempts", out.Attempts)
		s.skipDescendants(out.Task)
		return
	}

	node.State = task.StateSucceeded
	result.State = task.StateSucceeded
	s.results[out.Task] = result
	s.unfinished--

	if node.Task.Fingerprint && s.checker.Cache != nil {
		if err := s.checker.Cache.Update(node.Task); err != nil {
			s.log("fingerprint update failed", "task", out.Task, "error", err)
		}
	}

	s.emit(Event{Type: EventTaskSucceeded, Task: out.Task, Message: fmt.Sprintf("task %q succeeded", out.Task)})
	s.log("task succeeded", "task", out.Task, "duration", out.Duration)
	s.resolveSuccessors(node)
}

// resolveSuccessors decrements the pending count of every successor after a
// non-failing terminal state.
func (s *scheduler) resolveSuccessors(node *graph.Node) {
	for _, succ := range node.Successors {
		s.graph.Node(succ).Pending--
	}
}

// skipDescendants transitions every not-yet-started transitive successor of
// name to Skipped-due-to-upstream-failure. Downstream work is never attempted
// once an ancestor has failed; unaffected sibling branches keep running.
func (s *scheduler) skipDescendants(name string) {
	for _, succ := range s.graph.Node(name).Successors {
		node := s.graph.Node(succ)
		if node.State != task.StatePending {
			continue // already terminal, or cascade already visited it
		}
		s.finishSkipped(node, task.SkipUpstreamFailure, fmt.Sprintf("dependency %q failed", name))
		s.skipDescendants(succ)
	}
}

// finishSkipped records a terminal skip. Only an up-to-date skip counts as
// non-failing: it resolves successors so dependents still run.
func (s *scheduler) finishSkipped(node *graph.Node, reason task.SkipReason, msg string) {
	name := node.Task.Name
	node.State = task.StateSkipped
	node.Reason = reason
	s.results[name] = &TaskResult{Name: name, State: task.StateSkipped, Reason: reason}
	s.unfinished--

	s.emit(Event{Type: EventTaskSkipped, Task: name, Reason: string(reason), Message: fmt.Sprintf("task %q skipped: %s", name, msg)})
	s.log("task skipped", "task", name, "reason", reason)

	if reason == task.SkipUpToDate {
		s.resolveSuccessors(node)
	}
}

// abort marks the run aborted and immediately skips every task that has not
// started. In-flight tasks are left to the pool: their contexts are already
// cancelled, so they finish (or are killed) and report normally.
func (s *scheduler) abort() {
	s.aborted = true
	s.log("run aborted, skipping pending tasks", "inflight", s.inflight)
	for _, name := range s.graph.Names() {
		node := s.graph.Node(name)
		if node.State == task.StatePending || node.State == task.StateReady {
			s.finishSkipped(node, task.SkipAborted, "run aborted")
		}
	}
}

// failRemaining force-terminates bookkeeping for any non-terminal task after
// a scheduler invariant violation.
func (s *scheduler) failRemaining(cause error) {
	for _, name := range s.graph.Names() {
		node := s.graph.Node(name)
		if node.State.Terminal() {
			continue
		}
		node.State = task.StateFailed
		s.results[name] = &TaskResult{Name: name, State: task.StateFailed, ExitCode: -1, Error: cause.Error()}
		s.unfinished--
	}
}

func (s *scheduler) buildReport(started time.Time) *Report {
	results := make([]*TaskResult, 0, len(s.results))
	for _, res := range s.results {
		results = append(results, res)
	}
	sortResults(results)
	return &Report{
		Results:   results,
		StartedAt: started,
		Duration:  time.Since(started),
		Aborted:   s.aborted,
	}
}

// emit sends ev to the event channel using a non-blocking select so that a
// slow consumer never stalls scheduling. It is a no-op when no channel has
// been configured.
func (s *scheduler) emit(ev Event) {
	if s.opts.Events == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case s.opts.Events <- ev:
	default:
	}
}

func (s *scheduler) log(msg string, kvs ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Debug(msg, kvs...)
}
