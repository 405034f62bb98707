package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelbuild/kestrel/internal/task"
)

// actionRunner executes a single attempt of a task's action. The thread
// backend runs the action in-process; the process backend hands it to an
// isolated worker process.
type actionRunner func(ctx context.Context, t *task.Task) Outcome

// Pool is a bounded set of execution slots that run task actions. At most
// jobs actions execute concurrently, and every submitted task eventually
// yields exactly one Outcome on the Outcomes channel.
//
// Submissions are buffered up to the queue capacity given at construction
// (typically the graph size), so Submit never blocks the scheduler.
type Pool struct {
	jobs          int
	runOnce       actionRunner
	retryInterval time.Duration
	logger        *log.Logger

	tasks    chan *task.Task
	outcomes chan Outcome
	group    *errgroup.Group
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger attaches a structured logger to the pool. When nil the pool
// operates silently.
func WithPoolLogger(logger *log.Logger) PoolOption {
	return func(p *Pool) { p.logger = logger }
}

// WithRetryInterval overrides the initial backoff interval between retry
// attempts (default 500ms). Useful in tests.
func WithRetryInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.retryInterval = d }
}

// newPool creates a pool with jobs worker goroutines draining the submission
// queue, each executing attempts through runOnce. Workers exit when Close is
// called and the queue drains; the outcome channel is closed after the last
// worker exits.
func newPool(ctx context.Context, jobs, queue int, runOnce actionRunner, opts ...PoolOption) *Pool {
	if jobs < 1 {
		jobs = 1
	}
	p := &Pool{
		jobs:          jobs,
		runOnce:       runOnce,
		retryInterval: 500 * time.Millisecond,
		tasks:         make(chan *task.Task, queue),
		outcomes:      make(chan Outcome, queue),
	}
	for _, opt := range opts {
		opt(p)
	}

	// The errgroup carries no cross-worker cancellation: a failing task is a
	// normal outcome, not a pool error. Workers only stop when the queue is
	// closed and drained.
	p.group = &errgroup.Group{}
	for i := 0; i < jobs; i++ {
		p.group.Go(func() error {
			for t := range p.tasks {
				p.outcomes <- p.execute(ctx, t)
			}
			return nil
		})
	}
	return p
}

// NewThreadPool creates a pool whose workers run actions in-process
// (goroutines). Shell actions still shell out to subprocesses; "thread"
// refers to where the dispatch and capture logic lives. In-process calls are
// resolved against reg.
func NewThreadPool(ctx context.Context, jobs, queue int, reg *task.Registry, opts ...PoolOption) *Pool {
	if reg == nil {
		reg = task.DefaultRegistry
	}
	runOnce := func(ctx context.Context, t *task.Task) Outcome {
		return execLocal(ctx, t, reg)
	}
	return newPool(ctx, jobs, queue, runOnce, opts...)
}

// NewProcessPool creates a pool whose workers run each action inside an
// isolated worker process (workerArgv, by default the current binary invoked
// with the hidden "worker" subcommand). A crashing action cannot corrupt the
// scheduler; abnormal worker death is reported as a Crashed outcome.
func NewProcessPool(ctx context.Context, jobs, queue int, workerArgv []string, opts ...PoolOption) (*Pool, error) {
	if len(workerArgv) == 0 {
		var err error
		workerArgv, err = selfWorkerArgv()
		if err != nil {
			return nil, err
		}
	}
	runOnce := func(ctx context.Context, t *task.Task) Outcome {
		return execWorker(ctx, t, workerArgv)
	}
	return newPool(ctx, jobs, queue, runOnce, opts...), nil
}

// Submit queues t for execution. It must not be called after Close. The
// queue capacity is sized to the graph, so Submit never blocks during a run.
func (p *Pool) Submit(t *task.Task) {
	p.tasks <- t
}

// Outcomes returns the channel on which completed task outcomes are
// delivered. The channel is closed after Close once all in-flight work has
// finished.
func (p *Pool) Outcomes() <-chan Outcome {
	return p.outcomes
}

// Close marks the pool as done accepting submissions. In-flight tasks run to
// completion; the outcome channel closes once the last worker exits.
func (p *Pool) Close() {
	close(p.tasks)
	go func() {
		p.group.Wait() //nolint:errcheck
		close(p.outcomes)
	}()
}

// execute runs t to a final outcome, applying the per-task timeout and the
// retry policy. A failing attempt is retried up to t.Retries times with
// exponential backoff; crashes and timeouts are not retried, since they
// indicate an environment fault or an exhausted budget rather than a flaky
// action.
func (p *Pool) execute(ctx context.Context, t *task.Task) Outcome {
	runCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := time.Now()
	attempts := 0
	var out Outcome

	operation := func() error {
		attempts++
		out = p.runOnce(runCtx, t)
		if out.Err == nil {
			return nil
		}
		p.log("attempt failed", "task", t.Name, "attempt", attempts, "error", out.Err)
		if out.Crashed || runCtx.Err() != nil {
			return backoff.Permanent(out.Err)
		}
		return out.Err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(t.Retries)), runCtx)
	backoff.Retry(operation, policy) //nolint:errcheck // the outcome carries the final error

	if attempts == 0 {
		// Cancelled before the first attempt could run.
		out = Outcome{Task: t.Name, ExitCode: -1, Err: runCtx.Err()}
	}
	if runCtx.Err() == context.DeadlineExceeded && out.Err != nil {
		out.Err = fmt.Errorf("task %q: timed out after %s: %w", t.Name, t.Timeout, out.Err)
	}

	out.Task = t.Name
	out.Attempts = attempts
	out.Duration = time.Since(start)
	return out
}

func (p *Pool) log(msg string, kvs ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Debug(msg, kvs...)
}
