package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/kestrelbuild/kestrel/internal/task"
)

// execLocal runs a single attempt of t's action in the current process and
// returns its outcome. Shell actions run as a subprocess in their own process
// group so cancellation kills the whole tree; in-process calls are resolved
// against reg and executed with panic recovery.
func execLocal(ctx context.Context, t *task.Task, reg *task.Registry) Outcome {
	out := Outcome{Task: t.Name}

	switch t.Action.Kind {
	case task.ActionNone:
		// Aggregate task: succeeds as soon as its dependencies did.
		return out

	case task.ActionShell:
		if len(t.Action.Argv) == 0 {
			out.ExitCode = -1
			out.Err = fmt.Errorf("task %q: shell action has empty argv", t.Name)
			return out
		}

		cmd := exec.CommandContext(ctx, t.Action.Argv[0], t.Action.Argv[1:]...)
		if len(t.Action.Env) > 0 {
			cmd.Env = append(os.Environ(), t.Action.Env...)
		}
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		setProcGroup(cmd)

		err := cmd.Run()
		out.Stdout = stdout.String()
		out.Stderr = stderr.String()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				out.ExitCode = exitErr.ExitCode()
				out.Err = fmt.Errorf("task %q: command exited with status %d", t.Name, out.ExitCode)
			} else {
				out.ExitCode = -1
				out.Err = fmt.Errorf("task %q: running command: %w", t.Name, err)
			}
		}
		return out

	case task.ActionCall:
		fn, err := reg.Get(t.Action.Call)
		if err != nil {
			out.ExitCode = -1
			out.Err = fmt.Errorf("task %q: %w", t.Name, err)
			return out
		}

		var buf bytes.Buffer
		if err := safeCall(ctx, fn, t.Action.Args, &buf); err != nil {
			out.ExitCode = -1
			out.Err = fmt.Errorf("task %q: callable %q: %w", t.Name, t.Action.Call, err)
		}
		out.Stdout = buf.String()
		return out

	default:
		out.ExitCode = -1
		out.Err = fmt.Errorf("task %q: unknown action kind %q", t.Name, t.Action.Kind)
		return out
	}
}

// safeCall invokes fn wrapped in a recover() block so that panicking
// callables are converted to errors rather than crashing the worker.
func safeCall(ctx context.Context, fn task.CallFunc, args []string, out *bytes.Buffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panicked: %v", r)
		}
	}()
	return fn(ctx, args, out)
}
