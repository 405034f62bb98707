package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kestrelbuild/kestrel/internal/task"
)

// The process-backed pool isolates each action attempt in a worker process:
// the parent re-executes its own binary with the hidden "worker" subcommand,
// writes one workerRequest as JSON to the child's stdin, and reads one
// workerResponse as JSON from the child's stdout. The action's own output is
// captured by the child and embedded in the response, so the pipe carries
// nothing but the envelope. The child exits 0 even when the action fails; a
// non-zero exit or an unreadable response therefore always means the worker
// itself crashed.

// workerRequest is the dispatch payload sent to a worker process.
type workerRequest struct {
	Task *task.Task `json:"task"`
}

// workerResponse is the outcome payload a worker process reports back.
type workerResponse struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	Error    string `json:"error,omitempty"`
}

// selfWorkerArgv returns the default worker command: this binary invoked with
// the hidden worker subcommand.
func selfWorkerArgv() ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating own binary for process workers: %w", err)
	}
	return []string{exe, "worker"}, nil
}

// execWorker runs a single attempt of t's action in a worker process spawned
// from workerArgv. The worker runs in its own process group so cancellation
// kills the action's whole process tree.
func execWorker(ctx context.Context, t *task.Task, workerArgv []string) Outcome {
	out := Outcome{Task: t.Name}

	payload, err := json.Marshal(workerRequest{Task: t})
	if err != nil {
		out.ExitCode = -1
		out.Err = fmt.Errorf("task %q: encoding worker request: %w", t.Name, err)
		return out
	}

	cmd := exec.CommandContext(ctx, workerArgv[0], workerArgv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcGroup(cmd)

	runErr := cmd.Run()

	var resp workerResponse
	decodeErr := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp)

	if runErr != nil || decodeErr != nil {
		// The worker died or did not produce a well-formed response. This is
		// an execution-environment fault, distinct from a clean action
		// failure.
		out.ExitCode = -1
		out.Crashed = true
		out.Stderr = stderr.String()
		switch {
		case runErr != nil:
			out.Err = fmt.Errorf("task %q: worker crashed: %w", t.Name, runErr)
		default:
			out.Err = fmt.Errorf("task %q: worker produced unreadable response: %w", t.Name, decodeErr)
		}
		return out
	}

	out.ExitCode = resp.ExitCode
	out.Stdout = resp.Stdout
	out.Stderr = resp.Stderr
	if resp.Error != "" {
		out.Err = errors.New(resp.Error)
	}
	return out
}

// ServeWorker implements the worker side of the protocol: it decodes one
// request from in, executes the action locally, and encodes one response to
// out. It is called by the hidden worker subcommand. The returned error
// covers protocol failures only; action failures are reported inside the
// response with a zero process exit.
func ServeWorker(ctx context.Context, in io.Reader, out io.Writer, reg *task.Registry) error {
	var req workerRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("worker: decoding request: %w", err)
	}
	if req.Task == nil {
		return fmt.Errorf("worker: request carries no task")
	}
	if reg == nil {
		reg = task.DefaultRegistry
	}

	result := execLocal(ctx, req.Task, reg)

	resp := workerResponse{
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	enc := json.NewEncoder(out)
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("worker: encoding response: %w", err)
	}
	return nil
}

// workerCrashHint extracts a short diagnostic from a crashed worker's stderr
// for inclusion in the run report.
func workerCrashHint(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return ""
	}
	return lines[len(lines)-1]
}
