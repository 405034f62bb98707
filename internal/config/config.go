// Package config loads and validates the kestrel.toml taskfile: the run
// settings and the declarative task table that the graph builder consumes.
package config

import "time"

// Config is the top-level structure mapping to kestrel.toml.
type Config struct {
	Settings Settings           `toml:"settings"`
	Tasks    map[string]TaskDef `toml:"tasks"`
}

// Settings maps to the [settings] section in kestrel.toml. Command-line flags
// override these values; they exist so a project can commit its preferred
// defaults.
type Settings struct {
	// Jobs is the worker pool width. Zero or negative means one worker per
	// CPU.
	Jobs int `toml:"jobs"`

	// Force bypasses the staleness check for every task.
	Force bool `toml:"force"`

	// Processes selects process-backed workers instead of in-process ones.
	Processes bool `toml:"processes"`

	// Progress controls whether per-task progress lines are rendered.
	Progress bool `toml:"progress"`

	// DefaultTargets are the tasks run when the command line names none.
	DefaultTargets []string `toml:"default_targets"`

	// FingerprintDir is where content fingerprints are cached, relative to
	// the taskfile directory.
	FingerprintDir string `toml:"fingerprint_dir"`
}

// TaskDef maps to a [tasks.<name>] table in kestrel.toml. Exactly one of
// Command, Argv, or Call may be set; a task with none is an aggregate that
// only sequences its dependencies.
type TaskDef struct {
	// Description is shown by `kestrel list`.
	Description string `toml:"description"`

	// Deps are the names of tasks that must complete first.
	Deps []string `toml:"deps"`

	// Command is a shell command line, run via `sh -c`.
	Command string `toml:"command"`

	// Argv is an explicit command vector, run without a shell.
	Argv []string `toml:"argv"`

	// Env holds extra KEY=VALUE pairs for Command/Argv actions.
	Env []string `toml:"env"`

	// Call names a registered in-process callable; Args are its arguments.
	Call string   `toml:"call"`
	Args []string `toml:"args"`

	// Inputs may contain doublestar glob patterns; they are expanded when
	// the taskfile is resolved. Outputs are literal paths (an output that
	// does not exist yet cannot be matched by a glob).
	Inputs  []string `toml:"inputs"`
	Outputs []string `toml:"outputs"`

	// Fingerprint enables content-hash staleness for this task.
	Fingerprint bool `toml:"fingerprint"`

	// Retries is how many times a failing action is retried.
	Retries int `toml:"retries"`

	// Timeout bounds the task's execution, e.g. "90s" or "5m".
	Timeout Duration `toml:"timeout"`
}

// Duration wraps time.Duration so TOML values can be written as strings like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
