package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kestrelbuild/kestrel/internal/task"
)

// Resolve turns the taskfile's declarative task table into concrete tasks.
// Input globs are expanded relative to baseDir (the taskfile's directory);
// output paths are always literal, since an output that has not been produced
// yet cannot match a glob. Tasks are returned in name order.
func Resolve(cfg *Config, baseDir string) ([]*task.Task, error) {
	names := make([]string, 0, len(cfg.Tasks))
	for name := range cfg.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	tasks := make([]*task.Task, 0, len(names))
	for _, name := range names {
		def := cfg.Tasks[name]

		inputs, err := expandInputs(def.Inputs, baseDir)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", name, err)
		}

		outputs := make([]string, 0, len(def.Outputs))
		for _, out := range def.Outputs {
			outputs = append(outputs, joinBase(baseDir, out))
		}

		tasks = append(tasks, &task.Task{
			Name:         name,
			Description:  def.Description,
			Dependencies: append([]string(nil), def.Deps...),
			Action:       resolveAction(def),
			Inputs:       inputs,
			Outputs:      outputs,
			Fingerprint:  def.Fingerprint,
			Retries:      def.Retries,
			Timeout:      def.Timeout.Std(),
		})
	}
	return tasks, nil
}

func resolveAction(def TaskDef) task.Action {
	switch {
	case def.Call != "":
		return task.Action{
			Kind: task.ActionCall,
			Call: def.Call,
			Args: append([]string(nil), def.Args...),
		}
	case len(def.Argv) > 0:
		return task.Action{
			Kind: task.ActionShell,
			Argv: append([]string(nil), def.Argv...),
			Env:  append([]string(nil), def.Env...),
		}
	case def.Command != "":
		return task.Action{
			Kind: task.ActionShell,
			Argv: []string{"sh", "-c", def.Command},
			Env:  append([]string(nil), def.Env...),
		}
	default:
		return task.Action{Kind: task.ActionNone}
	}
}

// expandInputs resolves glob patterns against baseDir. Plain paths (no glob
// metacharacters) pass through literally so a missing input still shows up in
// the staleness check instead of silently matching nothing.
func expandInputs(patterns []string, baseDir string) ([]string, error) {
	var inputs []string
	for _, pattern := range patterns {
		if !hasGlobMeta(pattern) {
			inputs = append(inputs, joinBase(baseDir, pattern))
			continue
		}
		matches, err := doublestar.FilepathGlob(joinBase(baseDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", pattern, err)
		}
		inputs = append(inputs, matches...)
	}
	sort.Strings(inputs)
	return inputs, nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func joinBase(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
