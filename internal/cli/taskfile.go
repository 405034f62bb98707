package cli

import (
	"fmt"
	"path/filepath"

	"github.com/kestrelbuild/kestrel/internal/config"
	"github.com/kestrelbuild/kestrel/internal/graph"
	"github.com/kestrelbuild/kestrel/internal/logging"
	"github.com/kestrelbuild/kestrel/internal/task"
)

// loadedTaskfile bundles everything the commands need from one taskfile:
// the parsed settings, the resolved tasks, and the built graph.
type loadedTaskfile struct {
	Path   string
	Dir    string
	Config *config.Config
	Tasks  []*task.Task
	Graph  *graph.Graph
}

// loadTaskfile locates, parses, validates, and resolves the taskfile, then
// builds the dependency graph. Validation warnings are logged; validation
// errors, resolution errors, and graph errors (duplicates, dangling deps,
// cycles) all abort with a single combined message.
func loadTaskfile() (*loadedTaskfile, error) {
	logger := logging.New("config")

	path := flagTaskfile
	if path == "" {
		found, err := config.FindTaskfile(".")
		if err != nil {
			return nil, err
		}
		if found == "" {
			return nil, fmt.Errorf("no %s found in this directory or any parent", config.TaskfileName)
		}
		path = found
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving taskfile path: %w", err)
	}

	cfg, md, err := config.LoadFromFile(abs)
	if err != nil {
		return nil, err
	}
	if len(cfg.Tasks) == 0 {
		return nil, fmt.Errorf("%s defines no tasks", abs)
	}

	result := config.Validate(cfg, &md)
	for _, issue := range result.Issues {
		if issue.Severity == config.SeverityWarning {
			logger.Warn(issue.Message, "field", issue.Field)
		}
	}
	if result.HasErrors() {
		msg := ""
		for _, issue := range result.Errors() {
			msg += fmt.Sprintf("\n  %s: %s", issue.Field, issue.Message)
		}
		return nil, fmt.Errorf("invalid taskfile %s:%s", abs, msg)
	}

	dir := filepath.Dir(abs)
	tasks, err := config.Resolve(cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("resolving taskfile %s: %w", abs, err)
	}

	g, err := graph.Build(tasks)
	if err != nil {
		return nil, fmt.Errorf("invalid task graph in %s: %w", abs, err)
	}

	return &loadedTaskfile{Path: abs, Dir: dir, Config: cfg, Tasks: tasks, Graph: g}, nil
}
