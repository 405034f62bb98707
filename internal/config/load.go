package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// TaskfileName is the name of the kestrel taskfile.
const TaskfileName = "kestrel.toml"

// FindTaskfile walks up from the given directory to find kestrel.toml.
// Returns the absolute path to the taskfile, or an empty string if not found.
// Stops at the filesystem root.
func FindTaskfile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, TaskfileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root.
			return "", nil
		}
		dir = parent
	}
}

// LoadFromFile parses the TOML taskfile at the given path, applies defaults
// for unset settings, and returns the configuration and TOML metadata. The
// metadata can be used to detect unknown keys via MetaData.Undecoded().
func LoadFromFile(path string) (*Config, toml.MetaData, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, md, fmt.Errorf("loading taskfile %s: %w", path, err)
	}

	// Progress defaults to on; a bare zero value here just means the key was
	// never written.
	if !md.IsDefined("settings", "progress") {
		cfg.Settings.Progress = true
	}
	ApplyDefaults(&cfg)

	return &cfg, md, nil
}
