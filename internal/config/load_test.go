package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTaskfile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, TaskfileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFindTaskfile_WalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeTaskfile(t, root, "")

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindTaskfile(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindTaskfile_NotFound(t *testing.T) {
	found, err := FindTaskfile(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestLoadFromFile_FullTaskfile(t *testing.T) {
	path := writeTaskfile(t, t.TempDir(), `
[settings]
jobs = 4
processes = true
default_targets = ["build"]

[tasks.build]
description = "compile everything"
deps = ["gen"]
command = "make build"
inputs = ["src/**/*.go"]
outputs = ["bin/app"]
timeout = "90s"
retries = 2

[tasks.gen]
argv = ["protoc", "--go_out=.", "api.proto"]
env = ["PATH_PREFIX=/tmp"]
`)

	cfg, _, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Settings.Jobs)
	assert.True(t, cfg.Settings.Processes)
	assert.True(t, cfg.Settings.Progress, "progress defaults to on")
	assert.Equal(t, []string{"build"}, cfg.Settings.DefaultTargets)
	assert.Equal(t, ".kestrel/fingerprints", cfg.Settings.FingerprintDir)

	require.Len(t, cfg.Tasks, 2)
	build := cfg.Tasks["build"]
	assert.Equal(t, "compile everything", build.Description)
	assert.Equal(t, []string{"gen"}, build.Deps)
	assert.Equal(t, "make build", build.Command)
	assert.Equal(t, 90*time.Second, build.Timeout.Std())
	assert.Equal(t, 2, build.Retries)

	gen := cfg.Tasks["gen"]
	assert.Equal(t, []string{"protoc", "--go_out=.", "api.proto"}, gen.Argv)
	assert.Equal(t, []string{"PATH_PREFIX=/tmp"}, gen.Env)
}

func TestLoadFromFile_ProgressExplicitlyOff(t *testing.T) {
	path := writeTaskfile(t, t.TempDir(), `
[settings]
progress = false
`)

	cfg, _, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Settings.Progress)
}

func TestLoadFromFile_BadTOML(t *testing.T) {
	path := writeTaskfile(t, t.TempDir(), `[tasks.build`)

	_, _, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading taskfile")
}

func TestLoadFromFile_BadDuration(t *testing.T) {
	path := writeTaskfile(t, t.TempDir(), `
[tasks.build]
timeout = "ninety seconds"
`)

	_, _, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, ".kestrel/fingerprints", cfg.Settings.FingerprintDir)
	assert.NotNil(t, cfg.Tasks)
}
