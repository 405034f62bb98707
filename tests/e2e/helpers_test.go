package e2e_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// testProject is an isolated project directory with a kestrel.toml and a
// freshly built kestrel binary.
type testProject struct {
	Dir        string
	BinaryPath string
	t          *testing.T
}

// newTestProject builds the kestrel binary into a fresh temp directory and
// returns a testProject ready for use. Must be called from a test function;
// uses t.Helper() to mark itself accordingly.
func newTestProject(t *testing.T) *testProject {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("E2E tests with sh actions are not supported on Windows")
	}

	dir := t.TempDir()

	binary := filepath.Join(dir, "kestrel")
	build := exec.Command("go", "build", "-o", binary, "./cmd/kestrel")
	build.Dir = projectRoot()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "building kestrel: %s", string(out))

	return &testProject{Dir: dir, BinaryPath: binary, t: t}
}

// projectRoot returns the absolute path to the root of the kestrel repository.
// It uses runtime.Caller(0) to find this source file's location and navigates
// two directories up (tests/e2e/ -> tests/ -> repo root).
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// writeTaskfile writes content to kestrel.toml in tp.Dir.
func (tp *testProject) writeTaskfile(content string) {
	tp.t.Helper()
	err := os.WriteFile(filepath.Join(tp.Dir, "kestrel.toml"), []byte(content), 0o644)
	require.NoError(tp.t, err)
}

// writeFile writes a project file relative to tp.Dir.
func (tp *testProject) writeFile(rel, content string) {
	tp.t.Helper()
	path := filepath.Join(tp.Dir, rel)
	require.NoError(tp.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tp.t, os.WriteFile(path, []byte(content), 0o644))
}

// readFile reads a project file relative to tp.Dir.
func (tp *testProject) readFile(rel string) string {
	tp.t.Helper()
	data, err := os.ReadFile(filepath.Join(tp.Dir, rel))
	require.NoError(tp.t, err)
	return string(data)
}

// run creates an exec.Cmd for kestrel rooted in the project directory.
func (tp *testProject) run(args ...string) *exec.Cmd {
	cmd := exec.Command(tp.BinaryPath, args...)
	cmd.Dir = tp.Dir
	cmd.Env = append(os.Environ(),
		"NO_COLOR=1",              // disable ANSI color in output
		"KESTREL_LOG_FORMAT=json", // structured logs for easier parsing
	)
	return cmd
}

// runExpectSuccess runs kestrel and asserts exit code 0.
// Returns combined stdout+stderr output.
func (tp *testProject) runExpectSuccess(args ...string) string {
	tp.t.Helper()
	cmd := tp.run(args...)
	out, err := cmd.CombinedOutput()
	require.NoError(tp.t, err, "kestrel %v failed:\n%s", args, string(out))
	return string(out)
}

// runExpectFailure runs kestrel and asserts a non-zero exit code.
// Returns combined output and the exit code.
func (tp *testProject) runExpectFailure(args ...string) (string, int) {
	tp.t.Helper()
	cmd := tp.run(args...)
	out, err := cmd.CombinedOutput()
	require.Error(tp.t, err, "kestrel %v expected to fail but succeeded:\n%s", args, string(out))
	var exitErr *exec.ExitError
	require.True(tp.t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
	return string(out), exitErr.ExitCode()
}
