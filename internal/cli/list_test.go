package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listTaskfile = `
[tasks.build]
description = "compile the project"
deps = ["_gen"]
command = "make"

[tasks.test]
description = "run the test suite"
deps = ["build"]
command = "make test"

[tasks._gen]
description = "regenerate sources"
command = "make gen"
`

func TestList_HidesUnderscoreTasks(t *testing.T) {
	taskfile := writeTestTaskfile(t, listTaskfile)

	out, err := execute(t, "list", "-f", taskfile)
	require.NoError(t, err)

	assert.Contains(t, out, "build")
	assert.Contains(t, out, "compile the project")
	assert.Contains(t, out, "deps: build")
	assert.NotContains(t, out, "_gen")
}

func TestList_AllIncludesHidden(t *testing.T) {
	taskfile := writeTestTaskfile(t, listTaskfile)

	out, err := execute(t, "list", "--all", "-f", taskfile)
	require.NoError(t, err)

	assert.Contains(t, out, "_gen")
	assert.Contains(t, out, "regenerate sources")
}

func TestList_MarksUpToDateTasks(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.src")
	output := filepath.Join(dir, "main.bin")
	require.NoError(t, os.WriteFile(input, []byte("src"), 0o644))
	require.NoError(t, os.WriteFile(output, []byte("bin"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(input, past, past))

	taskfile := writeTestTaskfile(t, fmt.Sprintf(`
[tasks.build]
command = "make"
inputs = [%q]
outputs = [%q]

[tasks.clean]
command = "rm -rf bin"
`, input, output))

	out, err := execute(t, "list", "-f", taskfile)
	require.NoError(t, err)

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "build") {
			assert.Contains(t, line, "up to date")
		}
		if strings.HasPrefix(line, "clean") {
			assert.NotContains(t, line, "up to date")
		}
	}
}

func TestGraph_TopologicalOrder(t *testing.T) {
	taskfile := writeTestTaskfile(t, listTaskfile)

	out, err := execute(t, "graph", "-f", taskfile)
	require.NoError(t, err)

	assert.Contains(t, out, "_gen")
	assert.Contains(t, out, "build <- _gen")
	assert.Contains(t, out, "test <- build")

	// Dependencies print before their dependents.
	assert.Less(t, strings.Index(out, "build <-"), strings.Index(out, "test <-"))
}

func TestGraph_RestrictToTargets(t *testing.T) {
	taskfile := writeTestTaskfile(t, listTaskfile)

	out, err := execute(t, "graph", "build", "-f", taskfile)
	require.NoError(t, err)

	assert.Contains(t, out, "build <- _gen")
	assert.NotContains(t, out, "test")
}
