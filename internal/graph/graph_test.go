package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelbuild/kestrel/internal/task"
)

// defs is a shorthand for building a definition list from name → deps pairs.
func defs(pairs map[string][]string) []*task.Task {
	var out []*task.Task
	for name, deps := range pairs {
		out = append(out, &task.Task{Name: name, Dependencies: deps})
	}
	return out
}

func TestBuild_ValidGraph(t *testing.T) {
	// A -> B, A -> C, B -> D, C -> D (A depends on B and C, ...)
	g, err := Build(defs(map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": nil,
	}))
	require.NoError(t, err)

	assert.Equal(t, 4, g.Len())
	assert.Equal(t, []string{"A", "B", "C", "D"}, g.Names())

	// Successor index is the exact transpose of the dependency relation.
	assert.Empty(t, g.Node("A").Successors)
	assert.Equal(t, []string{"A"}, g.Node("B").Successors)
	assert.Equal(t, []string{"A"}, g.Node("C").Successors)
	assert.Equal(t, []string{"B", "C"}, g.Node("D").Successors)

	// Pending counts mirror declared dependency counts.
	assert.Equal(t, 2, g.Node("A").Pending)
	assert.Equal(t, 0, g.Node("D").Pending)

	// Every node starts Pending.
	for _, name := range g.Names() {
		assert.Equal(t, task.StatePending, g.Node(name).State)
	}
}

func TestBuild_CollectsAllDefinitionIssues(t *testing.T) {
	definitions := []*task.Task{
		{Name: "A", Dependencies: []string{"MISSING", "A"}},
		{Name: "B"},
		{Name: "B"},
		{Name: ""},
	}

	_, err := Build(definitions)
	require.Error(t, err)

	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	require.Len(t, defErr.Issues, 4)

	codes := make(map[string]int)
	for _, issue := range defErr.Issues {
		codes[issue.Code]++
	}
	assert.Equal(t, 1, codes[IssueUnknownDependency])
	assert.Equal(t, 1, codes[IssueSelfDependency])
	assert.Equal(t, 1, codes[IssueDuplicateName])
	assert.Equal(t, 1, codes[IssueEmptyName])

	assert.Contains(t, err.Error(), `task "A" depends on unknown task "MISSING"`)
}

func TestBuild_DirectCycle(t *testing.T) {
	_, err := Build(defs(map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}))
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, "cyclic dependency detected: A -> B -> A", cycleErr.Error())
}

func TestBuild_LongCycle(t *testing.T) {
	_, err := Build(defs(map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
	}))
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "B", "C", "A"}, cycleErr.Cycle)
}

func TestBuild_CycleInDisconnectedComponent(t *testing.T) {
	_, err := Build(defs(map[string][]string{
		"ok":    nil,
		"loop1": {"loop2"},
		"loop2": {"loop1"},
	}))

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Contains(t, cycleErr.Cycle, "loop1")
	assert.Contains(t, cycleErr.Cycle, "loop2")
}

func TestRestrict_TransitiveClosure(t *testing.T) {
	g, err := Build(defs(map[string][]string{
		"upload": {"build"},
		"build":  {"gen"},
		"gen":    nil,
		"lint":   nil,
	}))
	require.NoError(t, err)

	sub, err := g.Restrict([]string{"upload"})
	require.NoError(t, err)

	assert.Equal(t, []string{"build", "gen", "upload"}, sub.Names())
	assert.Nil(t, sub.Node("lint"))

	// The restricted graph carries fresh run state and a rebuilt transpose.
	assert.Equal(t, []string{"upload"}, sub.Node("build").Successors)
	assert.Equal(t, 1, sub.Node("upload").Pending)
}

func TestRestrict_UnknownTargets(t *testing.T) {
	g, err := Build(defs(map[string][]string{"A": nil}))
	require.NoError(t, err)

	_, err = g.Restrict([]string{"Z", "A", "Q"})
	require.Error(t, err)
	assert.EqualError(t, err, "unknown target tasks: Q, Z")
}

func TestTopoOrder_DependenciesFirstLexicographicTies(t *testing.T) {
	g, err := Build(defs(map[string][]string{
		"test":  {"build"},
		"build": nil,
		"lint":  nil,
	}))
	require.NoError(t, err)

	// build and lint are both roots; the tie-break is lexicographic, and
	// test follows build.
	assert.Equal(t, []string{"build", "lint", "test"}, g.TopoOrder())
}

func TestTopoOrder_CoversDiamond(t *testing.T) {
	g, err := Build(defs(map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": nil,
	}))
	require.NoError(t, err)

	order := g.TopoOrder()
	require.Len(t, order, 4)

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["D"], pos["B"])
	assert.Less(t, pos["D"], pos["C"])
	assert.Less(t, pos["B"], pos["A"])
	assert.Less(t, pos["C"], pos["A"])
}
