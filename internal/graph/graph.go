// Package graph builds and validates the task dependency graph. A Graph is
// constructed once per run from a fully-resolved task definition set, fails
// fast on duplicate names, dangling references, and cycles, and is then owned
// exclusively by the scheduler for the duration of the run.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kestrelbuild/kestrel/internal/task"
)

// Node pairs a task definition with its mutable run state. The structural
// fields (Task, Successors) are fixed at build time; only State, Reason, and
// Pending change during a run, and only under the scheduler's single logical
// thread of control.
type Node struct {
	// Task is the immutable task definition.
	Task *task.Task

	// State is the task's current lifecycle state.
	State task.State

	// Reason qualifies StateSkipped.
	Reason task.SkipReason

	// Pending is the count of dependencies that have not yet reached a
	// terminal state. A Pending of zero makes the node eligible for dispatch.
	Pending int

	// Successors are the names of tasks that depend on this one — the
	// transpose of the declared dependency relation, sorted by name.
	Successors []string
}

// Graph owns the name → Node mapping for one run. The structure (node set,
// edges, successor index) never mutates after Build; only node state fields
// do.
type Graph struct {
	nodes map[string]*Node
	names []string // sorted, for deterministic iteration
}

// Build assembles a validated Graph from task definitions.
//
// It returns a *DefinitionError collecting every duplicate name, empty name,
// self-dependency, and dangling dependency reference found — validation does
// not stop at the first problem. If the definitions are referentially sound
// but cyclic, it returns a *CycleError naming the first cycle found.
func Build(defs []*task.Task) (*Graph, error) {
	var issues []DefinitionIssue

	nodes := make(map[string]*Node, len(defs))
	for i, t := range defs {
		if t.Name == "" {
			issues = append(issues, DefinitionIssue{
				Code:    IssueEmptyName,
				Message: fmt.Sprintf("task at index %d has an empty name", i),
			})
			continue
		}
		if _, exists := nodes[t.Name]; exists {
			issues = append(issues, DefinitionIssue{
				Code:    IssueDuplicateName,
				Task:    t.Name,
				Message: fmt.Sprintf("task name %q appears more than once", t.Name),
			})
			continue
		}
		nodes[t.Name] = &Node{Task: t, State: task.StatePending}
	}

	// Referential integrity. Self-dependencies are flagged here rather than
	// left for cycle detection so the message names the actual mistake.
	for _, t := range defs {
		if t.Name == "" {
			continue
		}
		node, ok := nodes[t.Name]
		if !ok || node.Task != t {
			continue // duplicate entry already flagged
		}
		for _, dep := range t.Dependencies {
			if dep == t.Name {
				issues = append(issues, DefinitionIssue{
					Code:    IssueSelfDependency,
					Task:    t.Name,
					Message: fmt.Sprintf("task %q depends on itself", t.Name),
				})
				continue
			}
			if _, ok := nodes[dep]; !ok {
				issues = append(issues, DefinitionIssue{
					Code:    IssueUnknownDependency,
					Task:    t.Name,
					Message: fmt.Sprintf("task %q depends on unknown task %q", t.Name, dep),
				})
			}
		}
	}

	if len(issues) > 0 {
		return nil, &DefinitionError{Issues: issues}
	}

	g := &Graph{nodes: nodes}
	g.index()

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleError{Cycle: cycle}
	}

	return g, nil
}

// index rebuilds the derived structures: the sorted name list, per-node
// pending counts, and the successor (transpose) adjacency.
func (g *Graph) index() {
	g.names = make([]string, 0, len(g.nodes))
	for name, node := range g.nodes {
		g.names = append(g.names, name)
		node.Pending = len(node.Task.Dependencies)
		node.Successors = nil
	}
	sort.Strings(g.names)

	for _, name := range g.names {
		for _, dep := range g.nodes[name].Task.Dependencies {
			depNode := g.nodes[dep]
			depNode.Successors = append(depNode.Successors, name)
		}
	}
	for _, node := range g.nodes {
		sort.Strings(node.Successors)
	}
}

// findCycle detects a dependency cycle using three-color DFS over the
// dependency edges. It returns the first cycle found as an ordered name list
// closed with the starting task, or nil when the graph is acyclic. Nodes are
// visited in sorted name order so the reported cycle is deterministic.
func (g *Graph) findCycle() []string {
	const (
		colorWhite = 0
		colorGray  = 1 // on current DFS path
		colorBlack = 2
	)

	color := make(map[string]int, len(g.nodes))
	var cycle []string

	var dfs func(name string, path []string) bool
	dfs = func(name string, path []string) bool {
		color[name] = colorGray
		path = append(path, name)

		deps := append([]string(nil), g.nodes[name].Task.Dependencies...)
		sort.Strings(deps)
		for _, dep := range deps {
			switch color[dep] {
			case colorGray:
				// Back-edge: dep is on the current path.
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle = append(append([]string(nil), path[start:]...), dep)
				return true
			case colorWhite:
				if dfs(dep, path) {
					return true
				}
			}
		}

		color[name] = colorBlack
		return false
	}

	for _, name := range g.names {
		if color[name] == colorWhite {
			if dfs(name, nil) {
				return cycle
			}
		}
	}
	return nil
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Names returns all task names in sorted order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// Node returns the node for name, or nil if the task is not in the graph.
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// Tasks returns the task definitions in sorted name order.
func (g *Graph) Tasks() []*task.Task {
	tasks := make([]*task.Task, 0, len(g.names))
	for _, name := range g.names {
		tasks = append(tasks, g.nodes[name].Task)
	}
	return tasks
}

// Restrict returns a new Graph containing only the targets and their
// transitive dependency closure. Task definitions are shared with the
// receiver but run state is fresh. It fails if any target names an unknown
// task; all unknown targets are reported together.
func (g *Graph) Restrict(targets []string) (*Graph, error) {
	var unknown []string
	keep := make(map[string]bool, len(targets))

	var visit func(name string)
	visit = func(name string) {
		if keep[name] {
			return
		}
		keep[name] = true
		for _, dep := range g.nodes[name].Task.Dependencies {
			visit(dep)
		}
	}

	for _, target := range targets {
		if _, ok := g.nodes[target]; !ok {
			unknown = append(unknown, target)
			continue
		}
		visit(target)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown target tasks: %s", strings.Join(unknown, ", "))
	}

	nodes := make(map[string]*Node, len(keep))
	for name := range keep {
		nodes[name] = &Node{Task: g.nodes[name].Task, State: task.StatePending}
	}
	sub := &Graph{nodes: nodes}
	sub.index()
	return sub, nil
}

// TopoOrder returns every task name in a valid execution order: dependencies
// before dependents, ties broken lexicographically (Kahn's algorithm with a
// sorted frontier). The graph is acyclic by construction, so the order always
// covers every node.
func (g *Graph) TopoOrder() []string {
	pending := make(map[string]int, len(g.nodes))
	var frontier []string
	for _, name := range g.names {
		pending[name] = len(g.nodes[name].Task.Dependencies)
		if pending[name] == 0 {
			frontier = append(frontier, name)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(frontier) > 0 {
		sort.Strings(frontier)
		name := frontier[0]
		frontier = frontier[1:]
		order = append(order, name)

		for _, succ := range g.nodes[name].Successors {
			pending[succ]--
			if pending[succ] == 0 {
				frontier = append(frontier, succ)
			}
		}
	}
	return order
}
