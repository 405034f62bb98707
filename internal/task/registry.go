package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrCallNotFound is returned by Registry.Get when no callable is registered
// under the requested identifier.
var ErrCallNotFound = errors.New("callable not found")

// CallFunc is an in-process task action. It receives the task's declared
// string arguments and a writer for captured output. A non-nil error marks
// the task failed. CallFunc implementations must respect context cancellation.
type CallFunc func(ctx context.Context, args []string, out io.Writer) error

// Registry maps callable identifiers to their CallFunc implementations. The
// process-backed worker pool re-executes the kestrel binary, so both parent
// and worker resolve identifiers against the same registry; only the
// identifier crosses the process boundary, never the function itself.
//
// Registration normally happens at program initialization time, but the
// registry is mutex-guarded so tests can register callables concurrently.
type Registry struct {
	mu    sync.RWMutex
	calls map[string]CallFunc
}

// NewRegistry creates a new, empty Registry.
func NewRegistry() *Registry {
	return &Registry{calls: make(map[string]CallFunc)}
}

// Register adds fn to the registry under name. It panics if fn is nil, name
// is empty, or name is already registered. These are all programming errors
// that should be caught at startup.
func (r *Registry) Register(name string, fn CallFunc) {
	if fn == nil {
		panic("task: Register called with nil callable")
	}
	if name == "" {
		panic("task: Register called with empty callable name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.calls[name]; exists {
		panic(fmt.Sprintf("task: callable %q is already registered", name))
	}
	r.calls[name] = fn
}

// Get returns the callable registered under name. It returns ErrCallNotFound
// (wrapped with the identifier) if nothing is registered for name.
func (r *Registry) Get(name string) (CallFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.calls[name]
	if !ok {
		return nil, fmt.Errorf("callable %q: %w", name, ErrCallNotFound)
	}
	return fn, nil
}

// Has reports whether a callable is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.calls[name]
	return ok
}

// List returns the names of all registered callables in alphabetical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.calls))
	for name := range r.calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the package-level singleton Registry used by the worker
// pool when no explicit registry is configured. Callables are registered into
// it via the package-level Register function, typically from init() functions.
var DefaultRegistry = NewRegistry()

// Register adds fn to DefaultRegistry. See Registry.Register for panic
// conditions.
func Register(name string, fn CallFunc) { DefaultRegistry.Register(name, fn) }

// GetCall returns the callable registered under name in DefaultRegistry.
func GetCall(name string) (CallFunc, error) { return DefaultRegistry.Get(name) }
