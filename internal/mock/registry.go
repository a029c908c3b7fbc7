package mock

import (
	"fmt"
	"sort"
)

// Target receives stubs. It is satisfied by template environments.
type Target interface {
	AddFilter(name string, filter func(value any, args ...any) (any, error))
	AddContext(name string, value any)
}

// Registry holds the stubs created for a single test procedure.
type Registry struct {
	filters   map[string]*Stub
	functions map[string]*Stub
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		filters:   make(map[string]*Stub),
		functions: make(map[string]*Stub),
	}
}

// MockFilter creates a stub from value and registers it as a filter.
func (r *Registry) MockFilter(t Target, name string, value any) (*Stub, error) {
	s, err := FromValue(value)
	if err != nil {
		return nil, fmt.Errorf("mock filter %q: %w", name, err)
	}
	s.Named("filter " + name)
	r.filters[name] = s
	t.AddFilter(name, s.Filter)
	return s, nil
}

// MockContextFunction creates a stub from value and registers it as a
// callable context value.
func (r *Registry) MockContextFunction(t Target, name string, value any) (*Stub, error) {
	s, err := FromValue(value)
	if err != nil {
		return nil, fmt.Errorf("mock context function %q: %w", name, err)
	}
	s.Named("context function " + name)
	r.functions[name] = s
	t.AddContext(name, s.Call)
	return s, nil
}

// Filter returns the stub registered for a filter
func (r *Registry) Filter(name string) (*Stub, bool) {
	s, ok := r.filters[name]
	return s, ok
}

// ContextFunction returns the stub registered for a context function
func (r *Registry) ContextFunction(name string) (*Stub, bool) {
	s, ok := r.functions[name]
	return s, ok
}

// Summary reports call counts per stub, sorted by name.
func (r *Registry) Summary() []string {
	var out []string
	for name, s := range r.filters {
		out = append(out, fmt.Sprintf("filter %s: %d calls", name, s.Calls()))
	}
	for name, s := range r.functions {
		out = append(out, fmt.Sprintf("context function %s: %d calls", name, s.Calls()))
	}
	sort.Strings(out)
	return out
}
