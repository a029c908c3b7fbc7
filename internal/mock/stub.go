// Package mock provides stub callables with fixed or sequenced return values
// used in place of template filters, context functions and macros.
package mock

import (
	"fmt"
	"sync"
)

// Error types for the mock package
var (
	ErrNoValues  = fmt.Errorf("stub requires at least one value")
	ErrExhausted = fmt.Errorf("stub sequence exhausted")
)

// Stub is a callable that returns a constant value or an ordered sequence of
// values, one per invocation.
type Stub struct {
	name     string
	values   []any
	sequence bool

	mu   sync.Mutex
	args [][]any
}

// New creates a stub. A single value is returned on every call; several
// values are returned in order, one per call.
func New(values ...any) (*Stub, error) {
	if len(values) == 0 {
		return nil, ErrNoValues
	}
	return &Stub{
		values:   append([]any(nil), values...),
		sequence: len(values) > 1,
	}, nil
}

// FromValue creates a stub from a declared mock value: a list becomes a
// sequence, anything else a constant.
func FromValue(v any) (*Stub, error) {
	if list, ok := v.([]any); ok {
		return New(list...)
	}
	return New(v)
}

// Named returns the stub with a name used in error messages.
func (s *Stub) Named(name string) *Stub {
	s.name = name
	return s
}

// Call records the invocation and returns the next value. Calling a sequence
// stub more times than it has values returns ErrExhausted.
func (s *Stub) Call(args ...any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.args)
	s.args = append(s.args, append([]any(nil), args...))

	if !s.sequence {
		return s.values[0], nil
	}
	if n >= len(s.values) {
		return nil, fmt.Errorf("%w: %s called %d times, %d values declared",
			ErrExhausted, s.label(), n+1, len(s.values))
	}
	return s.values[n], nil
}

// Filter adapts the stub to the filter calling convention.
func (s *Stub) Filter(value any, args ...any) (any, error) {
	return s.Call(append([]any{value}, args...)...)
}

// Calls returns how many times the stub was invoked.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.args)
}

// Args returns the arguments of every invocation, in call order.
func (s *Stub) Args() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.args))
	copy(out, s.args)
	return out
}

// Values returns the declared return values.
func (s *Stub) Values() []any {
	return append([]any(nil), s.values...)
}

func (s *Stub) label() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}
