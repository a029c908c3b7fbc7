package environment

import "fmt"

// Engine names a supported template engine
type Engine string

const (
	// EngineJinja renders Jinja2 macros
	EngineJinja Engine = "jinja"
	// EngineGoTemplate renders html/template {{define}} blocks
	EngineGoTemplate Engine = "gotemplate"
)

// Factory creates a fresh, unconfigured environment for every test
// procedure.
type Factory func() (Environment, error)

// ParseEngine converts a string to an Engine
func ParseEngine(s string) (Engine, error) {
	switch Engine(s) {
	case EngineJinja, EngineGoTemplate:
		return Engine(s), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownEngine, s)
	}
}

// NewFactory returns a Factory building environments of the given engine
func NewFactory(engine Engine, opts Options) (Factory, error) {
	switch engine {
	case EngineJinja:
		return func() (Environment, error) { return NewJinja(opts), nil }, nil
	case EngineGoTemplate:
		return func() (Environment, error) { return NewGoTemplate(opts), nil }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}
}
