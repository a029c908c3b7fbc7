// Package environment provides the template environments macros are rendered
// in. Each supported template engine has one implementation of Environment.
package environment

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Filter is the calling convention of template filters: the filtered value
// followed by the filter arguments.
type Filter = func(value any, args ...any) (any, error)

// Error types for the environment package
var (
	ErrNotImplemented = fmt.Errorf("please compose an environment implementation")
	ErrUnknownEngine  = fmt.Errorf("unknown template engine")
	ErrRender         = fmt.Errorf("render failed")
)

// Environment defines the capabilities needed to render a macro in isolation.
// Implementations of this interface wrap one template engine.
type Environment interface {
	// Setup prepares a fresh environment. It discards all filters, context
	// values and mock templates registered before.
	Setup() error

	// AddFilter registers a filter under name
	AddFilter(name string, filter Filter)

	// AddContext adds name to the render context
	AddContext(name string, value any)

	// AddTemplateMacro registers a mock macro in the named template. Mock
	// templates take precedence over template files of the same name. The
	// macro key is a name, optionally followed by its parameter list, e.g.
	// "star" or "icon(name, size=16)".
	AddTemplateMacro(template, macro, contents string)

	// RenderMacro renders macro from file with the given arguments and
	// returns the parsed output.
	RenderMacro(file, macro string, args []any, kwargs map[string]any) (*goquery.Document, error)
}

// Unimplemented is an Environment without a template engine. Every method
// fails with ErrNotImplemented. It can be embedded by partial implementations.
type Unimplemented struct{}

func (Unimplemented) Setup() error { return ErrNotImplemented }

func (Unimplemented) AddFilter(name string, filter Filter) {}

func (Unimplemented) AddContext(name string, value any) {}

func (Unimplemented) AddTemplateMacro(template, macro, contents string) {}

func (Unimplemented) RenderMacro(file, macro string, args []any, kwargs map[string]any) (*goquery.Document, error) {
	return nil, ErrNotImplemented
}

// state is the registrations shared by every engine
type state struct {
	filters   map[string]Filter
	context   map[string]any
	templates map[string]map[string]string
}

func (s *state) reset() {
	s.filters = make(map[string]Filter)
	s.context = make(map[string]any)
	s.templates = make(map[string]map[string]string)
}

func (s *state) AddFilter(name string, filter Filter) {
	s.filters[name] = filter
}

func (s *state) AddContext(name string, value any) {
	s.context[name] = value
}

func (s *state) AddTemplateMacro(template, macro, contents string) {
	if _, ok := s.templates[template]; !ok {
		s.templates[template] = make(map[string]string)
	}
	s.templates[template][macro] = contents
}

// macroSignature returns the Jinja signature of a mock macro key. A key may
// carry its parameter list, as in "icon(name)"; a bare name takes none.
func macroSignature(key string) string {
	key = strings.TrimSpace(key)
	if strings.Contains(key, "(") {
		return key
	}
	return key + "()"
}

// macroName returns the name of a mock macro key without its parameters
func macroName(key string) string {
	if i := strings.IndexByte(key, '('); i >= 0 {
		key = key[:i]
	}
	return strings.TrimSpace(key)
}

// Parse turns rendered markup into a queryable document
func Parse(markup string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered markup: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}
