package environment

import (
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	jinja "github.com/deicod/gojinja/runtime"
)

// Names bound in the driver template
const (
	driverNamespace = "macropolo_macros"
	driverArgs      = "macropolo_args"
	driverKwargs    = "macropolo_kwargs"
)

// Options configures an environment
type Options struct {
	Search SearchOptions
	// Filters are registered on every Setup, before any test filter. A test
	// filter of the same name replaces them.
	Filters map[string]Filter
}

// Jinja renders macros with a Jinja2 environment
type Jinja struct {
	state
	opts  Options
	paths []string
}

// NewJinja creates a Jinja environment. Setup must be called before use.
func NewJinja(opts Options) *Jinja {
	return &Jinja{opts: opts}
}

// Setup discovers the template search paths and clears all registrations
func (e *Jinja) Setup() error {
	paths, err := SearchPaths(e.opts.Search)
	if err != nil {
		return err
	}
	e.paths = paths
	e.reset()
	for name, f := range e.opts.Filters {
		e.AddFilter(name, f)
	}
	return nil
}

// SearchPath returns the directories templates are loaded from
func (e *Jinja) SearchPath() []string {
	return append([]string(nil), e.paths...)
}

// RenderMacro imports file into a driver template, calls macro with args and
// kwargs and renders it with the accumulated context.
func (e *Jinja) RenderMacro(file, macro string, args []any, kwargs map[string]any) (*goquery.Document, error) {
	if e.paths == nil {
		return nil, fmt.Errorf("%w: environment is not set up", ErrRender)
	}

	env := jinja.NewEnvironment()
	env.SetLoader(choiceLoader{
		jinja.NewMapLoader(e.mockTemplates()),
		jinja.NewFileSystemLoader(e.paths...),
	})
	for name, f := range e.filters {
		f := f
		env.AddFilter(name, func(ctx *jinja.Context, value interface{}, args ...interface{}) (interface{}, error) {
			out, err := f(value, args...)
			// Markup already safe for html/template is safe here too
			if safe, ok := out.(template.HTML); ok {
				return jinja.Markup(safe), nil
			}
			return out, err
		})
	}

	driver := fmt.Sprintf(`{%% import %q as %s with context %%}{{ %s.%s(*%s, **%s) }}`,
		file, driverNamespace, driverNamespace, macro, driverArgs, driverKwargs)
	tmpl, err := env.NewTemplate(driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrRender, file, macro, err)
	}

	vars := make(map[string]interface{}, len(e.context)+2)
	for k, v := range e.context {
		vars[k] = v
	}
	vars[driverArgs] = append([]interface{}{}, args...)
	dynKwargs := make(map[interface{}]interface{}, len(kwargs))
	for k, v := range kwargs {
		dynKwargs[k] = v
	}
	vars[driverKwargs] = dynKwargs

	out, err := tmpl.ExecuteToString(vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrRender, file, macro, err)
	}
	return Parse(out)
}

// mockTemplates builds one template source per mocked template, each
// defining its mocked macros.
func (e *Jinja) mockTemplates() map[string]string {
	out := make(map[string]string, len(e.templates))
	for name, macros := range e.templates {
		var b strings.Builder
		for _, m := range sortedKeys(macros) {
			fmt.Fprintf(&b, "{%% macro %s %%}%s{%% endmacro %%}\n", macroSignature(m), macros[m])
		}
		out[name] = b.String()
	}
	return out
}

// choiceLoader tries each loader in turn
type choiceLoader []jinja.Loader

func (c choiceLoader) Load(name string) (string, error) {
	var errs []error
	for _, l := range c {
		src, err := l.Load(name)
		if err == nil {
			return src, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
