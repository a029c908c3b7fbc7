package environment

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template/parse"

	"github.com/Masterminds/sprig/v3"
	"github.com/PuerkitoBio/goquery"
)

const driverTemplate = "macropolo_driver"

// ArgsKey holds the positional arguments in the data a Go template macro
// receives.
const ArgsKey = "args"

// GoTemplate renders macros defined with {{define}} in html/template files.
// The macro receives a map holding the context, the keyword arguments and
// the positional arguments under ArgsKey. Sprig functions are available and
// filters are registered as template functions taking the piped value last.
// Function names are resolved when a macro executes, so a file may use
// filters that only some of its macros' tests register.
type GoTemplate struct {
	state
	opts  Options
	paths []string
}

// NewGoTemplate creates a Go template environment. Setup must be called
// before use.
func NewGoTemplate(opts Options) *GoTemplate {
	return &GoTemplate{opts: opts}
}

// Setup discovers the template search paths and clears all registrations
func (e *GoTemplate) Setup() error {
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

// RenderMacro parses file and the mock templates and executes the macro
// template with the accumulated context, kwargs and args.
func (e *GoTemplate) RenderMacro(file, macro string, args []any, kwargs map[string]any) (*goquery.Document, error) {
	if e.paths == nil {
		return nil, fmt.Errorf("%w: environment is not set up", ErrRender)
	}

	funcs := sprig.HtmlFuncMap()
	for name, f := range e.filters {
		funcs[name] = pipelineFilter(f)
	}
	root := template.New(driverTemplate).Funcs(funcs)

	src, err := e.source(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrRender, file, macro, err)
	}
	if err := addTrees(root, file, src); err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrRender, file, macro, err)
	}
	// Mocked macros are parsed last so they replace real definitions
	for _, name := range sortedKeys(e.templates) {
		if name == file {
			continue
		}
		if err := addTrees(root, name, e.mockTemplate(name)); err != nil {
			return nil, fmt.Errorf("%w: mock template %s: %v", ErrRender, name, err)
		}
	}
	if _, err := root.Parse(fmt.Sprintf("{{ template %q . }}", macro)); err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrRender, file, macro, err)
	}

	data := make(map[string]any, len(e.context)+len(kwargs)+1)
	for k, v := range e.context {
		data[k] = v
	}
	for k, v := range kwargs {
		data[k] = v
	}
	data[ArgsKey] = append([]any{}, args...)

	var out bytes.Buffer
	if err := root.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrRender, file, macro, err)
	}
	return Parse(out.String())
}

// source returns the mock template registered as file, or the first file of
// that name found in the search paths.
func (e *GoTemplate) source(file string) (string, error) {
	if _, ok := e.templates[file]; ok {
		return e.mockTemplate(file), nil
	}
	var tried []string
	for _, dir := range e.paths {
		path := filepath.Join(dir, file)
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		tried = append(tried, path)
	}
	return "", fmt.Errorf("template %s not found (tried %s)", file, strings.Join(tried, ", "))
}

func (e *GoTemplate) mockTemplate(name string) string {
	var b strings.Builder
	macros := e.templates[name]
	for _, m := range sortedKeys(macros) {
		fmt.Fprintf(&b, "{{define %q}}%s{{end}}\n", macroName(m), macros[m])
	}
	return b.String()
}

// addTrees parses src without checking function names and adds the
// resulting templates to root, replacing definitions of the same name.
func addTrees(root *template.Template, name, src string) error {
	tree := parse.New(name)
	tree.Mode = parse.SkipFuncCheck
	trees := make(map[string]*parse.Tree)
	if _, err := tree.Parse(src, "", "", trees); err != nil {
		return err
	}
	for _, n := range sortedKeys(trees) {
		if _, err := root.AddParseTree(n, trees[n]); err != nil {
			return err
		}
	}
	return nil
}

// pipelineFilter adapts a filter to Go template pipelines, which pass the
// piped value as the last argument.
func pipelineFilter(f Filter) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) == 0 {
			return f(nil)
		}
		return f(args[len(args)-1], args[:len(args)-1]...)
	}
}
