// Package macropolo tests template macros in isolation. A declarative
// specification names a macro, its arguments, context and mocks, and the
// structural assertions its rendered output must satisfy. Each specification
// becomes a Suite whose tests run as subtests:
//
//	func TestMacros(t *testing.T) {
//		factory, err := macropolo.NewFactory(macropolo.EngineJinja, macropolo.Options{
//			Search: macropolo.SearchOptions{Root: "templates"},
//		})
//		if err != nil {
//			t.Fatal(err)
//		}
//		suites, err := macropolo.LoadSpecsFromDirectory("macro_tests", factory, false)
//		if err != nil {
//			t.Fatal(err)
//		}
//		for _, s := range suites {
//			t.Run(s.Name, s.Run)
//		}
//	}
package macropolo

import (
	"github.com/alevsk/macropolo/internal/assertion"
	"github.com/alevsk/macropolo/internal/environment"
	"github.com/alevsk/macropolo/internal/loader"
	"github.com/alevsk/macropolo/internal/mock"
	"github.com/alevsk/macropolo/internal/spec"
	"github.com/alevsk/macropolo/internal/suite"
)

// Version of the macropolo library
const Version = "0.1.0"

// Suite is the set of tests generated from one specification document
type Suite = suite.Suite

// Test is one generated test procedure
type Test = suite.Test

// Environment renders macros of one template engine
type Environment = environment.Environment

// Unimplemented is an Environment without a template engine
type Unimplemented = environment.Unimplemented

// Factory creates a fresh Environment per test
type Factory = environment.Factory

// Filter is the template filter calling convention
type Filter = environment.Filter

// Engine names a template engine
type Engine = environment.Engine

// Jinja is the Jinja2 Environment
type Jinja = environment.Jinja

// GoTemplate is the html/template Environment
type GoTemplate = environment.GoTemplate

// Preset names a set of filters loaded into every environment
type Preset = environment.Preset

// Options configures an environment
type Options = environment.Options

// SearchOptions configures template discovery
type SearchOptions = environment.SearchOptions

// Specification is a decoded specification document
type Specification = spec.Specification

// ParseError reports a malformed specification document
type ParseError = spec.ParseError

// Stub is a mock callable
type Stub = mock.Stub

// Supported engines
const (
	EngineJinja      = environment.EngineJinja
	EngineGoTemplate = environment.EngineGoTemplate
)

// Filter presets
const (
	PresetNone  = environment.PresetNone
	PresetSheer = environment.PresetSheer
)

// Errors reported by macropolo
var (
	ErrParse                = spec.ErrParse
	ErrAssertionFailed      = assertion.ErrAssertionFailed
	ErrAttributeMissing     = assertion.ErrAttributeMissing
	ErrUnknownAssertionKind = assertion.ErrUnknownAssertionKind
	ErrNotImplemented       = environment.ErrNotImplemented
	ErrExhausted            = mock.ErrExhausted
	ErrDuplicateSuite       = loader.ErrDuplicateSuite
)

// BuildSuite reads the specification at specPath and builds a suite named
// name whose tests render with environments from factory.
func BuildSuite(name string, factory Factory, specPath string) (*Suite, error) {
	return suite.BuildFile(name, factory, specPath)
}

// LoadSpecsFromDirectory builds one suite per .json specification in path,
// descending into subdirectories when recursive is set.
func LoadSpecsFromDirectory(path string, factory Factory, recursive bool) ([]*Suite, error) {
	return loader.LoadDir(path, factory, loader.Options{Recursive: recursive})
}

// NewFactory returns a Factory for the given engine
func NewFactory(engine Engine, opts Options) (Factory, error) {
	return environment.NewFactory(engine, opts)
}

// NewJinja creates a Jinja2 environment
func NewJinja(opts Options) *Jinja {
	return environment.NewJinja(opts)
}

// NewGoTemplate creates an html/template environment
func NewGoTemplate(opts Options) *GoTemplate {
	return environment.NewGoTemplate(opts)
}

// PresetFilters returns the filters of preset, for use as Options.Filters
func PresetFilters(preset Preset) (map[string]Filter, error) {
	return environment.PresetFilters(preset)
}

// NewStub creates a mock callable returning values in order, or a constant
// when given one value.
func NewStub(values ...any) (*Stub, error) {
	return mock.New(values...)
}
