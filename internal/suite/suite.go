// Package suite turns a specification into named test procedures and runs
// them, either as subtests of a *testing.T or as a plain run collecting
// results.
package suite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/alevsk/macropolo/internal/assertion"
	"github.com/alevsk/macropolo/internal/environment"
	"github.com/alevsk/macropolo/internal/logger"
	"github.com/alevsk/macropolo/internal/mock"
	"github.com/alevsk/macropolo/internal/spec"
	"github.com/alevsk/macropolo/internal/types"
)

// ErrUnknownTest is returned when a procedure name is not part of a suite
var ErrUnknownTest = fmt.Errorf("unknown test")

// Test is one generated test procedure
type Test struct {
	// Name is test_<index><macro_name>
	Name  string
	Macro string
	Skip  bool
	// SkipReason is set for skipped procedures
	SkipReason string

	entry spec.TestEntry
}

// Suite is the set of procedures generated from one specification
type Suite struct {
	Name string
	// File is the template file holding the macros under test
	File string
	// Path is the specification document the suite was built from
	Path  string
	Tests []*Test

	factory environment.Factory
}

// Build creates a suite from a decoded specification. Every procedure builds
// its environment with factory.
func Build(name string, factory environment.Factory, s *spec.Specification) *Suite {
	suite := &Suite{
		Name:    name,
		File:    s.File,
		Path:    s.Path,
		Tests:   make([]*Test, 0, len(s.Tests)),
		factory: factory,
	}
	for i, entry := range s.Tests {
		tc := &Test{
			Name:  fmt.Sprintf("test_%d%s", i, entry.MacroName),
			Macro: entry.MacroName,
			Skip:  entry.Skip,
			entry: entry,
		}
		if entry.Skip {
			tc.SkipReason = "skipping " + entry.MacroName
		}
		suite.Tests = append(suite.Tests, tc)
	}
	return suite
}

// BuildFile reads the specification at path and builds a suite from it
func BuildFile(name string, factory environment.Factory, path string) (*Suite, error) {
	s, err := spec.Load(path)
	if err != nil {
		return nil, err
	}
	return Build(name, factory, s), nil
}

// Names returns the procedure names in declaration order
func (s *Suite) Names() []string {
	names := make([]string, len(s.Tests))
	for i, tc := range s.Tests {
		names[i] = tc.Name
	}
	return names
}

// Lookup finds a procedure by name
func (s *Suite) Lookup(name string) (*Test, bool) {
	for _, tc := range s.Tests {
		if tc.Name == name {
			return tc, true
		}
	}
	return nil, false
}

// Run runs every procedure as a subtest of t
func (s *Suite) Run(t *testing.T) {
	t.Helper()
	for _, tc := range s.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip {
				t.Skip(tc.SkipReason)
			}
			if err := s.run(tc); err != nil {
				t.Fatal(err)
			}
		})
	}
}

// Execute runs every procedure and returns their results. Procedures not
// started before ctx is done are not reported.
func (s *Suite) Execute(ctx context.Context) []types.TestResult {
	log := logger.With("suite")
	results := make([]types.TestResult, 0, len(s.Tests))
	for _, tc := range s.Tests {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Str("suite", s.Name).Msg("Run interrupted")
			break
		}
		results = append(results, s.execute(tc))
	}
	return results
}

// ExecuteTest runs the named procedure
func (s *Suite) ExecuteTest(ctx context.Context, name string) (types.TestResult, error) {
	tc, ok := s.Lookup(name)
	if !ok {
		return types.TestResult{}, fmt.Errorf("%w: %s in suite %s", ErrUnknownTest, name, s.Name)
	}
	if err := ctx.Err(); err != nil {
		return types.TestResult{}, err
	}
	return s.execute(tc), nil
}

func (s *Suite) execute(tc *Test) types.TestResult {
	result := types.TestResult{
		Suite: s.Name,
		Test:  tc.Name,
		Macro: tc.Macro,
		File:  s.File,
	}
	if tc.Skip {
		result.Status = types.StatusSkip
		result.Message = tc.SkipReason
		return result
	}

	start := time.Now()
	err := s.run(tc)
	result.Duration = time.Since(start)

	switch {
	case err == nil:
		result.Status = types.StatusPass
	case errors.Is(err, assertion.ErrAssertionFailed):
		result.Status = types.StatusFail
		result.Message = err.Error()
	default:
		result.Status = types.StatusError
		result.Message = err.Error()
	}

	log := logger.With("suite")
	log.Debug().
		Str("suite", s.Name).
		Str("test", tc.Name).
		Str("status", string(result.Status)).
		Dur("duration", result.Duration).
		Msg("Test finished")
	return result
}

// run is the generated procedure: it configures a fresh environment from
// the entry, renders the macro and evaluates the assertions in order,
// stopping at the first failure.
func (s *Suite) run(tc *Test) error {
	entry := tc.entry

	env, err := s.factory()
	if err != nil {
		return fmt.Errorf("failed to create environment: %w", err)
	}
	if err := env.Setup(); err != nil {
		return fmt.Errorf("failed to set up environment: %w", err)
	}

	for _, name := range sortedKeys(entry.Context) {
		env.AddContext(name, entry.Context[name])
	}

	registry := mock.NewRegistry()
	for _, name := range sortedKeys(entry.MockFilters) {
		if _, err := registry.MockFilter(env, name, entry.MockFilters[name]); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(entry.MockContextFunctions) {
		if _, err := registry.MockContextFunction(env, name, entry.MockContextFunctions[name]); err != nil {
			return err
		}
	}

	for _, template := range sortedKeys(entry.Templates) {
		macros := entry.Templates[template]
		for _, macro := range sortedKeys(macros) {
			env.AddTemplateMacro(template, macro, macros[macro])
		}
	}

	args, kwargs, err := entry.EffectiveArguments()
	if err != nil {
		return err
	}

	doc, err := env.RenderMacro(s.File, entry.MacroName, args, kwargs)
	log := logger.With("suite")
	log.Debug().
		Str("test", tc.Name).
		Strs("stubs", registry.Summary()).
		Msg("Macro rendered")
	if err != nil {
		return err
	}

	for _, as := range entry.Assertions {
		a := as.ToAssertion()
		if err := assertion.Evaluate(doc, a); err != nil {
			return fmt.Errorf("%s failed in macro %s in %s: %w", a.Describe(), entry.MacroName, s.File, err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
