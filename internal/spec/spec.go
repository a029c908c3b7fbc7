// Package spec defines the declarative macro test specification and decodes
// it from JSON or YAML documents.
package spec

import (
	"fmt"

	"github.com/alevsk/macropolo/internal/assertion"
)

// Specification is the root of one specification document. It describes the
// tests for the macros of a single template file.
type Specification struct {
	File  string      `mapstructure:"file" validate:"required"`
	Tests []TestEntry `mapstructure:"tests" validate:"required,min=1,dive"`

	// Path is the document the specification was read from
	Path string `mapstructure:"-"`
}

// TestEntry is one macro invocation and its expectations.
type TestEntry struct {
	MacroName string `mapstructure:"macro_name" validate:"required"`
	// Arguments is either a list of positional arguments or a mapping used as
	// keyword arguments.
	Arguments            any                          `mapstructure:"arguments"`
	KeywordArguments     map[string]any               `mapstructure:"keyword_arguments"`
	Context              map[string]any               `mapstructure:"context"`
	MockFilters          map[string]any               `mapstructure:"mock_filters"`
	MockContextFunctions map[string]any               `mapstructure:"mock_context_functions"`
	Templates            map[string]map[string]string `mapstructure:"templates"`
	Assertions           []AssertionSpec              `mapstructure:"assertions" validate:"dive"`
	Skip                 bool                         `mapstructure:"skip"`
}

// AssertionSpec is one structural assertion about the rendered macro.
type AssertionSpec struct {
	Selector  string `mapstructure:"selector" validate:"required"`
	Index     int    `mapstructure:"index" validate:"min=0"`
	Assertion string `mapstructure:"assertion"`
	Value     any    `mapstructure:"value"`
	Attribute string `mapstructure:"attribute"`
}

// EffectiveArguments resolves the positional and keyword arguments of the
// entry. A mapping in Arguments is used as the keyword arguments and leaves
// no positional arguments.
func (t TestEntry) EffectiveArguments() ([]any, map[string]any, error) {
	switch args := t.Arguments.(type) {
	case nil:
		return []any{}, orEmpty(t.KeywordArguments), nil
	case map[string]any:
		return []any{}, args, nil
	case []any:
		return args, orEmpty(t.KeywordArguments), nil
	default:
		return nil, nil, fmt.Errorf("arguments of macro %s must be a list or a mapping, got %T", t.MacroName, args)
	}
}

// ToAssertion converts the spec into an evaluable assertion
func (a AssertionSpec) ToAssertion() assertion.Assertion {
	kind := assertion.Kind(a.Assertion)
	if kind == "" {
		kind = assertion.DefaultKind
	}
	return assertion.Assertion{
		Selector:  a.Selector,
		Index:     a.Index,
		Kind:      kind,
		Value:     a.Value,
		Attribute: a.Attribute,
	}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
