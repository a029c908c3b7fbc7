package assertion

import (
	"fmt"
	"strings"
)

// Failure reports an assertion that did not hold. It unwraps to
// ErrAssertionFailed and, when present, the underlying cause.
type Failure struct {
	Assertion Assertion
	// Actual is the selected value the assertion was made about
	Actual string
	// Cause is set when the assertion could not be evaluated
	Cause error
}

func (a Assertion) fail(cause error, actual string) *Failure {
	return &Failure{Assertion: a, Actual: actual, Cause: cause}
}

// Error implements error
func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(ErrAssertionFailed.Error())
	if f.Cause != nil {
		b.WriteString(": ")
		b.WriteString(f.Cause.Error())
		return b.String()
	}
	fmt.Fprintf(&b, ": selection %q at index %d", f.Assertion.Selector, f.Assertion.Index)
	if f.Assertion.Attribute != "" {
		fmt.Fprintf(&b, " attribute %q", f.Assertion.Attribute)
	}
	fmt.Fprintf(&b, " is %q", f.Actual)
	return b.String()
}

// Unwrap exposes ErrAssertionFailed and the cause to errors.Is
func (f *Failure) Unwrap() []error {
	if f.Cause == nil {
		return []error{ErrAssertionFailed}
	}
	return []error{ErrAssertionFailed, f.Cause}
}

// Describe renders the assertion the way a failing test reports it:
// `"<value>" "<kind>" "<selector>" selection`.
func (a Assertion) Describe() string {
	var b strings.Builder
	if v, ok := Text(a.Value); ok && v != "" {
		fmt.Fprintf(&b, "%q ", v)
	}
	kind := a.Kind
	if kind == "" {
		kind = DefaultKind
	}
	fmt.Fprintf(&b, "%q %q selection", string(kind), a.Selector)
	return b.String()
}
