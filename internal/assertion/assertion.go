// Package assertion evaluates structural assertions against a rendered HTML
// document.
package assertion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Kind names an assertion
type Kind string

const (
	KindEqual     Kind = "equal"
	KindEquals    Kind = "equals"
	KindNotEqual  Kind = "not equal"
	KindNotEquals Kind = "not equals"
	KindExists    Kind = "exists"
	KindIn        Kind = "in"
	KindNotIn     Kind = "not in"
)

// DefaultKind is used when an assertion names no kind
const DefaultKind = KindExists

// Error types for the assertion package
var (
	ErrAssertionFailed      = fmt.Errorf("assertion failed")
	ErrAttributeMissing     = fmt.Errorf("attribute does not exist")
	ErrUnknownAssertionKind = fmt.Errorf("unknown assertion kind")
	ErrValueRequired        = fmt.Errorf("assertion requires a value")
	ErrInvalidSelector      = fmt.Errorf("invalid selector")
)

// Assertion describes one check against a document
type Assertion struct {
	Selector  string
	Index     int
	Kind      Kind
	Value     any
	Attribute string
}

// multiValued lists HTML attributes holding whitespace separated tokens
var multiValued = map[string]bool{
	"class":          true,
	"rel":            true,
	"rev":            true,
	"headers":        true,
	"accesskey":      true,
	"accept-charset": true,
	"dropzone":       true,
}

// Evaluate selects the match at a.Index and checks it against a.Value. A
// selection with fewer than Index+1 matches evaluates as an empty value.
func Evaluate(doc *goquery.Document, a Assertion) error {
	if a.Kind == "" {
		a.Kind = DefaultKind
	}

	matcher, err := cascadia.Compile(a.Selector)
	if err != nil {
		return a.fail(fmt.Errorf("%w %q: %v", ErrInvalidSelector, a.Selector, err), "")
	}

	sv, err := selectValue(doc.FindMatcher(matcher), a.Index, a.Attribute)
	if err != nil {
		return a.fail(err, "")
	}

	ok, err := check(a.Kind, a.Value, sv)
	if err != nil {
		return a.fail(err, sv.String())
	}
	if !ok {
		return a.fail(nil, sv.String())
	}
	return nil
}

func selectValue(sel *goquery.Selection, index int, attribute string) (selection, error) {
	if index < 0 || index >= sel.Length() {
		return selection{}, nil
	}
	el := sel.Eq(index)

	if attribute == "" {
		markup, err := goquery.OuterHtml(el)
		if err != nil {
			return selection{}, err
		}
		return selection{markup: markup, text: strings.TrimSpace(el.Text()), element: true}, nil
	}

	raw, exists := el.Attr(attribute)
	if !exists {
		return selection{}, fmt.Errorf("%w or is empty: %q", ErrAttributeMissing, attribute)
	}
	if multiValued[strings.ToLower(attribute)] {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			return selection{}, nil
		}
		raw = fields[0]
	}
	return selection{markup: raw, text: raw}, nil
}

// selection is the value an assertion is made about: an attribute value or
// an element compared by its markup and its text.
type selection struct {
	markup  string
	text    string
	element bool
}

func (s selection) String() string {
	return s.markup
}

func (s selection) empty() bool {
	return s.markup == "" && !s.element
}

func (s selection) equals(v string) bool {
	return v == s.markup || (s.element && v == s.text)
}

func (s selection) contains(v string) bool {
	return strings.Contains(s.markup, v) || (s.element && strings.Contains(s.text, v))
}

func check(kind Kind, expected any, sv selection) (bool, error) {
	switch kind {
	case KindEqual, KindEquals:
		v, ok := Text(expected)
		return ok && sv.equals(v), nil
	case KindNotEqual, KindNotEquals:
		v, ok := Text(expected)
		return !(ok && sv.equals(v)), nil
	case KindExists:
		return !sv.empty(), nil
	case KindIn:
		v, ok := Text(expected)
		if !ok {
			return false, ErrValueRequired
		}
		return sv.contains(v), nil
	case KindNotIn:
		v, ok := Text(expected)
		if !ok {
			return false, ErrValueRequired
		}
		return !sv.contains(v), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownAssertionKind, string(kind))
	}
}

// Text returns the canonical text form of an expected value. It reports
// false for a nil value.
func Text(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}
