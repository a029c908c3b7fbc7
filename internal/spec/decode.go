package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a specification document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrParse is wrapped by every ParseError
var ErrParse = fmt.Errorf("malformed specification")

// ParseError reports a specification document that could not be decoded or
// validated.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %v in %s", ErrParse, e.Err, e.Path)
}

// Unwrap exposes ErrParse and the underlying decode error
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormatFor picks the document format from a file extension. Anything that
// is not YAML is read as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and decodes the specification document at path
func Load(path string) (*Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return Decode(data, FormatFor(path), path)
}

// Decode decodes, normalizes and validates a specification document. path
// is only used to annotate errors.
func Decode(data []byte, format Format, path string) (*Specification, error) {
	raw, err := decodeTree(data, format)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	tree, ok := Normalize(raw).(map[string]any)
	if !ok {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("document must be a mapping, got %T", raw)}
	}

	var s Specification
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &s,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := decoder.Decode(tree); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	applyDefaults(&s)

	if err := validate.Struct(&s); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	for _, t := range s.Tests {
		if _, _, err := t.EffectiveArguments(); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}

	s.Path = path
	return &s, nil
}

func decodeTree(data []byte, format Format) (any, error) {
	var raw any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if dec.More() {
			return nil, fmt.Errorf("unexpected data after top-level value")
		}
	}
	return raw, nil
}

func applyDefaults(s *Specification) {
	for i := range s.Tests {
		for j := range s.Tests[i].Assertions {
			a := &s.Tests[i].Assertions[j]
			if a.Assertion == "" {
				a.Assertion = "exists"
			}
		}
	}
}

// Normalize converts a decoded document tree to its canonical form: strings
// (including mapping keys) in Unicode NFC, integral numbers as int64, other
// numbers as float64 and every mapping keyed by string.
func Normalize(v any) any {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[norm.NFC.String(k)] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[norm.NFC.String(fmt.Sprint(k))] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return t
	}
}
