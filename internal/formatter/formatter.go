package formatter

import (
	"encoding/json"
	"fmt"

	"github.com/alevsk/macropolo/internal/types"
	"gopkg.in/yaml.v3"
)

// Formatter defines the interface for formatting data
type Formatter interface {
	Format(report types.Report) (string, error)
}

// Options configures a formatter
type Options struct {
	// IncludeMetadata adds the run metadata to the output
	IncludeMetadata bool
	// OnlyFailures leaves passing and skipped tests out of the results
	OnlyFailures bool
}

// DefaultOptions returns the default formatter options
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata: true,
	}
}

// Format formats data as JSON
func (j *JSON) Format(report types.Report) (string, error) {
	bytes, err := json.MarshalIndent(parse(report, j.opts), "", "  ")
	if err != nil {
		return "", fmt.Errorf("error formatting as JSON: %w", err)
	}
	return string(bytes), nil
}

// Format formats data as YAML
func (y *YAML) Format(report types.Report) (string, error) {
	bytes, err := yaml.Marshal(parse(report, y.opts))
	if err != nil {
		return "", fmt.Errorf("error formatting as YAML: %w", err)
	}
	return string(bytes), nil
}

// Format formats data as a table using go-pretty/v6/table
func (t *Table) Format(report types.Report) (string, error) {
	tables := buildTables(parse(report, t.opts))

	var out string
	for _, tw := range tables {
		out += tw.Render() + "\n\n"
	}
	return out, nil
}

// Format formats data as markdown tables
func (m *Markdown) Format(report types.Report) (string, error) {
	tables := buildTables(parse(report, m.opts))

	var out string
	for _, tw := range tables {
		out += tw.RenderMarkdown() + "\n\n"
	}
	return out, nil
}

// ParseType converts a string to a Type
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeJSON, TypeYAML, TypeTable, TypeMarkdown:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown formatter type: %s", s)
	}
}

// NewFormatter creates a new formatter of the specified type
func NewFormatter(t Type, opts *Options) (Formatter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch t {
	case TypeJSON:
		return &JSON{opts: opts}, nil
	case TypeYAML:
		return &YAML{opts: opts}, nil
	case TypeTable:
		return &Table{opts: opts}, nil
	case TypeMarkdown:
		return &Markdown{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", t)
	}
}
