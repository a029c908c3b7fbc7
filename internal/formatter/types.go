package formatter

import (
	"time"

	"github.com/alevsk/macropolo/internal/types"
)

// Type represents the type of formatter
type Type string

const (
	// TypeJSON formats data as JSON
	TypeJSON Type = "json"
	// TypeYAML formats data as YAML
	TypeYAML Type = "yaml"
	// TypeTable formats data as a table
	TypeTable Type = "table"
	// TypeMarkdown formats data as markdown
	TypeMarkdown Type = "markdown"
)

// JSON implements JSON formatting
type JSON struct {
	opts *Options
}

// YAML implements YAML formatting
type YAML struct {
	opts *Options
}

// Table implements table formatting
type Table struct {
	opts *Options
}

// Markdown implements markdown formatting
type Markdown struct {
	opts *Options
}

type Metadata struct {
	Version   string `json:"version" yaml:"version"`
	Source    string `json:"source" yaml:"source"`
	Engine    string `json:"engine" yaml:"engine"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
	Duration  string `json:"duration" yaml:"duration"`
}

type ResultEntry struct {
	Suite    string `json:"suite" yaml:"suite"`
	Test     string `json:"test" yaml:"test"`
	Macro    string `json:"macro" yaml:"macro"`
	File     string `json:"file" yaml:"file"`
	Status   string `json:"status" yaml:"status"`
	Duration string `json:"duration" yaml:"duration"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

type ParsedData struct {
	Metadata *Metadata     `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Results  []ResultEntry `json:"results" yaml:"results"`
	Summary  types.Summary `json:"summary" yaml:"summary"`
}

// parse flattens a report into its serializable form
func parse(report types.Report, opts *Options) ParsedData {
	data := ParsedData{
		Results: make([]ResultEntry, 0, len(report.Results)),
		Summary: types.Summarize(report.Results),
	}
	if opts.IncludeMetadata {
		data.Metadata = &Metadata{
			Version:   report.Version,
			Source:    report.Source,
			Engine:    report.Engine,
			Timestamp: report.Timestamp,
			Duration:  roundDuration(report.Duration),
		}
	}
	for _, r := range report.Results {
		if opts.OnlyFailures && (r.Status == types.StatusPass || r.Status == types.StatusSkip) {
			continue
		}
		data.Results = append(data.Results, ResultEntry{
			Suite:    r.Suite,
			Test:     r.Test,
			Macro:    r.Macro,
			File:     r.File,
			Status:   string(r.Status),
			Duration: roundDuration(r.Duration),
			Message:  r.Message,
		})
	}
	return data
}

func roundDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
