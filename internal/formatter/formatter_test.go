package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alevsk/macropolo/internal/types"
	"gopkg.in/yaml.v3"
)

func newTestReport() types.Report {
	report := types.Report{
		Version:   "v0.1.0",
		Source:    "macro_tests",
		Engine:    "jinja",
		Timestamp: 1700000000,
		Duration:  1500 * time.Microsecond,
	}
	report.Add(
		types.TestResult{Suite: "FormsTestCase", Test: "test_0input", Macro: "input", File: "forms.html", Status: types.StatusPass, Duration: time.Millisecond},
		types.TestResult{Suite: "FormsTestCase", Test: "test_1field", Macro: "field", File: "forms.html", Status: types.StatusFail, Message: `"Email" "equal" "label" selection failed`},
		types.TestResult{Suite: "FormsTestCase", Test: "test_2field", Macro: "field", File: "forms.html", Status: types.StatusSkip, Message: "skipping field"},
	)
	return report
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if !opts.IncludeMetadata {
		t.Errorf("DefaultOptions().IncludeMetadata = false, want true")
	}
	if opts.OnlyFailures {
		t.Errorf("DefaultOptions().OnlyFailures = true, want false")
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType Type
		wantErr  bool
	}{
		{"json", "json", TypeJSON, false},
		{"yaml", "yaml", TypeYAML, false},
		{"table", "table", TypeTable, false},
		{"markdown", "markdown", TypeMarkdown, false},
		{"unknown", "unknown", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, err := ParseType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseType() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if gotType != tt.wantType {
				t.Errorf("ParseType() gotType = %v, want %v", gotType, tt.wantType)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	formats := []Type{TypeJSON, TypeYAML, TypeTable, TypeMarkdown}

	for _, typ := range formats {
		t.Run(string(typ)+"_nil_options", func(t *testing.T) {
			formatter, err := NewFormatter(typ, nil)
			if err != nil {
				t.Fatalf("NewFormatter(%q, nil) error = %v, want nil", typ, err)
			}
			var opts *Options
			switch f := formatter.(type) {
			case *JSON:
				opts = f.opts
			case *YAML:
				opts = f.opts
			case *Table:
				opts = f.opts
			case *Markdown:
				opts = f.opts
			default:
				t.Fatalf("NewFormatter returned an unexpected type: %T", formatter)
			}
			if !opts.IncludeMetadata {
				t.Errorf("formatter.opts.IncludeMetadata = false, want true for default options")
			}
		})
	}

	if _, err := NewFormatter("unknown", nil); err == nil {
		t.Errorf("NewFormatter(unknown) error = nil, want error")
	}
}

func TestJSONFormat(t *testing.T) {
	f, _ := NewFormatter(TypeJSON, nil)
	out, err := f.Format(newTestReport())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var got ParsedData
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Metadata == nil || got.Metadata.Engine != "jinja" {
		t.Errorf("Metadata = %+v, want engine jinja", got.Metadata)
	}
	if got.Metadata.Duration != "1.5ms" {
		t.Errorf("Metadata.Duration = %q, want 1.5ms", got.Metadata.Duration)
	}
	if len(got.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(got.Results))
	}
	if got.Results[1].Status != "fail" {
		t.Errorf("Results[1].Status = %q, want fail", got.Results[1].Status)
	}
	want := types.Summary{Total: 3, Passed: 1, Failed: 1, Skipped: 1}
	if got.Summary != want {
		t.Errorf("Summary = %+v, want %+v", got.Summary, want)
	}
}

func TestYAMLFormat(t *testing.T) {
	f, _ := NewFormatter(TypeYAML, &Options{OnlyFailures: true})
	out, err := f.Format(newTestReport())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var got ParsedData
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if got.Metadata != nil {
		t.Errorf("Metadata = %+v, want nil", got.Metadata)
	}
	if len(got.Results) != 1 || got.Results[0].Test != "test_1field" {
		t.Errorf("Results = %+v, want only test_1field", got.Results)
	}
	if got.Summary.Total != 3 {
		t.Errorf("Summary.Total = %d, want 3, failures filter only the rows", got.Summary.Total)
	}
}

func TestTableFormat(t *testing.T) {
	f, _ := NewFormatter(TypeTable, nil)
	out, err := f.Format(newTestReport())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, want := range []string{"METADATA", "MACRO TESTS", "SUMMARY", "test_0input", "PASS", "FAIL", "SKIP", "skipping field"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownFormat(t *testing.T) {
	f, _ := NewFormatter(TypeMarkdown, &Options{})
	out, err := f.Format(newTestReport())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if strings.Contains(out, "METADATA") {
		t.Errorf("markdown output contains metadata without IncludeMetadata:\n%s", out)
	}
	if !strings.Contains(out, "| test_1field |") {
		t.Errorf("markdown output missing result row:\n%s", out)
	}
}
