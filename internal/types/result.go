package types

import "time"

// Status is the outcome of a single test procedure
type Status string

const (
	// StatusPass means every assertion held
	StatusPass Status = "pass"
	// StatusFail means an assertion did not hold
	StatusFail Status = "fail"
	// StatusSkip means the entry was marked skip and never rendered
	StatusSkip Status = "skip"
	// StatusError means the environment could not be built or the macro
	// could not be rendered
	StatusError Status = "error"
)

// TestResult represents the outcome of one test procedure
type TestResult struct {
	// Suite is the name of the generated suite
	Suite string `json:"suite" yaml:"suite"`
	// Test is the generated test name, e.g. test_0render_button
	Test string `json:"test" yaml:"test"`
	// Macro is the macro under test
	Macro string `json:"macro" yaml:"macro"`
	// File is the template file holding the macro
	File string `json:"file" yaml:"file"`
	// Status is the outcome
	Status Status `json:"status" yaml:"status"`
	// Message carries the failure, error or skip reason
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	// Duration is the wall time of the procedure
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Summary counts results per status
type Summary struct {
	Total   int `json:"total" yaml:"total"`
	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Errored int `json:"errored" yaml:"errored"`
}

// OK reports whether no test failed or errored
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Errored == 0
}

// Report represents a unified result of a run over one or more suites
type Report struct {
	Version   string        `json:"version" yaml:"version"`
	Source    string        `json:"source" yaml:"source"`
	Engine    string        `json:"engine" yaml:"engine"`
	Timestamp int64         `json:"timestamp" yaml:"timestamp"`
	Results   []TestResult  `json:"results" yaml:"results"`
	Summary   Summary       `json:"summary" yaml:"summary"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Summarize counts results by status
func Summarize(results []TestResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusSkip:
			s.Skipped++
		case StatusError:
			s.Errored++
		}
	}
	return s
}

// Add appends results and refreshes the summary
func (r *Report) Add(results ...TestResult) {
	r.Results = append(r.Results, results...)
	r.Summary = Summarize(r.Results)
}
