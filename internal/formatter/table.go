package formatter

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// newTable creates a table writer with the common style
func newTable(title string, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(nil) // Don't write to stdout directly
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.SeparateColumns = true
	tw.SetTitle(title)
	tw.AppendHeader(header)
	return tw
}

// buildTables builds the metadata, results and summary tables
func buildTables(data ParsedData) []table.Writer {
	var tables []table.Writer

	if data.Metadata != nil {
		metadataTable := newTable("METADATA", table.Row{"KEY", "VALUE"})
		metadataTable.AppendRows([]table.Row{
			{"VERSION", data.Metadata.Version},
			{"SOURCE", data.Metadata.Source},
			{"ENGINE", data.Metadata.Engine},
			{"TIMESTAMP", data.Metadata.Timestamp},
			{"DURATION", data.Metadata.Duration},
		})
		tables = append(tables, metadataTable)
	}

	resultsTable := newTable("MACRO TESTS", table.Row{
		"SUITE",
		"TEST",
		"FILE",
		"STATUS",
		"DURATION",
		"MESSAGE",
	})
	for _, r := range data.Results {
		resultsTable.AppendRow(table.Row{
			r.Suite,
			r.Test,
			r.File,
			strings.ToUpper(r.Status),
			r.Duration,
			r.Message,
		})
	}
	tables = append(tables, resultsTable)

	summaryTable := newTable("SUMMARY", table.Row{
		"TOTAL",
		"PASSED",
		"FAILED",
		"SKIPPED",
		"ERRORED",
	})
	summaryTable.AppendRow(table.Row{
		data.Summary.Total,
		data.Summary.Passed,
		data.Summary.Failed,
		data.Summary.Skipped,
		data.Summary.Errored,
	})
	tables = append(tables, summaryTable)

	return tables
}
