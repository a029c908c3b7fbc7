package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List the suites and tests generated from specification documents",
	Args:  cobra.MaximumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			cfg.Specs.Dir = args[0]
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		suites, err := loadSuites(cfg)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(nil)
		tw.SetStyle(table.StyleLight)
		tw.Style().Options.SeparateColumns = true
		tw.SetTitle("MACRO TEST SUITES")
		tw.AppendHeader(table.Row{"SUITE", "TEST", "MACRO", "FILE", "SKIP"})

		for _, s := range suites {
			for _, tc := range s.Tests {
				tw.AppendRow(table.Row{s.Name, tc.Name, tc.Macro, s.File, tc.Skip})
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
		return nil
	},
}
