package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/alevsk/macropolo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Set at build time through -ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionOutput string

// VersionInfo describes the running binary
type VersionInfo struct {
	Version   string   `json:"version" yaml:"version"`
	Library   string   `json:"library" yaml:"library"`
	Commit    string   `json:"commit" yaml:"commit"`
	Date      string   `json:"date" yaml:"date"`
	GoVersion string   `json:"go_version" yaml:"go_version"`
	Engines   []string `json:"engines" yaml:"engines"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of macropolo",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := VersionInfo{
			Version:   version,
			Library:   macropolo.Version,
			Commit:    commit,
			Date:      date,
			GoVersion: runtime.Version(),
			Engines:   []string{string(macropolo.EngineJinja), string(macropolo.EngineGoTemplate)},
		}

		out := cmd.OutOrStdout()
		switch versionOutput {
		case "json":
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("error formatting version to JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
		case "yaml":
			data, err := yaml.Marshal(info)
			if err != nil {
				return fmt.Errorf("error formatting version to YAML: %w", err)
			}
			fmt.Fprint(out, string(data))
		case "plain", "":
			fmt.Fprintf(out, "%s (library: %s built: %s commit: %s %s)\n",
				info.Version, info.Library, info.Date, info.Commit, info.GoVersion)
		default:
			return fmt.Errorf("unsupported output format: %s", versionOutput)
		}

		return nil
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "plain", "output format (plain, json, yaml)")
}
