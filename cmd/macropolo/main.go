package main

import (
	"fmt"
	"os"

	"github.com/alevsk/macropolo/internal/config"
	"github.com/alevsk/macropolo/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var cfg = &config.Config{}

var rootCmd = &cobra.Command{
	Use:   "macropolo",
	Short: "Macropolo - A template macro test runner",
	Long: GetBanner() + `
Macropolo runs declarative tests against template macros. Each specification
document names a template file and the macros to render in isolation, with their
arguments, context and mocked filters, context functions and templates, and the
structural assertions the rendered HTML must satisfy.`,
	SilenceErrors: true, // We'll handle error printing ourselves
	SilenceUsage:  true, // We'll handle usage printing ourselves
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		// Load configuration from file or environment variable
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		// flags override config due to highest precedence
		if debug {
			cfg.Debug = true
		}

		// Initialize logger
		logger.SetOutput(os.Stderr, true)
		logger.Init(cfg)

		// Print configuration source
		if configPath != "" || os.Getenv(config.MacropoloConfigPathEnvVar) != "" {
			logger.Debug().Msgf("Using config file: %s", configPath)
		} else {
			logger.Debug().Msg("Using default configuration")
		}

		return nil
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: macropolo.yml in current directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging and additional debug information")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Failing tests were already reported
		if err != errTestsFailed {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
