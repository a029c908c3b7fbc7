package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/alevsk/macropolo/internal/config"
	"github.com/alevsk/macropolo/internal/formatter"
	"github.com/alevsk/macropolo/internal/logger"
	"github.com/alevsk/macropolo/internal/types"
	"github.com/alevsk/macropolo/internal/watcher"
	"github.com/spf13/cobra"
)

// errTestsFailed is returned when a run had failing or erroring tests
var errTestsFailed = errors.New("macro tests failed")

var runOpts struct {
	output          string
	includeMetadata bool
	onlyFailures    bool
	watch           bool
	engine          string
	preset          string
	root            string
	ext             string
	recursive       bool
	followSymlinks  bool
	suites          []string
	run             string
}

var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Run macro tests from specification documents",
	Long: `Run the macro tests described by the specification documents of a directory
and print a report. The command fails when any test fails or errors.

Examples:
  # Run the specifications in ./macro_tests against ./templates
  macropolo run

  # Run one suite with the Go template engine
  macropolo run specs/ --engine gotemplate --root web/templates --suite FormsTestCase

  # Run the tests whose name matches a pattern and print JSON
  macropolo run --run 'render_button$' -o json

  # Rerun on every change to a specification or template
  macropolo run --watch`,
	Args: cobra.MaximumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		applyRunFlags(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := newSelection(runOpts.suites, runOpts.run)
		if err != nil {
			return err
		}
		ftype, err := formatter.ParseType(runOpts.output)
		if err != nil {
			return err
		}
		f, err := formatter.NewFormatter(ftype, &formatter.Options{
			IncludeMetadata: runOpts.includeMetadata,
			OnlyFailures:    runOpts.onlyFailures,
		})
		if err != nil {
			return err
		}

		if !runOpts.watch {
			return runOnce(cmd.Context(), cmd.OutOrStdout(), cfg, sel, f)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watch(ctx, cmd.OutOrStdout(), cfg, sel, f)
	},
}

func init() {
	flags := runCmd.Flags()
	flags.StringVarP(&runOpts.output, "output", "o", "table", "output format (table, json, yaml, markdown)")
	flags.BoolVar(&runOpts.includeMetadata, "include-metadata", true, "include metadata in the output")
	flags.BoolVar(&runOpts.onlyFailures, "only-failures", false, "report only failing and erroring tests")
	flags.BoolVarP(&runOpts.watch, "watch", "w", false, "rerun when a specification or template changes")
	flags.StringVarP(&runOpts.engine, "engine", "e", "", "template engine (jinja, gotemplate)")
	flags.StringVar(&runOpts.preset, "preset", "", "filter preset loaded into every environment (sheer)")
	flags.StringVarP(&runOpts.root, "root", "r", "", "template search root (default: templates)")
	flags.StringVar(&runOpts.ext, "ext", "", "specification file extension (default: .json)")
	flags.BoolVar(&runOpts.recursive, "recursive", false, "load specifications from subdirectories")
	flags.BoolVar(&runOpts.followSymlinks, "follow-symlinks", false, "follow symbolic links during directory traversal")
	flags.StringSliceVarP(&runOpts.suites, "suite", "s", nil, "run only the named suites")
	flags.StringVar(&runOpts.run, "run", "", "run only tests whose name matches the regular expression")

	_ = runCmd.RegisterFlagCompletionFunc("engine", cobra.FixedCompletions(
		[]string{"jinja", "gotemplate"}, cobra.ShellCompDirectiveNoFileComp))
	_ = runCmd.RegisterFlagCompletionFunc("preset", cobra.FixedCompletions(
		[]string{"sheer"}, cobra.ShellCompDirectiveNoFileComp))
	_ = runCmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(
		[]string{"table", "json", "yaml", "markdown"}, cobra.ShellCompDirectiveNoFileComp))
}

// applyRunFlags overrides configuration values with the flags provided
func applyRunFlags(cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		cfg.Specs.Dir = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.Templates.Engine = runOpts.engine
	}
	if flags.Changed("preset") {
		cfg.Templates.Preset = runOpts.preset
	}
	if flags.Changed("root") {
		cfg.Templates.SearchRoot = runOpts.root
	}
	if flags.Changed("ext") {
		cfg.Specs.Extension = runOpts.ext
	}
	if flags.Changed("recursive") {
		cfg.Specs.Recursive = runOpts.recursive
	}
	if flags.Changed("follow-symlinks") {
		cfg.Specs.FollowSymlinks = runOpts.followSymlinks
	}
}

// execute loads the selected suites and runs them into a report
func execute(ctx context.Context, cfg *config.Config, sel *selection) (types.Report, error) {
	start := time.Now()
	report := types.Report{
		Version:   version,
		Source:    cfg.Specs.Dir,
		Engine:    cfg.Templates.Engine,
		Timestamp: start.Unix(),
	}

	suites, err := loadSuites(cfg)
	if err != nil {
		return report, err
	}

	for _, s := range suites {
		if !sel.suite(s.Name) {
			continue
		}
		if sel.tests == nil {
			report.Add(s.Execute(ctx)...)
			continue
		}
		for _, name := range s.Names() {
			if !sel.test(name) {
				continue
			}
			result, err := s.ExecuteTest(ctx, name)
			if err != nil {
				return report, err
			}
			report.Add(result)
		}
	}
	report.Duration = time.Since(start)
	return report, nil
}

func runOnce(ctx context.Context, out io.Writer, cfg *config.Config, sel *selection, f formatter.Formatter) error {
	report, err := execute(ctx, cfg, sel)
	if err != nil {
		return err
	}

	formatted, err := f.Format(report)
	if err != nil {
		return err
	}
	fmt.Fprint(out, formatted)

	if !report.Summary.OK() {
		return errTestsFailed
	}
	return nil
}

// watch runs the tests and reruns them on every batch of changes until ctx
// is done.
func watch(ctx context.Context, out io.Writer, cfg *config.Config, sel *selection, f formatter.Formatter) error {
	log := logger.With("run")

	rerun := func() {
		if err := runOnce(ctx, out, cfg, sel, f); err != nil && !errors.Is(err, errTestsFailed) {
			log.Error().Err(err).Msg("Run failed")
		}
	}

	w, err := watcher.New(watcher.Config{
		Debounce: cfg.Watch.Debounce,
		Ignore:   cfg.Watch.Ignore,
	}, func(paths []string) {
		log.Info().Strs("paths", paths).Msg("Changes detected, rerunning")
		rerun()
	})
	if err != nil {
		return err
	}

	for _, root := range []string{cfg.Specs.Dir, cfg.Templates.SearchRoot} {
		if err := w.AddRoot(root); err != nil {
			_ = w.Stop()
			return err
		}
	}

	rerun()
	w.Start(ctx)
	log.Info().Str("specs", cfg.Specs.Dir).Str("templates", cfg.Templates.SearchRoot).Msg("Watching for changes")

	<-ctx.Done()
	return w.Stop()
}
