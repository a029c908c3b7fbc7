package main

import (
	"fmt"
	"regexp"

	"github.com/alevsk/macropolo/internal/config"
	"github.com/alevsk/macropolo/internal/environment"
	"github.com/alevsk/macropolo/internal/loader"
	"github.com/alevsk/macropolo/internal/suite"
)

// newFactory builds the environment factory described by the configuration
func newFactory(cfg *config.Config) (environment.Factory, error) {
	engine, err := environment.ParseEngine(cfg.Templates.Engine)
	if err != nil {
		return nil, err
	}
	filters, err := environment.PresetFilters(environment.Preset(cfg.Templates.Preset))
	if err != nil {
		return nil, err
	}
	return environment.NewFactory(engine, environment.Options{
		Search: environment.SearchOptions{
			Root:      cfg.Templates.SearchRoot,
			Exclude:   cfg.Templates.Exclude,
			Whitelist: cfg.Templates.Whitelist,
		},
		Filters: filters,
	})
}

// loadSuites loads every suite of the configured specification directory
func loadSuites(cfg *config.Config) ([]*suite.Suite, error) {
	factory, err := newFactory(cfg)
	if err != nil {
		return nil, err
	}
	return loader.LoadDir(cfg.Specs.Dir, factory, loader.Options{
		Extension:      cfg.Specs.Extension,
		Recursive:      cfg.Specs.Recursive,
		FollowSymlinks: cfg.Specs.FollowSymlinks,
	})
}

// selection narrows a run to some suites and tests
type selection struct {
	suites []string
	tests  *regexp.Regexp
}

func newSelection(suites []string, pattern string) (*selection, error) {
	sel := &selection{suites: suites}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid --run pattern: %w", err)
		}
		sel.tests = re
	}
	return sel, nil
}

func (s *selection) suite(name string) bool {
	if len(s.suites) == 0 {
		return true
	}
	for _, n := range s.suites {
		if n == name {
			return true
		}
	}
	return false
}

func (s *selection) test(name string) bool {
	return s.tests == nil || s.tests.MatchString(name)
}
