// Package loader discovers specification documents in a directory and builds
// one suite per document.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/alevsk/macropolo/internal/environment"
	"github.com/alevsk/macropolo/internal/logger"
	"github.com/alevsk/macropolo/internal/suite"
)

// DefaultExtension is the extension of specification documents
const DefaultExtension = ".json"

// ErrDuplicateSuite is returned when two documents produce the same suite name
var ErrDuplicateSuite = fmt.Errorf("duplicate suite name")

// Options configures specification discovery
type Options struct {
	// Extension selects the documents loaded, DefaultExtension when empty
	Extension string
	// Recursive descends into subdirectories
	Recursive bool
	// FollowSymlinks resolves symlinked files and, when Recursive, symlinked
	// directories
	FollowSymlinks bool
}

// LoadDir builds a suite for every specification document in dir. Documents
// are loaded in path order. Any document that fails to parse aborts the load.
func LoadDir(dir string, factory environment.Factory, opts Options) ([]*suite.Suite, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := Discover(dir, opts)
	if err != nil {
		return nil, err
	}

	log := logger.With("loader")
	seen := make(map[string]string, len(files))
	suites := make([]*suite.Suite, 0, len(files))
	for _, path := range files {
		name := SuiteName(path)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s from %s and %s", ErrDuplicateSuite, name, prev, path)
		}
		seen[name] = path

		s, err := suite.BuildFile(name, factory, path)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("suite", name).Str("path", path).Int("tests", len(s.Tests)).Msg("Suite loaded")
		suites = append(suites, s)
	}
	return suites, nil
}

// Discover returns the sorted paths of the specification documents in dir
func Discover(dir string, opts Options) ([]string, error) {
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var files []string
	visited := make(map[string]bool)

	var walk fs.WalkDirFunc
	walk = func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != dir && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			if !opts.FollowSymlinks {
				return nil
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("failed to get absolute path for %s: %w", path, err)
			}
			if visited[abs] {
				return nil
			}
			visited[abs] = true

			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				return fmt.Errorf("failed to evaluate symlink %s: %w", path, err)
			}
			targetInfo, err := os.Stat(target)
			if err != nil {
				return fmt.Errorf("failed to stat symlink target %s: %w", target, err)
			}
			if targetInfo.IsDir() {
				if !opts.Recursive || visited[target] {
					return nil
				}
				visited[target] = true
				return filepath.WalkDir(target, func(p string, d fs.DirEntry, err error) error {
					if err != nil {
						return err
					}
					if p == target {
						return nil
					}
					return walk(filepath.Join(path, strings.TrimPrefix(p, target)), d, nil)
				})
			}
		}

		if !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		files = append(files, path)
		return nil
	}

	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// SuiteName derives the suite name from a document path: the file name
// without extension in title case, with spaces, underscores and hyphens
// removed, followed by TestCase. "button_macros.json" is
// "ButtonMacrosTestCase".
func SuiteName(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	prevCased := false
	for _, r := range stem {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && !prevCased:
			r = unicode.ToTitle(r)
		case cased:
			r = unicode.ToLower(r)
		}
		prevCased = cased
		if r == ' ' || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	b.WriteString("TestCase")
	return b.String()
}
