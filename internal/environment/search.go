package environment

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExclude skips underscore-prefixed directories
var DefaultExclude = []string{"_*"}

// SearchOptions configures template file discovery
type SearchOptions struct {
	// Root is the directory templates are searched under
	Root string
	// Exclude lists glob patterns of directories not searched. A pattern is
	// matched against the directory name and its path relative to Root.
	Exclude []string
	// Whitelist lists glob patterns of directories searched even when
	// excluded
	Whitelist []string
}

// SearchPaths walks opts.Root and returns it together with every directory
// below it that is not excluded. Hidden and whitelisted directories are
// always kept. An excluded directory is skipped with its subtree.
func SearchPaths(opts SearchOptions) ([]string, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat search root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("search root is not a directory: %s", root)
	}

	for _, p := range append(append([]string(nil), opts.Exclude...), opts.Whitelist...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid search pattern: %q", p)
		}
	}

	paths := []string{root}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if matchAny(opts.Exclude, d.Name(), rel) &&
			!strings.HasPrefix(d.Name(), ".") &&
			!matchAny(opts.Whitelist, d.Name(), rel) {
			return filepath.SkipDir
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk search root: %w", err)
	}

	return paths, nil
}

func matchAny(patterns []string, name, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
