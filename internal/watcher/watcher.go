// Package watcher reruns macro tests when specification documents or
// templates change.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alevsk/macropolo/internal/logger"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Config configures a Watcher
type Config struct {
	// Debounce is the quiet period before changes are reported
	Debounce time.Duration
	// Ignore lists doublestar patterns of paths whose changes are ignored
	Ignore []string
}

// Watcher watches directory trees and reports batches of changed paths
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a watcher calling onChange with every debounced batch of
// changed paths. Batches are delivered one at a time.
func New(config Config, onChange func(paths []string)) (*Watcher, error) {
	for _, p := range config.Ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern: %q", p)
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		config:    config,
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(config.Debounce, onChange),
	}, nil
}

// AddRoot watches path and every directory below it that is not ignored
func (w *Watcher) AddRoot(path string) error {
	log := logger.With("watcher")
	if err := w.fsWatcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Watching directory")
	return w.walkAndAdd(path)
}

func (w *Watcher) walkAndAdd(path string) error {
	log := logger.With("watcher")
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		fullPath := filepath.Join(path, entry.Name())
		if w.shouldIgnore(fullPath) {
			continue
		}
		if err := w.fsWatcher.Add(fullPath); err != nil {
			log.Debug().Err(err).Str("path", fullPath).Msg("Failed to watch directory")
			continue
		}
		log.Debug().Str("path", fullPath).Msg("Watching directory")
		if err := w.walkAndAdd(fullPath); err != nil {
			return err
		}
	}
	return nil
}

// Start runs the event loop until ctx is done or Stop is called
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.handleEvents(ctx)
}

func (w *Watcher) handleEvents(ctx context.Context) {
	defer close(w.done)
	log := logger.With("watcher")

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.AddRoot(event.Name); err != nil {
						log.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
					}
				}
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("File changed")
				w.debouncer.Add(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) shouldIgnore(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}

	slashed := filepath.ToSlash(path)
	for _, pattern := range w.config.Ignore {
		if match, _ := doublestar.Match(pattern, slashed); match {
			return true
		}
		if match, _ := doublestar.Match(pattern, filepath.Base(path)); match {
			return true
		}
	}
	return false
}

// Stop ends the event loop and releases the underlying watcher
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	w.debouncer.Stop()
	if running {
		w.cancel()
		<-w.done
	}
	return w.fsWatcher.Close()
}
