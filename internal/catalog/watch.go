package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch registers dataset files created in dir after the initial scan.
// It blocks until ctx is cancelled. Removed files are not deregistered
// and existing entries are never rescanned; the watcher only widens the
// catalog.
func (c *Catalog) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch dataset dir: %w", err)
	}

	c.logger.Debug("watching dataset directory", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}
			name := CanonicalName(event.Name)
			if name == "" {
				continue
			}
			c.mu.Lock()
			c.register(name, event.Name)
			c.mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("dataset watcher error", "error", err)
		}
	}
}
