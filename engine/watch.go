package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/syssam/odbgen/graph"
)

// Watch runs g once and then again whenever one of its inputs changes,
// until ctx is done. onRun receives the outcome of every run; a failed run
// does not stop watching.
func (e *Engine) Watch(ctx context.Context, g *graph.Graph, onRun func(*Report, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	inputs := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, t := range g.Tasks {
		for _, in := range t.Inputs {
			inputs[filepath.Clean(in)] = true
			dirs[filepath.Dir(in)] = true
		}
	}
	// Directories are watched instead of files so editors that replace the
	// file on save keep being observed.
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	onRun(e.Run(ctx, g))
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !inputs[filepath.Clean(ev.Name)] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			e.logger.Debug("input changed", "path", ev.Name, "op", ev.Op.String())
			fire = time.After(e.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			onRun(e.Run(ctx, g))
		}
	}
}
