package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// RulesWatcher re-seeds the shared context slot whenever the rules file
// changes on disk.
type RulesWatcher struct {
	path string
	svc  *Service
	log  *slog.Logger
}

func NewRulesWatcher(path string, svc *Service, log *slog.Logger) *RulesWatcher {
	if log == nil {
		log = slog.Default()
	}
	return &RulesWatcher{path: path, svc: svc, log: log}
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file itself so editor save-by-rename still delivers events;
// bursts of events collapse into one reload.
func (w *RulesWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	base := filepath.Base(w.path)
	w.log.Info("watching rules file", "path", w.path)

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			reload = time.After(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("rules watcher error", "error", err)
		case <-reload:
			reload = nil
			if err := w.svc.SeedRules(ctx, w.path); err != nil {
				w.log.Warn("rules reload failed", "path", w.path, "error", err)
			}
		}
	}
}
