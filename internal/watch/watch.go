// Package watch reloads the lists when files in the data directory change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nvandessel/stuckpick/internal/logging"
	"github.com/nvandessel/stuckpick/internal/store"
)

// DefaultDebounce is the quiet period after the last change before a reload.
const DefaultDebounce = 250 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Dir is the data directory. It is watched non-recursively.
	Dir string

	// Debounce is the quiet period before OnChange runs. Zero means
	// DefaultDebounce.
	Debounce time.Duration

	// OnChange is called once per burst of list file changes.
	OnChange func(ctx context.Context) error

	// Ignore, if set, filters out changes by file name, e.g. the engine's
	// own writes.
	Ignore func(name string) bool

	Logger *slog.Logger
}

// Watcher turns fsnotify events into debounced reloads.
type Watcher struct {
	cfg Config
	fsw *fsnotify.Watcher
}

// New starts watching cfg.Dir. Call Run to process events and Close when done.
func New(cfg Config) (*Watcher, error) {
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("watch: OnChange is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", cfg.Dir, err)
	}
	return &Watcher{cfg: cfg, fsw: fsw}, nil
}

// relevant reports whether ev should trigger a reload.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(ev.Name)
	if !store.IsListName(name) {
		return false
	}
	if w.cfg.Ignore != nil && w.cfg.Ignore(name) {
		return false
	}
	return true
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.cfg.Logger.Debug("list file changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(w.cfg.Debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := w.cfg.OnChange(ctx); err != nil {
				w.cfg.Logger.Warn("reload after change failed", "error", err)
				continue
			}
			w.cfg.Logger.Info("lists reloaded", "dir", w.cfg.Dir)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
