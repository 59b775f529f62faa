package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration when the project or user config file
// changes on disk, modeled on the fsnotify usage in the teacher's
// internal/watcher.HybridWatcher (here reduced to a single-file watch,
// since a config reload has no directory tree or gitignore matching to
// do).
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	onLoad   func(*Config, error)
	debounce time.Duration
}

// NewWatcher starts watching dir's project config file and the user's
// global config file. onLoad fires with the freshly reloaded Config
// whenever either file changes, debounced by 200ms to collapse editors'
// write-then-rename sequences into one reload.
func NewWatcher(dir string, onLoad func(*Config, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, dir: dir, onLoad: onLoad, debounce: 200 * time.Millisecond}

	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if userDir := GetUserConfigDir(); userDir != "" {
		_ = fsw.Add(userDir) // best-effort: the user config dir may not exist yet
	}
	return w, nil
}

// Run blocks, reloading configuration on every relevant filesystem event
// until ctx is canceled. Call it from its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	var pending *time.Timer
	reload := func() {
		cfg, err := Load(w.dir)
		w.onLoad(cfg, err)
	}

	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				pending.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isConfigFile(ev.Name) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(w.debounce, reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Default().Warn("config watcher error", "error", err)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	switch base {
	case ".ftengine.yaml", ".ftengine.yml", "config.yaml":
		return true
	default:
		return false
	}
}
