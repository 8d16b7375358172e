package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager holds the current config snapshot and reloads it when the
// backing file changes. Snapshot returns an immutable *Config; callers
// must not mutate it. The pipeline takes a fresh snapshot per message so
// edits apply without a restart.
type Manager struct {
	path    string
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
}

// NewManager loads the config once and returns a manager around it.
func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.current.Store(cfg)
	return m, nil
}

// Snapshot returns the current config. Never nil.
func (m *Manager) Snapshot() *Config {
	return m.current.Load()
}

// Watch starts watching the config file's directory for changes and
// reloads on write. Blocks until ctx is canceled. Editors replace files
// rather than writing in place, so the parent directory is watched.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	m.watcher = w
	defer w.Close()

	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	// Debounce rapid write bursts from editors.
	var pending *time.Timer
	reload := func() {
		cfg, err := Load(m.path)
		if err != nil {
			slog.Warn("config reload failed, keeping previous snapshot", "error", err)
			return
		}
		m.current.Store(cfg)
		slog.Info("config reloaded", "path", m.path)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, reload)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}
