package config

import (
	"context"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"authrelay/internal/observability/logger"
)

// Resolver hands out immutable configuration snapshots and performs atomic
// swaps on reload. Components keep the snapshot they started a request with;
// they never see a half-applied reload.
type Resolver struct {
	path string
	cur  atomic.Pointer[Config]
}

// NewResolver loads the store at path and returns a resolver seeded with the
// first snapshot.
func NewResolver(path string) (*Resolver, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	r := &Resolver{path: path}
	r.cur.Store(cfg)
	return r, nil
}

// Snapshot returns the current configuration. The result is read-only.
func (r *Resolver) Snapshot() *Config {
	return r.cur.Load()
}

// Reload re-reads the store and swaps the snapshot. On error the previous
// snapshot stays active.
func (r *Resolver) Reload() error {
	cfg, err := Load(r.path)
	if err != nil {
		return err
	}
	r.cur.Store(cfg)
	return nil
}

// Watch reloads the snapshot whenever the settings file changes. It blocks
// until ctx is done; run it in its own goroutine. A broken edit keeps the
// last good snapshot and logs the validation error.
func (r *Resolver) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(r.path); err != nil {
		return err
	}

	log := logger.Named("config")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := r.Reload(); err != nil {
				log.Warn("reload failed, keeping previous snapshot", logger.Err(err))
				continue
			}
			log.Info("settings reloaded", logger.Path(r.path))
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", logger.Err(werr))
		}
	}
}
