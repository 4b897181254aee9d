package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Registry holds the active Predictor. A reload builds a complete new
// bundle and swaps it in; requests in flight keep the bundle they started with.
type Registry struct {
	paths     ArtifactPaths
	cacheSize int
	logger    *zap.Logger
	current   atomic.Pointer[Predictor]
	reloads   atomic.Int64
}

func NewRegistry(paths ArtifactPaths, cacheSize int, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{paths: paths, cacheSize: cacheSize, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) Current() *Predictor {
	return r.current.Load()
}

func (r *Registry) Reloads() int64 {
	return r.reloads.Load()
}

func (r *Registry) Reload() error {
	artifacts, err := LoadArtifacts(r.paths)
	if err != nil {
		return err
	}
	predictor, err := NewPredictor(artifacts, r.cacheSize, r.logger)
	if err != nil {
		return err
	}
	r.current.Store(predictor)
	r.reloads.Add(1)
	r.logger.Info("artifacts loaded",
		zap.String("model_type", artifacts.ModelType),
		zap.Int("columns", len(artifacts.Schema)),
		zap.Bool("probability", artifacts.SupportsProbability()),
	)
	return nil
}

// Watch reloads the bundle when any artifact file changes. A failed reload
// keeps the previous bundle. It returns when ctx is done.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, file := range r.paths.Files() {
		watched[filepath.Clean(file)] = true
		dir := filepath.Dir(file)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("artifact watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := r.Reload(); err != nil {
				r.logger.Error("artifact reload failed, keeping previous bundle", zap.Error(err))
			}
		}
	}
}
