package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	goSession "github.com/MrEthical07/goSession"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file when it changes and hands the result to the
// registered callbacks. A file that fails to load is logged and skipped; the previous
// configuration stays in effect.
type Watcher struct {
	watcher   *fsnotify.Watcher
	loader    *Loader
	path      string
	callbacks []func(context.Context, *Loaded)
	mu        sync.RWMutex
	done      chan struct{}
	stopOnce  sync.Once
	logger    *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithWatcherLoader replaces the loader used on reload, for example to change the
// environment prefix.
func WithWatcherLoader(loader *Loader) WatcherOption {
	return func(w *Watcher) {
		w.loader = loader
	}
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		path:    filepath.Clean(path),
		done:    make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.loader == nil {
		w.loader = NewLoader(WithConfigFile(path))
	} else {
		w.loader.filePath = path
	}

	// Watch the directory, not the file, to catch editors that replace it by rename.
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		w.logger.Error("failed to watch directory", "path", dir, "error", err)
		return nil, err
	}
	w.logger.Debug("watching directory for changes", "path", dir, "file", filepath.Base(w.path))
	return w, nil
}

// OnReload registers a callback run after every successful reload.
func (w *Watcher) OnReload(callback func(context.Context, *Loaded)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// RotateEngine rotates engine's key ring on every successful reload. Settings other
// than keys are fixed when the engine is built; a change to them is logged and ignored.
func (w *Watcher) RotateEngine(engine *goSession.Engine) {
	w.OnReload(func(ctx context.Context, loaded *Loaded) {
		if loaded.Engine != engine.Config() {
			w.logger.WarnContext(ctx, "configuration changed outside keys; restart to apply")
		}
		if err := engine.Rotate(ctx, loaded.Ring); err != nil {
			w.logger.ErrorContext(ctx, "reloaded key ring refused", "error", err)
		}
	})
}

// Reload loads the file now and runs the callbacks.
func (w *Watcher) Reload(ctx context.Context) (*Loaded, error) {
	loaded, err := w.loader.Load()
	if err != nil {
		return nil, err
	}

	w.mu.RLock()
	callbacks := append([]func(context.Context, *Loaded){}, w.callbacks...)
	w.mu.RUnlock()
	for _, cb := range callbacks {
		cb(ctx, loaded)
	}
	return loaded, nil
}

// Start watches for changes until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.logger.Info("configuration watcher started", "file", w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("configuration file changed", "file", event.Name, "op", event.Op.String())
			if _, err := w.Reload(ctx); err != nil {
				w.logger.ErrorContext(ctx, "configuration reload failed", "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("configuration watcher error", "error", err)
		case <-ctx.Done():
			return
		case <-w.done:
			return
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync(ctx context.Context) {
	go w.Start(ctx)
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		if err != nil {
			w.logger.Error("failed to close watcher", "error", err)
			return
		}
		w.logger.Info("configuration watcher stopped")
	})
	return err
}
