// Package watch applies group order changes from the config file to a
// running engine, so operators can resequence groups with an editor
// instead of the HTTP API.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifecycled/internal/config"
	"github.com/fyrsmithlabs/lifecycled/internal/logging"
)

// Engine is the subset of the lifecycle engine the watcher drives.
type Engine interface {
	GroupOrder() []string
	SetGroupOrder(names ...string) error
}

// Config holds watcher configuration.
type Config struct {
	// Path is the config file to watch.
	Path string

	// Debounce is the quiet period after the last change before the file
	// is re-read. Editors and config managers write in bursts.
	Debounce time.Duration
}

// Watcher watches the config file and applies engine.group_order edits to
// the engine. It implements the start and stop observer hooks so the
// daemon registers it like any other component.
type Watcher struct {
	config Config
	engine Engine
	logger *logging.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// New creates a watcher over the config file at cfg.Path.
func New(cfg Config, engine Engine, logger *logging.Logger) (*Watcher, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	return &Watcher{config: cfg, engine: engine, logger: logger}, nil
}

// Start begins watching. It watches the directory holding the config file
// rather than the file itself: editors replace files atomically, and a
// watch on the old inode would go quiet after the first save. Starting a
// started watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(w.config.Path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	go w.processEvents(fsw, w.done)

	w.logger.Info(ctx, "config watcher started",
		zap.String("path", w.config.Path),
		zap.Duration("debounce", w.config.Debounce),
	)
	return nil
}

// Stop stops watching. Safe to call repeatedly and before Start.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.fsw == nil {
		return nil
	}
	close(w.done)
	err := w.fsw.Close()
	w.fsw = nil
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}
	return nil
}

// processEvents debounces filesystem events and reloads on the trailing
// edge. fsw and done are passed in so Stop can swap the fields without
// racing the goroutine.
func (w *Watcher) processEvents(fsw *fsnotify.Watcher, done chan struct{}) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.config.Debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timerC:
					default:
					}
				}
				timer.Reset(w.config.Debounce)
			}

		case <-timerC:
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(context.Background(), "config watch error", zap.Error(err))
		}
	}
}

// relevant reports whether event is a write or create of the watched file.
// The directory watch sees sibling files and temp names too.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return filepath.Base(event.Name) == filepath.Base(w.config.Path)
}

// reload re-reads the group order and applies it when it changed. A file
// that stops setting an order keeps the running one: resetting to the
// engine default mid-run is an API decision, not an editing accident.
func (w *Watcher) reload() {
	ctx := context.Background()

	order, err := config.ReadGroupOrder(w.config.Path)
	if err != nil {
		w.logger.Warn(ctx, "reload group order", zap.String("path", w.config.Path), zap.Error(err))
		return
	}
	if len(order) == 0 {
		return
	}

	current := w.engine.GroupOrder()
	if ordersEqual(current, order) {
		return
	}

	if err := w.engine.SetGroupOrder(order...); err != nil {
		w.logger.Warn(ctx, "apply group order", zap.Strings("order", order), zap.Error(err))
		return
	}
	w.logger.Info(ctx, "group order updated from config",
		zap.Strings("old", current),
		zap.Strings("new", order),
	)
}

func ordersEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
