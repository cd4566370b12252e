package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file when it changes.
type Watcher interface {
	// Path returns the watched file.
	Path() string

	// Close stops watching. Safe to call multiple times.
	//
	// Returns:
	//   - error: error from the underlying fsnotify watcher
	Close() error
}

type watcher struct {
	mu *sync.Mutex

	path     string
	fs       *fsnotify.Watcher
	onChange func(Config)
	logger   *slog.Logger
	debounce time.Duration

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ Watcher = &watcher{}

// NewWatcher watches path and calls onChange with each valid reload. Files that fail to
// load or validate are logged and ignored, keeping the previous configuration in effect.
// The parent directory is watched so editors that replace the file are followed.
//
// Parameters:
//   - path: the configuration file
//   - onChange: called from the watcher goroutine with the new configuration
//   - options: variadic list of WatcherBuilderOption functions
//
// Returns:
//   - Watcher: the running watcher
//   - error: error if the directory cannot be watched
func NewWatcher(path string, onChange func(Config), options ...WatcherBuilderOption) (Watcher, error) {
	if onChange == nil {
		panic("config: NewWatcher requires a change callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w := &watcher{
		mu:       &sync.Mutex{},
		path:     abs,
		onChange: onChange,
		logger:   slog.Default(),
		debounce: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(w)
	}

	w.fs, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		w.fs.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	w.wg.Add(1)
	go w.watch()
	return w, nil
}

func (w *watcher) Path() string {
	return w.path
}

func (w *watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

// watch coalesces bursts of events for the file into one reload per debounce window.
func (w *watcher) watch() {
	defer w.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "path", w.path, "error", err)
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *watcher) reload() {
	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.logger.Warn("config reload rejected, keeping previous settings", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange(cfg)
}
