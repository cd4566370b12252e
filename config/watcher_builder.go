package config

import (
	"log/slog"
	"time"
)

// WatcherBuilderOption is a functional option for configuring a Watcher.
type WatcherBuilderOption func(*watcher)

// WithLogger sets the logger for reloads and rejected files.
//
// Parameters:
//   - logger: the logger, ignored when nil
//
// Returns:
//   - WatcherBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) WatcherBuilderOption {
	return func(w *watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets how long the watcher waits after the last event before reloading.
//
// Parameters:
//   - d: the quiet period, values <= 0 keep the 100ms default
//
// Returns:
//   - WatcherBuilderOption: option function to apply
func WithDebounce(d time.Duration) WatcherBuilderOption {
	return func(w *watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}
