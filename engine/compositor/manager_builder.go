package compositor

import "log/slog"

// ManagerBuilderOption is a functional option for configuring a Manager.
type ManagerBuilderOption func(*manager)

// WithBackend sets the backend that executes compositor passes.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithBackend(b Backend) ManagerBuilderOption {
	return func(m *manager) {
		m.backend = b
	}
}

// WithLogger sets the logger used for workspace lifecycle messages. Defaults to slog.Default().
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithLogger(l *slog.Logger) ManagerBuilderOption {
	return func(m *manager) {
		m.log = l
	}
}
