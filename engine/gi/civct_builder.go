package gi

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
)

// CiVctBuilderOption is a functional option for configuring a CiVct. The second argument
// is the voxelization worker count, consumed once options are applied.
type CiVctBuilderOption func(c *ciVct, workers *int)

// WithCascadeRegistry sets the active-solution registry of a CiVct.
func WithCascadeRegistry(r *Registry) CiVctBuilderOption {
	return func(c *ciVct, _ *int) {
		c.registry = r
	}
}

// WithCascadeLogger sets the logger of a CiVct.
func WithCascadeLogger(logger *slog.Logger) CiVctBuilderOption {
	return func(c *ciVct, _ *int) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCascadeProfiler records cascade rebuild timings under the "civct.update" stage.
func WithCascadeProfiler(p *profiler.Profiler) CiVctBuilderOption {
	return func(c *ciVct, _ *int) {
		c.profiler = p
	}
}

// WithCascadeWorkers sets the number of voxelization workers shared by all cascades.
func WithCascadeWorkers(n int) CiVctBuilderOption {
	return func(_ *ciVct, workers *int) {
		*workers = n
	}
}

// WithCascadeVisuals sets the StaticVisuals/DynamicVisuals mask of a CiVct.
func WithCascadeVisuals(mask uint32) CiVctBuilderOption {
	return func(c *ciVct, _ *int) {
		c.participating = mask
	}
}
