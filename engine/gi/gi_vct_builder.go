package gi

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
)

// GlobalIlluminationVctBuilderOption is a functional option for configuring a GlobalIlluminationVct.
type GlobalIlluminationVctBuilderOption func(*globalIlluminationVct)

// WithScene sets the scene whose visuals and lights feed the solution. Required.
//
// Parameters:
//   - scn: the scene
//
// Returns:
//   - GlobalIlluminationVctBuilderOption: option function to apply the scene
func WithScene(scn scene.Scene) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.scn = scn
	}
}

// WithRegistry sets the active-solution registry. Defaults to the registry shared by the
// scene's material system.
//
// Parameters:
//   - r: the registry
//
// Returns:
//   - GlobalIlluminationVctBuilderOption: option function to apply the registry
func WithRegistry(r *Registry) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.registry = r
	}
}

// WithLogger sets the logger used for skipped visuals and build failures.
func WithLogger(logger *slog.Logger) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithProfiler records build timings under the "gi.build" stage.
func WithProfiler(p *profiler.Profiler) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.profiler = p
	}
}

// WithWorkers sets the number of voxelization workers. Defaults to runtime.NumCPU.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - GlobalIlluminationVctBuilderOption: option function to apply the worker count
func WithWorkers(n int) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.workers = n
	}
}

// WithResolution sets the voxel grid resolution.
func WithResolution(res [3]uint32) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.resolution = res
	}
}

// WithOctantCount sets the per-axis octant split used while building.
func WithOctantCount(octants [3]uint32) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.octants = octants
	}
}

// WithBounceCount sets the number of indirect bounces.
func WithBounceCount(n uint32) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.bounceCount = n
	}
}

// WithParticipatingVisuals sets the StaticVisuals/DynamicVisuals mask.
func WithParticipatingVisuals(mask uint32) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.participating = mask
	}
}

// WithThinWallCounter sets the thin wall opacity scale.
func WithThinWallCounter(v float32) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.thinWall = v
	}
}

// WithAnisotropic toggles per-direction radiance storage.
func WithAnisotropic(enabled bool) GlobalIlluminationVctBuilderOption {
	return func(g *globalIlluminationVct) {
		g.anisotropic = enabled
	}
}
