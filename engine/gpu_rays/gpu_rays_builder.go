package gpu_rays

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
)

// GpuRaysBuilderOption is a functional option for configuring a GpuRays sensor.
type GpuRaysBuilderOption func(*gpuRays)

var sensorCount atomic.Uint64

func nextSensorName() string {
	return fmt.Sprintf("gpu_rays_%d", sensorCount.Add(1))
}

// WithName sets the sensor name. Names must be unique per compositor manager.
//
// Parameters:
//   - name: the sensor name
//
// Returns:
//   - GpuRaysBuilderOption: option function to apply the name
func WithName(name string) GpuRaysBuilderOption {
	return func(g *gpuRays) {
		g.name = name
	}
}

// WithConfig sets the sensor configuration.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - GpuRaysBuilderOption: option function to apply the configuration
func WithConfig(cfg Config) GpuRaysBuilderOption {
	return func(g *gpuRays) {
		g.cfg = cfg
	}
}

// WithManager sets the compositor manager that owns the sensor's textures and workspaces.
//
// Parameters:
//   - m: the compositor manager
//
// Returns:
//   - GpuRaysBuilderOption: option function to apply the manager
func WithManager(m compositor.Manager) GpuRaysBuilderOption {
	return func(g *gpuRays) {
		g.manager = m
	}
}

// WithScene sets the scene sensed by the first pass.
//
// Parameters:
//   - s: the scene
//
// Returns:
//   - GpuRaysBuilderOption: option function to apply the scene
func WithScene(s scene.Scene) GpuRaysBuilderOption {
	return func(g *gpuRays) {
		g.scn = s
	}
}

// WithPose sets the initial sensor frame.
//
// Parameters:
//   - world: the sensor's local-to-world transform
//
// Returns:
//   - GpuRaysBuilderOption: option function to apply the pose
func WithPose(world [16]float32) GpuRaysBuilderOption {
	return func(g *gpuRays) {
		g.mount.SetWorldMatrix(world)
	}
}

// WithLogger sets the logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - GpuRaysBuilderOption: option function to apply the logger
func WithLogger(logger *slog.Logger) GpuRaysBuilderOption {
	return func(g *gpuRays) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithProfiler records first pass, second pass and readback timings.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - GpuRaysBuilderOption: option function to apply the profiler
func WithProfiler(p *profiler.Profiler) GpuRaysBuilderOption {
	return func(g *gpuRays) {
		g.profiler = p
	}
}
