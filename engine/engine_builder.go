package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-sensors/engine/gi"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gpu_rays"
	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sensors/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithLogger sets the logger for sensor failures and frame errors.
//
// Parameters:
//   - l: the logger, ignored when nil
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(l *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProfiler shares a profiler with the engine, typically the one handed to the sensors.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithProfiling enables or disables periodic profiler logging.
//
// Parameters:
//   - enabled: if true, stats are logged once per profiler interval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the tick callback rate in ticks per second. Values <= 0 select 60.
//
// Parameters:
//   - fps: target ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithFrameLimit caps the frame rate of Run. Pass 0 to uncap (default).
//
// Parameters:
//   - fps: maximum frames per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetFrameLimit(fps)
	}
}

// WithPreview sets the window and renderer used by Run to present sensor scans.
// The renderer must have been created with a surface for the window.
//
// Parameters:
//   - w: the preview window
//   - r: the renderer presenting into the window's surface
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPreview(w window.Window, r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
		if r != nil {
			e.attachPreview(r)
		}
	}
}

// WithSensors registers sensors during construction.
//
// Parameters:
//   - sensors: the sensors, in frame order
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSensors(sensors ...gpu_rays.GpuRays) EngineBuilderOption {
	return func(e *engine) {
		for _, s := range sensors {
			e.sensors = append(e.sensors, &sensorEntry{rays: s})
		}
	}
}

// WithGlobalIllumination registers GI solutions during construction.
//
// Parameters:
//   - solutions: the GI solutions, in update order
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGlobalIllumination(solutions ...gi.Updatable) EngineBuilderOption {
	return func(e *engine) {
		e.gis = append(e.gis, solutions...)
	}
}
