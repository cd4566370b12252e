package renderer

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option for configuring a Renderer.
type RendererBuilderOption func(*renderer)

// WithSurface attaches a presentation surface, typically window.Window.SurfaceDescriptor().
// Without it the renderer is headless and Present fails.
//
// Parameters:
//   - desc: the platform surface descriptor
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the surface option
func WithSurface(desc *wgpu.SurfaceDescriptor, width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.surfaceDescriptor = desc
		r.surfaceWidth = width
		r.surfaceHeight = height
	}
}

// WithPresentMode sets the surface present mode.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithForceSoftwareRenderer requests the fallback (software) adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the option
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
