package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// PipelineBuilderOption is a functional option for configuring a Pipeline.
type PipelineBuilderOption func(*pipeline)

// WithColorFormat sets the colour target format.
//
// Parameters:
//   - format: the colour format
//
// Returns:
//   - PipelineBuilderOption: a function that applies the colour format option
func WithColorFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormat = format
	}
}

// WithDepthFormat sets the depth attachment format. TextureFormatUndefined removes the depth attachment.
//
// Parameters:
//   - format: the depth format
//
// Returns:
//   - PipelineBuilderOption: a function that applies the depth format option
func WithDepthFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
	}
}

// WithoutDepth removes the depth attachment. Used by full-screen programs.
//
// Returns:
//   - PipelineBuilderOption: a function that applies the option
func WithoutDepth() PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = wgpu.TextureFormatUndefined
		p.depthTestEnabled = false
		p.depthWriteEnabled = false
	}
}

// WithDepthTestEnabled toggles depth testing.
//
// Parameters:
//   - enabled: whether fragments are depth tested
//
// Returns:
//   - PipelineBuilderOption: a function that applies the option
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled toggles depth writes.
//
// Parameters:
//   - enabled: whether fragments write depth
//
// Returns:
//   - PipelineBuilderOption: a function that applies the option
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithCullMode sets the face culling mode.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets the colour write mask.
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}
