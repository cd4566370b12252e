package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option for configuring a BindGroupProvider.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer binds an owned buffer at binding.
//
// Parameters:
//   - binding: the binding index
//   - buf: the buffer
//
// Returns:
//   - BindGroupProviderOption: a function that applies the buffer option
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithTextureView binds a borrowed texture view at binding.
//
// Parameters:
//   - binding: the binding index
//   - tv: the texture view
//
// Returns:
//   - BindGroupProviderOption: a function that applies the texture view option
func WithTextureView(binding int, tv *wgpu.TextureView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textureViews[binding] = tv
	}
}

// WithMesh sets owned vertex and index buffers.
//
// Parameters:
//   - vertex: the vertex buffer
//   - index: the uint32 index buffer
//   - indexCount: the number of indices
//
// Returns:
//   - BindGroupProviderOption: a function that applies the mesh option
func WithMesh(vertex, index *wgpu.Buffer, indexCount int) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.vertexBuffer = vertex
		p.indexBuffer = index
		p.indexCount = indexCount
	}
}
