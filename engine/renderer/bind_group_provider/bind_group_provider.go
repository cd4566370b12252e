package bind_group_provider

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the implementation of the BindGroupProvider interface.
type bindGroupProvider struct {
	label string

	// bind group resources, keyed by binding index
	bindGroup    *wgpu.BindGroup
	buffers      map[int]*wgpu.Buffer
	textureViews map[int]*wgpu.TextureView

	// mesh resources
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

// BindGroupProvider holds the GPU resources bound to one bind group, or the vertex and index
// buffers of one mesh. Buffers belong to the provider and are released with it; texture views
// are borrowed from their textures.
type BindGroupProvider interface {
	// Label retrieves the debug label of the provider.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Build creates the bind group from the provider's buffers and texture views.
	// An existing bind group is released first.
	//
	// Parameters:
	//   - device: the device to create the bind group on
	//   - layout: the layout the bind group must match
	//
	// Returns:
	//   - error: error if bind group creation fails
	Build(device *wgpu.Device, layout *wgpu.BindGroupLayout) error

	// BindGroup retrieves the bind group created by Build.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group, nil before Build
	BindGroup() *wgpu.BindGroup

	// Buffer retrieves the buffer bound at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, nil if none is bound
	Buffer(binding int) *wgpu.Buffer

	// SetBuffer binds a buffer. The provider takes ownership.
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView binds a borrowed texture view.
	SetTextureView(binding int, tv *wgpu.TextureView)

	// VertexBuffer retrieves the mesh vertex buffer.
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer retrieves the mesh index buffer.
	IndexBuffer() *wgpu.Buffer

	// IndexCount retrieves the number of indices in IndexBuffer.
	IndexCount() int

	// SetMesh sets the mesh buffers. The provider takes ownership.
	SetMesh(vertex, index *wgpu.Buffer, indexCount int)

	// Release frees the bind group and every owned buffer.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty BindGroupProvider.
//
// Parameters:
//   - label: the debug label used for the bind group
//   - options: optional resources to set
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Build(device *wgpu.Device, layout *wgpu.BindGroupLayout) error {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}

	bindings := slices.Sorted(maps.Keys(p.buffers))
	bindings = append(bindings, slices.Sorted(maps.Keys(p.textureViews))...)
	entries := make([]wgpu.BindGroupEntry, 0, len(bindings))
	for _, b := range bindings {
		if buf, ok := p.buffers[b]; ok {
			entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(b), Buffer: buf, Offset: 0, Size: wgpu.WholeSize})
			continue
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(b), TextureView: p.textureViews[b]})
	}

	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("bind_group_provider: %s: %w", p.label, err)
	}
	p.bindGroup = bg
	return nil
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetMesh(vertex, index *wgpu.Buffer, indexCount int) {
	p.vertexBuffer = vertex
	p.indexBuffer = index
	p.indexCount = indexCount
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	clear(p.textureViews)
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	p.indexCount = 0
}
