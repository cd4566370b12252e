package pipeline

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	mu          *sync.Mutex
	pipelineKey string
	shader      shader.Shader

	colorFormat wgpu.TextureFormat
	depthFormat wgpu.TextureFormat

	// GPU objects created by Build
	renderPipeline   *wgpu.RenderPipeline
	pipelineLayout   *wgpu.PipelineLayout
	bindGroupLayouts map[int]*wgpu.BindGroupLayout

	depthTestEnabled  bool
	depthWriteEnabled bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
}

// Pipeline describes a render pipeline for one shader module and one colour target format,
// and owns the GPU objects created from that description.
type Pipeline interface {
	// PipelineKey retrieves the unique key of this pipeline.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// Shader retrieves the shader module whose vertex and fragment entry points the pipeline uses.
	//
	// Returns:
	//   - shader.Shader: the shader
	Shader() shader.Shader

	// ColorFormat retrieves the format of the single colour target.
	//
	// Returns:
	//   - wgpu.TextureFormat: the colour format
	ColorFormat() wgpu.TextureFormat

	// DepthFormat retrieves the depth attachment format, TextureFormatUndefined when the pipeline has no depth.
	//
	// Returns:
	//   - wgpu.TextureFormat: the depth format
	DepthFormat() wgpu.TextureFormat

	// DepthTestEnabled returns whether fragments are depth tested.
	//
	// Returns:
	//   - bool: true when depth testing is on
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether fragments write depth.
	//
	// Returns:
	//   - bool: true when depth writes are on
	DepthWriteEnabled() bool

	// CullMode returns the face culling mode.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode
	CullMode() wgpu.CullMode

	// Build creates the bind group layouts, the pipeline layout and the render pipeline.
	// Calling Build on a built pipeline is a no-op.
	//
	// Parameters:
	//   - device: the device to create the objects on
	//
	// Returns:
	//   - error: error if pipeline creation fails
	Build(device *wgpu.Device) error

	// RenderPipeline retrieves the built render pipeline, nil before Build.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// BindGroupLayout retrieves the built layout of a bind group, nil before Build or for unknown groups.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// Release frees the GPU objects created by Build.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline description. Depth testing and writing default to on with a
// Depth32Float attachment; the colour target defaults to RGBA32Float.
//
// Parameters:
//   - pipelineKey: the unique key of the pipeline
//   - s: the shader module
//   - opts: optional settings
//
// Returns:
//   - Pipeline: the new pipeline
func NewPipeline(pipelineKey string, s shader.Shader, opts ...PipelineBuilderOption) Pipeline {
	if s == nil {
		panic(fmt.Sprintf("pipeline: %s requires a shader", pipelineKey))
	}
	p := &pipeline{
		mu:                &sync.Mutex{},
		pipelineKey:       pipelineKey,
		shader:            s,
		colorFormat:       wgpu.TextureFormatRGBA32Float,
		depthFormat:       wgpu.TextureFormatDepth32Float,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renderPipeline
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroupLayouts[group]
}

func (p *pipeline) Build(device *wgpu.Device) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.renderPipeline != nil {
		return nil
	}

	module, err := device.CreateShaderModule(p.shader.Module())
	if err != nil {
		return fmt.Errorf("pipeline: %s: failed to create shader module: %w", p.pipelineKey, err)
	}
	defer module.Release()

	// bind group layouts must be contiguous from group 0
	descs := p.shader.BindGroupLayoutDescriptors()
	groups := make([]int, 0, len(descs))
	for g := range descs {
		groups = append(groups, g)
	}
	slices.Sort(groups)

	p.bindGroupLayouts = make(map[int]*wgpu.BindGroupLayout, len(groups))
	layouts := make([]*wgpu.BindGroupLayout, 0, len(groups))
	for i, g := range groups {
		if g != i {
			p.releaseLocked()
			return fmt.Errorf("pipeline: %s: bind group %d is not contiguous", p.pipelineKey, g)
		}
		desc := descs[g]
		desc.Label = fmt.Sprintf("%s_group_%d", p.pipelineKey, g)
		bgl, err := device.CreateBindGroupLayout(&desc)
		if err != nil {
			p.releaseLocked()
			return fmt.Errorf("pipeline: %s: failed to create bind group layout %d: %w", p.pipelineKey, g, err)
		}
		p.bindGroupLayouts[g] = bgl
		layouts = append(layouts, bgl)
	}

	p.pipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.pipelineKey + "_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		p.releaseLocked()
		return fmt.Errorf("pipeline: %s: failed to create pipeline layout: %w", p.pipelineKey, err)
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey,
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: p.shader.EntryPoint(shader.ShaderTypeVertex),
			Buffers:    p.shader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: p.shader.EntryPoint(shader.ShaderTypeFragment),
			Targets: []wgpu.ColorTargetState{{
				Format:    p.colorFormat,
				WriteMask: p.writeMask,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if p.depthFormat != wgpu.TextureFormatUndefined {
		compare := wgpu.CompareFunctionAlways
		if p.depthTestEnabled {
			compare = wgpu.CompareFunctionLess
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            p.depthFormat,
			DepthWriteEnabled: p.depthWriteEnabled,
			DepthCompare:      compare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	p.renderPipeline, err = device.CreateRenderPipeline(desc)
	if err != nil {
		p.releaseLocked()
		return fmt.Errorf("pipeline: %s: failed to create render pipeline: %w", p.pipelineKey, err)
	}
	return nil
}

func (p *pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
}

func (p *pipeline) releaseLocked() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for _, bgl := range p.bindGroupLayouts {
		bgl.Release()
	}
	p.bindGroupLayouts = nil
}
