package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Programs served by the renderer besides the quad programs registered by callers.
const (
	programScene   = "scene"
	programPreview = "preview"
)

// PreviewParams selects how Present maps a texture onto the surface.
type PreviewParams struct {
	// Range shows the red channel as greyscale between Min (white) and Max (black).
	Range    bool
	Min, Max float32
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger *slog.Logger

	backend wgpuRendererBackend

	// pipelineCache holds built pipelines keyed by program, target format and depth format
	pipelineCache map[string]pipeline.Pipeline
	shaderCache   map[string]shader.Shader
	meshCache     map[*model.Mesh]bind_group_provider.BindGroupProvider
	textures      map[string]*gpuTexture

	// providers created for the frame being recorded, released by EndFrame
	frameProviders []bind_group_provider.BindGroupProvider
	recording      bool

	// Pre-creation config collected from builder options
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	surfaceWidth         int
	surfaceHeight        int
	forceFallbackAdapter bool
	presentMode          PresentMode
}

// Renderer executes compositor passes on a WebGPU device and optionally presents textures
// to a window surface.
type Renderer interface {
	compositor.Backend

	// Resize reconfigures the presentation surface. It is a no-op for headless renderers.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// Present draws a texture onto the presentation surface and presents it.
	//
	// Parameters:
	//   - source: a colour texture
	//   - params: the preview mapping
	//
	// Returns:
	//   - error: error if the renderer is headless or the frame fails
	Present(source compositor.Texture, params PreviewParams) error

	// Release frees every texture, pipeline and mesh buffer and then the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on the first available adapter.
//
// Parameters:
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: ErrNoAdapter when no GPU is available, or the device creation error
func NewRenderer(options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		logger:        slog.Default(),
		pipelineCache: make(map[string]pipeline.Pipeline),
		shaderCache:   make(map[string]shader.Shader),
		meshCache:     make(map[*model.Mesh]bind_group_provider.BindGroupProvider),
		textures:      make(map[string]*gpuTexture),
	}
	for _, opt := range options {
		opt(r)
	}

	backend, err := newWGPURendererBackend(r.surfaceDescriptor, r.forceFallbackAdapter)
	if err != nil {
		return nil, err
	}
	r.backend = backend
	r.backend.SetPresentMode(r.presentMode)
	r.backend.ConfigureSurface(r.surfaceWidth, r.surfaceHeight)
	return r, nil
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	r.surfaceWidth, r.surfaceHeight = width, height
	r.mu.Unlock()
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) CreateTexture(desc compositor.TextureDescriptor) (compositor.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("renderer: texture %q has zero size", desc.Name)
	}
	format, texelSize, err := textureFormat(desc.Format)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.textures[desc.Name]; ok {
		return nil, fmt.Errorf("renderer: texture %q already exists", desc.Name)
	}

	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc
	if !desc.Format.IsDepth() {
		usage |= wgpu.TextureUsageCopyDst
	}
	tex, view, err := r.backend.CreateTexture(desc.Name, desc.Width, desc.Height, format, usage)
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to create texture %q: %w", desc.Name, err)
	}
	t := &gpuTexture{desc: desc, format: format, texelSize: texelSize, texture: tex, view: view}
	r.textures[desc.Name] = t
	return t, nil
}

func (r *renderer) DestroyTexture(t compositor.Texture) {
	tex, ok := t.(*gpuTexture)
	if !ok || tex == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if tex.released {
		return
	}
	delete(r.textures, tex.desc.Name)
	tex.release()
}

func (r *renderer) WriteTexture(t compositor.Texture, data []float32) error {
	tex, err := r.live(t)
	if err != nil {
		return err
	}
	if tex.desc.Format.IsDepth() {
		return fmt.Errorf("renderer: cannot write depth texture %q", tex.desc.Name)
	}
	want := int(tex.desc.Width) * int(tex.desc.Height) * 4
	if len(data) != want {
		return fmt.Errorf("renderer: texture %q wants %d floats, got %d", tex.desc.Name, want, len(data))
	}

	var raw []byte
	switch tex.desc.Format {
	case compositor.FormatRGBA8Unorm:
		raw = make([]byte, len(data))
		for i, v := range data {
			raw[i] = uint8(math.Round(float64(common.Clamp(v, 0, 1)) * 255))
		}
	default:
		raw = appendFloats(make([]byte, 0, len(data)*4), data)
	}
	if err := r.backend.WriteTexture(tex.texture, raw, tex.desc.Width, tex.desc.Height, tex.texelSize); err != nil {
		return fmt.Errorf("renderer: failed to write texture %q: %w", tex.desc.Name, err)
	}
	return nil
}

func (r *renderer) ReadTexture(t compositor.Texture) ([]float32, error) {
	tex, err := r.live(t)
	if err != nil {
		return nil, err
	}
	raw, err := r.backend.ReadTexture(tex.texture, tex.desc.Width, tex.desc.Height, tex.texelSize, tex.desc.Format.IsDepth())
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to read texture %q: %w", tex.desc.Name, err)
	}
	if tex.desc.Format == compositor.FormatRGBA8Unorm {
		out := make([]float32, len(raw))
		for i, v := range raw {
			out[i] = float32(v) / 255
		}
		return out, nil
	}
	return floatsFromBytes(raw), nil
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return errors.New("renderer: frame already being recorded")
	}
	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	r.recording = true
	return nil
}

func (r *renderer) Clear(pass compositor.ClearPass) error {
	target, depth, err := r.attachments(pass.Target, pass.Depth)
	if err != nil {
		return err
	}
	c := pass.Colour
	clearColor := &wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
	var depthView *wgpu.TextureView
	var clearDepth *float32
	if depth != nil {
		depthView = depth.view
		clearDepth = &pass.DepthValue
	}
	if err := r.backend.BeginPass(target.view, depthView, clearColor, clearDepth); err != nil {
		return err
	}
	return r.backend.EndPass()
}

func (r *renderer) DrawScene(pass compositor.ScenePass) error {
	target, depth, err := r.attachments(pass.Target, pass.Depth)
	if err != nil {
		return err
	}
	depthFormat := wgpu.TextureFormatUndefined
	var depthView *wgpu.TextureView
	if depth != nil {
		depthFormat = depth.format
		depthView = depth.view
	}
	p, err := r.scenePipeline(target.format, depthFormat)
	if err != nil {
		return err
	}

	cam := camera.GPUCameraUniform{ViewProj: pass.ViewProjection}
	camProvider, err := r.uniformProvider("scene_camera", p, 0, cam.Marshal())
	if err != nil {
		return err
	}

	type draw struct {
		mesh     bind_group_provider.BindGroupProvider
		uniforms bind_group_provider.BindGroupProvider
	}
	draws := make([]draw, 0, len(pass.Draws))
	for _, d := range pass.Draws {
		if d.Mesh == nil || len(d.Mesh.Indices) == 0 {
			continue
		}
		mesh, err := r.meshProvider(d.Mesh)
		if err != nil {
			return err
		}
		u := GPUDrawUniform{World: d.World, Material: d.Params}
		uniforms, err := r.uniformProvider("scene_draw", p, 1, u.Marshal())
		if err != nil {
			return err
		}
		draws = append(draws, draw{mesh: mesh, uniforms: uniforms})
	}

	if err := r.backend.BeginPass(target.view, depthView, nil, nil); err != nil {
		return err
	}
	for _, d := range draws {
		r.backend.DrawCall(p, d.mesh, []bind_group_provider.BindGroupProvider{camProvider, d.uniforms})
	}
	return r.backend.EndPass()
}

func (r *renderer) DrawQuad(pass compositor.QuadPass) error {
	target, _, err := r.attachments(pass.Target, nil)
	if err != nil {
		return err
	}
	if len(pass.Params) > maxQuadParams {
		return fmt.Errorf("renderer: program %q takes at most %d params, got %d", pass.Program, maxQuadParams, len(pass.Params))
	}
	inputs := make([]*gpuTexture, len(pass.Inputs))
	for i, in := range pass.Inputs {
		if inputs[i], err = r.live(in); err != nil {
			return err
		}
		if inputs[i] == target {
			return fmt.Errorf("renderer: program %q reads its own target %q", pass.Program, target.desc.Name)
		}
	}

	p, err := r.quadPipeline(pass.Program, target.format)
	if err != nil {
		return err
	}
	if want := len(p.Shader().BindGroupLayoutDescriptors()[0].Entries) - 1; want != len(inputs) {
		return fmt.Errorf("renderer: program %q: %w: want %d, got %d", pass.Program, compositor.ErrInputMismatch, want, len(inputs))
	}

	params := NewGPUQuadParams(pass.Corners, pass.Params, target.desc.Width, target.desc.Height)
	provider, err := r.quadProvider(pass.Program, p, params.Marshal(), inputs)
	if err != nil {
		return err
	}

	if err := r.backend.BeginPass(target.view, nil, nil, nil); err != nil {
		return err
	}
	r.backend.DrawFullscreen(p, []bind_group_provider.BindGroupProvider{provider})
	return r.backend.EndPass()
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return errors.New("renderer: no frame being recorded")
	}
	r.recording = false
	err := r.backend.EndFrame()
	for _, p := range r.frameProviders {
		p.Release()
	}
	r.frameProviders = r.frameProviders[:0]
	return err
}

func (r *renderer) Present(source compositor.Texture, params PreviewParams) error {
	if !r.backend.HasSurface() {
		return errors.New("renderer: headless renderer cannot present")
	}
	src, err := r.live(source)
	if err != nil {
		return err
	}
	if src.desc.Format.IsDepth() {
		return fmt.Errorf("renderer: cannot preview depth texture %q", src.desc.Name)
	}
	p, err := r.quadPipeline(programPreview, r.backend.SurfaceFormat())
	if err != nil {
		return err
	}

	surfaceTexture, view, err := r.backend.AcquireSurface()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()
	defer view.Release()

	mode := float32(0)
	if params.Range {
		mode = 1
	}
	r.mu.Lock()
	width, height := uint32(r.surfaceWidth), uint32(r.surfaceHeight)
	r.mu.Unlock()
	q := NewGPUQuadParams([4][3]float32{}, []float32{mode, params.Min, params.Max}, width, height)

	if err := r.BeginFrame(); err != nil {
		return err
	}
	provider, err := r.quadProvider(programPreview, p, q.Marshal(), []*gpuTexture{src})
	if err == nil {
		if err = r.backend.BeginPass(view, nil, &wgpu.Color{A: 1}, nil); err == nil {
			r.backend.DrawFullscreen(p, []bind_group_provider.BindGroupProvider{provider})
			err = r.backend.EndPass()
		}
	}
	if endErr := r.EndFrame(); err == nil {
		err = endErr
	}
	if err != nil {
		return err
	}
	r.backend.Present()
	return nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, t := range r.textures {
		t.release()
		delete(r.textures, name)
	}
	for m, p := range r.meshCache {
		p.Release()
		delete(r.meshCache, m)
	}
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.backend.Release()
}

// live resolves a compositor texture to a texture owned by this renderer.
func (r *renderer) live(t compositor.Texture) (*gpuTexture, error) {
	tex, ok := t.(*gpuTexture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("renderer: foreign texture %T", t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if tex.released {
		return nil, fmt.Errorf("renderer: texture %q was destroyed", tex.desc.Name)
	}
	return tex, nil
}

// attachments resolves a colour target and an optional depth attachment.
func (r *renderer) attachments(target, depth compositor.Texture) (*gpuTexture, *gpuTexture, error) {
	r.mu.Lock()
	recording := r.recording
	r.mu.Unlock()
	if !recording {
		return nil, nil, errors.New("renderer: no frame being recorded")
	}
	t, err := r.live(target)
	if err != nil {
		return nil, nil, err
	}
	if t.desc.Format.IsDepth() {
		return nil, nil, fmt.Errorf("renderer: %q is not a colour target", t.desc.Name)
	}
	if depth == nil {
		return t, nil, nil
	}
	d, err := r.live(depth)
	if err != nil {
		return nil, nil, err
	}
	if !d.desc.Format.IsDepth() || d.desc.Width != t.desc.Width || d.desc.Height != t.desc.Height {
		return nil, nil, fmt.Errorf("renderer: %q is not a depth attachment for %q", d.desc.Name, t.desc.Name)
	}
	return t, d, nil
}

func (r *renderer) loadShader(name string) (shader.Shader, error) {
	if s, ok := r.shaderCache[name]; ok {
		return s, nil
	}
	s, err := shader.Load(name)
	if err != nil {
		return nil, err
	}
	r.shaderCache[name] = s
	return s, nil
}

func (r *renderer) scenePipeline(color, depth wgpu.TextureFormat) (pipeline.Pipeline, error) {
	opts := []pipeline.PipelineBuilderOption{pipeline.WithColorFormat(color), pipeline.WithDepthFormat(depth)}
	if depth == wgpu.TextureFormatUndefined {
		opts = append(opts, pipeline.WithoutDepth())
	}
	return r.cachedPipeline(programScene, color, depth, opts...)
}

func (r *renderer) quadPipeline(program string, color wgpu.TextureFormat) (pipeline.Pipeline, error) {
	return r.cachedPipeline(program, color, wgpu.TextureFormatUndefined, pipeline.WithColorFormat(color), pipeline.WithoutDepth())
}

func (r *renderer) cachedPipeline(program string, color, depth wgpu.TextureFormat, opts ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error) {
	key := fmt.Sprintf("%s|%d|%d", program, color, depth)
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pipelineCache[key]; ok {
		return p, nil
	}
	s, err := r.loadShader(program)
	if err != nil {
		return nil, err
	}
	p := pipeline.NewPipeline(key, s, opts...)
	if err := p.Build(r.backend.Device()); err != nil {
		return nil, err
	}
	r.pipelineCache[key] = p
	r.logger.Debug("renderer: built pipeline", "program", program, "color", color, "depth", depth)
	return p, nil
}

func (r *renderer) meshProvider(m *model.Mesh) (bind_group_provider.BindGroupProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.meshCache[m]; ok && p.IndexCount() == len(m.Indices) {
		return p, nil
	} else if ok {
		p.Release()
	}
	p := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("mesh_%p", m))
	if err := r.backend.InitMeshBuffers(p, m.VertexData(), m.IndexData(), len(m.Indices)); err != nil {
		return nil, err
	}
	r.meshCache[m] = p
	return p, nil
}

// uniformProvider creates a frame-scoped bind group holding one uniform buffer at binding 0.
func (r *renderer) uniformProvider(label string, p pipeline.Pipeline, group int, data []byte) (bind_group_provider.BindGroupProvider, error) {
	buf, err := r.backend.CreateBuffer(label, data, wgpu.BufferUsageUniform)
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to create %s uniform: %w", label, err)
	}
	provider := bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithBuffer(0, buf))
	return r.buildFrameProvider(provider, p, group)
}

// quadProvider creates a frame-scoped bind group with the quad uniform and one view per input.
func (r *renderer) quadProvider(label string, p pipeline.Pipeline, params []byte, inputs []*gpuTexture) (bind_group_provider.BindGroupProvider, error) {
	buf, err := r.backend.CreateBuffer(label+"_params", params, wgpu.BufferUsageUniform)
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to create %s uniform: %w", label, err)
	}
	provider := bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithBuffer(0, buf))
	for i, in := range inputs {
		provider.SetTextureView(i+1, in.view)
	}
	return r.buildFrameProvider(provider, p, 0)
}

func (r *renderer) buildFrameProvider(provider bind_group_provider.BindGroupProvider, p pipeline.Pipeline, group int) (bind_group_provider.BindGroupProvider, error) {
	if err := provider.Build(r.backend.Device(), p.BindGroupLayout(group)); err != nil {
		provider.Release()
		return nil, err
	}
	r.mu.Lock()
	r.frameProviders = append(r.frameProviders, provider)
	r.mu.Unlock()
	return provider, nil
}
