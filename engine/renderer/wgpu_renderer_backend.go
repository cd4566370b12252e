package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoAdapter is returned when no GPU adapter (hardware or fallback) is available.
var ErrNoAdapter = errors.New("renderer: no GPU adapter available")

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode

	// Frame state shared by every pass recorded between BeginFrame and EndFrame
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue

	// HasSurface reports whether the backend was created with a presentation surface.
	HasSurface() bool

	// ConfigureSurface configures the presentation surface for a new size.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// SurfaceFormat returns the format chosen by ConfigureSurface.
	SurfaceFormat() wgpu.TextureFormat

	// SetPresentMode sets the present mode used by the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// CreateTexture allocates a single-sample 2D texture and its default view.
	//
	// Parameters:
	//   - label: the debug label
	//   - width: the width in texels
	//   - height: the height in texels
	//   - format: the texture format
	//   - usage: the texture usage flags
	//
	// Returns:
	//   - *wgpu.Texture: the texture
	//   - *wgpu.TextureView: its default view
	//   - error: error if creation fails
	CreateTexture(label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error)

	// WriteTexture uploads tightly packed rows into a texture.
	WriteTexture(tex *wgpu.Texture, data []byte, width, height, texelSize uint32) error

	// ReadTexture copies a texture into a mappable buffer and returns its tightly packed rows.
	// Depth textures are copied through their depth aspect.
	ReadTexture(tex *wgpu.Texture, width, height, texelSize uint32, depth bool) ([]byte, error)

	// CreateBuffer creates a buffer of len(data) bytes and uploads data into it.
	CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// InitMeshBuffers creates the vertex and index buffers of a mesh on provider.
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// BeginFrame creates the command encoder shared by the frame's passes.
	BeginFrame() error

	// BeginPass opens a render pass on the frame encoder. A nil clear colour loads the existing
	// colour and a nil clear depth loads the existing depth.
	BeginPass(color, depth *wgpu.TextureView, clearColor *wgpu.Color, clearDepth *float32) error

	// DrawCall encodes an indexed draw of a mesh within the current pass.
	DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider)

	// DrawFullscreen encodes the three-vertex full-screen triangle within the current pass.
	DrawFullscreen(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider)

	// EndPass closes the current render pass.
	EndPass() error

	// EndFrame submits the frame encoder and waits for the queue to drain.
	EndFrame() error

	// AcquireSurface returns the current surface texture and a view of it.
	AcquireSurface() (*wgpu.Texture, *wgpu.TextureView, error)

	// Present presents the acquired surface texture.
	Present()

	// Release frees the device, adapter, surface and instance.
	Release()
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	if surfaceDescriptor != nil {
		w.surface = w.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil || a == nil {
		w.Release()
		return nil, errors.Join(ErrNoAdapter, err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Sensor Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("renderer: failed to request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()
	return w, nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) HasSurface() bool {
	return b.surface != nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presentMode = mode.wgpu()
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (b *wgpuRendererBackendImpl) WriteTexture(tex *wgpu.Texture, data []byte, width, height, texelSize uint32) error {
	return b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * texelSize,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
}

func (b *wgpuRendererBackendImpl) ReadTexture(tex *wgpu.Texture, width, height, texelSize uint32, depth bool) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	paddedRow := alignedBytesPerRow(width, texelSize)
	size := uint64(paddedRow) * uint64(height)
	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()

	aspect := wgpu.TextureAspectAll
	if depth {
		aspect = wgpu.TextureAspectDepthOnly
	}
	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: aspect},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{Offset: 0, BytesPerRow: paddedRow, RowsPerImage: height},
		},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return nil, err
	}
	cb, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	b.queue.Submit(cb)
	cb.Release()

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, err
	}
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("renderer: readback map failed: %s", status.String())
	}

	mapped := staging.GetMappedRange(0, uint(size))
	row := width * texelSize
	out := make([]byte, 0, uint64(row)*uint64(height))
	for y := range height {
		start := y * paddedRow
		out = append(out, mapped[start:start+row]...)
	}
	staging.Unmap()
	return out, nil
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if err := b.queue.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	vertex, err := b.CreateBuffer(provider.Label()+"_vertices", vertexData, wgpu.BufferUsageVertex)
	if err != nil {
		return fmt.Errorf("renderer: failed to create vertex buffer: %w", err)
	}
	index, err := b.CreateBuffer(provider.Label()+"_indices", indexData, wgpu.BufferUsageIndex)
	if err != nil {
		vertex.Release()
		return fmt.Errorf("renderer: failed to create index buffer: %w", err)
	}
	provider.SetMesh(vertex, index, indexCount)
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frameEncoder != nil {
		return errors.New("renderer: frame already being recorded")
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) BeginPass(color, depth *wgpu.TextureView, clearColor *wgpu.Color, clearDepth *float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frameEncoder == nil {
		return errors.New("renderer: no frame being recorded")
	}
	if b.framePass != nil {
		return errors.New("renderer: render pass already open")
	}

	colorAttachment := wgpu.RenderPassColorAttachment{
		View:    color,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if clearColor != nil {
		colorAttachment.LoadOp = wgpu.LoadOpClear
		colorAttachment.ClearValue = *clearColor
	}
	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{colorAttachment},
	}
	if depth != nil {
		depthAttachment := &wgpu.RenderPassDepthStencilAttachment{
			View:         depth,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if clearDepth != nil {
			depthAttachment.DepthLoadOp = wgpu.LoadOpClear
			depthAttachment.DepthClearValue = *clearDepth
		}
		desc.DepthStencilAttachment = depthAttachment
	}
	b.framePass = b.frameEncoder.BeginRenderPass(desc)
	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	meshProvider bind_group_provider.BindGroupProvider,
	bindGroups []bind_group_provider.BindGroupProvider,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.SetPipeline(p.RenderPipeline())
	for i, bg := range bindGroups {
		b.framePass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	b.framePass.SetVertexBuffer(0, meshProvider.VertexBuffer(), 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(meshProvider.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(meshProvider.IndexCount()), 1, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) DrawFullscreen(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.SetPipeline(p.RenderPipeline())
	for i, bg := range bindGroups {
		b.framePass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	b.framePass.Draw(3, 1, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.framePass == nil {
		return nil
	}
	err := b.framePass.End()
	b.framePass.Release()
	b.framePass = nil
	return err
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frameEncoder == nil {
		return errors.New("renderer: no frame being recorded")
	}
	defer func() {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("renderer: failed to finish frame: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.device.Poll(true, nil)
	return nil
}

func (b *wgpuRendererBackendImpl) AcquireSurface() (*wgpu.Texture, *wgpu.TextureView, error) {
	if b.surface == nil {
		return nil, nil, errors.New("renderer: no presentation surface")
	}
	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, nil, err
	}
	return surfaceTexture, view, nil
}

func (b *wgpuRendererBackendImpl) Present() {
	if b.surface != nil {
		b.surface.Present()
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
