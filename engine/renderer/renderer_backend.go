package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how preview frames are delivered to the display.
type PresentMode int

const (
	// PresentModeVSync waits for the vertical blank (FIFO).
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately.
	PresentModeUncapped
)

func (m PresentMode) wgpu() wgpu.PresentMode {
	if m == PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}

// textureFormat maps a compositor format to its wgpu format and texel size in bytes.
func textureFormat(f compositor.TextureFormat) (wgpu.TextureFormat, uint32, error) {
	switch f {
	case compositor.FormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float, 16, nil
	case compositor.FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, 4, nil
	case compositor.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float, 4, nil
	default:
		return wgpu.TextureFormatUndefined, 0, fmt.Errorf("renderer: unsupported texture format %v", f)
	}
}

// gpuTexture is the wgpu implementation of compositor.Texture.
type gpuTexture struct {
	desc      compositor.TextureDescriptor
	format    wgpu.TextureFormat
	texelSize uint32
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	released  bool
}

var _ compositor.Texture = &gpuTexture{}

func (t *gpuTexture) Name() string                     { return t.desc.Name }
func (t *gpuTexture) Width() uint32                    { return t.desc.Width }
func (t *gpuTexture) Height() uint32                   { return t.desc.Height }
func (t *gpuTexture) Format() compositor.TextureFormat { return t.desc.Format }

func (t *gpuTexture) release() {
	if t.released {
		return
	}
	t.released = true
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

// alignedBytesPerRow pads a row to the 256-byte copy alignment.
func alignedBytesPerRow(width, texelSize uint32) uint32 {
	const align = 256
	row := width * texelSize
	return (row + align - 1) / align * align
}
