package compositor

import "fmt"

// TextureFormat identifies the pixel layout of a compositor texture.
type TextureFormat int

const (
	// FormatRGBA32Float stores four 32-bit float channels per texel.
	FormatRGBA32Float TextureFormat = iota

	// FormatRGBA8Unorm stores four normalized 8-bit channels per texel.
	FormatRGBA8Unorm

	// FormatDepth32Float stores a single 32-bit float depth value per texel.
	FormatDepth32Float
)

// String returns the format name.
func (f TextureFormat) String() string {
	switch f {
	case FormatRGBA32Float:
		return "rgba32float"
	case FormatRGBA8Unorm:
		return "rgba8unorm"
	case FormatDepth32Float:
		return "depth32float"
	default:
		return fmt.Sprintf("TextureFormat(%d)", int(f))
	}
}

// IsDepth reports whether the format is a depth format.
func (f TextureFormat) IsDepth() bool {
	return f == FormatDepth32Float
}

// Channels returns the number of float values per texel returned by ReadTexture.
func (f TextureFormat) Channels() int {
	if f.IsDepth() {
		return 1
	}
	return 4
}

// TextureDescriptor describes a 2D texture to create.
type TextureDescriptor struct {
	Name   string
	Width  uint32
	Height uint32
	Format TextureFormat
}

// Texture is a backend-owned 2D texture handle.
type Texture interface {
	// Name returns the texture's unique name.
	Name() string

	// Width returns the width in texels.
	Width() uint32

	// Height returns the height in texels.
	Height() uint32

	// Format returns the pixel format.
	Format() TextureFormat
}
