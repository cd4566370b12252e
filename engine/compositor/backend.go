package compositor

import (
	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// ClearPass clears a colour target and, when present, its depth attachment.
type ClearPass struct {
	Target     Texture
	Depth      Texture
	Colour     [4]float32
	DepthValue float32
}

// Draw is one sub-item resolved at the time its scene pass was recorded.
type Draw struct {
	Mesh     *model.Mesh
	World    [16]float32
	Material material.Material
	Params   material.GPUMaterialParams
}

// ScenePass draws a list of sub-items into a colour target with depth testing.
type ScenePass struct {
	Target Texture
	Depth  Texture

	ViewProjection [16]float32
	Draws          []Draw
}

// QuadPass runs a full-screen program over Target.
type QuadPass struct {
	Target  Texture
	Program string
	Inputs  []Texture
	Params  []float32

	// Corners are the view-space far-plane corners: bottom-left, bottom-right, top-right, top-left.
	Corners [4][3]float32
}

// Backend executes compositor passes on a device.
//
// Passes are recorded between BeginFrame and EndFrame and must observe the inputs
// they were given at record time. EndFrame blocks until the frame has finished executing.
type Backend interface {
	// CreateTexture allocates a texture.
	//
	// Parameters:
	//   - desc: the texture description
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: error if the size or format is rejected
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// DestroyTexture releases a texture. Destroying a nil or released texture is a no-op.
	//
	// Parameters:
	//   - t: the texture to release
	DestroyTexture(t Texture)

	// WriteTexture uploads RGBA float data (row-major, row 0 first) into a colour texture.
	//
	// Parameters:
	//   - t: the destination texture
	//   - data: Width*Height*4 floats
	//
	// Returns:
	//   - error: error if the size does not match or the upload fails
	WriteTexture(t Texture, data []float32) error

	// ReadTexture reads a texture back as Width*Height*Format().Channels() floats.
	//
	// Parameters:
	//   - t: the texture to read
	//
	// Returns:
	//   - []float32: the texel data, row-major
	//   - error: error if the readback fails
	ReadTexture(t Texture) ([]float32, error)

	// BeginFrame starts recording a frame.
	//
	// Returns:
	//   - error: error if a frame is already being recorded
	BeginFrame() error

	// Clear records a clear pass.
	Clear(pass ClearPass) error

	// DrawScene records a scene pass.
	DrawScene(pass ScenePass) error

	// DrawQuad records a full-screen program pass.
	DrawQuad(pass QuadPass) error

	// EndFrame submits the recorded passes and waits for them to complete.
	//
	// Returns:
	//   - error: error if submission fails
	EndFrame() error
}

// QuadInvocation is the per-texel input of a QuadKernel.
type QuadInvocation struct {
	X, Y          int
	Width, Height int
	UV            [2]float32
	Params        []float32
	Corners       [4][3]float32

	// Load returns texel (x, y) of input unit; depth inputs return (depth, 0, 0, 1).
	Load func(unit, x, y int) [4]float32
	// Size returns the dimensions of input unit.
	Size func(unit int) (w, h int)
}

// QuadKernel is a CPU implementation of a quad program evaluated once per target texel.
type QuadKernel func(in QuadInvocation) [4]float32

// FarCorner interpolates the view-space far-plane corners at uv (v grows downward).
//
// Parameters:
//   - corners: bottom-left, bottom-right, top-right, top-left far corners
//   - uv: texture coordinate in [0, 1]^2
//
// Returns:
//   - [3]float32: the interpolated view-space far point
func FarCorner(corners [4][3]float32, uv [2]float32) [3]float32 {
	var out [3]float32
	for i := range 3 {
		bottom := corners[0][i] + (corners[1][i]-corners[0][i])*uv[0]
		top := corners[3][i] + (corners[2][i]-corners[3][i])*uv[0]
		out[i] = top + (bottom-top)*uv[1]
	}
	return out
}

// ViewFarCorners returns the view-space far-plane corners of cam.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - [4][3]float32: bottom-left, bottom-right, top-right, top-left
func ViewFarCorners(cam camera.Camera) [4][3]float32 {
	proj := cam.ProjectionMatrix()
	var invProj [16]float32
	if !common.Invert4(invProj[:], proj[:]) {
		return [4][3]float32{}
	}
	ndc := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	var out [4][3]float32
	for i, c := range ndc {
		out[i] = common.TransformPoint(invProj[:], [3]float32{c[0], c[1], 1})
	}
	return out
}
