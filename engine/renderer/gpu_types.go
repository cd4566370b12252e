package renderer

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// maxQuadParams is the number of float parameters a quad program can receive.
const maxQuadParams = 16

// GPUDrawUniform is the per-draw uniform of the scene program.
// Matches the WGSL DrawUniform struct.
// Size: 96 bytes.
type GPUDrawUniform struct {
	World    [16]float32                // offset  0: model-to-world matrix (mat4x4<f32>)
	Material material.GPUMaterialParams // offset 64: colour and emissive (two vec4<f32>)
}

// Size returns the size of the GPUDrawUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUDrawUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDrawUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload.
func (g *GPUDrawUniform) Marshal() []byte {
	buf := make([]byte, 0, 96)
	buf = appendFloats(buf, g.World[:])
	return append(buf, g.Material.Marshal()...)
}

// GPUQuadParams is the uniform shared by full-screen programs.
// Matches the WGSL QuadParams struct.
// Size: 144 bytes.
type GPUQuadParams struct {
	Corners    [4][4]float32          // offset   0: view-space far corners, w unused
	Params     [maxQuadParams]float32 // offset  64: program parameters
	TargetSize [4]float32             // offset 128: target width and height
}

// NewGPUQuadParams packs a quad pass for upload.
//
// Parameters:
//   - corners: the view-space far-plane corners
//   - params: the program parameters, at most 16
//   - width: the target width
//   - height: the target height
//
// Returns:
//   - GPUQuadParams: the packed uniform
func NewGPUQuadParams(corners [4][3]float32, params []float32, width, height uint32) GPUQuadParams {
	var q GPUQuadParams
	for i, c := range corners {
		q.Corners[i] = [4]float32{c[0], c[1], c[2], 0}
	}
	copy(q.Params[:], params)
	q.TargetSize = [4]float32{float32(width), float32(height), 0, 0}
	return q
}

// Size returns the size of the GPUQuadParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUQuadParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUQuadParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 144-byte buffer ready for GPU upload.
func (g *GPUQuadParams) Marshal() []byte {
	buf := make([]byte, 0, 144)
	for _, c := range g.Corners {
		buf = appendFloats(buf, c[:])
	}
	buf = appendFloats(buf, g.Params[:])
	return appendFloats(buf, g.TargetSize[:])
}

func appendFloats(buf []byte, vs []float32) []byte {
	for _, v := range vs {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func floatsFromBytes(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
