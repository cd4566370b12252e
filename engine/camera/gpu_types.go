package camera

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer used by scene passes.
// Matches the WGSL CameraUniform struct declared in the scene program.
// Size: 96 bytes (WGSL uniform aligned).
type GPUCameraUniform struct {
	ViewProj       [16]float32 // offset  0: combined view-projection matrix (mat4x4<f32>)
	CameraPosition [3]float32  // offset 64: world-space camera position (vec3<f32>)
	Near           float32     // offset 76: near clip distance
	Far            float32     // offset 80: far clip distance
	_pad           [3]float32  // offset 84: padding to 96 bytes
}

// NewGPUCameraUniform snapshots the camera state into its uniform layout.
//
// Parameters:
//   - c: the camera to snapshot
//
// Returns:
//   - GPUCameraUniform: the populated uniform
func NewGPUCameraUniform(c Camera) GPUCameraUniform {
	return GPUCameraUniform{
		ViewProj:       c.ViewProjectionMatrix(),
		CameraPosition: c.Position(),
		Near:           c.Near(),
		Far:            c.Far(),
	}
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.CameraPosition[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(g.Near))
	binary.LittleEndian.PutUint32(buf[80:], math.Float32bits(g.Far))
	return buf
}
