package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// CustomColorParamIndex is the sub-item custom parameter drawn by ProgramCustomColor.
const CustomColorParamIndex = 10

// GPUMaterialParams is the GPU-aligned per-draw material uniform used by scene programs.
// Size: 32 bytes (two vec4<f32>).
type GPUMaterialParams struct {
	Color    [4]float32 // offset  0: base colour, or the custom colour for ProgramCustomColor
	Emissive [4]float32 // offset 16: emissive RGB, w unused
}

// NewGPUMaterialParams resolves the uniform for a material and the owning sub-item's custom colour.
//
// Parameters:
//   - m: the material
//   - custom: the sub-item custom colour (used by ProgramCustomColor)
//
// Returns:
//   - GPUMaterialParams: the resolved uniform
func NewGPUMaterialParams(m Material, custom [4]float32) GPUMaterialParams {
	p := GPUMaterialParams{Color: m.BaseColor()}
	if m.Program() == ProgramCustomColor {
		p.Color = custom
	}
	e := m.Emissive()
	p.Emissive = [4]float32{e[0], e[1], e[2], 0}
	return p
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Color[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Emissive[i]))
	}
	return buf
}
