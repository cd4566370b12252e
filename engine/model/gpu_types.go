package model

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Matches the VertexInput struct of the scene programs.
// Size: 24 bytes.
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal (12 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 24)
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Position[i]))
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(g.Normal[i]))
	}
	return buf
}

// VertexData packs the mesh into an interleaved GPUVertex buffer.
// Missing normals are written as zero.
//
// Returns:
//   - []byte: the vertex buffer contents
func (m *Mesh) VertexData() []byte {
	stride := (&GPUVertex{}).Size()
	buf := make([]byte, 0, stride*len(m.Positions))
	for i, p := range m.Positions {
		v := GPUVertex{Position: p}
		if i < len(m.Normals) {
			v.Normal = m.Normals[i]
		}
		buf = append(buf, v.Marshal()...)
	}
	return buf
}

// IndexData packs the index list as little-endian uint32 values.
//
// Returns:
//   - []byte: the index buffer contents
func (m *Mesh) IndexData() []byte {
	buf := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}
