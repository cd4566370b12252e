package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleBuffer packs three XY-plane positions followed by uint16 indices 0,1,2.
func triangleBuffer() []byte {
	var buf bytes.Buffer
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	_ = binary.Write(&buf, binary.LittleEndian, positions)
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2})
	return buf.Bytes()
}

// triangleDocument returns a single-node glTF document. An empty uri leaves the buffer for a GLB chunk.
func triangleDocument(uri string, node map[string]any, withMaterial bool) map[string]any {
	data := triangleBuffer()
	buffer := map[string]any{"byteLength": len(data)}
	if uri != "" {
		buffer["uri"] = uri
	}
	prim := map[string]any{"attributes": map[string]int{"POSITION": 0}, "indices": 1}
	doc := map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes":  []any{node},
		"meshes": []any{map[string]any{"primitives": []any{prim}}},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": gltfComponentTypeFloat, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": gltfComponentTypeUnsignedShort, "count": 3, "type": "SCALAR"},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 6},
		},
		"buffers": []any{buffer},
	}
	if withMaterial {
		prim["material"] = 0
		doc["materials"] = []any{map[string]any{
			"name":                 "paint",
			"pbrMetallicRoughness": map[string]any{"baseColorFactor": []float32{0.5, 0.25, 1, 1}, "metallicFactor": 0},
			"emissiveFactor":       []float32{1, 0, 0},
		}}
	}
	return doc
}

func dataURI() string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(triangleBuffer())
}

func marshalDoc(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return out
}

func glbContainer(jsonData, bin []byte) []byte {
	for len(jsonData)%4 != 0 {
		jsonData = append(jsonData, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}
	var buf bytes.Buffer
	total := 12 + 8 + len(jsonData) + 8 + len(bin)
	_ = binary.Write(&buf, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	_ = binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonData)), ChunkType: gltfGLBChunkJSON})
	buf.Write(jsonData)
	_ = binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	buf.Write(bin)
	return buf.Bytes()
}

func TestLoadReaderBakesTranslationAndMaterial(t *testing.T) {
	l := NewLoader()
	node := map[string]any{"mesh": 0, "translation": []float32{1, 2, 3}}
	asset, err := l.LoadReader("tri", bytes.NewReader(marshalDoc(t, triangleDocument(dataURI(), node, true))), false)
	require.NoError(t, err)

	require.Len(t, asset.Model.Meshes(), 1)
	mesh := asset.Model.Meshes()[0]
	assert.Equal(t, "tri", asset.Model.Name())
	assert.Equal(t, [][3]float32{{1, 2, 3}, {2, 2, 3}, {1, 3, 3}}, mesh.Positions)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	for _, n := range mesh.Normals {
		assert.InDeltaSlice(t, []float32{0, 0, 1}, n[:], 1e-6)
	}

	require.Len(t, asset.Materials, 1)
	assert.Equal(t, "paint", asset.Materials[0].Name())
	assert.Equal(t, [4]float32{0.5, 0.25, 1, 1}, asset.Materials[0].BaseColor())
	assert.Equal(t, float32(0), asset.Materials[0].Metallic())
	assert.Equal(t, float32(1), asset.Materials[0].Roughness())
	assert.Equal(t, [3]float32{1, 0, 0}, asset.Materials[0].Emissive())

	cached, ok := l.Get("tri")
	assert.True(t, ok)
	assert.True(t, cached.Model == asset.Model)
}

func TestLoadReaderGLBAndRotation(t *testing.T) {
	s := math32.Sqrt(0.5)
	node := map[string]any{"mesh": 0, "rotation": []float32{0, 0, s, s}}
	glb := glbContainer(marshalDoc(t, triangleDocument("", node, false)), triangleBuffer())

	fallback := material.NewMaterial(material.WithName("fallback"))
	l := NewLoader(WithDefaultMaterial(fallback))
	asset, err := l.LoadReader("rot", bytes.NewReader(glb), true)
	require.NoError(t, err)

	mesh := asset.Model.Meshes()[0]
	assert.InDeltaSlice(t, []float32{0, 1, 0}, mesh.Positions[1][:], 1e-6)
	assert.InDeltaSlice(t, []float32{-1, 0, 0}, mesh.Positions[2][:], 1e-6)
	assert.Equal(t, "fallback", asset.Materials[0].Name())
}

func TestLoadFileCachesByPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.bin"), triangleBuffer(), 0o644))
	path := filepath.Join(dir, "tri.gltf")
	require.NoError(t, os.WriteFile(path, marshalDoc(t, triangleDocument("tri.bin", map[string]any{"mesh": 0}, false)), 0o644))

	l := NewLoader()
	first, err := l.Load(path)
	require.NoError(t, err)
	second, err := l.Load(path)
	require.NoError(t, err)
	assert.True(t, first.Model == second.Model)
	assert.Len(t, l.Assets(), 1)

	_, err = l.Load(filepath.Join(dir, "tri.obj"))
	assert.ErrorContains(t, err, "unsupported model format")
	_, err = l.Load(filepath.Join(dir, "missing.glb"))
	assert.Error(t, err)
}

func TestLoadReaderRejectsInvalidDocuments(t *testing.T) {
	l := NewLoader()

	doc := triangleDocument(dataURI(), map[string]any{"mesh": 0}, false)
	doc["asset"] = map[string]any{"version": "1.0"}
	_, err := l.LoadReader("v1", bytes.NewReader(marshalDoc(t, doc)), false)
	assert.ErrorIs(t, err, errInvalidGLTFVersion)

	doc = triangleDocument(dataURI(), map[string]any{"mesh": 3}, false)
	_, err = l.LoadReader("missing-mesh", bytes.NewReader(marshalDoc(t, doc)), false)
	assert.ErrorContains(t, err, "missing mesh")

	doc = triangleDocument(dataURI(), map[string]any{}, false)
	_, err = l.LoadReader("empty", bytes.NewReader(marshalDoc(t, doc)), false)
	assert.ErrorContains(t, err, "no triangle meshes")

	_, err = l.LoadReader("bad-glb", strings.NewReader("not a glb file"), true)
	assert.ErrorIs(t, err, errInvalidGLBMagic)

	_, ok := l.Get("v1")
	assert.False(t, ok)
}
