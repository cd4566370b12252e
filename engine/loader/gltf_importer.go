package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	defaultMaterial material.Material
}

// gltfImporter converts a glTF document into a static Asset.
// Node transforms are baked into the mesh vertices and every triangle primitive becomes one mesh.
type gltfImporter interface {
	// Import parses and converts a glTF/GLB file.
	//
	// Parameters:
	//   - path: the file path
	//
	// Returns:
	//   - Asset: the imported asset
	//   - error: error if parsing or conversion fails
	Import(path string) (Asset, error)

	// ImportReader parses and converts a glTF/GLB stream.
	//
	// Parameters:
	//   - name: the asset name
	//   - r: the reader providing the document
	//   - isGLB: true for GLB binary data
	//   - baseDir: directory used to resolve external buffers
	//
	// Returns:
	//   - Asset: the imported asset
	//   - error: error if parsing or conversion fails
	ImportReader(name string, r io.Reader, isGLB bool, baseDir string) (Asset, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a glTF importer. Primitives without a material use defaultMaterial.
func newGLTFImporter(defaultMaterial material.Material) gltfImporter {
	return &gltfImporterImpl{defaultMaterial: defaultMaterial}
}

func (imp *gltfImporterImpl) Import(path string) (Asset, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return Asset{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return imp.convert(name, parser)
}

func (imp *gltfImporterImpl) ImportReader(name string, r io.Reader, isGLB bool, baseDir string) (Asset, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB, baseDir); err != nil {
		return Asset{}, err
	}
	return imp.convert(name, parser)
}

// convert walks the default scene (or every root node when no scene is declared) and collects
// one mesh and material per triangle primitive.
func (imp *gltfImporterImpl) convert(name string, parser gltfParser) (Asset, error) {
	doc := parser.Document()
	materials := make([]material.Material, len(doc.Materials))
	for i := range doc.Materials {
		materials[i] = gltfConvertMaterial(name, i, &doc.Materials[i])
	}

	var asset Asset
	var visit func(node int, parent [16]float32, depth int) error
	visit = func(node int, parent [16]float32, depth int) error {
		if node < 0 || node >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", node)
		}
		if depth > len(doc.Nodes) {
			return fmt.Errorf("node %d: cyclic hierarchy", node)
		}
		n := &doc.Nodes[node]
		var world [16]float32
		local := gltfNodeMatrix(n)
		common.Mul4(world[:], parent[:], local[:])

		if n.Mesh != nil {
			if *n.Mesh < 0 || *n.Mesh >= len(doc.Meshes) {
				return fmt.Errorf("node %d references missing mesh %d", node, *n.Mesh)
			}
			for pi := range doc.Meshes[*n.Mesh].Primitives {
				prim := &doc.Meshes[*n.Mesh].Primitives[pi]
				mesh, err := gltfExtractPrimitive(parser, prim, world)
				if err != nil {
					return fmt.Errorf("mesh %d primitive %d: %w", *n.Mesh, pi, err)
				}
				mat := imp.defaultMaterial
				if prim.Material != nil && *prim.Material >= 0 && *prim.Material < len(materials) {
					mat = materials[*prim.Material]
				}
				asset.meshes = append(asset.meshes, mesh)
				asset.Materials = append(asset.Materials, mat)
			}
		}
		for _, child := range n.Children {
			if err := visit(child, world, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range gltfRootNodes(doc) {
		if err := visit(root, common.IdentityMatrix(), 0); err != nil {
			return Asset{}, err
		}
	}
	if len(asset.meshes) == 0 {
		return Asset{}, fmt.Errorf("%q contains no triangle meshes", name)
	}

	asset.Model = model.NewModel(model.WithName(name), model.WithMeshes(asset.meshes...))
	asset.meshes = nil
	return asset, nil
}

// gltfRootNodes returns the root nodes of the default scene, or every unparented node.
func gltfRootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	parented := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(parented) {
				parented[c] = true
			}
		}
	}
	var roots []int
	for i, p := range parented {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

// gltfExtractPrimitive reads a triangle primitive and transforms it into the asset's space.
// Missing indices produce a sequential list. Missing normals are generated per face.
func gltfExtractPrimitive(parser gltfParser, prim *gltfPrimitive, world [16]float32) (*model.Mesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}
	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := parser.ReadVec3Accessor(posAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = parser.ReadIndicesAccessor(*prim.Indices); err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return nil, fmt.Errorf("index %d out of range for %d vertices", idx, len(positions))
		}
	}

	var normals [][3]float32
	if normalAccessor, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = parser.ReadVec3Accessor(normalAccessor); err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
	}

	mesh := &model.Mesh{
		Positions: make([][3]float32, len(positions)),
		Normals:   make([][3]float32, len(positions)),
		Indices:   indices,
	}
	for i, p := range positions {
		mesh.Positions[i] = common.TransformPoint(world[:], p)
	}
	if len(normals) == len(positions) {
		var normalMatrix [16]float32
		if !common.Invert4(normalMatrix[:], world[:]) {
			normalMatrix = world
		}
		normalMatrix = gltfTranspose(normalMatrix)
		for i, n := range normals {
			mesh.Normals[i] = common.Normalize3(common.TransformDirection(normalMatrix[:], n))
		}
	} else {
		gltfGenerateNormals(mesh)
	}
	return mesh, nil
}

// gltfGenerateNormals accumulates area-weighted face normals onto each vertex.
func gltfGenerateNormals(m *model.Mesh) {
	for i := range m.Normals {
		m.Normals[i] = [3]float32{}
	}
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		n := common.Cross3(common.Sub3(b, a), common.Sub3(c, a))
		for k := range 3 {
			idx := m.Indices[t*3+k]
			for j := range 3 {
				m.Normals[idx][j] += n[j]
			}
		}
	}
	for i, n := range m.Normals {
		if common.Length3(n) > 0 {
			m.Normals[i] = common.Normalize3(n)
		}
	}
}

// gltfNodeMatrix returns the node's local transform (column-major).
func gltfNodeMatrix(n *gltfNode) [16]float32 {
	if n.Matrix != nil {
		return *n.Matrix
	}

	t := [3]float32{}
	r := [4]float32{0, 0, 0, 1}
	s := [3]float32{1, 1, 1}
	if n.Translation != nil {
		t = *n.Translation
	}
	if n.Rotation != nil {
		r = *n.Rotation
	}
	if n.Scale != nil {
		s = *n.Scale
	}

	x, y, z, w := r[0], r[1], r[2], r[3]
	rot := [9]float32{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w),
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w),
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y),
	}
	var m [16]float32
	for col := range 3 {
		for row := range 3 {
			m[col*4+row] = rot[col*3+row] * s[col]
		}
	}
	m[12], m[13], m[14], m[15] = t[0], t[1], t[2], 1
	return m
}

func gltfTranspose(m [16]float32) [16]float32 {
	var out [16]float32
	for c := range 4 {
		for r := range 4 {
			out[c*4+r] = m[r*4+c]
		}
	}
	return out
}

// gltfConvertMaterial maps the scalar metallic-roughness factors onto a Material.
// Unnamed materials are named after the asset and their index.
func gltfConvertMaterial(assetName string, index int, m *gltfMaterial) material.Material {
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("%s_material_%d", assetName, index)
	}

	baseColor := [4]float32{1, 1, 1, 1}
	metallic, roughness := float32(1), float32(1)
	if pbr := m.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			baseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			roughness = *pbr.RoughnessFactor
		}
	}
	var emissive [3]float32
	if m.EmissiveFactor != nil {
		emissive = *m.EmissiveFactor
	}

	return material.NewMaterial(
		material.WithName(name),
		material.WithBaseColor(baseColor),
		material.WithMetallic(metallic),
		material.WithRoughness(roughness),
		material.WithEmissive(emissive),
	)
}
