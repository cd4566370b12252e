package model

import (
	"github.com/Carmen-Shannon/oxy-sensors/common"
)

// Mesh is an indexed triangle list in model space.
type Mesh struct {
	Positions [][3]float32
	Normals   [][3]float32
	Indices   []uint32
}

// Bounds returns the model-space bounding box of the mesh.
//
// Returns:
//   - common.AABB: the bounds, empty for a mesh without vertices
func (m *Mesh) Bounds() common.AABB {
	b := common.EmptyAABB()
	for _, p := range m.Positions {
		b = b.Extend(p)
	}
	return b
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangle returns the three corners of triangle i.
//
// Parameters:
//   - i: triangle index in [0, TriangleCount())
//
// Returns:
//   - a, b, c: the triangle corners in model space
func (m *Mesh) Triangle(i int) (a, b, c [3]float32) {
	return m.Positions[m.Indices[i*3]], m.Positions[m.Indices[i*3+1]], m.Positions[m.Indices[i*3+2]]
}

// model is the implementation of the Model interface.
type model struct {
	name   string
	meshes []*Mesh
	bounds common.AABB
}

// Model defines the interface for renderable geometry shared between scene objects.
// A Model is a named list of meshes; each mesh becomes one sub-item of the
// objects that reference the model.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Meshes retrieves the sub-meshes of the model.
	//
	// Returns:
	//   - []*Mesh: the meshes, in sub-item order
	Meshes() []*Mesh

	// Bounds retrieves the model-space bounding box over all meshes.
	//
	// Returns:
	//   - common.AABB: the bounds
	Bounds() common.AABB
}

var _ Model = &model{}

// NewModel creates a new Model configured with the provided options.
//
// Parameters:
//   - options: variadic list of ModelBuilderOption functions to configure the model
//
// Returns:
//   - Model: a new Model instance
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	m.bounds = common.EmptyAABB()
	for _, mesh := range m.meshes {
		m.bounds = m.bounds.Merge(mesh.Bounds())
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Meshes() []*Mesh {
	return m.meshes
}

func (m *model) Bounds() common.AABB {
	return m.bounds
}
