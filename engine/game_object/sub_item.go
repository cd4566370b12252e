package game_object

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

type subItem struct {
	mu *sync.Mutex

	index  int
	mesh   *model.Mesh
	mat    material.Material
	params map[int][4]float32
}

// SubItem is the drawable unit of a GameObject: one mesh with one material and a
// sparse set of indexed custom shader parameters.
type SubItem interface {
	// Index returns the position of the sub-item within its object.
	Index() int

	// Mesh returns the geometry drawn by this sub-item.
	Mesh() *model.Mesh

	// Material returns the current material.
	Material() material.Material

	// SetMaterial replaces the current material.
	//
	// Parameters:
	//   - m: the new material
	SetMaterial(m material.Material)

	// CustomParameter returns the custom parameter stored at index.
	//
	// Parameters:
	//   - index: the parameter slot
	//
	// Returns:
	//   - [4]float32: the value
	//   - bool: false when the slot is unset
	CustomParameter(index int) ([4]float32, bool)

	// SetCustomParameter stores value at index.
	//
	// Parameters:
	//   - index: the parameter slot
	//   - value: the value
	SetCustomParameter(index int, value [4]float32)

	// RemoveCustomParameter clears the slot at index.
	//
	// Parameters:
	//   - index: the parameter slot
	RemoveCustomParameter(index int)
}

var _ SubItem = &subItem{}

func newSubItem(index int, mesh *model.Mesh, mat material.Material) *subItem {
	return &subItem{
		mu:     &sync.Mutex{},
		index:  index,
		mesh:   mesh,
		mat:    mat,
		params: make(map[int][4]float32),
	}
}

func (s *subItem) Index() int {
	return s.index
}

func (s *subItem) Mesh() *model.Mesh {
	return s.mesh
}

func (s *subItem) Material() material.Material {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mat
}

func (s *subItem) SetMaterial(m material.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mat = m
}

func (s *subItem) CustomParameter(index int) ([4]float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.params[index]
	return v, ok
}

func (s *subItem) SetCustomParameter(index int, value [4]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[index] = value
}

func (s *subItem) RemoveCustomParameter(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.params, index)
}
