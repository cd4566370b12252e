package material

import (
	"sync"
)

// Scene programs understood by the renderer backends.
const (
	// ProgramFlat renders the base colour without lighting.
	ProgramFlat = "scene_flat"

	// ProgramCustomColor renders custom parameter CustomColorParamIndex of each sub-item as a flat colour.
	ProgramCustomColor = "scene_custom_color"
)

// material is the implementation of the Material interface.
type material struct {
	name      string
	baseColor [4]float32
	emissive  [3]float32
	metallic  float32
	roughness float32
	program   string
}

// Material defines the interface for a surface description attached to scene sub-items.
//
// Surface properties are fixed at construction. The renderer selects a scene program by
// Program(); the GI voxelizer reads the albedo and emissive terms.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo/diffuse RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Emissive retrieves the emitted radiance of the material.
	//
	// Returns:
	//   - [3]float32: emissive RGB
	Emissive() [3]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Program retrieves the scene program used to draw sub-items carrying this material.
	//
	// Returns:
	//   - string: the program key
	Program() string
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
		program:   ProgramFlat,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Emissive() [3]float32 {
	return m.emissive
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Program() string {
	return m.program
}

// System is the shared material context. It holds named materials and the global
// shading-quality flag consumed by lit programs.
type System interface {
	// Register stores m under its name, replacing any previous entry.
	//
	// Parameters:
	//   - m: the material to register
	Register(m Material)

	// Get returns the material registered under name.
	//
	// Parameters:
	//   - name: the material name
	//
	// Returns:
	//   - Material: the material
	//   - bool: false when no material has that name
	Get(name string) (Material, bool)

	// HighQuality reports whether high-quality shading is enabled.
	HighQuality() bool

	// SetHighQuality toggles high-quality shading for every lit program.
	//
	// Parameters:
	//   - enabled: the new flag value
	SetHighQuality(enabled bool)
}

type system struct {
	mu          *sync.Mutex
	materials   map[string]Material
	highQuality bool
}

var _ System = &system{}

// NewSystem creates an empty material System.
//
// Returns:
//   - System: the new material system
func NewSystem() System {
	return &system{
		mu:        &sync.Mutex{},
		materials: make(map[string]Material),
	}
}

func (s *system) Register(m Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[m.Name()] = m
}

func (s *system) Get(name string) (Material, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[name]
	return m, ok
}

func (s *system) HighQuality() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highQuality
}

func (s *system) SetHighQuality(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highQuality = enabled
}
