package scene

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/light"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// ErrVisualNotFound is returned by VisualByID when no object has the requested ID.
var ErrVisualNotFound = errors.New("scene: visual not found")

// Scene manages the GameObjects, lights and shared material system rendered by
// sensors and voxelized by GI. Objects are assigned IDs on Add and enumerated in
// ID order. Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Count returns the number of objects in the scene.
	//
	// Returns:
	//   - int: object count
	Count() int

	// Add adds a GameObject and assigns it a new ID.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the assigned object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves an object by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// VisualByID retrieves an object by its ID, reporting ErrVisualNotFound when it is missing.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object
	//   - error: wrapped ErrVisualNotFound when no such object exists
	VisualByID(id uint64) (game_object.GameObject, error)

	// Remove removes an object by ID. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// Objects returns every object in ascending ID order.
	//
	// Returns:
	//   - []game_object.GameObject: snapshot of the scene objects
	Objects() []game_object.GameObject

	// Visible returns the enabled objects whose visibility flags intersect mask, in ID order.
	//
	// Parameters:
	//   - mask: the pass visibility mask
	//
	// Returns:
	//   - []game_object.GameObject: the matching objects
	Visible(mask uint32) []game_object.GameObject

	// Clear removes all objects and lights from the scene.
	Clear()

	// AddLight adds a free-standing light source to the scene.
	//
	// Parameters:
	//   - l: the Light to add
	AddLight(l light.Light)

	// RemoveLight removes a previously added light.
	//
	// Parameters:
	//   - l: the Light to remove
	RemoveLight(l light.Light)

	// Lights returns the free-standing lights followed by the lights attached to enabled objects.
	//
	// Returns:
	//   - []light.Light: snapshot of the scene lights
	Lights() []light.Light

	// AmbientColor returns the scene's ambient light color.
	//
	// Returns:
	//   - [3]float32: the ambient RGB color
	AmbientColor() [3]float32

	// SetAmbientColor sets the scene's ambient light color.
	//
	// Parameters:
	//   - color: the ambient RGB color
	SetAmbientColor(color [3]float32)

	// Materials returns the shared material system.
	//
	// Returns:
	//   - material.System: the material system
	Materials() material.System
}

type scene struct {
	mu *sync.RWMutex

	name string

	registry map[uint64]game_object.GameObject
	nextID   uint64

	lights       []light.Light
	ambientColor [3]float32
	materials    material.System
}

var _ Scene = &scene{}

// NewScene creates a new empty Scene with the provided options applied.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:           &sync.RWMutex{},
		registry:     make(map[uint64]game_object.GameObject),
		nextID:       1,
		ambientColor: [3]float32{0.03, 0.03, 0.03},
	}
	for _, option := range options {
		option(s)
	}
	if s.materials == nil {
		s.materials = material.NewSystem()
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(obj)
}

// add registers obj under a fresh ID. Caller must hold the write lock.
func (s *scene) add(obj game_object.GameObject) uint64 {
	id := s.nextID
	s.nextID++
	obj.SetID(id)
	s.registry[id] = obj
	for _, sub := range obj.SubItems() {
		if m := sub.Material(); m != nil && m.Name() != "" {
			if _, ok := s.materials.Get(m.Name()); !ok {
				s.materials.Register(m)
			}
		}
	}
	return id
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) VisualByID(id uint64) (game_object.GameObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.registry[id]
	if !ok {
		return nil, fmt.Errorf("visual %d: %w", id, ErrVisualNotFound)
	}
	return obj, nil
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registry, id)
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, 0, len(s.registry))
	for id := range s.registry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]game_object.GameObject, len(ids))
	for i, id := range ids {
		out[i] = s.registry[id]
	}
	return out
}

func (s *scene) Visible(mask uint32) []game_object.GameObject {
	var out []game_object.GameObject
	for _, obj := range s.Objects() {
		if obj.Enabled() && obj.VisibilityFlags()&mask != 0 {
			out = append(out, obj)
		}
	}
	return out
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uint64]game_object.GameObject)
	s.lights = nil
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.lights, l); i >= 0 {
		s.lights = slices.Delete(s.lights, i, i+1)
	}
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	out := slices.Clone(s.lights)
	s.mu.RUnlock()
	for _, obj := range s.Objects() {
		if l := obj.Light(); l != nil && obj.Enabled() {
			out = append(out, l)
		}
	}
	return out
}

func (s *scene) AmbientColor() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambientColor
}

func (s *scene) SetAmbientColor(color [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambientColor = color
}

func (s *scene) Materials() material.System {
	return s.materials
}
