package scene

import (
	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/light"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithMaterials shares an existing material system with the scene.
//
// Parameters:
//   - m: the material system
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMaterials(m material.System) SceneBuilderOption {
	return func(s *scene) {
		s.materials = m
	}
}

// WithObjects adds initial objects to the scene, assigning IDs in argument order.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		if s.materials == nil {
			s.materials = material.NewSystem()
		}
		for _, obj := range objects {
			s.add(obj)
		}
	}
}

// WithLights adds free-standing lights to the scene.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lights = append(s.lights, lights...)
	}
}

// WithAmbientColor sets the scene's ambient light color.
//
// Parameters:
//   - color: the ambient RGB color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAmbientColor(color [3]float32) SceneBuilderOption {
	return func(s *scene) {
		s.ambientColor = color
	}
}
