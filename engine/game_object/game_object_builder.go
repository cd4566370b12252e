package game_object

import (
	"github.com/Carmen-Shannon/oxy-sensors/engine/light"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithName sets the name of the GameObject.
//
// Parameters:
//   - name: the object name
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the name
func WithName(name string) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.name = name
	}
}

// WithEnabled sets whether the GameObject is visible.
//
// Parameters:
//   - enabled: true to draw the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithStatic marks the GameObject as static geometry.
//
// Parameters:
//   - static: true for geometry that never moves
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the static flag
func WithStatic(static bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.static = static
	}
}

// WithModel sets the geometry and builds one sub-item per mesh.
// Materials are assigned by mesh index; the last material fills any remaining meshes.
//
// Parameters:
//   - m: the model to place
//   - materials: materials for the sub-items
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the model
func WithModel(m model.Model, materials ...material.Material) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.setModel(m, materials)
	}
}

// WithPosition sets the initial world-space position.
//
// Parameters:
//   - x, y, z: position components
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the position
func WithPosition(x, y, z float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.position = [3]float32{x, y, z}
	}
}

// WithRotation sets the initial Euler rotation in radians.
//
// Parameters:
//   - rx, ry, rz: rotation about X, Y and Z
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation
func WithRotation(rx, ry, rz float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotation = [3]float32{rx, ry, rz}
	}
}

// WithScale sets the initial per-axis scale.
//
// Parameters:
//   - sx, sy, sz: scale factors
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the scale
func WithScale(sx, sy, sz float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.scale = [3]float32{sx, sy, sz}
	}
}

// WithVisibilityFlags replaces the default visibility flags.
//
// Parameters:
//   - flags: the visibility bits
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the flags
func WithVisibilityFlags(flags uint32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.visibilityFlags = flags
	}
}

// WithUserData stores a user data value under key.
//
// Parameters:
//   - key: the user data key
//   - value: the value
//
// Returns:
//   - GameObjectBuilderOption: functional option to store the value
func WithUserData(key string, value any) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.userData[key] = value
	}
}

// WithLight attaches a light to the GameObject. Point and spot lights follow the object position.
//
// Parameters:
//   - l: the light to attach
//
// Returns:
//   - GameObjectBuilderOption: functional option to attach the light
func WithLight(l light.Light) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.attachedLight = l
		obj.syncLight()
	}
}
