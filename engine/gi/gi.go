// Package gi computes voxel cone traced global illumination for a scene.
//
// A GlobalIlluminationVct voxelizes participating geometry into a single grid and
// propagates light through it. A CiVct keeps several nested cascades centred on a
// camera. At most one solution per material system is active at a time; see Registry.
package gi

import (
	"errors"
)

// Participation flags select which visuals are voxelized.
const (
	StaticVisuals uint32 = 1 << iota
	DynamicVisuals
)

// DebugVisualizationMode selects what a solution exposes through DebugColors.
type DebugVisualizationMode int

const (
	DebugAlbedo DebugVisualizationMode = iota
	DebugNormal
	DebugEmissive
	DebugNone
	DebugLighting
)

func (m DebugVisualizationMode) String() string {
	switch m {
	case DebugAlbedo:
		return "albedo"
	case DebugNormal:
		return "normal"
	case DebugEmissive:
		return "emissive"
	case DebugNone:
		return "none"
	case DebugLighting:
		return "lighting"
	}
	return "unknown"
}

// ErrOctantMismatch is returned when a grid resolution is not a multiple of its octant count.
var ErrOctantMismatch = errors.New("gi: resolution is not divisible by octant count")

// Solution is a lighting solution that can be bound into a Registry.
type Solution interface {
	// Sample returns the outgoing radiance stored at a world position.
	//
	// Parameters:
	//   - pos: world-space position
	//
	// Returns:
	//   - [3]float32: RGB radiance, zero outside the solution or in empty space
	Sample(pos [3]float32) [3]float32
}

// Voxelizable rebuilds its voxel representation from the scene.
type Voxelizable interface {
	Build() error
}

// LightPropagatable recomputes light transport without re-voxelizing.
type LightPropagatable interface {
	LightingChanged()
}

// Updatable is driven once per frame by the engine.
type Updatable interface {
	Update() error
}
