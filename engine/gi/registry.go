package gi

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// Registry holds the single active GI solution of a material system.
type Registry struct {
	mu        *sync.Mutex
	materials material.System
	active    Solution
}

var registries sync.Map

// NewRegistry creates a registry bound to a material system. Most callers want RegistryFor.
//
// Parameters:
//   - materials: the material system whose high quality flag follows the active solution
//
// Returns:
//   - *Registry: the registry
func NewRegistry(materials material.System) *Registry {
	return &Registry{mu: &sync.Mutex{}, materials: materials}
}

// RegistryFor returns the registry shared by every solution rendering with materials.
//
// Parameters:
//   - materials: the material system
//
// Returns:
//   - *Registry: the shared registry
func RegistryFor(materials material.System) *Registry {
	r, _ := registries.LoadOrStore(materials, NewRegistry(materials))
	return r.(*Registry)
}

// Activate binds s as the active solution. Activating while another solution is
// active is a programming error and panics.
//
// Parameters:
//   - s: the solution
//   - fullConeCount: the material system's high quality flag while s is active
func (r *Registry) Activate(s Solution, fullConeCount bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active != s {
		panic("gi: there's already an active GI solution")
	}
	r.active = s
	if r.materials != nil {
		r.materials.SetHighQuality(fullConeCount)
	}
}

// Deactivate clears the slot if s holds it and is a no-op otherwise.
//
// Parameters:
//   - s: the solution releasing the slot
//
// Returns:
//   - bool: true when s held the slot
func (r *Registry) Deactivate(s Solution) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active != s {
		return false
	}
	r.active = nil
	return true
}

// IsActive reports whether s holds the slot.
func (r *Registry) IsActive(s Solution) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil && r.active == s
}

// Active returns the active solution or nil.
func (r *Registry) Active() Solution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// SetFullConeCount updates the high quality flag if s is the active solution.
//
// Parameters:
//   - s: the requesting solution
//   - enabled: the flag value
//
// Returns:
//   - bool: true when the flag was applied
func (r *Registry) SetFullConeCount(s Solution, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active != s || r.materials == nil {
		return false
	}
	r.materials.SetHighQuality(enabled)
	return true
}
