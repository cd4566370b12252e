package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/light"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// Visibility flags select which scene passes draw an object. A scene pass draws an
// object when the pass mask and the object's flags share at least one bit.
const (
	// VisibilityAll is every user-assignable visibility bit.
	VisibilityAll uint32 = 0x0FFFFFFF

	// VisibilityParticle marks volumetric particle geometry.
	VisibilityParticle uint32 = 0x00100000

	// DefaultVisibilityFlags is assigned to new objects: visible to every pass except particle passes.
	DefaultVisibilityFlags = VisibilityAll &^ VisibilityParticle
)

type gameObject struct {
	mu *sync.Mutex

	id      uint64
	name    string
	enabled atomic.Bool
	static  bool

	mdl      model.Model
	subItems []*subItem

	position [3]float32
	rotation [3]float32
	scale    [3]float32

	visibilityFlags uint32
	userData        map[string]any
	attachedLight   light.Light
}

// GameObject defines the interface for a renderable scene entity.
//
// A GameObject places a Model in the world and owns one SubItem per model mesh.
// Each SubItem carries its own material and custom shader parameters so passes can
// temporarily swap them. Arbitrary user data (e.g. "laser_retro") is attached by key.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID, 0 until the object is added to a scene
	ID() uint64

	// Name returns the object's name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Enabled returns whether the object is visible.
	//
	// Returns:
	//   - bool: true if the object is drawn and voxelized
	Enabled() bool

	// Static returns whether the object never moves after creation.
	// Static objects participate in GI builds that select STATIC geometry.
	//
	// Returns:
	//   - bool: true for static geometry
	Static() bool

	// Model returns the geometry placed by this object.
	//
	// Returns:
	//   - model.Model: the model or nil
	Model() model.Model

	// SubItems returns the per-mesh sub-items in model mesh order.
	//
	// Returns:
	//   - []SubItem: the sub-items
	SubItems() []SubItem

	// Position returns the world-space position.
	Position() [3]float32

	// Rotation returns the Euler rotation in radians, applied X then Y then Z.
	Rotation() [3]float32

	// Scale returns the per-axis scale.
	Scale() [3]float32

	// WorldMatrix returns the model-to-world transform built from position, rotation and scale.
	//
	// Returns:
	//   - [16]float32: the world transform (column-major)
	WorldMatrix() [16]float32

	// WorldAABB returns the world-space bounds of the model.
	//
	// Returns:
	//   - common.AABB: the bounds, empty when the object has no model
	WorldAABB() common.AABB

	// VisibilityFlags returns the visibility bits of the object.
	VisibilityFlags() uint32

	// UserData returns the value stored under key.
	//
	// Parameters:
	//   - key: the user data key
	//
	// Returns:
	//   - any: the stored value
	//   - bool: false when nothing is stored under key
	UserData(key string) (any, bool)

	// Light returns the light attached to this object, or nil.
	Light() light.Light

	// SetID sets the object's unique identifier. Called by the scene.
	//
	// Parameters:
	//   - id: the new ID
	SetID(id uint64)

	// SetEnabled sets object visibility.
	//
	// Parameters:
	//   - enabled: true to draw the object
	SetEnabled(enabled bool)

	// SetStatic marks the object as static or dynamic geometry.
	//
	// Parameters:
	//   - static: true for static geometry
	SetStatic(static bool)

	// SetPosition sets the world-space position.
	SetPosition(x, y, z float32)

	// SetRotation sets the Euler rotation in radians.
	SetRotation(rx, ry, rz float32)

	// SetScale sets the per-axis scale.
	SetScale(sx, sy, sz float32)

	// SetVisibilityFlags replaces the visibility bits.
	//
	// Parameters:
	//   - flags: the new flags
	SetVisibilityFlags(flags uint32)

	// AddVisibilityFlags sets the given bits.
	//
	// Parameters:
	//   - flags: bits to set
	AddVisibilityFlags(flags uint32)

	// RemoveVisibilityFlags clears the given bits.
	//
	// Parameters:
	//   - flags: bits to clear
	RemoveVisibilityFlags(flags uint32)

	// SetUserData stores value under key.
	//
	// Parameters:
	//   - key: the user data key
	//   - value: the value to store
	SetUserData(key string, value any)

	// SetLight attaches a light that follows the object.
	//
	// Parameters:
	//   - l: the light, or nil to detach
	SetLight(l light.Light)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject with the provided options applied.
// The object is enabled, dynamic, unit-scaled and carries DefaultVisibilityFlags.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:              &sync.Mutex{},
		scale:           [3]float32{1, 1, 1},
		visibilityFlags: DefaultVisibilityFlags,
		userData:        make(map[string]any),
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	obj.syncLight()
	return obj
}

func (g *gameObject) ID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

func (g *gameObject) Name() string {
	return g.name
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Static() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.static
}

func (g *gameObject) Model() model.Model {
	return g.mdl
}

func (g *gameObject) SubItems() []SubItem {
	out := make([]SubItem, len(g.subItems))
	for i, s := range g.subItems {
		out[i] = s
	}
	return out
}

func (g *gameObject) Position() [3]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) Rotation() [3]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

func (g *gameObject) Scale() [3]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

func (g *gameObject) WorldMatrix() [16]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.worldMatrix()
}

func (g *gameObject) WorldAABB() common.AABB {
	if g.mdl == nil {
		return common.EmptyAABB()
	}
	g.mu.Lock()
	m := g.worldMatrix()
	g.mu.Unlock()
	return g.mdl.Bounds().Transform(m[:])
}

func (g *gameObject) VisibilityFlags() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visibilityFlags
}

func (g *gameObject) UserData(key string) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.userData[key]
	return v, ok
}

func (g *gameObject) Light() light.Light {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attachedLight
}

func (g *gameObject) SetID(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetStatic(static bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.static = static
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = [3]float32{x, y, z}
	g.syncLight()
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = [3]float32{sx, sy, sz}
}

func (g *gameObject) SetVisibilityFlags(flags uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.visibilityFlags = flags
}

func (g *gameObject) AddVisibilityFlags(flags uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.visibilityFlags |= flags
}

func (g *gameObject) RemoveVisibilityFlags(flags uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.visibilityFlags &^= flags
}

func (g *gameObject) SetUserData(key string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.userData[key] = value
}

func (g *gameObject) SetLight(l light.Light) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachedLight = l
	g.syncLight()
}

// worldMatrix composes T * Rz * Ry * Rx * S. Caller must hold the mutex.
func (g *gameObject) worldMatrix() [16]float32 {
	var rx, ry, rz, tmp [16]float32
	common.RotationX(rx[:], g.rotation[0])
	common.RotationY(ry[:], g.rotation[1])
	common.RotationZ(rz[:], g.rotation[2])

	s := common.IdentityMatrix()
	s[0], s[5], s[10] = g.scale[0], g.scale[1], g.scale[2]

	out := common.Translation(g.position[0], g.position[1], g.position[2])
	common.Mul4(tmp[:], rx[:], s[:])
	common.Mul4(tmp[:], ry[:], tmp[:])
	common.Mul4(tmp[:], rz[:], tmp[:])
	common.Mul4(out[:], out[:], tmp[:])
	return out
}

// syncLight moves an attached point or spot light to the object position. Caller must hold the mutex.
func (g *gameObject) syncLight() {
	if g.attachedLight != nil && g.attachedLight.Type() != light.LightTypeDirectional {
		g.attachedLight.SetPosition(g.position[0], g.position[1], g.position[2])
	}
}

// setModel builds one sub-item per mesh, assigning materials by index; the last
// material is reused when fewer materials than meshes are given.
func (g *gameObject) setModel(m model.Model, materials []material.Material) {
	g.mdl = m
	g.subItems = nil
	if m == nil {
		return
	}
	for i, mesh := range m.Meshes() {
		var mat material.Material
		if len(materials) > 0 {
			mat = materials[min(i, len(materials)-1)]
		} else {
			mat = material.NewMaterial(material.WithName(m.Name()))
		}
		g.subItems = append(g.subItems, newSubItem(i, mesh, mat))
	}
}
