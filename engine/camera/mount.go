package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/common"
)

// Mount supplies the world transform a camera is parented to.
// A sensor frame, a scene node or a fixed pose can all act as a mount.
type Mount interface {
	// WorldMatrix returns the mount's local-to-world transform (column-major).
	//
	// Returns:
	//   - [16]float32: the world transform
	WorldMatrix() [16]float32
}

// PoseMount is a Mount holding a settable world transform.
type PoseMount interface {
	Mount

	// SetWorldMatrix replaces the mount's world transform.
	//
	// Parameters:
	//   - m: the new local-to-world transform (column-major)
	SetWorldMatrix(m [16]float32)

	// SetPosition replaces only the translation of the world transform.
	//
	// Parameters:
	//   - x, y, z: world-space position
	SetPosition(x, y, z float32)
}

type poseMount struct {
	mu    *sync.Mutex
	world [16]float32
}

var _ PoseMount = &poseMount{}

// NewPoseMount creates a PoseMount at the given world transform.
//
// Parameters:
//   - world: the initial local-to-world transform
//
// Returns:
//   - PoseMount: the mount
func NewPoseMount(world [16]float32) PoseMount {
	return &poseMount{mu: &sync.Mutex{}, world: world}
}

// NewIdentityMount creates a PoseMount at the world origin with no rotation.
//
// Returns:
//   - PoseMount: the mount
func NewIdentityMount() PoseMount {
	return NewPoseMount(common.IdentityMatrix())
}

func (m *poseMount) WorldMatrix() [16]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world
}

func (m *poseMount) SetWorldMatrix(world [16]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.world = world
}

func (m *poseMount) SetPosition(x, y, z float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.world[12], m.world[13], m.world[14] = x, y, z
}
