package camera

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/chewxy/math32"
)

// cameraCount is an atomic counter used to generate unique names for unnamed cameras.
var cameraCount atomic.Uint64

type cameraImpl struct {
	mu *sync.Mutex

	name string

	fov    float32
	aspect float32
	near   float32
	far    float32

	mount Mount
	local [16]float32

	worldMatrix                 [16]float32
	viewMatrix                  [16]float32
	projectionMatrix            [16]float32
	viewProjectionMatrix        [16]float32
	inverseViewProjectionMatrix [16]float32
}

// Camera defines the interface for a perspective camera parented to a Mount.
// The camera's world transform is Mount.WorldMatrix() * LocalTransform(); the camera
// looks down its local -Z axis with +Y up, following the WebGPU view convention.
type Camera interface {
	// Name returns the camera's unique name.
	//
	// Returns:
	//   - string: the camera name
	Name() string

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ProjectionParams returns the depth projection constants A and B.
	// Linear view depth is recovered from an NDC depth d as B / (d + A).
	//
	// Returns:
	//   - a, b: the projection constants
	ProjectionParams() (a, b float32)

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - [3]float32: world-space position
	Position() [3]float32

	// WorldMatrix returns the camera's local-to-world transform.
	//
	// Returns:
	//   - [16]float32: the world transform (column-major)
	WorldMatrix() [16]float32

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the current combined view-projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// InverseViewProjectionMatrix returns the inverse of the view-projection matrix.
	// Used to reconstruct world-space rays from NDC coordinates.
	//
	// Returns:
	//   - [16]float32: the inverse view-projection matrix
	InverseViewProjectionMatrix() [16]float32

	// Frustum returns the camera's world-space view frustum.
	//
	// Returns:
	//   - common.Frustum: the frustum planes
	Frustum() common.Frustum

	// Mount returns the mount this camera is parented to, or nil.
	//
	// Returns:
	//   - Mount: the parent mount
	Mount() Mount

	// LocalTransform returns the camera transform relative to its mount.
	//
	// Returns:
	//   - [16]float32: the local transform (column-major)
	LocalTransform() [16]float32

	// Update re-reads the mount transform and recomputes all matrices.
	// Should be called once per frame before the camera is rendered.
	Update()

	// SetFov sets the vertical field of view in radians and recomputes matrices.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// SetMount parents the camera to a mount and recomputes matrices.
	//
	// Parameters:
	//   - m: the mount, or nil for a world-space camera
	SetMount(m Mount)

	// SetLocalTransform sets the camera transform relative to its mount.
	//
	// Parameters:
	//   - m: the local transform (column-major)
	SetLocalTransform(m [16]float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings at the world origin.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		fov:    45.0 * (math32.Pi / 180.0),
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
		local:  common.IdentityMatrix(),
	}
	for _, option := range options {
		option(c)
	}
	if c.name == "" {
		c.name = "camera_" + strconv.FormatUint(cameraCount.Load(), 10)
	}
	cameraCount.Add(1)
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Name() string {
	return c.name
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ProjectionParams() (a, b float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ProjectionParams(c.near, c.far)
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return [3]float32{c.worldMatrix[12], c.worldMatrix[13], c.worldMatrix[14]}
}

func (c *cameraImpl) WorldMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worldMatrix
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseViewProjectionMatrix
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractFrustumFromMatrix(c.viewProjectionMatrix[:])
}

func (c *cameraImpl) Mount() Mount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mount
}

func (c *cameraImpl) LocalTransform() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetMount(m Mount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mount = m
	c.updateMatrices()
}

func (c *cameraImpl) SetLocalTransform(m [16]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local = m
	c.updateMatrices()
}

// updateMatrices recalculates the world, view, projection, view-projection and inverse matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	parent := common.IdentityMatrix()
	if c.mount != nil {
		parent = c.mount.WorldMatrix()
	}
	common.Mul4(c.worldMatrix[:], parent[:], c.local[:])
	if !common.Invert4(c.viewMatrix[:], c.worldMatrix[:]) {
		common.Identity(c.viewMatrix[:])
	}

	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
	common.Invert4(c.inverseViewProjectionMatrix[:], c.viewProjectionMatrix[:])
}
