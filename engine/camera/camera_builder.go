package camera

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithName sets the camera's unique name.
//
// Parameters:
//   - name: the camera name
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's name
func WithName(name string) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.name = name
	}
}

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithMount parents the camera to a mount.
// After all options are applied, the camera computes its matrices from the mount's transform.
//
// Parameters:
//   - m: the mount to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the mount
func WithMount(m Mount) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.mount = m
	}
}

// WithLocalTransform sets the camera transform relative to its mount.
//
// Parameters:
//   - m: the local transform (column-major)
//
// Returns:
//   - CameraBuilderOption: functional option to set the local transform
func WithLocalTransform(m [16]float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.local = m
	}
}
