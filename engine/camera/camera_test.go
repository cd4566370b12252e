package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestCameraFollowsMount(t *testing.T) {
	mount := NewIdentityMount()
	c := NewCamera(WithName("probe"), WithFov(math32.Pi/2), WithNear(0.1), WithFar(10), WithMount(mount))

	assert.Equal(t, "probe", c.Name())
	assert.Equal(t, [3]float32{0, 0, 0}, c.Position())

	mount.SetPosition(1, 2, 3)
	c.Update()
	assert.Equal(t, [3]float32{1, 2, 3}, c.Position())

	// A point straight ahead (-Z) projects to the centre of the image.
	vp := c.ViewProjectionMatrix()
	ndc := common.TransformPoint(vp[:], [3]float32{1, 2, -2})
	assert.InDelta(t, 0, ndc[0], 1e-5)
	assert.InDelta(t, 0, ndc[1], 1e-5)
	assert.True(t, ndc[2] > 0 && ndc[2] < 1)
}

func TestCameraLocalTransformRotatesView(t *testing.T) {
	var rot [16]float32
	common.RotationY(rot[:], math32.Pi/2)
	c := NewCamera(WithFov(math32.Pi/2), WithLocalTransform(rot))

	// After a +90° yaw the camera's -Z axis points along world -X.
	vp := c.ViewProjectionMatrix()
	ndc := common.TransformPoint(vp[:], [3]float32{-3, 0, 0})
	assert.InDelta(t, 0, ndc[0], 1e-5)
	assert.InDelta(t, 0, ndc[1], 1e-5)

	f := c.Frustum()
	assert.True(t, f.IntersectsAABB(common.AABB{Min: [3]float32{-4, -0.1, -0.1}, Max: [3]float32{-3, 0.1, 0.1}}))
	assert.False(t, f.IntersectsAABB(common.AABB{Min: [3]float32{3, -0.1, -0.1}, Max: [3]float32{4, 0.1, 0.1}}))
}

func TestGPUCameraUniformMarshal(t *testing.T) {
	c := NewCamera(WithNear(0.5), WithFar(50))
	u := NewGPUCameraUniform(c)
	buf := u.Marshal()
	assert.Len(t, buf, 96)
	assert.Equal(t, 96, u.Size())
}
