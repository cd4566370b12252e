package gpu_rays

import (
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleCubemapAxes(t *testing.T) {
	cases := []struct {
		dir  [3]float32
		face CubeFace
	}{
		{[3]float32{1, 0, 0}, FacePositiveX},
		{[3]float32{-1, 0, 0}, FaceNegativeX},
		{[3]float32{0, 1, 0}, FacePositiveY},
		{[3]float32{0, -1, 0}, FaceNegativeY},
		{[3]float32{0, 0, 1}, FacePositiveZ},
		{[3]float32{0, 0, -1}, FaceNegativeZ},
	}
	for _, c := range cases {
		t.Run(c.face.String(), func(t *testing.T) {
			uv, face := SampleCubemap(c.dir)
			assert.Equal(t, c.face, face)
			assert.InDelta(t, 0.5, uv[0], 1e-6)
			assert.InDelta(t, 0.5, uv[1], 1e-6)
		})
	}
}

func TestSampleCubemapRandomDirections(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 2000 {
		d := common.Normalize3([3]float32{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
		})
		uv, face := SampleCubemap(d)
		require.GreaterOrEqual(t, uv[0], float32(0))
		require.LessOrEqual(t, uv[0], float32(1))
		require.GreaterOrEqual(t, uv[1], float32(0))
		require.LessOrEqual(t, uv[1], float32(1))

		axis := int(face) / 2
		negative := face%2 == 1
		require.Equal(t, negative, d[axis] < 0, "dir %v face %s", d, face)
		for other := range 3 {
			require.GreaterOrEqual(t, abs32(d[axis]), abs32(d[other]))
		}
	}
}

// Every face camera must image a cube direction at the texel SampleCubemap assigns to it.
func TestFaceCamerasMatchSampler(t *testing.T) {
	cfg := DefaultConfig()
	mount := camera.NewIdentityMount()
	rng := rand.New(rand.NewPCG(3, 4))
	for range 500 {
		d := common.Normalize3([3]float32{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
		})
		uv, face := SampleCubemap(d)

		cam := newFaceCamera("t", face, cfg, mount)
		p := common.TransformDirection(cubeToSensor[:], d)
		p = [3]float32{p[0] * 5, p[1] * 5, p[2] * 5}
		vp := cam.ViewProjectionMatrix()
		ndc := common.TransformPoint(vp[:], p)

		require.InDelta(t, uv[0], ndc[0]*0.5+0.5, 1e-4, "face %s dir %v", face, d)
		require.InDelta(t, uv[1], 0.5-ndc[1]*0.5, 1e-4, "face %s dir %v", face, d)
	}
}

func TestForwardFaceLooksAlongSensorX(t *testing.T) {
	local := faceLocalTransform(FacePositiveZ)
	forward := common.TransformDirection(local[:], [3]float32{0, 0, -1})
	up := common.TransformDirection(local[:], [3]float32{0, 1, 0})
	assert.InDeltaSlice(t, []float32{1, 0, 0}, forward[:], 1e-6)
	assert.InDeltaSlice(t, []float32{0, 0, 1}, up[:], 1e-6)
}

func TestCubeFaceSet(t *testing.T) {
	var s CubeFaceSet
	s = s.Add(FaceNegativeX).Add(FacePositiveZ).Add(FaceNegativeX)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(FacePositiveZ))
	assert.False(t, s.Has(FacePositiveY))
	assert.Equal(t, []CubeFace{FaceNegativeX, FacePositiveZ}, s.Faces())
	assert.Equal(t, "{-X,+Z}", s.String())
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
