package gpu_rays

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanConfig(angleMin, angleMax float64, w, h uint32) Config {
	cfg := DefaultConfig()
	cfg.AngleMin, cfg.AngleMax = angleMin, angleMax
	cfg.RangeCount, cfg.VerticalRangeCount = w, h
	return cfg
}

func TestBuildSampleTextureIsDeterministic(t *testing.T) {
	cfg := scanConfig(-2, 2, 64, 8)
	cfg.VerticalAngleMin, cfg.VerticalAngleMax = -0.4, 0.4

	a := BuildSampleTexture(cfg)
	b := BuildSampleTexture(cfg)
	assert.Equal(t, a.Data, b.Data)
	assert.Equal(t, a.Faces, b.Faces)
	assert.Len(t, a.Data, 64*8*3)
	assert.True(t, a.Matches(cfg))

	cfg.AngleMax = 2.1
	assert.False(t, a.Matches(cfg))
}

func TestHalfSweepUsesSideFacesOnly(t *testing.T) {
	st := BuildSampleTexture(scanConfig(-math.Pi/2, math.Pi/2, 360, 1))
	// A 180 degree sweep reaches the side faces edge-on and never looks backward.
	assert.Equal(t, []CubeFace{FacePositiveX, FaceNegativeX, FacePositiveZ}, st.Faces.Faces())
	assert.Equal(t, 3, st.Faces.Len())
	assert.False(t, st.Faces.Has(FaceNegativeZ))
}

func TestFullSweepUsesAllSideFaces(t *testing.T) {
	st := BuildSampleTexture(scanConfig(-math.Pi, math.Pi, 360, 1))
	assert.Equal(t, []CubeFace{FacePositiveX, FaceNegativeX, FacePositiveZ, FaceNegativeZ}, st.Faces.Faces())
}

func TestNarrowScanUsesForwardFace(t *testing.T) {
	st := BuildSampleTexture(scanConfig(-0.3, 0.3, 16, 1))
	assert.Equal(t, []CubeFace{FacePositiveZ}, st.Faces.Faces())

	// Single ray points straight ahead.
	one := BuildSampleTexture(scanConfig(0, 0, 1, 1))
	assert.InDeltaSlice(t, []float32{0.5, 0.5, float32(FacePositiveZ)}, one.Data, 1e-6)
}

// Positive horizontal angles turn toward sensor +Y, which is left of forward on the image.
func TestHorizontalAngleTurnsLeft(t *testing.T) {
	st := BuildSampleTexture(scanConfig(-0.4, 0.4, 3, 1))
	left, centre, right := st.Data[6], st.Data[3], st.Data[0]
	assert.Less(t, left, centre)
	assert.Greater(t, right, centre)
	assert.InDelta(t, 0.5-0.5*math32.Tan(0.4), left, 1e-5)
}

func TestSingleRowKeepsVerticalConstant(t *testing.T) {
	const pitch = 0.2
	cfg := scanConfig(-0.5, 0.5, 32, 1)
	cfg.VerticalAngleMin, cfg.VerticalAngleMax = pitch, pitch
	st := BuildSampleTexture(cfg)
	require.Len(t, st.Data, 32*3)
	for i := range 32 {
		yaw := -0.5 + float64(i)/31
		// v on the forward face is 0.5 - tan(pitch)/(2 cos(yaw)) for every ray of the row.
		want := 0.5 - math.Tan(pitch)/(2*math.Cos(yaw))
		assert.Equal(t, float32(FacePositiveZ), st.Data[i*3+2], "ray %d", i)
		assert.InDelta(t, want, st.Data[i*3+1], 1e-5, "ray %d", i)
	}
}

func TestSampleTextureBytesLayout(t *testing.T) {
	st := BuildSampleTexture(scanConfig(-0.2, 0.2, 4, 2))
	raw := st.Bytes()
	require.Len(t, raw, 4*2*16)
	for i := range 8 {
		alpha := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*16+12:]))
		assert.Equal(t, float32(1), alpha)
		u := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*16:]))
		assert.Equal(t, st.Data[i*3], u)
	}
}
