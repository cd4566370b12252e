package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectionalLightIlluminate(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithDirection(0, 0, -1), WithIntensity(2))

	up := l.Illuminate([3]float32{5, 5, 0}, [3]float32{0, 0, 1})
	assert.InDelta(t, 2, up.Radiance[0], 1e-5)
	assert.Equal(t, [3]float32{0, 0, 1}, up.ToLight)

	down := l.Illuminate([3]float32{0, 0, 0}, [3]float32{0, 0, -1})
	assert.Equal(t, [3]float32{}, down.Radiance)
}

func TestPointLightRange(t *testing.T) {
	l := NewLight(LightTypePoint, WithPosition(0, 0, 2), WithRange(5))

	near := l.Illuminate([3]float32{0, 0, 0}, [3]float32{0, 0, 1})
	assert.Greater(t, near.Radiance[1], float32(0))
	assert.InDelta(t, 2, near.Distance, 1e-5)

	far := l.Illuminate([3]float32{0, 0, -10}, [3]float32{0, 0, 1})
	assert.Equal(t, [3]float32{}, far.Radiance)
}

func TestSpotLightCone(t *testing.T) {
	l := NewLight(LightTypeSpot, WithPosition(0, 0, 4), WithDirection(0, 0, -1), WithSpotCone(10, 20), WithRange(10))

	inside := l.Illuminate([3]float32{0, 0, 0}, [3]float32{0, 0, 1})
	assert.Greater(t, inside.Radiance[0], float32(0))

	outside := l.Illuminate([3]float32{4, 0, 0}, [3]float32{0, 0, 1})
	assert.Equal(t, [3]float32{}, outside.Radiance)
}

func TestDisabledLight(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithEnabled(false))
	assert.Equal(t, Sample{}, l.Illuminate([3]float32{}, [3]float32{0, 1, 0}))
}

func TestSpotConeOrderAndRange(t *testing.T) {
	a := NewLight(LightTypeSpot, WithSpotCone(30, 10), WithRange(-1))
	b := NewLight(LightTypeSpot, WithSpotCone(10, 30))
	assert.Equal(t, b.InnerCone(), a.InnerCone())
	assert.Equal(t, b.OuterCone(), a.OuterCone())
	assert.Greater(t, a.InnerCone(), a.OuterCone())
	assert.Equal(t, float32(10), a.Range())
	assert.Equal(t, [3]float32{0, 0, -1}, a.Direction())
}
