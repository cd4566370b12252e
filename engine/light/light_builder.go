package light

import (
	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/chewxy/math32"
)

// LightBuilderOption configures a light in NewLight.
type LightBuilderOption func(*lightImpl)

// WithPosition places a point or spot light in world space. Directional lights ignore it.
//
// Parameters:
//   - x, y, z: world position
//
// Returns:
//   - LightBuilderOption: option function to apply
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = [3]float32{x, y, z}
	}
}

// WithDirection sets the direction light travels in, normalized. The default points down
// the world -Z axis.
//
// Parameters:
//   - x, y, z: direction, need not be unit length
//
// Returns:
//   - LightBuilderOption: option function to apply
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = normalize3(x, y, z)
	}
}

// WithColor sets the linear RGB colour injected into the voxel volume.
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = [3]float32{r, g, b}
	}
}

// WithIntensity scales the colour.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithRange sets the distance at which point and spot contributions reach zero.
// Non-positive ranges are ignored.
//
// Parameters:
//   - lightRange: cutoff distance in world units
//
// Returns:
//   - LightBuilderOption: option function to apply
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *lightImpl) {
		if lightRange > 0 {
			l.lightRange = lightRange
		}
	}
}

// WithSpotCone sets the full-intensity and cutoff half-angles of a spot light, in degrees.
// The angles are swapped when given out of order.
//
// Parameters:
//   - innerDeg: half-angle of full intensity
//   - outerDeg: half-angle where the contribution reaches zero
//
// Returns:
//   - LightBuilderOption: option function to apply
func WithSpotCone(innerDeg, outerDeg float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.setCone(innerDeg, outerDeg)
	}
}

// WithEnabled switches the light's GI contribution on or off.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

func normalize3(x, y, z float32) [3]float32 {
	return common.Normalize3([3]float32{x, y, z})
}

// setCone stores the cone as cosines, inner >= outer.
func (l *lightImpl) setCone(innerDeg, outerDeg float32) {
	if innerDeg > outerDeg {
		innerDeg, outerDeg = outerDeg, innerDeg
	}
	l.innerCone = math32.Cos(innerDeg * math32.Pi / 180)
	l.outerCone = math32.Cos(outerDeg * math32.Pi / 180)
}
