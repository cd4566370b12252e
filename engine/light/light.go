package light

import (
	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/chewxy/math32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional has a direction only and no falloff, like the sun.
	LightTypeDirectional LightType = iota

	// LightTypePoint emits in all directions and fades out at its range.
	LightTypePoint

	// LightTypeSpot is a point light restricted to a cone around its direction.
	LightTypeSpot
)

type lightImpl struct {
	lightType  LightType
	position   [3]float32
	direction  [3]float32
	color      [3]float32
	intensity  float32
	lightRange float32
	innerCone  float32 // cos of the half-angle
	outerCone  float32 // cos of the half-angle
	enabled    bool
}

// Light is a direct light source injected into the GI voxel volume.
// Properties that do not apply to a light's type are stored but ignored.
type Light interface {
	Type() LightType

	// Position is the world position of point and spot lights.
	Position() [3]float32

	// Direction is the unit direction light travels in: the sun direction or the spot axis.
	Direction() [3]float32

	Color() [3]float32
	Intensity() float32

	// Range is the distance at which point and spot contributions reach zero.
	Range() float32

	// InnerCone and OuterCone return the cosines of the spot half-angles.
	InnerCone() float32
	OuterCone() float32

	// Enabled reports whether the light is injected.
	Enabled() bool

	SetPosition(x, y, z float32)

	// SetDirection normalizes and stores the direction.
	SetDirection(x, y, z float32)

	SetColor(r, g, b float32)
	SetIntensity(intensity float32)

	// SetRange ignores non-positive ranges.
	SetRange(lightRange float32)

	// SetSpotCone sets the spot half-angles in degrees, swapping them when out of order.
	SetSpotCone(innerDeg, outerDeg float32)

	SetEnabled(enabled bool)

	// Illuminate evaluates the light arriving at a surface point.
	//
	// Parameters:
	//   - pos: world-space surface position
	//   - normal: unit surface normal
	//
	// Returns:
	//   - Sample: the incident light; Sample.Radiance is zero when the point is unlit
	Illuminate(pos, normal [3]float32) Sample
}

// Sample describes light arriving at a surface point.
type Sample struct {
	// ToLight is the unit direction from the surface towards the light.
	ToLight [3]float32
	// Distance is the distance to the light, +Inf for directional lights.
	Distance float32
	// Radiance is the cosine-weighted incident radiance.
	Radiance [3]float32
}

var _ Light = &lightImpl{}

// NewLight creates an enabled white light of unit intensity pointing down -Z, with a
// 10 unit range and a 25/35 degree spot cone.
//
// Parameters:
//   - lightType: directional, point or spot
//   - opts: variadic list of LightBuilderOption functions
//
// Returns:
//   - Light: the light
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:  lightType,
		position:   [3]float32{0, 0, 0},
		direction:  [3]float32{0, 0, -1},
		color:      [3]float32{1, 1, 1},
		intensity:  1.0,
		lightRange: 10.0,
		innerCone:  0.9063, // cos(25°)
		outerCone:  0.8192, // cos(35°)
		enabled:    true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() [3]float32 {
	return l.position
}

func (l *lightImpl) Direction() [3]float32 {
	return l.direction
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.direction = normalize3(x, y, z)
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetRange(lightRange float32) {
	if lightRange > 0 {
		l.lightRange = lightRange
	}
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.setCone(innerDeg, outerDeg)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) Illuminate(pos, normal [3]float32) Sample {
	var out Sample
	if !l.enabled {
		return out
	}

	atten := float32(1)
	switch l.lightType {
	case LightTypeDirectional:
		out.ToLight = [3]float32{-l.direction[0], -l.direction[1], -l.direction[2]}
		out.Distance = math32.Inf(1)
	default:
		d := common.Sub3(l.position, pos)
		out.Distance = common.Length3(d)
		if out.Distance == 0 || out.Distance > l.lightRange {
			return out
		}
		out.ToLight = common.Normalize3(d)
		// smooth window so the contribution reaches zero at the range
		r := out.Distance / l.lightRange
		w := common.Clamp(1-r*r*r*r, 0, 1)
		atten = w * w / (out.Distance*out.Distance + 1)

		if l.lightType == LightTypeSpot {
			cosAngle := -common.Dot3(out.ToLight, l.direction)
			span := max(l.innerCone-l.outerCone, 1e-4)
			atten *= common.Clamp((cosAngle-l.outerCone)/span, 0, 1)
		}
	}

	nDotL := common.Dot3(normal, out.ToLight)
	if nDotL <= 0 || atten <= 0 {
		return out
	}
	scale := l.intensity * atten * nDotL
	out.Radiance = [3]float32{l.color[0] * scale, l.color[1] * scale, l.color[2] * scale}
	return out
}
