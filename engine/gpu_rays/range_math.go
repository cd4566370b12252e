package gpu_rays

import (
	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/chewxy/math32"
)

// Quad programs used by the range sensor nodes.
const (
	ProgramFirstPass  = "gpu_rays_first_pass"
	ProgramSecondPass = "gpu_rays_second_pass"
)

// MaxLaserRetro is the largest retro-reflectivity a visual can report. The colour pass
// stores retro/MaxLaserRetro in the red channel and the first pass scales it back.
const MaxLaserRetro = 2000

// First pass parameter layout.
const (
	firstParamA = iota
	firstParamB
	firstParamNear
	firstParamFar
	firstParamMin
	firstParamMax
	firstParamStddev
	firstParamScatter
	firstParamCount
)

// First pass input units.
const (
	unitDepth = iota
	unitColor
	unitParticleDepth
	unitParticle
)

// Kernels returns CPU implementations of the range sensor quad programs, keyed by program name.
// They mirror the embedded WGSL programs and back GPU-less tests.
//
// Returns:
//   - map[string]compositor.QuadKernel: the kernels
func Kernels() map[string]compositor.QuadKernel {
	return map[string]compositor.QuadKernel{
		ProgramFirstPass:  FirstPassKernel,
		ProgramSecondPass: SecondPassKernel,
	}
}

// FirstPassKernel converts one face's depth, colour and particle targets into
// (range, retro, 1, 1).
func FirstPassKernel(in compositor.QuadInvocation) [4]float32 {
	p := in.Params
	a, b := p[firstParamA], p[firstParamB]
	near, far := p[firstParamNear], p[firstParamFar]
	dataMin, dataMax := p[firstParamMin], p[firstParamMax]

	color := in.Load(unitColor, in.X, in.Y)
	retro := color[0] * MaxLaserRetro

	depth := in.Load(unitDepth, in.X, in.Y)[0]
	dist := math32.Inf(1)
	if depth < 1 {
		dist = viewRange(in.Corners, in.UV, common.LinearDepth(depth, a, b), far)
	}

	pw, ph := in.Size(unitParticleDepth)
	px, py := texelAt(in.UV, pw, ph)
	if pd := in.Load(unitParticleDepth, px, py)[0]; pd < 1 {
		pdist := viewRange(in.Corners, in.UV, common.LinearDepth(pd, a, b), far)
		if pdist < dist && noise(in.UV, 0) < p[firstParamScatter] {
			dist = pdist + gaussian(in.UV)*p[firstParamStddev]
			retro = in.Load(unitParticle, px, py)[0] * MaxLaserRetro
		}
	}

	switch {
	case dist > far:
		dist = dataMax
	case dist < near:
		dist = dataMin
	}
	return [4]float32{dist, retro, 1, 1}
}

// SecondPassKernel resolves a scan texel through the cube lookup (unit 0) into the
// first-pass texture of the referenced face (units 1..6).
func SecondPassKernel(in compositor.QuadInvocation) [4]float32 {
	dataMin, dataMax := in.Params[0], in.Params[1]
	lookup := in.Load(0, in.X, in.Y)
	face := int(lookup[2] + 0.5)
	if face < 0 || face >= CubeFaceCount {
		return [4]float32{dataMax, 0, 1, 1}
	}
	unit := 1 + face
	w, h := in.Size(unit)
	x, y := texelAt([2]float32{lookup[0], lookup[1]}, w, h)
	texel := in.Load(unit, x, y)
	return [4]float32{max(dataMin, min(dataMax, texel[0])), texel[1], 1, 1}
}

// viewRange is the distance to the point at view depth l along the ray through uv.
func viewRange(corners [4][3]float32, uv [2]float32, l, far float32) float32 {
	c := compositor.FarCorner(corners, uv)
	s := l / far
	return common.Length3([3]float32{c[0] * s, c[1] * s, c[2] * s})
}

// texelAt returns the nearest texel to uv, clamped to the texture.
func texelAt(uv [2]float32, w, h int) (int, int) {
	x := common.Clamp(int(math32.Floor(uv[0]*float32(w))), 0, w-1)
	y := common.Clamp(int(math32.Floor(uv[1]*float32(h))), 0, h-1)
	return x, y
}

// noise is a hash of uv in [0, 1).
func noise(uv [2]float32, seed float32) float32 {
	s := math32.Sin((uv[0]+seed)*12.9898+(uv[1]+seed)*78.233) * 43758.5453
	return s - math32.Floor(s)
}

// gaussian is a standard normal sample derived from uv with the Box-Muller transform.
func gaussian(uv [2]float32) float32 {
	u1 := max(noise(uv, 0.31), 1e-6)
	u2 := noise(uv, 0.71)
	return math32.Sqrt(-2*math32.Log(u1)) * math32.Cos(2*math32.Pi*u2)
}
