package gi

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/light"
	"github.com/chewxy/math32"
)

const (
	// coneTanHalfAngle is tan(30 deg), the half aperture of a diffuse gather cone.
	coneTanHalfAngle = 0.57735
	// coneOpacityCutoff stops a cone once it is this opaque.
	coneOpacityCutoff = 0.95
	anisotropicFaces  = 6
)

// diffuse gather cones: one along the normal and five tilted 60 degrees around it.
var (
	coneWeights     = [6]float32{0.25, 0.15, 0.15, 0.15, 0.15, 0.15}
	coneSinTilt     = math32.Sin(math32.Pi / 3)
	coneCosTilt     = math32.Cos(math32.Pi / 3)
	coneAzimuthStep = 2 * math32.Pi / 5
)

type mipLevel struct {
	res   [3]int
	dirs  int
	color []float32
	alpha []float32
}

func (m *mipLevel) index(x, y, z int) int {
	return (z*m.res[1]+y)*m.res[0] + x
}

// LightingVolume holds the radiance propagated through a VoxelGrid.
type LightingVolume struct {
	mu *sync.Mutex

	grid            *VoxelGrid
	anisotropic     bool
	multipleBounces bool
	debug           bool
	bouncesApplied  int

	direct   [][3]float32
	radiance [][3]float32
	mips     []mipLevel

	thinWallCounter float32
}

func newLightingVolume(grid *VoxelGrid, anisotropic bool) *LightingVolume {
	return &LightingVolume{mu: &sync.Mutex{}, grid: grid, anisotropic: anisotropic, thinWallCounter: 1}
}

// Grid returns the voxel grid the volume propagates through.
func (l *LightingVolume) Grid() *VoxelGrid {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grid
}

// Anisotropic reports whether radiance is stored per axis direction.
func (l *LightingVolume) Anisotropic() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.anisotropic
}

// MultipleBounces reports whether the last update propagated more than one bounce.
func (l *LightingVolume) MultipleBounces() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.multipleBounces
}

// BouncesApplied returns the number of indirect bounces computed by the last update.
func (l *LightingVolume) BouncesApplied() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bouncesApplied
}

// MipLevels returns the number of levels of the cone tracing pyramid.
func (l *LightingVolume) MipLevels() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.mips)
}

func (l *LightingVolume) setGrid(grid *VoxelGrid) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.grid = grid
	l.direct, l.radiance, l.mips = nil, nil, nil
}

func (l *LightingVolume) setAnisotropic(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.anisotropic = enabled
}

func (l *LightingVolume) setAllowMultipleBounces(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.multipleBounces = enabled
}

func (l *LightingVolume) setDebugVisualization(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = enabled
}

// update recomputes direct lighting and, when multiple bounces are allowed, bounceCount
// indirect bounces gathered with cones.
func (l *LightingVolume) update(lights []light.Light, bounceCount uint32, thinWallCounter float32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g := l.grid
	l.thinWallCounter = max(thinWallCounter, 0)
	l.direct = make([][3]float32, g.Len())
	for i := range g.Len() {
		if !g.Occupied(i) {
			continue
		}
		pos := g.Center(g.Coords(i))
		nrm := g.Normal[i]
		var in [3]float32
		for _, lt := range lights {
			s := lt.Illuminate(pos, nrm)
			if s.Radiance == ([3]float32{}) || l.occluded(pos, s.ToLight, s.Distance) {
				continue
			}
			for k := range 3 {
				in[k] += s.Radiance[k]
			}
		}
		alb, em := g.Albedo[i], g.Emissive[i]
		l.direct[i] = [3]float32{alb[0]*in[0] + em[0], alb[1]*in[1] + em[1], alb[2]*in[2] + em[2]}
	}

	l.radiance = append([][3]float32(nil), l.direct...)
	l.buildMips()
	l.bouncesApplied = 0
	if !l.multipleBounces {
		return
	}
	for range bounceCount {
		next := make([][3]float32, g.Len())
		for i := range g.Len() {
			if !g.Occupied(i) {
				continue
			}
			ind := l.gather(g.Center(g.Coords(i)), g.Normal[i])
			alb := g.Albedo[i]
			for k := range 3 {
				next[i][k] = l.direct[i][k] + alb[k]*ind[k]
			}
		}
		l.radiance = next
		l.buildMips()
		l.bouncesApplied++
	}
}

// occluded marches the grid from pos toward a light, accumulating thinWallCounter
// opacity per occupied half-voxel step.
func (l *LightingVolume) occluded(pos, dir [3]float32, dist float32) bool {
	g := l.grid
	vs := g.VoxelSize()
	step := 0.5 * min(vs[0], vs[1], vs[2])
	if step <= 0 || l.thinWallCounter == 0 {
		return false
	}
	limit := min(dist, common.Length3(g.Region.Size()))
	occ := float32(0)
	for t := 2 * step; t < limit; t += step {
		p := [3]float32{pos[0] + dir[0]*t, pos[1] + dir[1]*t, pos[2] + dir[2]*t}
		x, y, z, ok := g.Locate(p)
		if !ok {
			return false
		}
		if g.Occupied(g.Index(x, y, z)) {
			occ += 0.5 * l.thinWallCounter
			if occ >= 1 {
				return true
			}
		}
	}
	return false
}

func (l *LightingVolume) buildMips() {
	g := l.grid
	dirs := 1
	if l.anisotropic {
		dirs = anisotropicFaces
	}
	base := mipLevel{
		res:   [3]int{int(g.Resolution[0]), int(g.Resolution[1]), int(g.Resolution[2])},
		dirs:  dirs,
		color: make([]float32, g.Len()*dirs*3),
		alpha: make([]float32, g.Len()),
	}
	for i := range g.Len() {
		if !g.Occupied(i) {
			continue
		}
		base.alpha[i] = 1
		r := l.radiance[i]
		for d := range dirs {
			w := float32(1)
			if dirs == anisotropicFaces {
				axis, sign := d/2, float32(1)
				if d%2 == 1 {
					sign = -1
				}
				w = max(0, sign*g.Normal[i][axis])
			}
			for k := range 3 {
				base.color[(i*dirs+d)*3+k] = r[k] * w
			}
		}
	}

	l.mips = append(l.mips[:0], base)
	for {
		prev := &l.mips[len(l.mips)-1]
		if prev.res == [3]int{1, 1, 1} {
			break
		}
		l.mips = append(l.mips, downsample(prev))
	}
}

func downsample(src *mipLevel) mipLevel {
	dst := mipLevel{dirs: src.dirs}
	for i := range 3 {
		dst.res[i] = max(1, (src.res[i]+1)/2)
	}
	n := dst.res[0] * dst.res[1] * dst.res[2]
	dst.color = make([]float32, n*dst.dirs*3)
	dst.alpha = make([]float32, n)
	for z := range dst.res[2] {
		for y := range dst.res[1] {
			for x := range dst.res[0] {
				di := dst.index(x, y, z)
				count := float32(0)
				for dz := range 2 {
					for dy := range 2 {
						for dx := range 2 {
							sx, sy, sz := 2*x+dx, 2*y+dy, 2*z+dz
							if sx >= src.res[0] || sy >= src.res[1] || sz >= src.res[2] {
								continue
							}
							si := src.index(sx, sy, sz)
							count++
							dst.alpha[di] += src.alpha[si]
							for c := range dst.dirs * 3 {
								dst.color[di*dst.dirs*3+c] += src.color[si*src.dirs*3+c]
							}
						}
					}
				}
				inv := 1 / count
				dst.alpha[di] *= inv
				for c := range dst.dirs * 3 {
					dst.color[di*dst.dirs*3+c] *= inv
				}
			}
		}
	}
	return dst
}

// sampleLevel returns the premultiplied radiance leaving a mip texel toward -dir and its opacity.
func (l *LightingVolume) sampleLevel(level int, p, dir [3]float32) ([3]float32, float32, bool) {
	m := &l.mips[level]
	g := l.grid
	size := g.Region.Size()
	var c [3]int
	for i := range 3 {
		f := math32.Floor((p[i] - g.Region.Min[i]) / size[i] * float32(m.res[i]))
		if f < 0 || f >= float32(m.res[i]) || size[i] <= 0 {
			return [3]float32{}, 0, false
		}
		c[i] = int(f)
	}
	idx := m.index(c[0], c[1], c[2])
	alpha := min(1, m.alpha[idx]*l.thinWallCounter)

	var out [3]float32
	if m.dirs == 1 {
		copy(out[:], m.color[idx*3:idx*3+3])
		return out, alpha, true
	}
	for axis := range 3 {
		w := dir[axis] * dir[axis]
		face := 2 * axis
		if dir[axis] > 0 {
			face++
		}
		base := (idx*m.dirs + face) * 3
		for k := range 3 {
			out[k] += w * m.color[base+k]
		}
	}
	return out, alpha, true
}

// trace marches a cone from pos along dir through the mip pyramid.
func (l *LightingVolume) trace(pos, dir [3]float32, tanHalf float32) [3]float32 {
	g := l.grid
	vs := g.VoxelSize()
	vmin := min(vs[0], vs[1], vs[2])
	if vmin <= 0 || len(l.mips) == 0 {
		return [3]float32{}
	}
	maxDist := common.Length3(g.Region.Size())
	var color [3]float32
	alpha := float32(0)
	for t := vmin; t < maxDist && alpha < coneOpacityCutoff; {
		diam := max(vmin, 2*t*tanHalf)
		level := common.Clamp(int(math32.Log2(diam/vmin)), 0, len(l.mips)-1)
		p := [3]float32{pos[0] + dir[0]*t, pos[1] + dir[1]*t, pos[2] + dir[2]*t}
		c, a, ok := l.sampleLevel(level, p, dir)
		if !ok {
			break
		}
		for k := range 3 {
			color[k] += (1 - alpha) * c[k]
		}
		alpha += (1 - alpha) * a
		t += diam * 0.5
	}
	return color
}

// gather integrates incoming radiance over the hemisphere around nrm with six cones.
func (l *LightingVolume) gather(pos, nrm [3]float32) [3]float32 {
	if nrm == ([3]float32{}) {
		return [3]float32{}
	}
	ref := [3]float32{1, 0, 0}
	if math32.Abs(nrm[0]) > 0.9 {
		ref = [3]float32{0, 1, 0}
	}
	tangent := common.Normalize3(common.Cross3(nrm, ref))
	bitangent := common.Cross3(nrm, tangent)

	var out [3]float32
	for c := range coneWeights {
		dir := nrm
		if c > 0 {
			phi := float32(c-1) * coneAzimuthStep
			cp, sp := math32.Cos(phi)*coneSinTilt, math32.Sin(phi)*coneSinTilt
			for k := range 3 {
				dir[k] = nrm[k]*coneCosTilt + tangent[k]*cp + bitangent[k]*sp
			}
		}
		r := l.trace(pos, dir, coneTanHalfAngle)
		for k := range 3 {
			out[k] += coneWeights[c] * r[k]
		}
	}
	return out
}

// Sample returns the outgoing radiance of the voxel containing pos.
func (l *LightingVolume) Sample(pos [3]float32) [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.radiance == nil {
		return [3]float32{}
	}
	x, y, z, ok := l.grid.Locate(pos)
	if !ok {
		return [3]float32{}
	}
	return l.radiance[l.grid.Index(x, y, z)]
}

// Irradiance cone traces the indirect light arriving at a surface point.
//
// Parameters:
//   - pos: world-space position
//   - normal: unit surface normal
//
// Returns:
//   - [3]float32: cosine-weighted incoming radiance
func (l *LightingVolume) Irradiance(pos, normal [3]float32) [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mips == nil {
		return [3]float32{}
	}
	return l.gather(pos, normal)
}

// debugColors returns per-voxel radiance when lighting debug is enabled.
func (l *LightingVolume) debugColors() [][4]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.debug || l.radiance == nil {
		return nil
	}
	out := make([][4]float32, len(l.radiance))
	for i, r := range l.radiance {
		if l.grid.Occupied(i) {
			out[i] = [4]float32{r[0], r[1], r[2], 1}
		}
	}
	return out
}
