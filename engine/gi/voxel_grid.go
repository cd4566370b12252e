package gi

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/chewxy/math32"
)

// VoxelGrid is a dense voxelization of scene surfaces over Region.
type VoxelGrid struct {
	Resolution [3]uint32
	Region     common.AABB

	// Albedo holds the average surface colour per voxel; alpha is 1 for occupied voxels.
	Albedo [][4]float32
	// Normal holds the average unit surface normal per voxel.
	Normal [][3]float32
	// Emissive holds the average emitted radiance per voxel.
	Emissive [][3]float32
}

// newVoxelGrid allocates an empty grid.
func newVoxelGrid(res [3]uint32, region common.AABB) *VoxelGrid {
	n := int(res[0]) * int(res[1]) * int(res[2])
	return &VoxelGrid{
		Resolution: res,
		Region:     region,
		Albedo:     make([][4]float32, n),
		Normal:     make([][3]float32, n),
		Emissive:   make([][3]float32, n),
	}
}

// Len returns the number of voxels.
func (g *VoxelGrid) Len() int {
	return len(g.Albedo)
}

// VoxelSize returns the world-space extent of one voxel.
func (g *VoxelGrid) VoxelSize() [3]float32 {
	s := g.Region.Size()
	return [3]float32{
		s[0] / float32(g.Resolution[0]),
		s[1] / float32(g.Resolution[1]),
		s[2] / float32(g.Resolution[2]),
	}
}

// Index returns the linear index of voxel (x, y, z).
func (g *VoxelGrid) Index(x, y, z int) int {
	return (z*int(g.Resolution[1])+y)*int(g.Resolution[0]) + x
}

// Coords is the inverse of Index.
func (g *VoxelGrid) Coords(i int) (x, y, z int) {
	rx, ry := int(g.Resolution[0]), int(g.Resolution[1])
	return i % rx, (i / rx) % ry, i / (rx * ry)
}

// Center returns the world-space centre of voxel (x, y, z).
func (g *VoxelGrid) Center(x, y, z int) [3]float32 {
	vs := g.VoxelSize()
	return [3]float32{
		g.Region.Min[0] + (float32(x)+0.5)*vs[0],
		g.Region.Min[1] + (float32(y)+0.5)*vs[1],
		g.Region.Min[2] + (float32(z)+0.5)*vs[2],
	}
}

// Locate returns the voxel containing p.
//
// Parameters:
//   - p: world-space position
//
// Returns:
//   - x, y, z: voxel coordinates
//   - bool: false when p lies outside the grid
func (g *VoxelGrid) Locate(p [3]float32) (x, y, z int, ok bool) {
	vs := g.VoxelSize()
	var c [3]int
	for i := range 3 {
		if vs[i] <= 0 {
			return 0, 0, 0, false
		}
		f := math32.Floor((p[i] - g.Region.Min[i]) / vs[i])
		if f < 0 || f >= float32(g.Resolution[i]) {
			return 0, 0, 0, false
		}
		c[i] = int(f)
	}
	return c[0], c[1], c[2], true
}

// Occupied reports whether voxel i contains geometry.
func (g *VoxelGrid) Occupied(i int) bool {
	return g.Albedo[i][3] > 0
}

// OccupiedCount returns the number of occupied voxels.
func (g *VoxelGrid) OccupiedCount() int {
	n := 0
	for i := range g.Albedo {
		if g.Occupied(i) {
			n++
		}
	}
	return n
}

// octant is a half-open voxel range [min, max) built by one worker.
type octant struct {
	min, max [3]int
}

// splitOctants tiles a grid of resolution res into counts[0]*counts[1]*counts[2] equal octants.
func splitOctants(res, counts [3]uint32) ([]octant, error) {
	for i := range 3 {
		if counts[i] == 0 || res[i] == 0 || res[i]%counts[i] != 0 {
			return nil, fmt.Errorf("%w: resolution %v, octants %v", ErrOctantMismatch, res, counts)
		}
	}
	step := [3]int{int(res[0] / counts[0]), int(res[1] / counts[1]), int(res[2] / counts[2])}
	out := make([]octant, 0, counts[0]*counts[1]*counts[2])
	for z := range int(counts[2]) {
		for y := range int(counts[1]) {
			for x := range int(counts[0]) {
				o := octant{min: [3]int{x * step[0], y * step[1], z * step[2]}}
				for i := range 3 {
					o.max[i] = o.min[i] + step[i]
				}
				out = append(out, o)
			}
		}
	}
	return out, nil
}

// bounds returns the world-space box covered by the octant.
func (o octant) bounds(g *VoxelGrid) common.AABB {
	vs := g.VoxelSize()
	var b common.AABB
	for i := range 3 {
		b.Min[i] = g.Region.Min[i] + float32(o.min[i])*vs[i]
		b.Max[i] = g.Region.Min[i] + float32(o.max[i])*vs[i]
	}
	return b
}

func (o octant) contains(x, y, z int) bool {
	return x >= o.min[0] && x < o.max[0] &&
		y >= o.min[1] && y < o.max[1] &&
		z >= o.min[2] && z < o.max[2]
}
