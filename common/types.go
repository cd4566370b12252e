// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/chewxy/math32"
)

// AABB is an axis-aligned bounding box. An AABB whose Min exceeds its Max on any axis is empty.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// EmptyAABB returns an inverted box that becomes valid after the first Merge or Extend.
//
// Returns:
//   - AABB: the empty box
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: [3]float32{inf, inf, inf},
		Max: [3]float32{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend grows the box to contain p.
//
// Parameters:
//   - p: the point to include
//
// Returns:
//   - AABB: the grown box
func (b AABB) Extend(p [3]float32) AABB {
	for i := range 3 {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Merge returns the union of b and o. Empty boxes are ignored.
//
// Parameters:
//   - o: the box to merge
//
// Returns:
//   - AABB: the union
func (b AABB) Merge(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Center returns the midpoint of the box.
func (b AABB) Center() [3]float32 {
	return [3]float32{(b.Min[0] + b.Max[0]) * 0.5, (b.Min[1] + b.Max[1]) * 0.5, (b.Min[2] + b.Max[2]) * 0.5}
}

// HalfSize returns half the extent of the box on each axis.
func (b AABB) HalfSize() [3]float32 {
	return [3]float32{(b.Max[0] - b.Min[0]) * 0.5, (b.Max[1] - b.Min[1]) * 0.5, (b.Max[2] - b.Min[2]) * 0.5}
}

// Size returns the extent of the box on each axis.
func (b AABB) Size() [3]float32 {
	return [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Contains reports whether p lies inside the box (inclusive).
func (b AABB) Contains(p [3]float32) bool {
	for i := range 3 {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Transform returns the world-space AABB enclosing the eight transformed corners of b.
//
// Parameters:
//   - m: 4x4 column-major transform
//
// Returns:
//   - AABB: the enclosing box
func (b AABB) Transform(m []float32) AABB {
	if b.IsEmpty() {
		return b
	}
	out := EmptyAABB()
	for i := range 8 {
		corner := [3]float32{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.Extend(TransformPoint(m, corner))
	}
	return out
}

// IntersectRay returns the entry distance of the ray origin + t*dir into the box using the slab method.
//
// Parameters:
//   - origin: ray origin
//   - dir: ray direction (need not be normalized; t is in units of dir)
//
// Returns:
//   - float32: the entry distance (0 when the origin is inside)
//   - bool: false when the ray misses the box or the box is behind the origin
func (b AABB) IntersectRay(origin, dir [3]float32) (float32, bool) {
	tMin := float32(0)
	tMax := math32.Inf(1)
	for i := range 3 {
		if dir[i] == 0 {
			if origin[i] < b.Min[i] || origin[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[i]
		t0 := (b.Min[i] - origin[i]) * inv
		t1 := (b.Max[i] - origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = max(tMin, t0)
		tMax = min(tMax, t1)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}
