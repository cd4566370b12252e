package common

import (
	"github.com/chewxy/math32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix with WebGPU [0, 1] depth,
// so the near plane is row2 alone rather than row3 + row2.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var f Frustum

	// For column-major matrix M, element M[row][col] is at index col*4 + row.
	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	set := func(index int, v [4]float32) {
		f.Planes[index] = Plane{Normal: [3]float32{v[0], v[1], v[2]}, Distance: v[3]}
	}
	add := func(a, b [4]float32) [4]float32 {
		return [4]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
	}
	sub := func(a, b [4]float32) [4]float32 {
		return [4]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
	}

	set(FrustumLeft, add(r3, r0))
	set(FrustumRight, sub(r3, r0))
	set(FrustumBottom, add(r3, r1))
	set(FrustumTop, sub(r3, r1))
	set(FrustumNear, r2)
	set(FrustumFar, sub(r3, r2))

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// IntersectsAABB reports whether the box is at least partially inside the frustum.
// Uses the positive-vertex test, which may report false positives near frustum corners.
//
// Parameters:
//   - box: the world-space bounding box
//
// Returns:
//   - bool: false only when the box is entirely outside one of the planes
func (f *Frustum) IntersectsAABB(box AABB) bool {
	for _, p := range f.Planes {
		var v [3]float32
		for i := range 3 {
			if p.Normal[i] >= 0 {
				v[i] = box.Max[i]
			} else {
				v[i] = box.Min[i]
			}
		}
		if Dot3(p.Normal, v)+p.Distance < 0 {
			return false
		}
	}
	return true
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := math32.Sqrt(p.Normal[0]*p.Normal[0] + p.Normal[1]*p.Normal[1] + p.Normal[2]*p.Normal[2])

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}
