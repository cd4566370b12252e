package model

// NewBoxMesh builds an axis-aligned box centred on the origin with outward face normals.
//
// Parameters:
//   - half: half extents along X, Y and Z
//
// Returns:
//   - *Mesh: the box mesh (24 vertices, 12 triangles)
func NewBoxMesh(half [3]float32) *Mesh {
	m := &Mesh{}
	// axis, sign
	faces := [6][2]int{{0, 1}, {0, -1}, {1, 1}, {1, -1}, {2, 1}, {2, -1}}
	for _, f := range faces {
		axis, sign := f[0], float32(f[1])
		u, v := (axis+1)%3, (axis+2)%3
		if sign < 0 {
			u, v = v, u
		}
		var n [3]float32
		n[axis] = sign
		base := uint32(len(m.Positions))
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			var p [3]float32
			p[axis] = sign * half[axis]
			p[u] = c[0] * half[u]
			p[v] = c[1] * half[v]
			m.Positions = append(m.Positions, p)
			m.Normals = append(m.Normals, n)
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// NewPlaneMesh builds a quad in the XY plane facing +Z.
//
// Parameters:
//   - halfX, halfY: half extents of the quad
//
// Returns:
//   - *Mesh: the plane mesh (4 vertices, 2 triangles)
func NewPlaneMesh(halfX, halfY float32) *Mesh {
	n := [3]float32{0, 0, 1}
	return &Mesh{
		Positions: [][3]float32{{-halfX, -halfY, 0}, {halfX, -halfY, 0}, {halfX, halfY, 0}, {-halfX, halfY, 0}},
		Normals:   [][3]float32{n, n, n, n},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}
