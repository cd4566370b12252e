package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/stretchr/testify/assert"
)

func TestBoxMeshBoundsAndWinding(t *testing.T) {
	m := NewBoxMesh([3]float32{1, 2, 3})
	assert.Equal(t, 12, m.TriangleCount())
	assert.Equal(t, common.AABB{Min: [3]float32{-1, -2, -3}, Max: [3]float32{1, 2, 3}}, m.Bounds())

	// Every triangle is counter-clockwise when seen from outside.
	for i := range m.TriangleCount() {
		a, b, c := m.Triangle(i)
		n := common.Cross3(common.Sub3(b, a), common.Sub3(c, a))
		centroid := [3]float32{(a[0] + b[0] + c[0]) / 3, (a[1] + b[1] + c[1]) / 3, (a[2] + b[2] + c[2]) / 3}
		assert.Greater(t, common.Dot3(n, centroid), float32(0), "triangle %d faces inward", i)
	}
}

func TestModelBoundsAndBuffers(t *testing.T) {
	plane := NewPlaneMesh(5, 5)
	box := NewBoxMesh([3]float32{1, 1, 1})
	mdl := NewModel(WithName("room"), WithMeshes(plane, box))

	assert.Equal(t, "room", mdl.Name())
	assert.Len(t, mdl.Meshes(), 2)
	assert.Equal(t, common.AABB{Min: [3]float32{-5, -5, -1}, Max: [3]float32{5, 5, 1}}, mdl.Bounds())

	assert.Len(t, plane.VertexData(), 4*24)
	assert.Len(t, plane.IndexData(), 6*4)
}
