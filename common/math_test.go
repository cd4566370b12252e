package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvert4RoundTrip(t *testing.T) {
	var rot, trans, m, inv, out [16]float32
	RotationY(rot[:], 0.7)
	trans = Translation(1, -2, 3)
	Mul4(m[:], trans[:], rot[:])

	require.True(t, Invert4(inv[:], m[:]))
	Mul4(out[:], m[:], inv[:])

	ident := IdentityMatrix()
	for i := range out {
		assert.InDelta(t, ident[i], out[i], 1e-5, "element %d", i)
	}
}

func TestRotationsAreRightHanded(t *testing.T) {
	var m [16]float32

	RotationY(m[:], math32.Pi/2)
	v := TransformDirection(m[:], [3]float32{0, 0, 1})
	assert.InDelta(t, 1, v[0], 1e-6)
	assert.InDelta(t, 0, v[2], 1e-6)

	RotationX(m[:], math32.Pi/2)
	v = TransformDirection(m[:], [3]float32{0, 1, 0})
	assert.InDelta(t, 1, v[2], 1e-6)

	RotationZ(m[:], math32.Pi/2)
	v = TransformDirection(m[:], [3]float32{1, 0, 0})
	assert.InDelta(t, 1, v[1], 1e-6)
}

func TestLinearDepthInvertsPerspective(t *testing.T) {
	near, far := float32(0.1), float32(10)
	var proj [16]float32
	Perspective(proj[:], math32.Pi/2, 1, near, far)
	a, b := ProjectionParams(near, far)

	for _, dist := range []float32{near, 0.5, 2, 7.5, far} {
		clip := TransformPoint(proj[:], [3]float32{0, 0, -dist})
		assert.InDelta(t, dist, LinearDepth(clip[2], a, b), float64(dist*1e-4))
	}
	assert.InDelta(t, far, LinearDepth(1, a, b), 1e-3)
}

func TestFrustumCullsBoxes(t *testing.T) {
	var proj, view, vp [16]float32
	Perspective(proj[:], math32.Pi/2, 1, 0.1, 10)
	Identity(view[:])
	Mul4(vp[:], proj[:], view[:])
	f := ExtractFrustumFromMatrix(vp[:])

	inFront := AABB{Min: [3]float32{-0.5, -0.5, -3}, Max: [3]float32{0.5, 0.5, -2}}
	behind := AABB{Min: [3]float32{-0.5, -0.5, 2}, Max: [3]float32{0.5, 0.5, 3}}
	tooFar := AABB{Min: [3]float32{-0.5, -0.5, -30}, Max: [3]float32{0.5, 0.5, -20}}

	assert.True(t, f.IntersectsAABB(inFront))
	assert.False(t, f.IntersectsAABB(behind))
	assert.False(t, f.IntersectsAABB(tooFar))
}

func TestAABBIntersectRay(t *testing.T) {
	box := AABB{Min: [3]float32{4, -1, -1}, Max: [3]float32{6, 1, 1}}

	d, ok := box.IntersectRay([3]float32{0, 0, 0}, [3]float32{1, 0, 0})
	require.True(t, ok)
	assert.InDelta(t, 4, d, 1e-6)

	_, ok = box.IntersectRay([3]float32{0, 0, 0}, [3]float32{-1, 0, 0})
	assert.False(t, ok)

	_, ok = box.IntersectRay([3]float32{0, 5, 0}, [3]float32{1, 0, 0})
	assert.False(t, ok)
}

func TestAABBMergeAndTransform(t *testing.T) {
	b := EmptyAABB()
	assert.True(t, b.IsEmpty())

	b = b.Merge(AABB{Min: [3]float32{0, 0, 0}, Max: [3]float32{1, 1, 1}})
	b = b.Merge(EmptyAABB())
	assert.Equal(t, [3]float32{0.5, 0.5, 0.5}, b.Center())

	m := Translation(10, 0, 0)
	moved := b.Transform(m[:])
	assert.Equal(t, [3]float32{10, 0, 0}, moved.Min)
	assert.Equal(t, [3]float32{11, 1, 1}, moved.Max)
	assert.Equal(t, 3, Clamp(5, 0, 3))
	assert.Equal(t, "b", Coalesce("", "b", "c"))
}
