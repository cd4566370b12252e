package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/light"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldAABBFollowsTransform(t *testing.T) {
	box := model.NewModel(model.WithMeshes(model.NewBoxMesh([3]float32{1, 1, 1})))
	obj := NewGameObject(WithModel(box), WithPosition(10, 0, 0), WithScale(2, 1, 1))

	b := obj.WorldAABB()
	assert.InDelta(t, 8, b.Min[0], 1e-5)
	assert.InDelta(t, 12, b.Max[0], 1e-5)

	obj.SetRotation(0, 0, math32.Pi/2)
	b = obj.WorldAABB()
	assert.InDelta(t, 9, b.Min[0], 1e-5)
	assert.InDelta(t, -2, b.Min[1], 1e-5)
}

func TestSubItemsPerMesh(t *testing.T) {
	red := material.NewMaterial(material.WithName("red"))
	mdl := model.NewModel(model.WithMeshes(model.NewPlaneMesh(1, 1), model.NewBoxMesh([3]float32{1, 1, 1})))
	obj := NewGameObject(WithModel(mdl, red))

	subs := obj.SubItems()
	require.Len(t, subs, 2)
	assert.Equal(t, "red", subs[0].Material().Name())
	assert.Equal(t, "red", subs[1].Material().Name())

	subs[1].SetCustomParameter(10, [4]float32{1, 1, 1, 1})
	_, ok := subs[1].CustomParameter(10)
	assert.True(t, ok)
	subs[1].RemoveCustomParameter(10)
	_, ok = subs[1].CustomParameter(10)
	assert.False(t, ok)
}

func TestVisibilityFlagsAndUserData(t *testing.T) {
	obj := NewGameObject(WithUserData("laser_retro", 1500.0))
	assert.Equal(t, DefaultVisibilityFlags, obj.VisibilityFlags())
	assert.Zero(t, obj.VisibilityFlags()&VisibilityParticle)

	obj.AddVisibilityFlags(VisibilityParticle)
	assert.NotZero(t, obj.VisibilityFlags()&VisibilityParticle)
	obj.RemoveVisibilityFlags(VisibilityParticle)
	assert.Equal(t, DefaultVisibilityFlags, obj.VisibilityFlags())

	v, ok := obj.UserData("laser_retro")
	require.True(t, ok)
	assert.Equal(t, 1500.0, v)
}

func TestAttachedLightFollowsPosition(t *testing.T) {
	l := light.NewLight(light.LightTypePoint)
	obj := NewGameObject(WithLight(l), WithPosition(1, 2, 3))
	obj.SetPosition(4, 5, 6)
	assert.Equal(t, [3]float32{4, 5, 6}, l.Position())
	assert.True(t, common.AABB.IsEmpty(obj.WorldAABB()))
}
