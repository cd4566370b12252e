package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/light"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := NewScene()
	a := game_object.NewGameObject()
	b := game_object.NewGameObject()

	assert.Equal(t, uint64(1), s.Add(a))
	assert.Equal(t, uint64(2), s.Add(b))
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, []game_object.GameObject{a, b}, s.Objects())

	s.Remove(1)
	assert.Nil(t, s.Get(1))
	assert.Same(t, b, s.Get(2))
}

func TestVisualByIDMissing(t *testing.T) {
	s := NewScene()
	_, err := s.VisualByID(42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVisualNotFound)
}

func TestVisibleFiltersByMaskAndEnabled(t *testing.T) {
	wall := game_object.NewGameObject()
	smoke := game_object.NewGameObject(game_object.WithVisibilityFlags(game_object.VisibilityParticle))
	hidden := game_object.NewGameObject(game_object.WithEnabled(false))
	s := NewScene(WithObjects(wall, smoke, hidden))

	assert.Equal(t, []game_object.GameObject{wall}, s.Visible(game_object.DefaultVisibilityFlags))
	assert.Equal(t, []game_object.GameObject{smoke}, s.Visible(game_object.VisibilityParticle))
}

func TestLightsIncludeAttached(t *testing.T) {
	sun := light.NewLight(light.LightTypeDirectional)
	lamp := light.NewLight(light.LightTypePoint)
	s := NewScene(WithLights(sun), WithObjects(game_object.NewGameObject(game_object.WithLight(lamp))))

	assert.Equal(t, []light.Light{sun, lamp}, s.Lights())
	s.RemoveLight(sun)
	assert.Equal(t, []light.Light{lamp}, s.Lights())
}

func TestAddRegistersMaterials(t *testing.T) {
	red := material.NewMaterial(material.WithName("red"))
	box := model.NewModel(model.WithMeshes(model.NewBoxMesh([3]float32{1, 1, 1})))
	s := NewScene()
	s.Add(game_object.NewGameObject(game_object.WithModel(box, red)))

	m, ok := s.Materials().Get("red")
	require.True(t, ok)
	assert.Same(t, red, m)
}
