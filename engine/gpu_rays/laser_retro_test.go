package gpu_rays

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaserRetroSwitchIsReversible(t *testing.T) {
	mesh := model.NewBoxMesh([3]float32{1, 1, 1})
	mdl := model.NewModel(model.WithMeshes(mesh, mesh))
	grey := material.NewMaterial(material.WithName("grey"))

	tagged := game_object.NewGameObject(
		game_object.WithName("tagged"),
		game_object.WithModel(mdl, grey),
		game_object.WithVisibilityFlags(0x1),
		game_object.WithUserData(LaserRetroUserDataKey, float32(500)),
	)
	plain := game_object.NewGameObject(game_object.WithName("plain"), game_object.WithModel(mdl, grey))
	malformed := game_object.NewGameObject(
		game_object.WithName("malformed"),
		game_object.WithModel(mdl, grey),
		game_object.WithUserData(LaserRetroUserDataKey, "shiny"),
	)
	preset := game_object.NewGameObject(
		game_object.WithName("preset"),
		game_object.WithModel(mdl, grey),
		game_object.WithUserData(LaserRetroUserDataKey, 5000),
	)
	preset.SubItems()[0].SetCustomParameter(LaserRetroCustomParamIndex, [4]float32{0.1, 0.2, 0.3, 1})
	plain.SubItems()[1].SetCustomParameter(LaserRetroCustomParamIndex, [4]float32{0.7, 0.7, 0.7, 1})
	hidden := game_object.NewGameObject(
		game_object.WithName("hidden"),
		game_object.WithModel(mdl, grey),
		game_object.WithVisibilityFlags(0x1),
	)

	var buf bytes.Buffer
	scn := scene.NewScene(scene.WithObjects(tagged, plain, malformed, preset, hidden))
	sw := NewLaserRetroMaterialSwitcher(scn, slog.New(slog.NewTextHandler(&buf, nil)))

	sw.PreRender(nil)
	assert.Contains(t, buf.String(), "unsupported user data type")
	assert.Contains(t, buf.String(), "type=string")

	assert.Equal(t, uint32(0x1)|LaserRetroVisibilityFlag, tagged.VisibilityFlags())
	for _, sub := range tagged.SubItems() {
		assert.Equal(t, LaserRetroMaterialName, sub.Material().Name())
		assert.Equal(t, material.ProgramCustomColor, sub.Material().Program())
		p, ok := sub.CustomParameter(LaserRetroCustomParamIndex)
		require.True(t, ok)
		assert.Equal(t, [4]float32{0.25, 0.25, 0.25, 1}, p)
	}

	// Untagged visuals in the colour pass occlude with zero retro, whatever their own parameter.
	for _, obj := range []game_object.GameObject{plain, malformed} {
		for _, sub := range obj.SubItems() {
			assert.Equal(t, LaserRetroMaterialName, sub.Material().Name(), obj.Name())
			p, ok := sub.CustomParameter(LaserRetroCustomParamIndex)
			require.True(t, ok)
			assert.Equal(t, [4]float32{0, 0, 0, 1}, p, obj.Name())
		}
	}
	assert.Same(t, grey, hidden.SubItems()[0].Material())
	_, ok := hidden.SubItems()[0].CustomParameter(LaserRetroCustomParamIndex)
	assert.False(t, ok)

	p, _ := preset.SubItems()[0].CustomParameter(LaserRetroCustomParamIndex)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1}, p)
	p, _ = preset.SubItems()[1].CustomParameter(LaserRetroCustomParamIndex)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, p, "values clamp to MaxLaserRetro")

	sw.PostRender(nil)
	assert.Equal(t, uint32(0x1), tagged.VisibilityFlags())
	assert.Equal(t, game_object.DefaultVisibilityFlags, preset.VisibilityFlags())
	for _, obj := range []game_object.GameObject{tagged, plain, malformed, preset, hidden} {
		for _, sub := range obj.SubItems() {
			assert.Same(t, grey, sub.Material())
		}
	}
	_, ok = plain.SubItems()[0].CustomParameter(LaserRetroCustomParamIndex)
	assert.False(t, ok)
	p, ok = plain.SubItems()[1].CustomParameter(LaserRetroCustomParamIndex)
	assert.True(t, ok)
	assert.Equal(t, [4]float32{0.7, 0.7, 0.7, 1}, p)
	_, ok = tagged.SubItems()[0].CustomParameter(LaserRetroCustomParamIndex)
	assert.False(t, ok)
	p, ok = preset.SubItems()[0].CustomParameter(LaserRetroCustomParamIndex)
	assert.True(t, ok)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1}, p)
	_, ok = preset.SubItems()[1].CustomParameter(LaserRetroCustomParamIndex)
	assert.False(t, ok)
}
