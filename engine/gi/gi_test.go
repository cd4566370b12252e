package gi

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/light"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floor(static bool) game_object.GameObject {
	grey := material.NewMaterial(material.WithName("grey"), material.WithBaseColor([4]float32{0.8, 0.8, 0.8, 1}))
	return game_object.NewGameObject(
		game_object.WithName("floor"),
		game_object.WithStatic(static),
		game_object.WithModel(model.NewModel(model.WithMeshes(model.NewPlaneMesh(1, 1))), grey),
	)
}

func wall() game_object.GameObject {
	white := material.NewMaterial(material.WithName("white"), material.WithBaseColor([4]float32{1, 1, 1, 1}))
	return game_object.NewGameObject(
		game_object.WithName("wall"),
		game_object.WithStatic(true),
		game_object.WithPosition(-1, 0, 1),
		game_object.WithRotation(0, math32.Pi/2, 0),
		game_object.WithModel(model.NewModel(model.WithMeshes(model.NewPlaneMesh(1, 1))), white),
	)
}

func sun() light.Light {
	return light.NewLight(light.LightTypeDirectional, light.WithDirection(0, 0, -1), light.WithIntensity(2))
}

func newTestVct(t *testing.T, scn scene.Scene, options ...GlobalIlluminationVctBuilderOption) GlobalIlluminationVct {
	t.Helper()
	opts := append([]GlobalIlluminationVctBuilderOption{
		WithScene(scn),
		WithRegistry(NewRegistry(scn.Materials())),
		WithWorkers(2),
	}, options...)
	g := NewGlobalIlluminationVct(opts...)
	t.Cleanup(g.Destroy)
	return g
}

func totalRadiance(l *LightingVolume) float32 {
	var sum float32
	for _, r := range l.radiance {
		sum += r[0] + r[1] + r[2]
	}
	return sum
}

func TestDefaults(t *testing.T) {
	g := newTestVct(t, scene.NewScene())

	assert.Equal(t, [3]uint32{16, 16, 16}, g.Resolution())
	assert.Equal(t, [3]uint32{1, 1, 1}, g.OctantCount())
	assert.Equal(t, uint32(6), g.BounceCount())
	assert.Equal(t, StaticVisuals, g.ParticipatingVisuals())
	assert.Equal(t, float32(1), g.ThinWallCounter())
	assert.Equal(t, DebugNone, g.DebugVisualization())
	assert.True(t, g.Anisotropic())
	assert.False(t, g.HighQuality())
	assert.False(t, g.ConserveMemory())
	assert.False(t, g.Enabled())
	assert.Nil(t, g.Lighting())
}

func TestNewWithoutScenePanics(t *testing.T) {
	assert.PanicsWithValue(t, "gi: NewGlobalIlluminationVct requires a scene", func() {
		NewGlobalIlluminationVct()
	})
}

func TestLightingChangedBeforeBuildPanics(t *testing.T) {
	g := newTestVct(t, scene.NewScene())
	assert.PanicsWithValue(t, "gi: incorrect usage detected, did you call Build?", g.UpdateLighting)
}

func TestBuildRejectsOctantMismatch(t *testing.T) {
	g := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true))),
		WithResolution([3]uint32{16, 16, 15}),
		WithOctantCount([3]uint32{2, 2, 2}),
	)
	assert.ErrorIs(t, g.Build(), ErrOctantMismatch)
	assert.Nil(t, g.Lighting())

	g.SetOctantCount([3]uint32{2, 2, 0})
	assert.ErrorIs(t, g.Build(), ErrOctantMismatch)
}

func TestBuildWithOctantsStaysDisabled(t *testing.T) {
	g := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true)), scene.WithLights(sun())),
		WithResolution([3]uint32{128, 128, 32}),
		WithOctantCount([3]uint32{4, 4, 2}),
		WithBounceCount(0),
	)
	require.NoError(t, g.Build())

	grid := g.Grid()
	require.NotNil(t, grid)
	assert.Equal(t, [3]uint32{128, 128, 32}, grid.Resolution)
	assert.Positive(t, grid.OccupiedCount())
	assert.False(t, g.Enabled())

	g.SetEnabled(true)
	assert.True(t, g.Enabled())
}

func TestBuildTwiceThenEnable(t *testing.T) {
	g := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true)), scene.WithLights(sun())), WithBounceCount(1))
	require.NoError(t, g.Build())
	first := g.Lighting()
	require.NoError(t, g.Build())

	assert.Same(t, first, g.Lighting())
	assert.NotPanics(t, func() { g.SetEnabled(true) })
	assert.True(t, g.Enabled())

	g.SetEnabled(false)
	assert.False(t, g.Enabled())
}

func TestEnableBuildsOnDemand(t *testing.T) {
	g := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true))), WithBounceCount(0))
	g.SetEnabled(true)

	assert.NotNil(t, g.Lighting())
	assert.True(t, g.Enabled())
}

func TestOnlyOneActiveSolution(t *testing.T) {
	scn := scene.NewScene(scene.WithObjects(floor(true)))
	reg := NewRegistry(scn.Materials())
	a := newTestVct(t, scn, WithRegistry(reg), WithBounceCount(0))
	b := newTestVct(t, scn, WithRegistry(reg), WithBounceCount(0))

	a.SetEnabled(true)
	assert.PanicsWithValue(t, "gi: there's already an active GI solution", func() { b.SetEnabled(true) })

	// Disabling a solution that does not hold the slot leaves the owner bound.
	assert.NotPanics(t, func() { b.SetEnabled(false) })
	assert.True(t, a.Enabled())
	assert.Same(t, a, reg.Active())

	a.SetEnabled(false)
	assert.NotPanics(t, func() { b.SetEnabled(true) })
	assert.True(t, b.Enabled())
	assert.False(t, a.Enabled())
}

func TestRegistryDeactivateComparesOwner(t *testing.T) {
	scn := scene.NewScene(scene.WithObjects(floor(true)))
	reg := NewRegistry(scn.Materials())
	a := newTestVct(t, scn, WithRegistry(reg), WithBounceCount(0))
	b := newTestVct(t, scn, WithRegistry(reg), WithBounceCount(0))

	assert.False(t, reg.Deactivate(a))
	reg.Activate(a, false)
	assert.False(t, reg.Deactivate(b))
	assert.Same(t, a, reg.Active())
	assert.True(t, reg.Deactivate(a))
	assert.Nil(t, reg.Active())
}

func TestRegistryForSharesPerMaterialSystem(t *testing.T) {
	m := material.NewSystem()
	assert.Same(t, RegistryFor(m), RegistryFor(m))
	assert.NotSame(t, RegistryFor(m), RegistryFor(material.NewSystem()))
}

func TestHighQualityFollowsEnabledSolution(t *testing.T) {
	scn := scene.NewScene(scene.WithObjects(floor(true)))
	g := newTestVct(t, scn, WithBounceCount(0))

	g.SetHighQuality(true)
	assert.True(t, g.HighQuality())
	assert.False(t, scn.Materials().HighQuality())

	g.SetEnabled(true)
	assert.True(t, scn.Materials().HighQuality())

	g.SetHighQuality(false)
	assert.False(t, scn.Materials().HighQuality())
}

func TestZeroBouncesDisablesMultipleBounces(t *testing.T) {
	g := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true)), scene.WithLights(sun())), WithBounceCount(2))
	require.NoError(t, g.Build())
	require.True(t, g.Lighting().MultipleBounces())
	assert.Equal(t, 2, g.Lighting().BouncesApplied())

	g.SetBounceCount(0)
	assert.False(t, g.Lighting().MultipleBounces())
	g.UpdateLighting()
	assert.False(t, g.Lighting().MultipleBounces())
	assert.Zero(t, g.Lighting().BouncesApplied())

	g.SetConserveMemory(true)
	assert.False(t, g.Lighting().MultipleBounces())
}

func TestConserveMemoryOverridesBounces(t *testing.T) {
	g := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true)), scene.WithLights(sun())), WithBounceCount(1))
	require.NoError(t, g.Build())

	g.SetConserveMemory(true)
	assert.False(t, g.Lighting().MultipleBounces())
	g.UpdateLighting()
	assert.False(t, g.Lighting().MultipleBounces())
}

func TestParticipatingVisuals(t *testing.T) {
	scn := scene.NewScene(scene.WithObjects(floor(false)))
	g := newTestVct(t, scn, WithBounceCount(0))
	require.NoError(t, g.Build())
	assert.Zero(t, g.Grid().OccupiedCount())

	g.SetParticipatingVisuals(StaticVisuals | DynamicVisuals)
	require.NoError(t, g.Build())
	assert.Positive(t, g.Grid().OccupiedCount())
}

func TestDisabledVisualsAreSkipped(t *testing.T) {
	obj := floor(true)
	obj.SetEnabled(false)
	g := newTestVct(t, scene.NewScene(scene.WithObjects(obj)), WithBounceCount(0))
	require.NoError(t, g.Build())
	assert.Zero(t, g.Grid().OccupiedCount())
}

func TestDirectLightBrightensVoxels(t *testing.T) {
	lit := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true)), scene.WithLights(sun())), WithBounceCount(0))
	dark := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true))), WithBounceCount(0))
	require.NoError(t, lit.Build())
	require.NoError(t, dark.Build())

	assert.Zero(t, totalRadiance(dark.Lighting()))
	assert.Positive(t, totalRadiance(lit.Lighting()))
	assert.Positive(t, lit.Sample([3]float32{0, 0, 0})[0])
	assert.Zero(t, lit.Sample([3]float32{10, 10, 10}))
}

func TestEmissiveVoxelsGlowWithoutLights(t *testing.T) {
	glow := material.NewMaterial(material.WithName("glow"), material.WithEmissive([3]float32{1, 0.5, 0}))
	obj := game_object.NewGameObject(
		game_object.WithStatic(true),
		game_object.WithModel(model.NewModel(model.WithMeshes(model.NewBoxMesh([3]float32{0.5, 0.5, 0.5}))), glow),
	)
	g := newTestVct(t, scene.NewScene(scene.WithObjects(obj)), WithBounceCount(0))
	require.NoError(t, g.Build())
	assert.Positive(t, totalRadiance(g.Lighting()))
}

func TestBouncesAddIndirectLight(t *testing.T) {
	objects := func() scene.Scene {
		return scene.NewScene(scene.WithObjects(floor(true), wall()), scene.WithLights(sun()))
	}
	direct := newTestVct(t, objects(), WithBounceCount(0))
	bounced := newTestVct(t, objects(), WithBounceCount(2))
	require.NoError(t, direct.Build())
	require.NoError(t, bounced.Build())

	assert.Equal(t, 2, bounced.Lighting().BouncesApplied())
	assert.Greater(t, totalRadiance(bounced.Lighting()), totalRadiance(direct.Lighting()))
}

func TestIsotropicVolumeStoresOneDirection(t *testing.T) {
	g := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true)), scene.WithLights(sun())),
		WithAnisotropic(false), WithBounceCount(0))
	require.NoError(t, g.Build())
	require.NotZero(t, g.Lighting().MipLevels())
	assert.Equal(t, 1, g.Lighting().mips[0].dirs)

	g.SetAnisotropic(true)
	g.UpdateLighting()
	assert.Equal(t, anisotropicFaces, g.Lighting().mips[0].dirs)
}

func TestDebugVisualization(t *testing.T) {
	g := newTestVct(t, scene.NewScene(scene.WithObjects(floor(true)), scene.WithLights(sun())), WithBounceCount(0))
	require.NoError(t, g.Build())
	assert.Nil(t, g.DebugColors())

	g.SetDebugVisualization(DebugAlbedo)
	colors := g.DebugColors()
	require.Len(t, colors, g.Grid().Len())
	var found bool
	for _, c := range colors {
		if c[3] == 1 {
			found = true
			assert.InDelta(t, 0.8, c[0], 1e-4)
		}
	}
	assert.True(t, found)

	g.SetDebugVisualization(DebugNormal)
	for i, c := range g.DebugColors() {
		if g.Grid().Occupied(i) {
			assert.InDelta(t, 1, c[2], 1e-3)
		}
	}

	g.SetDebugVisualization(DebugLighting)
	assert.NotNil(t, g.DebugColors())
	assert.True(t, g.Lighting().debug)

	g.SetDebugVisualization(DebugNone)
	assert.Nil(t, g.DebugColors())
	assert.False(t, g.Lighting().debug)
}

func TestDestroyReleasesSlot(t *testing.T) {
	scn := scene.NewScene(scene.WithObjects(floor(true)))
	reg := NewRegistry(scn.Materials())
	g := newTestVct(t, scn, WithRegistry(reg), WithBounceCount(0))
	g.SetEnabled(true)

	g.Destroy()
	assert.False(t, g.Enabled())
	assert.Nil(t, g.Lighting())
	assert.Nil(t, reg.Active())
}

func TestDebugVisualizationModeString(t *testing.T) {
	assert.Equal(t, "albedo", DebugAlbedo.String())
	assert.Equal(t, "lighting", DebugLighting.String())
	assert.Equal(t, "unknown", DebugVisualizationMode(42).String())
}
