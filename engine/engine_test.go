package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor/compositortest"
	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gpu_rays"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSensor(t *testing.T, name string) gpu_rays.GpuRays {
	t.Helper()
	backend := compositortest.NewBackend(gpu_rays.Kernels())
	mgr := compositor.NewManager(compositor.WithBackend(backend))
	box := model.NewModel(model.WithMeshes(model.NewBoxMesh([3]float32{1, 1, 1})))
	wall := game_object.NewGameObject(
		game_object.WithModel(box, material.NewMaterial()),
		game_object.WithPosition(5, 0, 0),
	)
	cfg := gpu_rays.DefaultConfig()
	cfg.AngleMin, cfg.AngleMax = -0.1, 0.1
	cfg.RangeCount = 3
	cfg.FirstPassResolution = 16
	cfg.ClampRange = true
	return gpu_rays.NewGpuRays(
		gpu_rays.WithName(name),
		gpu_rays.WithConfig(cfg),
		gpu_rays.WithManager(mgr),
		gpu_rays.WithScene(scene.NewScene(scene.WithObjects(wall))),
	)
}

type countingGI struct {
	calls int
	err   error
}

func (c *countingGI) Update() error {
	c.calls++
	return c.err
}

// brokenSensor fails setup; every other method is left to the embedded nil interface.
type brokenSensor struct {
	gpu_rays.GpuRays
	preRenders int
}

func (b *brokenSensor) Name() string { return "broken" }

func (b *brokenSensor) PreRender() error {
	b.preRenders++
	return errors.New("no device")
}

func TestRunFramesDrivesSensorsAndGI(t *testing.T) {
	s := newTestSensor(t, "front")
	g := &countingGI{}
	e := NewEngine(WithSensors(s), WithGlobalIllumination(g))

	var frames []uint64
	e.SetFrameCallback(func(frame uint64, _ float32) { frames = append(frames, frame) })

	require.NoError(t, e.RunFrames(3))
	assert.Equal(t, []uint64{1, 2, 3}, frames)
	assert.Equal(t, 3, g.calls)
	assert.Equal(t, gpu_rays.StatePublished, s.State())
	data := s.Data()
	require.Len(t, data, 3*gpu_rays.Channels)
	assert.InDelta(t, 4, data[gpu_rays.Channels], 0.05)

	names := map[string]bool{}
	for _, st := range e.Profiler().Stages() {
		names[st.Name] = true
	}
	assert.True(t, names["gi.update"])
}

func TestSensorSetupFailureIsLoggedOnce(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	broken := &brokenSensor{}
	healthy := newTestSensor(t, "healthy")
	e := NewEngine(WithLogger(logger))
	e.AddSensor(broken)
	e.AddSensor(healthy)

	require.NoError(t, e.RunFrames(3))
	assert.Equal(t, 1, broken.preRenders)
	assert.Equal(t, 1, strings.Count(logs.String(), "sensor setup failed"))
	assert.Contains(t, logs.String(), "sensor=broken")
	assert.Equal(t, gpu_rays.StatePublished, healthy.State())
	assert.Len(t, e.Sensors(), 2)
}

func TestRunFramesStopsAtFirstError(t *testing.T) {
	g := &countingGI{err: errors.New("voxelize")}
	e := NewEngine()
	e.AddGlobalIllumination(g)

	err := e.RunFrames(5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame 1")
	assert.Contains(t, err.Error(), "voxelize")
	assert.Equal(t, 1, g.calls)
}

func TestRunRequiresPreview(t *testing.T) {
	e := NewEngine()
	assert.Error(t, e.Run())
	assert.Panics(t, func() { e.AddSensor(nil) })
	assert.Panics(t, func() { e.AddGlobalIllumination(nil) })
	e.Quit()
	e.Quit()
}

func TestSetTickRateWhileStopped(t *testing.T) {
	e := NewEngine(WithTickRate(30)).(*engine)
	assert.InDelta(t, 1.0/30, e.engineTickRate.Seconds(), 1e-6)
	e.SetTickRate(0)
	assert.InDelta(t, 1.0/60, e.engineTickRate.Seconds(), 1e-6)
	e.SetFrameLimit(120)
	assert.InDelta(t, 1.0/120, e.frameLimit.Seconds(), 1e-6)
	e.SetFrameLimit(0)
	assert.Zero(t, e.frameLimit)
}

type fakePresenter struct {
	*compositortest.Backend
	presented []renderer.PreviewParams
	sources   []compositor.Texture
	resized   [2]int
}

func (f *fakePresenter) Present(source compositor.Texture, params renderer.PreviewParams) error {
	f.presented = append(f.presented, params)
	f.sources = append(f.sources, source)
	return nil
}

func (f *fakePresenter) Resize(width, height int) {
	f.resized = [2]int{width, height}
}

func TestPreviewPresentsSelectedSensor(t *testing.T) {
	a := newTestSensor(t, "a")
	b := newTestSensor(t, "b")
	e := NewEngine(WithSensors(a, b))
	fp := &fakePresenter{Backend: compositortest.NewBackend(nil)}
	p := newPreview(fp, slog.Default())

	require.NoError(t, p.present(e.Sensors()))
	assert.Empty(t, fp.presented, "nothing is published before the first frame")

	require.NoError(t, e.RunFrames(1))
	require.NoError(t, p.present(e.Sensors()))
	require.Len(t, fp.presented, 1)
	assert.True(t, fp.presented[0].Range)
	assert.InDelta(t, 0.1, fp.presented[0].Min, 1e-6)
	assert.InDelta(t, 10, fp.presented[0].Max, 1e-6)

	pixels, err := fp.ReadTexture(fp.sources[0])
	require.NoError(t, err)
	require.Len(t, pixels, 3*4)
	assert.InDelta(t, 4, pixels[4], 0.05)
	assert.Equal(t, float32(1), pixels[7])

	p.cycle(1, 2)
	p.toggleRange()
	require.NoError(t, p.present(e.Sensors()))
	assert.False(t, fp.presented[1].Range)
	assert.Equal(t, "b", p.owner)

	p.cycle(-3, 2)
	assert.Equal(t, 0, p.source)
	p.resize(640, 480)
	assert.Equal(t, [2]int{640, 480}, fp.resized)
}

func TestExpandRGBA(t *testing.T) {
	out := expandRGBA(nil, []float32{1, 2, 3, 4, 5, 6}, 3)
	assert.Equal(t, []float32{1, 2, 3, 1, 4, 5, 6, 1}, out)
	out = expandRGBA(out, []float32{7}, 1)
	assert.Equal(t, []float32{7, 0, 0, 1}, out)
}
