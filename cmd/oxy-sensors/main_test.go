package main

import (
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/config"
	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor/compositortest"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gpu_rays"
	"github.com/Carmen-Shannon/oxy-sensors/engine/loader"
	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleGLTF is a single triangle with an embedded position buffer.
const triangleGLTF = `{
  "asset": {"version": "2.0"},
  "scenes": [{"nodes": [0]}],
  "nodes": [{"mesh": 0}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": 36}],
  "buffers": [{"byteLength": 36, "uri": "data:application/octet-stream;base64,AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAA"}]
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfigFallsBackToDemoScene(t *testing.T) {
	cfg, err := loadConfig(options{frames: 3, output: "out.png"})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.Frames)
	assert.Equal(t, "out.png", cfg.Engine.Output)
	assert.Len(t, cfg.Scene.Objects, 6)
	assert.Len(t, cfg.Scene.Lights, 2)
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[gi]\nmode = \"bogus\"\n"), 0o644))
	_, err := loadConfig(options{configPath: path})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestBuildDemoScene(t *testing.T) {
	scn, err := buildScene(demoScene(), loader.NewLoader(), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 6, scn.Count())
	assert.Len(t, scn.Lights(), 2)

	retro := 0
	for _, obj := range scn.Objects() {
		if v, ok := obj.UserData(gpu_rays.LaserRetroUserDataKey); ok {
			retro++
			assert.Equal(t, "pillar", obj.Name())
			assert.Equal(t, float64(200), v)
		}
	}
	assert.Equal(t, 1, retro)
}

func TestBuildSceneSharesLoadedModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.gltf")
	require.NoError(t, os.WriteFile(path, []byte(triangleGLTF), 0o644))

	ldr := loader.NewLoader()
	cfg := config.SceneConfig{Objects: []config.ObjectConfig{
		{Name: "a", Shape: config.ShapeModel, Path: path},
		{Name: "b", Shape: config.ShapeModel, Path: path, Position: [3]float32{2, 0, 0}},
	}}
	scn, err := buildScene(cfg, ldr, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, scn.Count())
	assert.Len(t, ldr.Assets(), 1)

	cfg.Objects[0].Path = filepath.Join(t.TempDir(), "missing.gltf")
	_, err = buildScene(cfg, loader.NewLoader(), quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene object 0 (a)")
}

func TestBuildGIModes(t *testing.T) {
	prof := profiler.NewProfiler(quietLogger(), 0)
	mount := camera.NewIdentityMount()

	cfg := config.Default().GI
	cfg.Mode = config.GIModeOff
	scn, err := buildScene(demoScene(), loader.NewLoader(), quietLogger())
	require.NoError(t, err)
	rt, err := buildGI(cfg, scn, mount, quietLogger(), prof)
	require.NoError(t, err)
	assert.Nil(t, rt)

	cfg.Mode = config.GIModeVct
	cfg.Resolution = [3]uint32{8, 8, 8}
	cfg.OctantCount = [3]uint32{2, 2, 2}
	rt, err = buildGI(cfg, scn, mount, quietLogger(), prof)
	require.NoError(t, err)
	require.NotNil(t, rt)
	require.NoError(t, rt.updater.Update())
	rt.stop()

	// A fresh scene gets its own GI slot.
	scn, err = buildScene(demoScene(), loader.NewLoader(), quietLogger())
	require.NoError(t, err)
	cfg.Mode = config.GIModeCiVct
	cfg.Cascades = []config.CascadeConfig{
		{Resolution: [3]uint32{8, 8, 8}, OctantCount: [3]uint32{1, 1, 1}, AreaHalfSize: [3]float32{4, 4, 4}},
		{Resolution: [3]uint32{8, 8, 8}, OctantCount: [3]uint32{2, 2, 2}, AreaHalfSize: [3]float32{8, 8, 8}},
	}
	rt, err = buildGI(cfg, scn, mount, quietLogger(), prof)
	require.NoError(t, err)
	require.NotNil(t, rt)
	require.NoError(t, rt.updater.Update())
	rt.stop()
}

func TestApplySensorConfigRebuildsOnNextFrame(t *testing.T) {
	scn, err := buildScene(demoScene(), loader.NewLoader(), quietLogger())
	require.NoError(t, err)
	sc := config.Default().Sensor
	sc.RangeCount, sc.VerticalRangeCount = 8, 1
	sc.VerticalAngleMin, sc.VerticalAngleMax = 0, 0
	sc.FirstPassResolution = 16

	mgr := compositor.NewManager(compositor.WithBackend(compositortest.NewBackend(gpu_rays.Kernels())))
	sensor := gpu_rays.NewGpuRays(
		gpu_rays.WithName(sc.Name),
		gpu_rays.WithConfig(sc.GpuRays()),
		gpu_rays.WithManager(mgr),
		gpu_rays.WithScene(scn),
		gpu_rays.WithLogger(quietLogger()),
	)
	frame := func() {
		require.NoError(t, sensor.PreRender())
		require.NoError(t, sensor.Render())
		require.NoError(t, sensor.PostRender())
	}
	frame()
	assert.Equal(t, uint32(8), sensor.Width())

	sc.RangeCount = 12
	mount := camera.NewIdentityMount()
	applySensorConfig(sensor, mount, sc, quietLogger())
	frame()
	assert.Equal(t, uint32(12), sensor.Width())
	assert.Len(t, sensor.Data(), 12*gpu_rays.Channels)
	assert.Equal(t, sc.Pose(), mount.WorldMatrix())
}

func TestRunHeadlessWritesScan(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "scan.png")
	cfgPath := filepath.Join(dir, "run.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[engine]
frames = 2
backend = "cpu"
log_level = "warn"

[sensor]
name = "test"
range_count = 36
vertical_range_count = 1
vertical_angle_min = 0.0
vertical_angle_max = 0.0
first_pass_resolution = 32

[gi]
mode = "vct"
resolution = [8, 8, 8]
octant_count = [1, 1, 1]
`), 0o644))

	require.NoError(t, run(options{configPath: cfgPath, output: out}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 36, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}
