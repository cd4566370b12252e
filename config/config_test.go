package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[engine]
frames = 4
log_level = "debug"
output = ""

[sensor]
name = "front"
horizontal_angle_min = -45.0
horizontal_angle_max = 45.0
range_count = 90
vertical_range_count = 1
vertical_angle_min = 0.0
vertical_angle_max = 0.0
far = 30.0

[gi]
mode = "civct"
step_size = [2.0, 2.0, 2.0]

[[gi.cascades]]
resolution = [16, 16, 16]
octant_count = [2, 2, 2]
area_half_size = [8.0, 8.0, 8.0]
thin_wall_counter = 1.0

[[scene.objects]]
name = "wall"
shape = "box"
half_extents = [0.5, 4.0, 2.0]
position = [5.0, 0.0, 0.0]
laser_retro = 150.0

[[scene.lights]]
type = "point"
position = [0.0, 0.0, 3.0]
color = [1.0, 1.0, 1.0]
intensity = 10.0
range = 20.0
`

const sampleYAML = `
engine:
  frames: 2
sensor:
  name: rear
  range_count: 10
  vertical_range_count: 1
  vertical_angle_min: 0
  vertical_angle_max: 0
gi:
  mode: "off"
scene:
  objects:
    - name: floor
      shape: plane
      half_extents: [10, 10, 0]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Scene.Objects)
	assert.Equal(t, GIModeVct, cfg.GI.Mode)
}

func TestLoadTOMLKeepsUnsetDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "run.toml", sampleTOML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4, cfg.Engine.Frames)
	assert.Empty(t, cfg.Engine.Output)
	assert.Equal(t, "front", cfg.Sensor.Name)
	assert.Equal(t, uint32(90), cfg.Sensor.RangeCount)
	assert.InDelta(t, 30, cfg.Sensor.Far, 1e-9)
	assert.InDelta(t, 0.1, cfg.Sensor.Near, 1e-9, "near comes from Default")

	require.Len(t, cfg.GI.Cascades, 1)
	assert.Equal(t, [3]uint32{16, 16, 16}, cfg.GI.Cascades[0].Resolution)
	assert.Equal(t, [3]float32{8, 8, 8}, cfg.GI.Cascades[0].AreaHalfSize)

	require.Len(t, cfg.Scene.Objects, 1)
	assert.Equal(t, ShapeBox, cfg.Scene.Objects[0].Shape)
	assert.InDelta(t, 150, cfg.Scene.Objects[0].LaserRetro, 1e-9)
	require.Len(t, cfg.Scene.Lights, 1)
	assert.Equal(t, LightPoint, cfg.Scene.Lights[0].Type)

	level, err := cfg.Engine.Level()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "run.yml", sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "rear", cfg.Sensor.Name)
	assert.Equal(t, GIModeOff, cfg.GI.Mode)
	require.Len(t, cfg.Scene.Objects, 1)
	assert.Equal(t, [3]float32{10, 10, 0}, cfg.Scene.Objects[0].HalfExtents)
}

func TestSaveThenLoad(t *testing.T) {
	for _, name := range []string{"out.toml", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Sensor.RangeCount = 77
			cfg.Scene.Objects = []ObjectConfig{{Name: "crate", Shape: ShapeBox, HalfExtents: [3]float32{1, 1, 1}}}
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.Save(path))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Engine, got.Engine)
			assert.Equal(t, cfg.Sensor, got.Sensor)
			assert.Equal(t, cfg.GI.Resolution, got.GI.Resolution)
			assert.Equal(t, cfg.Scene.Objects, got.Scene.Objects)
			assert.Empty(t, got.Scene.Lights)
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := Load(writeFile(t, "run.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, Default().Save(filepath.Join(t.TempDir(), "run.ini")), ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	_, err := Load(writeFile(t, "bad.toml", "[engine\nframes = "))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Engine.LogLevel = "loud"
	cfg.Engine.Backend = "vulkan"
	cfg.Sensor.Near = 50
	cfg.GI.Resolution = [3]uint32{30, 32, 32}
	cfg.Scene.Objects = []ObjectConfig{
		{Name: "blob", Shape: "sphere"},
		{Name: "mesh", Shape: ShapeModel},
	}
	cfg.Scene.Lights = []LightConfig{{Type: "area"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, gi.ErrOctantMismatch)
	for _, want := range []string{"log_level", `backend "vulkan"`, "clip range", `shape "sphere"`, "needs a path", `type "area"`} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateGIModes(t *testing.T) {
	cfg := Default()
	cfg.GI.Mode = GIModeCiVct
	assert.ErrorContains(t, cfg.Validate(), "at least one cascade")

	cfg.GI.Cascades = []CascadeConfig{{Resolution: [3]uint32{8, 8, 8}, OctantCount: [3]uint32{1, 1, 1}}}
	assert.ErrorContains(t, cfg.Validate(), "area_half_size")

	cfg.GI.Mode = "path-traced"
	assert.ErrorContains(t, cfg.Validate(), "gi.mode")

	cfg.GI.Mode = GIModeOff
	cfg.GI.Resolution = [3]uint32{}
	assert.NoError(t, cfg.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	cfg := Default()
	cfg.Scene.Objects = []ObjectConfig{{Name: "a", Shape: ShapeBox, HalfExtents: [3]float32{1, 1, 1}}}
	cfg.GI.Cascades = []CascadeConfig{{AreaHalfSize: [3]float32{1, 1, 1}}}

	clone := cfg.Clone()
	assert.Equal(t, cfg.Sensor, clone.Sensor)
	assert.Equal(t, cfg.Scene.Objects, clone.Scene.Objects)
	clone.Scene.Objects[0].Name = "b"
	clone.GI.Cascades[0].AreaHalfSize[0] = 9
	assert.Equal(t, "a", cfg.Scene.Objects[0].Name)
	assert.Equal(t, float32(1), cfg.GI.Cascades[0].AreaHalfSize[0])
}

func TestSensorConversion(t *testing.T) {
	s := Default().Sensor
	rc := s.GpuRays()
	assert.InDelta(t, -math.Pi, rc.AngleMin, 1e-9)
	assert.InDelta(t, math.Pi, rc.AngleMax, 1e-9)
	assert.InDelta(t, -15*math.Pi/180, rc.VerticalAngleMin, 1e-9)
	assert.Equal(t, s.RangeCount, rc.RangeCount)
	assert.Equal(t, s.Far, rc.Far)

	s.Position = [3]float32{1, 2, 3}
	s.Rotation = [3]float32{0, 0, 90}
	pose := s.Pose()
	p := common.TransformPoint(pose[:], [3]float32{1, 0, 0})
	assert.InDelta(t, 1, p[0], 1e-5)
	assert.InDelta(t, 3, p[1], 1e-5)
	assert.InDelta(t, 3, p[2], 1e-5)

	ident := PoseMatrix([3]float32{}, [3]float32{})
	assert.Equal(t, common.IdentityMatrix(), ident)
}
