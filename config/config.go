// Package config loads the TOML or YAML file describing a sensor run: engine settings,
// the range sensor, global illumination and the scene to scan.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gi"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gpu_rays"
	"github.com/jinzhu/copier"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither TOML nor YAML.
	ErrUnsupportedFormat = errors.New("config: unsupported file format")

	// ErrInvalid wraps every Validate failure.
	ErrInvalid = errors.New("config: invalid configuration")
)

// GI modes.
const (
	GIModeOff   = "off"
	GIModeVct   = "vct"
	GIModeCiVct = "civct"
)

// Object shapes.
const (
	ShapeBox   = "box"
	ShapePlane = "plane"
	ShapeModel = "model"
)

// Compositor backends.
const (
	BackendAuto = "auto"
	BackendGPU  = "gpu"
	BackendCPU  = "cpu"
)

// Light types.
const (
	LightDirectional = "directional"
	LightPoint       = "point"
	LightSpot        = "spot"
)

// Config is the root of a configuration file.
type Config struct {
	Engine EngineConfig `toml:"engine" yaml:"engine"`
	Sensor SensorConfig `toml:"sensor" yaml:"sensor"`
	GI     GIConfig     `toml:"gi" yaml:"gi"`
	Scene  SceneConfig  `toml:"scene" yaml:"scene"`
}

// EngineConfig controls the frame loop and output.
type EngineConfig struct {
	// Frames is the number of headless frames. Ignored when Window is set.
	Frames     int     `toml:"frames" yaml:"frames"`
	TickRate   float64 `toml:"tick_rate" yaml:"tick_rate"`
	FrameLimit float64 `toml:"frame_limit" yaml:"frame_limit"`
	Profiling  bool    `toml:"profiling" yaml:"profiling"`
	LogLevel   string  `toml:"log_level" yaml:"log_level"`

	Window bool `toml:"window" yaml:"window"`
	Width  int  `toml:"width" yaml:"width"`
	Height int  `toml:"height" yaml:"height"`

	// Backend selects the compositor backend. Auto uses the GPU and falls back to the
	// CPU reference backend for headless runs when no adapter is available.
	Backend string `toml:"backend" yaml:"backend"`

	// ForceSoftwareRenderer requests a fallback adapter.
	ForceSoftwareRenderer bool `toml:"force_software_renderer" yaml:"force_software_renderer"`

	// Output is the PNG written with the last published scan. Empty disables it.
	Output string `toml:"output" yaml:"output"`
}

// SensorConfig describes the range sensor. Angles are in degrees.
type SensorConfig struct {
	Name string `toml:"name" yaml:"name"`

	HorizontalAngleMin float64 `toml:"horizontal_angle_min" yaml:"horizontal_angle_min"`
	HorizontalAngleMax float64 `toml:"horizontal_angle_max" yaml:"horizontal_angle_max"`
	VerticalAngleMin   float64 `toml:"vertical_angle_min" yaml:"vertical_angle_min"`
	VerticalAngleMax   float64 `toml:"vertical_angle_max" yaml:"vertical_angle_max"`

	RangeCount         uint32 `toml:"range_count" yaml:"range_count"`
	VerticalRangeCount uint32 `toml:"vertical_range_count" yaml:"vertical_range_count"`

	Near       float64 `toml:"near" yaml:"near"`
	Far        float64 `toml:"far" yaml:"far"`
	ClampRange bool    `toml:"clamp_range" yaml:"clamp_range"`

	FirstPassResolution  uint32  `toml:"first_pass_resolution" yaml:"first_pass_resolution"`
	ParticleStddev       float64 `toml:"particle_stddev" yaml:"particle_stddev"`
	ParticleScatterRatio float64 `toml:"particle_scatter_ratio" yaml:"particle_scatter_ratio"`

	Position [3]float32 `toml:"position" yaml:"position"`
	// Rotation is roll, pitch and yaw about X, Y and Z.
	Rotation [3]float32 `toml:"rotation" yaml:"rotation"`
}

// GIConfig selects and tunes the global illumination solution.
type GIConfig struct {
	Mode string `toml:"mode" yaml:"mode"`

	Resolution           [3]uint32 `toml:"resolution" yaml:"resolution"`
	OctantCount          [3]uint32 `toml:"octant_count" yaml:"octant_count"`
	BounceCount          uint32    `toml:"bounce_count" yaml:"bounce_count"`
	ThinWallCounter      float32   `toml:"thin_wall_counter" yaml:"thin_wall_counter"`
	ParticipatingVisuals uint32    `toml:"participating_visuals" yaml:"participating_visuals"`
	Anisotropic          bool      `toml:"anisotropic" yaml:"anisotropic"`
	HighQuality          bool      `toml:"high_quality" yaml:"high_quality"`
	ConserveMemory       bool      `toml:"conserve_memory" yaml:"conserve_memory"`

	// StepSize is the cascade camera step in voxels, applied to every cascade.
	StepSize [3]float32      `toml:"step_size" yaml:"step_size"`
	Cascades []CascadeConfig `toml:"cascades" yaml:"cascades"`
}

// CascadeConfig is one cascade of the civct mode.
type CascadeConfig struct {
	Resolution      [3]uint32  `toml:"resolution" yaml:"resolution"`
	OctantCount     [3]uint32  `toml:"octant_count" yaml:"octant_count"`
	AreaHalfSize    [3]float32 `toml:"area_half_size" yaml:"area_half_size"`
	ThinWallCounter float32    `toml:"thin_wall_counter" yaml:"thin_wall_counter"`
}

// SceneConfig lists the objects and lights to scan.
type SceneConfig struct {
	Ambient [3]float32     `toml:"ambient" yaml:"ambient"`
	Objects []ObjectConfig `toml:"objects" yaml:"objects"`
	Lights  []LightConfig  `toml:"lights" yaml:"lights"`
}

// ObjectConfig is a scene object. Model objects load Path through the glTF loader.
type ObjectConfig struct {
	Name  string `toml:"name" yaml:"name"`
	Shape string `toml:"shape" yaml:"shape"`
	Path  string `toml:"path,omitempty" yaml:"path,omitempty"`

	// HalfExtents sizes boxes (x, y, z) and planes (x, y).
	HalfExtents [3]float32 `toml:"half_extents" yaml:"half_extents"`
	Position    [3]float32 `toml:"position" yaml:"position"`
	Rotation    [3]float32 `toml:"rotation" yaml:"rotation"`
	Scale       [3]float32 `toml:"scale" yaml:"scale"`

	Color    [4]float32 `toml:"color" yaml:"color"`
	Emissive [3]float32 `toml:"emissive" yaml:"emissive"`

	LaserRetro float64 `toml:"laser_retro,omitempty" yaml:"laser_retro,omitempty"`
	Static     bool    `toml:"static" yaml:"static"`
}

// LightConfig is a scene light. Cone angles are in degrees.
type LightConfig struct {
	Type      string     `toml:"type" yaml:"type"`
	Position  [3]float32 `toml:"position" yaml:"position"`
	Direction [3]float32 `toml:"direction" yaml:"direction"`
	Color     [3]float32 `toml:"color" yaml:"color"`
	Intensity float32    `toml:"intensity" yaml:"intensity"`
	Range     float32    `toml:"range,omitempty" yaml:"range,omitempty"`
	InnerCone float32    `toml:"inner_cone,omitempty" yaml:"inner_cone,omitempty"`
	OuterCone float32    `toml:"outer_cone,omitempty" yaml:"outer_cone,omitempty"`
}

// Default returns a 360 x 16 ray sensor with a 20 m range, voxel GI and an empty scene.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Frames:   1,
			TickRate: 60,
			LogLevel: "info",
			Backend:  BackendAuto,
			Width:    960,
			Height:   480,
			Output:   "scan.png",
		},
		Sensor: SensorConfig{
			Name:                 "lidar",
			HorizontalAngleMin:   -180,
			HorizontalAngleMax:   180,
			VerticalAngleMin:     -15,
			VerticalAngleMax:     15,
			RangeCount:           360,
			VerticalRangeCount:   16,
			Near:                 0.1,
			Far:                  20,
			FirstPassResolution:  gpu_rays.DefaultFirstPassResolution,
			ParticleStddev:       gpu_rays.DefaultParticleStddev,
			ParticleScatterRatio: gpu_rays.DefaultParticleScatterRatio,
		},
		GI: GIConfig{
			Mode:                 GIModeVct,
			Resolution:           [3]uint32{32, 32, 32},
			OctantCount:          [3]uint32{2, 2, 2},
			BounceCount:          1,
			ThinWallCounter:      1,
			ParticipatingVisuals: gi.StaticVisuals | gi.DynamicVisuals,
			StepSize:             [3]float32{3, 3, 3},
		},
	}
}

// Load reads a configuration file over Default. The format follows the extension.
//
// Parameters:
//   - path: a .toml, .yaml or .yml file
//
// Returns:
//   - Config: the decoded configuration, not yet validated
//   - error: ErrUnsupportedFormat, a read error or a decode error
func Load(path string) (Config, error) {
	cfg := Default()
	format, err := formatOf(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	switch format {
	case "toml":
		err = toml.Unmarshal(data, &cfg)
	case "yaml":
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes c to path in the format its extension names.
//
// Parameters:
//   - path: a .toml, .yaml or .yml file
//
// Returns:
//   - error: ErrUnsupportedFormat, an encode error or a write error
func (c Config) Save(path string) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	switch format {
	case "toml":
		data, err = toml.Marshal(c)
	case "yaml":
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Clone returns a deep copy of c.
//
// Returns:
//   - Config: the copy, sharing no slices with c
func (c Config) Clone() Config {
	var out Config
	if err := copier.CopyWithOption(&out, &c, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("config: clone: %v", err))
	}
	return out
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// GpuRays converts the sensor section to a gpu_rays.Config in radians.
//
// Returns:
//   - gpu_rays.Config: the sensor configuration
func (s SensorConfig) GpuRays() gpu_rays.Config {
	return gpu_rays.Config{
		AngleMin:             deg(s.HorizontalAngleMin),
		AngleMax:             deg(s.HorizontalAngleMax),
		VerticalAngleMin:     deg(s.VerticalAngleMin),
		VerticalAngleMax:     deg(s.VerticalAngleMax),
		RangeCount:           s.RangeCount,
		VerticalRangeCount:   s.VerticalRangeCount,
		Near:                 s.Near,
		Far:                  s.Far,
		ClampRange:           s.ClampRange,
		FirstPassResolution:  s.FirstPassResolution,
		ParticleStddev:       s.ParticleStddev,
		ParticleScatterRatio: s.ParticleScatterRatio,
	}
}

// Pose returns the sensor's world matrix: translation, then yaw, pitch and roll.
//
// Returns:
//   - [16]float32: the world matrix (column-major)
func (s SensorConfig) Pose() [16]float32 {
	return PoseMatrix(s.Position, s.Rotation)
}

// PoseMatrix composes T * Rz(yaw) * Ry(pitch) * Rx(roll) from a position and degrees.
//
// Parameters:
//   - pos: translation
//   - rotDeg: roll, pitch and yaw in degrees
//
// Returns:
//   - [16]float32: the world matrix (column-major)
func PoseMatrix(pos, rotDeg [3]float32) [16]float32 {
	out := common.Translation(pos[0], pos[1], pos[2])
	var r, tmp [16]float32
	common.RotationZ(r[:], rotDeg[2]*(math.Pi/180))
	common.Mul4(tmp[:], out[:], r[:])
	common.RotationY(r[:], rotDeg[1]*(math.Pi/180))
	common.Mul4(out[:], tmp[:], r[:])
	common.RotationX(r[:], rotDeg[0]*(math.Pi/180))
	common.Mul4(tmp[:], out[:], r[:])
	return tmp
}

func deg(v float64) float64 {
	return v * math.Pi / 180
}
