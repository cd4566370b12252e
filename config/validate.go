package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-sensors/engine/gi"
)

// Validate reports every setting that cannot produce a run. Recoverable sensor
// inconsistencies, such as a single vertical ray with unequal bounds, are left to
// gpu_rays.Config.Normalize.
//
// Returns:
//   - error: the joined problems, each wrapping ErrInvalid, nil when usable
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	e := c.Engine
	if !e.Window && e.Frames < 1 {
		bad("engine.frames must be at least 1 for a headless run, got %d", e.Frames)
	}
	if e.Window && (e.Width <= 0 || e.Height <= 0) {
		bad("engine window size %dx%d", e.Width, e.Height)
	}
	switch e.Backend {
	case BackendAuto, BackendGPU:
	case BackendCPU:
		if e.Window {
			bad("engine.backend %q cannot present a window", e.Backend)
		}
	default:
		bad("engine.backend %q, want %s, %s or %s", e.Backend, BackendAuto, BackendGPU, BackendCPU)
	}
	if _, err := e.Level(); err != nil {
		bad("engine.log_level: %v", err)
	}

	sensor := c.Sensor.GpuRays()
	if err := sensor.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: sensor: %w", ErrInvalid, err))
	}
	if c.Sensor.Name == "" {
		bad("sensor.name is empty")
	}

	switch c.GI.Mode {
	case GIModeOff:
	case GIModeVct:
		if err := checkGrid(c.GI.Resolution, c.GI.OctantCount); err != nil {
			errs = append(errs, fmt.Errorf("%w: gi: %w", ErrInvalid, err))
		}
	case GIModeCiVct:
		if len(c.GI.Cascades) == 0 {
			bad("gi.mode %q needs at least one cascade", c.GI.Mode)
		}
		for i, cc := range c.GI.Cascades {
			if err := checkGrid(cc.Resolution, cc.OctantCount); err != nil {
				errs = append(errs, fmt.Errorf("%w: gi.cascades[%d]: %w", ErrInvalid, i, err))
			}
			for _, h := range cc.AreaHalfSize {
				if h <= 0 {
					bad("gi.cascades[%d].area_half_size must be positive", i)
					break
				}
			}
		}
	default:
		bad("gi.mode %q, want %s, %s or %s", c.GI.Mode, GIModeOff, GIModeVct, GIModeCiVct)
	}

	for i, o := range c.Scene.Objects {
		switch o.Shape {
		case ShapeBox:
			if o.HalfExtents[0] <= 0 || o.HalfExtents[1] <= 0 || o.HalfExtents[2] <= 0 {
				bad("scene.objects[%d] box half extents must be positive", i)
			}
		case ShapePlane:
			if o.HalfExtents[0] <= 0 || o.HalfExtents[1] <= 0 {
				bad("scene.objects[%d] plane half extents must be positive", i)
			}
		case ShapeModel:
			if o.Path == "" {
				bad("scene.objects[%d] model needs a path", i)
			}
		default:
			bad("scene.objects[%d] shape %q", i, o.Shape)
		}
		if o.LaserRetro < 0 {
			bad("scene.objects[%d] laser_retro is negative", i)
		}
	}
	for i, l := range c.Scene.Lights {
		switch l.Type {
		case LightDirectional, LightPoint, LightSpot:
		default:
			bad("scene.lights[%d] type %q", i, l.Type)
		}
	}
	return errors.Join(errs...)
}

// Level parses LogLevel. An empty level is info.
//
// Returns:
//   - slog.Level: the level
//   - error: error if the name is not a slog level
func (e EngineConfig) Level() (slog.Level, error) {
	var l slog.Level
	if e.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(e.LogLevel))
	return l, err
}

func checkGrid(res, octants [3]uint32) error {
	for i := range 3 {
		if res[i] == 0 || octants[i] == 0 {
			return fmt.Errorf("resolution %v and octant count %v must be positive", res, octants)
		}
		if res[i]%octants[i] != 0 {
			return fmt.Errorf("%w: %v / %v", gi.ErrOctantMismatch, res, octants)
		}
	}
	return nil
}
