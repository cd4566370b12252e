package gpu_rays

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// Defaults applied by NewGpuRays and DefaultConfig.
const (
	DefaultFirstPassResolution  uint32  = 1024
	DefaultParticleStddev       float64 = 0.01
	DefaultParticleScatterRatio float64 = 0.1
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("gpu_rays: invalid sensor configuration")

// Config is the angular and range configuration of a range sensor.
// Angles are in radians. Horizontal angles rotate about the sensor Z axis and
// vertical angles tilt toward +Z.
type Config struct {
	AngleMin, AngleMax                 float64
	VerticalAngleMin, VerticalAngleMax float64

	RangeCount         uint32
	VerticalRangeCount uint32

	Near, Far float64

	// ClampRange reports out-of-range returns as Near/Far instead of -Inf/+Inf.
	ClampRange bool

	FirstPassResolution  uint32
	ParticleStddev       float64
	ParticleScatterRatio float64
}

// DefaultConfig returns a single-ray forward-facing sensor with a 10 m range.
//
// Returns:
//   - Config: the default configuration
func DefaultConfig() Config {
	return Config{
		RangeCount:           1,
		VerticalRangeCount:   1,
		Near:                 0.1,
		Far:                  10,
		FirstPassResolution:  DefaultFirstPassResolution,
		ParticleStddev:       DefaultParticleStddev,
		ParticleScatterRatio: DefaultParticleScatterRatio,
	}
}

// Normalize fixes up settings that are inconsistent but recoverable, logging a warning
// for each correction. A sensor with a single vertical ray always uses VerticalAngleMin.
//
// Parameters:
//   - logger: destination for correction warnings, slog.Default() when nil
//
// Returns:
//   - bool: true when any setting was changed
func (c *Config) Normalize(logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	changed := false
	if c.VerticalRangeCount == 1 && c.VerticalAngleMin != c.VerticalAngleMax {
		logger.Warn("only one vertical ray but vertical min. and max. angle are not equal; min. angle is used",
			"verticalAngleMin", c.VerticalAngleMin, "verticalAngleMax", c.VerticalAngleMax)
		c.VerticalAngleMax = c.VerticalAngleMin
		changed = true
	}
	if c.FirstPassResolution == 0 {
		c.FirstPassResolution = DefaultFirstPassResolution
		changed = true
	}
	return changed
}

// Validate reports settings that cannot produce a scan.
//
// Returns:
//   - error: wraps ErrInvalidConfig, nil when the configuration is usable
func (c *Config) Validate() error {
	switch {
	case c.RangeCount == 0 || c.VerticalRangeCount == 0:
		return fmt.Errorf("%w: ray counts must be positive (%d x %d)", ErrInvalidConfig, c.RangeCount, c.VerticalRangeCount)
	case c.Near <= 0 || c.Near >= c.Far:
		return fmt.Errorf("%w: clip range [%g, %g] is empty", ErrInvalidConfig, c.Near, c.Far)
	case c.AngleMax < c.AngleMin || c.VerticalAngleMax < c.VerticalAngleMin:
		return fmt.Errorf("%w: angle max below min", ErrInvalidConfig)
	case c.ParticleScatterRatio < 0 || c.ParticleScatterRatio > 1:
		return fmt.Errorf("%w: particle scatter ratio %g outside [0, 1]", ErrInvalidConfig, c.ParticleScatterRatio)
	}
	return nil
}

// HFOV returns the horizontal field of view.
func (c *Config) HFOV() float64 {
	return c.AngleMax - c.AngleMin
}

// VFOV returns the vertical field of view, zero for single-ray sensors.
func (c *Config) VFOV() float64 {
	if c.VerticalRangeCount <= 1 {
		return 0
	}
	return c.VerticalAngleMax - c.VerticalAngleMin
}

// DataMinVal is the value reported for returns closer than Near.
func (c *Config) DataMinVal() float64 {
	if c.ClampRange {
		return c.Near
	}
	return math.Inf(-1)
}

// DataMaxVal is the value reported for returns beyond Far and for rays that hit nothing.
func (c *Config) DataMaxVal() float64 {
	if c.ClampRange {
		return c.Far
	}
	return math.Inf(1)
}

// sampleKey identifies the angular configuration a sample texture was built for.
type sampleKey struct {
	angleMin, angleMax, vAngleMin, vAngleMax float64
	width, height                            uint32
}

func (c *Config) sampleKey() sampleKey {
	return sampleKey{c.AngleMin, c.AngleMax, c.VerticalAngleMin, c.VerticalAngleMax, c.RangeCount, c.VerticalRangeCount}
}
