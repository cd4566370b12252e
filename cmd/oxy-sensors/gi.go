package main

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-sensors/config"
	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gi"
	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
)

// updateFunc adapts a function to gi.Updatable.
type updateFunc func() error

func (f updateFunc) Update() error { return f() }

// giRuntime is the GI solution driven by the engine and how to tear it down.
type giRuntime struct {
	updater gi.Updatable
	sampler gi.Solution
	stop    func()
}

// buildGI creates, builds and enables the configured GI solution. Cascades follow a camera
// on mount, which the caller keeps aligned with the sensor pose.
func buildGI(cfg config.GIConfig, scn scene.Scene, mount camera.PoseMount, logger *slog.Logger, prof *profiler.Profiler) (*giRuntime, error) {
	switch cfg.Mode {
	case config.GIModeVct:
		g := gi.NewGlobalIlluminationVct(
			gi.WithScene(scn),
			gi.WithLogger(logger),
			gi.WithProfiler(prof),
			gi.WithResolution(cfg.Resolution),
			gi.WithOctantCount(cfg.OctantCount),
			gi.WithBounceCount(cfg.BounceCount),
			gi.WithParticipatingVisuals(cfg.ParticipatingVisuals),
			gi.WithThinWallCounter(cfg.ThinWallCounter),
			gi.WithAnisotropic(cfg.Anisotropic),
		)
		g.SetConserveMemory(cfg.ConserveMemory)
		g.SetHighQuality(cfg.HighQuality)
		if err := g.Build(); err != nil {
			return nil, fmt.Errorf("gi build: %w", err)
		}
		g.SetEnabled(true)
		// Lights may move between frames; the voxel grid is rebuilt only on demand.
		update := updateFunc(func() error {
			g.UpdateLighting()
			return nil
		})
		return &giRuntime{updater: update, sampler: g, stop: g.Destroy}, nil

	case config.GIModeCiVct:
		c := gi.NewCiVct(scn,
			gi.WithCascadeLogger(logger),
			gi.WithCascadeProfiler(prof),
			gi.WithCascadeVisuals(cfg.ParticipatingVisuals),
		)
		c.SetMaxCascades(len(cfg.Cascades))
		var prev *gi.Cascade
		for _, cc := range cfg.Cascades {
			cas := c.AddCascade(prev)
			cas.Resolution = cc.Resolution
			cas.OctantCount = cc.OctantCount
			cas.AreaHalfSize = cc.AreaHalfSize
			if cc.ThinWallCounter > 0 {
				cas.ThinWallCounter = cc.ThinWallCounter
			}
			prev = cas
		}
		c.AutoCalculateStepSizes(cfg.StepSize)
		c.Bind(camera.NewCamera(camera.WithName("gi_cascades"), camera.WithMount(mount)))
		c.SetHighQuality(cfg.HighQuality)
		if err := c.Start(cfg.BounceCount, cfg.Anisotropic); err != nil {
			return nil, fmt.Errorf("gi start: %w", err)
		}
		c.SetEnabled(true)
		return &giRuntime{updater: c, sampler: c, stop: c.Stop}, nil
	}
	return nil, nil
}
