package gpu_rays

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
)

const (
	// LaserRetroUserDataKey is the user data key holding a visual's retro-reflectivity.
	LaserRetroUserDataKey = "laser_retro"

	// LaserRetroVisibilityFlag selects geometry drawn by the first pass colour target.
	LaserRetroVisibilityFlag uint32 = 0x01000000

	// LaserRetroCustomParamIndex is the sub-item custom parameter carrying the retro colour.
	LaserRetroCustomParamIndex = material.CustomColorParamIndex

	// LaserRetroMaterialName names the flat material swapped in for the colour pass.
	LaserRetroMaterialName = "LaserRetroSource"
)

// laserRetroMaterial renders the custom retro colour parameter unlit.
var laserRetroMaterial = material.NewMaterial(
	material.WithName(LaserRetroMaterialName),
	material.WithProgram(material.ProgramCustomColor),
)

type swappedSubItem struct {
	sub      game_object.SubItem
	material material.Material

	// setParam marks a custom parameter written by PreRender; prevParam is restored
	// when hadParam, otherwise the parameter is removed.
	setParam  bool
	hadParam  bool
	prevParam [4]float32
}

// LaserRetroMaterialSwitcher substitutes the laser retro material on every visual drawn by
// the colour scene pass. Visuals with a "laser_retro" user value render their clamped retro;
// every other visual in the pass renders zero so it occludes without reporting retro.
type LaserRetroMaterialSwitcher struct {
	mu     *sync.Mutex
	scn    scene.Scene
	logger *slog.Logger

	swapped    []swappedSubItem
	addedFlags []game_object.GameObject
}

var _ compositor.ScenePassListener = &LaserRetroMaterialSwitcher{}

// NewLaserRetroMaterialSwitcher creates a switcher for scn.
//
// Parameters:
//   - scn: the scene whose visuals are switched
//   - logger: destination for per-visual errors, slog.Default() when nil
//
// Returns:
//   - *LaserRetroMaterialSwitcher: the listener
func NewLaserRetroMaterialSwitcher(scn scene.Scene, logger *slog.Logger) *LaserRetroMaterialSwitcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LaserRetroMaterialSwitcher{mu: &sync.Mutex{}, scn: scn, logger: logger}
}

// PreRender tags and switches every visual with a non-negative retro value and zeroes
// the retro of the remaining visuals in the colour pass.
func (l *LaserRetroMaterialSwitcher) PreRender(_ camera.Camera) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, obj := range l.scn.Objects() {
		visual, err := l.scn.VisualByID(obj.ID())
		if err != nil {
			l.logger.Error("laser retro: failed to resolve visual", "id", obj.ID(), "error", err)
			continue
		}
		retro := l.retroValue(visual)
		if retro < 0 {
			if visual.VisibilityFlags()&LaserRetroVisibilityFlag != 0 {
				l.switchVisual(visual, [4]float32{0, 0, 0, 1}, true)
			}
			continue
		}

		if visual.VisibilityFlags()&LaserRetroVisibilityFlag == 0 {
			visual.AddVisibilityFlags(LaserRetroVisibilityFlag)
			l.addedFlags = append(l.addedFlags, visual)
		}
		c := float32(min(retro, MaxLaserRetro) / MaxLaserRetro)
		l.switchVisual(visual, [4]float32{c, c, c, 1}, false)
	}
}

// switchVisual swaps the retro material onto every sub-item of visual. A sub-item's own
// custom colour wins over color unless force is set.
func (l *LaserRetroMaterialSwitcher) switchVisual(visual game_object.GameObject, color [4]float32, force bool) {
	for _, sub := range visual.SubItems() {
		swap := swappedSubItem{sub: sub, material: sub.Material()}
		prev, ok := sub.CustomParameter(LaserRetroCustomParamIndex)
		if !ok || force {
			swap.setParam, swap.hadParam, swap.prevParam = true, ok, prev
			sub.SetCustomParameter(LaserRetroCustomParamIndex, color)
		}
		sub.SetMaterial(laserRetroMaterial)
		l.swapped = append(l.swapped, swap)
	}
}

// PostRender restores every material, flag and parameter changed by PreRender.
func (l *LaserRetroMaterialSwitcher) PostRender(_ camera.Camera) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.swapped {
		s.sub.SetMaterial(s.material)
		switch {
		case s.setParam && s.hadParam:
			s.sub.SetCustomParameter(LaserRetroCustomParamIndex, s.prevParam)
		case s.setParam:
			s.sub.RemoveCustomParameter(LaserRetroCustomParamIndex)
		}
	}
	for _, obj := range l.addedFlags {
		obj.RemoveVisibilityFlags(LaserRetroVisibilityFlag)
	}
	l.swapped = l.swapped[:0]
	l.addedFlags = l.addedFlags[:0]
}

// retroValue reads the visual's retro user data, -1 when absent or malformed.
func (l *LaserRetroMaterialSwitcher) retroValue(obj game_object.GameObject) float64 {
	v, ok := obj.UserData(LaserRetroUserDataKey)
	if !ok {
		return -1
	}
	switch t := v.(type) {
	case float32:
		return float64(t)
	case float64:
		return t
	case int:
		return float64(t)
	default:
		l.logger.Error("laser retro: unsupported user data type", "visual", obj.Name(), "type", fmt.Sprintf("%T", t))
		return -1
	}
}
