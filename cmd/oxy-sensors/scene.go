package main

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/config"
	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gpu_rays"
	"github.com/Carmen-Shannon/oxy-sensors/engine/light"
	"github.com/Carmen-Shannon/oxy-sensors/engine/loader"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
)

// demoScene is a 12 x 12 m walled room with a retro-reflective pillar and two lights,
// used when the configuration lists no objects.
func demoScene() config.SceneConfig {
	grey := [4]float32{0.7, 0.7, 0.7, 1}
	return config.SceneConfig{
		Ambient: [3]float32{0.05, 0.05, 0.05},
		Objects: []config.ObjectConfig{
			{Name: "floor", Shape: config.ShapePlane, HalfExtents: [3]float32{6, 6, 0}, Position: [3]float32{0, 0, -1}, Color: grey, Static: true},
			{Name: "wall_north", Shape: config.ShapeBox, HalfExtents: [3]float32{6, 0.1, 1.5}, Position: [3]float32{0, 6, 0.5}, Color: grey, Static: true},
			{Name: "wall_south", Shape: config.ShapeBox, HalfExtents: [3]float32{6, 0.1, 1.5}, Position: [3]float32{0, -6, 0.5}, Color: grey, Static: true},
			{Name: "wall_east", Shape: config.ShapeBox, HalfExtents: [3]float32{0.1, 6, 1.5}, Position: [3]float32{6, 0, 0.5}, Color: [4]float32{0.8, 0.3, 0.3, 1}, Static: true},
			{Name: "wall_west", Shape: config.ShapeBox, HalfExtents: [3]float32{0.1, 6, 1.5}, Position: [3]float32{-6, 0, 0.5}, Color: [4]float32{0.3, 0.3, 0.8, 1}, Static: true},
			{Name: "pillar", Shape: config.ShapeBox, HalfExtents: [3]float32{0.3, 0.3, 1.5}, Position: [3]float32{3, 1.5, 0.5}, Rotation: [3]float32{0, 0, 30}, Color: [4]float32{0.9, 0.9, 0.2, 1}, LaserRetro: 200},
		},
		Lights: []config.LightConfig{
			{Type: config.LightDirectional, Direction: [3]float32{0.3, 0.2, -1}, Color: [3]float32{1, 0.95, 0.9}, Intensity: 1},
			{Type: config.LightPoint, Position: [3]float32{-2, -2, 1.5}, Color: [3]float32{1, 0.6, 0.3}, Intensity: 4, Range: 10},
		},
	}
}

// buildScene creates the scene objects and lights. Model objects share the loader's cache,
// so a file referenced twice is parsed once.
func buildScene(cfg config.SceneConfig, ldr loader.Loader, logger *slog.Logger) (scene.Scene, error) {
	objects := make([]game_object.GameObject, 0, len(cfg.Objects))
	for i, o := range cfg.Objects {
		m, mats, err := objectModel(o, ldr)
		if err != nil {
			return nil, fmt.Errorf("scene object %d (%s): %w", i, o.Name, err)
		}
		opts := []game_object.GameObjectBuilderOption{
			game_object.WithName(common.Coalesce(o.Name, fmt.Sprintf("object_%d", i))),
			game_object.WithModel(m, mats...),
			game_object.WithPosition(o.Position[0], o.Position[1], o.Position[2]),
			game_object.WithRotation(radians(o.Rotation[0]), radians(o.Rotation[1]), radians(o.Rotation[2])),
			game_object.WithScale(unitScale(o.Scale[0]), unitScale(o.Scale[1]), unitScale(o.Scale[2])),
			game_object.WithStatic(o.Static),
		}
		if o.LaserRetro > 0 {
			opts = append(opts, game_object.WithUserData(gpu_rays.LaserRetroUserDataKey, o.LaserRetro))
		}
		objects = append(objects, game_object.NewGameObject(opts...))
	}

	lights := make([]light.Light, 0, len(cfg.Lights))
	for _, l := range cfg.Lights {
		lights = append(lights, buildLight(l))
	}

	logger.Info("scene built", "objects", len(objects), "lights", len(lights), "models", len(ldr.Assets()))
	return scene.NewScene(
		scene.WithName("oxy-sensors"),
		scene.WithObjects(objects...),
		scene.WithLights(lights...),
		scene.WithAmbientColor(cfg.Ambient),
	), nil
}

func objectModel(o config.ObjectConfig, ldr loader.Loader) (model.Model, []material.Material, error) {
	switch o.Shape {
	case config.ShapeModel:
		asset, err := ldr.Load(o.Path)
		if err != nil {
			return nil, nil, err
		}
		return asset.Model, asset.Materials, nil
	case config.ShapeBox:
		return model.NewModel(model.WithName(o.Name), model.WithMeshes(model.NewBoxMesh(o.HalfExtents))),
			[]material.Material{shapeMaterial(o)}, nil
	case config.ShapePlane:
		return model.NewModel(model.WithName(o.Name), model.WithMeshes(model.NewPlaneMesh(o.HalfExtents[0], o.HalfExtents[1]))),
			[]material.Material{shapeMaterial(o)}, nil
	}
	return nil, nil, fmt.Errorf("unknown shape %q", o.Shape)
}

func shapeMaterial(o config.ObjectConfig) material.Material {
	color := o.Color
	if color == ([4]float32{}) {
		color = [4]float32{0.8, 0.8, 0.8, 1}
	}
	return material.NewMaterial(
		material.WithName(o.Name+"_material"),
		material.WithBaseColor(color),
		material.WithEmissive(o.Emissive),
	)
}

func buildLight(l config.LightConfig) light.Light {
	var t light.LightType
	switch l.Type {
	case config.LightPoint:
		t = light.LightTypePoint
	case config.LightSpot:
		t = light.LightTypeSpot
	default:
		t = light.LightTypeDirectional
	}
	color := l.Color
	if color == ([3]float32{}) {
		color = [3]float32{1, 1, 1}
	}
	opts := []light.LightBuilderOption{
		light.WithColor(color[0], color[1], color[2]),
		light.WithIntensity(common.Coalesce(l.Intensity, 1)),
		light.WithEnabled(true),
	}
	if t != light.LightTypeDirectional {
		opts = append(opts, light.WithPosition(l.Position[0], l.Position[1], l.Position[2]))
		if l.Range > 0 {
			opts = append(opts, light.WithRange(l.Range))
		}
	}
	if t != light.LightTypePoint && l.Direction != ([3]float32{}) {
		opts = append(opts, light.WithDirection(l.Direction[0], l.Direction[1], l.Direction[2]))
	}
	if t == light.LightTypeSpot && l.OuterCone > 0 {
		opts = append(opts, light.WithSpotCone(l.InnerCone, l.OuterCone))
	}
	return light.NewLight(t, opts...)
}

func radians(deg float32) float32 {
	return deg * (math.Pi / 180)
}

func unitScale(s float32) float32 {
	if s == 0 {
		return 1
	}
	return s
}
