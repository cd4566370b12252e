package gpu_rays

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/chewxy/math32"
)

// Channel and texture names of the first pass node.
const (
	channelRTInput       = "rt_input"
	texDepth             = "depthTexture"
	texColor             = "colorTexture"
	texParticleDepth     = "particleDepthTexture"
	texParticle          = "particleTexture"
	particleTextureScale = 0.5
)

// ParticleVisibilityFlags selects particle geometry for the particle scene pass.
const ParticleVisibilityFlags = game_object.VisibilityParticle

func firstPassWorkspaceDefinition(name string) string {
	return "GpuRays1stPassWorkspace_" + name
}

func firstPassNodeDefinition(name string) string {
	return firstPassWorkspaceDefinition(name) + "/Node"
}

func firstPassWorkspaceName(name string, face CubeFace) string {
	return fmt.Sprintf("%s_%d", firstPassWorkspaceDefinition(name), face)
}

func firstPassTextureName(name string, face CubeFace) string {
	return fmt.Sprintf("%s_first_pass_%d", name, face)
}

// firstPassParams packs the first pass program parameters.
func firstPassParams(cfg Config) []float32 {
	near, far := float32(cfg.Near), float32(cfg.Far)
	a, b := common.ProjectionParams(near, far)
	p := make([]float32, firstParamCount)
	p[firstParamA] = a
	p[firstParamB] = b
	p[firstParamNear] = near
	p[firstParamFar] = far
	p[firstParamMin] = float32(cfg.DataMinVal())
	p[firstParamMax] = float32(cfg.DataMaxVal())
	p[firstParamStddev] = float32(cfg.ParticleStddev)
	p[firstParamScatter] = float32(cfg.ParticleScatterRatio)
	return p
}

// firstPassNode describes the per-face graph: a colour pass of retro geometry sharing
// depth with all opaque geometry, a half resolution particle pass, and the range program
// that writes (range, retro) into the face texture bound as rt_input.
func firstPassNode(name string, cfg Config) compositor.NodeDefinition {
	return compositor.NodeDefinition{
		Name:   firstPassNodeDefinition(name),
		Inputs: []string{channelRTInput},
		Textures: []compositor.TextureDefinition{
			{Name: texDepth, Format: compositor.FormatDepth32Float},
			{Name: texColor, Format: compositor.FormatRGBA8Unorm, DepthAttachment: texDepth},
			{Name: texParticleDepth, WidthFactor: particleTextureScale, HeightFactor: particleTextureScale, Format: compositor.FormatDepth32Float},
			{Name: texParticle, WidthFactor: particleTextureScale, HeightFactor: particleTextureScale, Format: compositor.FormatRGBA8Unorm, DepthAttachment: texParticleDepth},
		},
		Targets: []compositor.TargetDefinition{
			{Target: texColor, Passes: []compositor.PassDefinition{
				{Type: compositor.PassClear},
				{Type: compositor.PassScene, VisibilityMask: LaserRetroVisibilityFlag &^ ParticleVisibilityFlags, NotifyListeners: true},
			}},
			{Target: texParticle, Passes: []compositor.PassDefinition{
				{Type: compositor.PassClear},
				{Type: compositor.PassScene, VisibilityMask: ParticleVisibilityFlags},
			}},
			{Target: channelRTInput, Passes: []compositor.PassDefinition{
				{Type: compositor.PassClear, ClearColour: [4]float32{float32(cfg.DataMaxVal()), 0, 1, 1}},
				{
					Type:           compositor.PassQuad,
					Program:        ProgramFirstPass,
					Inputs:         []string{texDepth, texColor, texParticleDepth, texParticle},
					Params:         firstPassParams(cfg),
					FrustumCorners: true,
				},
			}},
		},
		Output: channelRTInput,
	}
}

// faceLocalTransform orients a face camera inside the sensor frame so that it looks along
// the face's cube axis with image u and v matching SampleCubemap.
func faceLocalTransform(face CubeFace) [16]float32 {
	b := faceBases[face]
	back := [3]float32{-b.forward[0], -b.forward[1], -b.forward[2]}
	basis := common.BasisMatrix(b.right, b.up, back, [3]float32{})
	var out [16]float32
	common.Mul4(out[:], cubeToSensor[:], basis[:])
	return out
}

func newFaceCamera(name string, face CubeFace, cfg Config, mount camera.Mount) camera.Camera {
	return camera.NewCamera(
		camera.WithName(fmt.Sprintf("%s_camera_%d", name, face)),
		camera.WithFov(math32.Pi/2),
		camera.WithAspect(1),
		camera.WithNear(float32(cfg.Near)),
		camera.WithFar(float32(cfg.Far)),
		camera.WithMount(mount),
		camera.WithLocalTransform(faceLocalTransform(face)),
	)
}
