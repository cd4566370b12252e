package gpu_rays

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
)

const channelCubeUV = "cubeUVTex"

func secondPassWorkspaceName(name string) string {
	return "GpuRays2ndPassWorkspace_" + name
}

func secondPassNodeDefinition(name string) string {
	return secondPassWorkspaceName(name) + "/Node"
}

func secondPassTextureName(name string) string {
	return name + "_second_pass"
}

func faceChannel(face CubeFace) string {
	return fmt.Sprintf("face_%d", face)
}

// secondPassNode describes the reprojection graph. Its inputs are the scan target, the
// cube lookup and one texture per face. Faces outside the set are bound to a placeholder.
func secondPassNode(name string, cfg Config) compositor.NodeDefinition {
	inputs := []string{channelRTInput, channelCubeUV}
	programInputs := []string{channelCubeUV}
	for f := range CubeFace(CubeFaceCount) {
		inputs = append(inputs, faceChannel(f))
		programInputs = append(programInputs, faceChannel(f))
	}
	return compositor.NodeDefinition{
		Name:   secondPassNodeDefinition(name),
		Inputs: inputs,
		Targets: []compositor.TargetDefinition{
			{Target: channelRTInput, Passes: []compositor.PassDefinition{
				{Type: compositor.PassClear, ClearColour: [4]float32{float32(cfg.DataMaxVal()), 0, 1, 1}},
				{
					Type:    compositor.PassQuad,
					Program: ProgramSecondPass,
					Inputs:  programInputs,
					Params:  []float32{float32(cfg.DataMinVal()), float32(cfg.DataMaxVal())},
				},
			}},
		},
		Output: channelRTInput,
	}
}
