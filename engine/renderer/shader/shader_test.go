package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	a, err := parseAnnotation("// plain comment", 1)
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = parseAnnotation("//@oxy:include camera", 3)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, annotationTypeInclude, a.Type)
	assert.Equal(t, []AnnotationArg{AnnotationArgCamera}, a.Args)
	assert.Nil(t, a.Group)

	a, err = parseAnnotation("  //@oxy:group 1 2 storage_uniform draw draw", 4)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 1, *a.Group)
	assert.Equal(t, 2, *a.Binding)
	assert.Equal(t, AnnotationArg("draw"), a.Args[1])

	bad := []string{
		"//@oxy:",
		"//@oxy:include",
		"//@oxy:include skeleton",
		"//@oxy:group x 0 storage_uniform camera camera",
		"//@oxy:group 0 0 storage_write camera camera",
		"//@oxy:group 0 0 storage_uniform camera",
		"//@oxy:provider 2 0 material",
	}
	for _, line := range bad {
		_, err := parseAnnotation(line, 9)
		assert.Error(t, err, line)
	}
}

func TestPreProcessorIncludesOnce(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:include camera\n//@oxy:include camera\n//@oxy:group 0 0 storage_uniform cam camera\n")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct CameraUniform"))
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> cam: CameraUniform;")
	require.Len(t, pp.Declarations(), 1)
	assert.Equal(t, AnnotationArgCamera, pp.Declarations()[0].Args[2])
}

func TestStructLayouts(t *testing.T) {
	pp := NewPreProcessor()
	src, err := pp.Process("//@oxy:include camera\n//@oxy:include draw\n//@oxy:include quad_params\n")
	require.NoError(t, err)
	sizes := computeStructSizes(parseStructBlocks(stripComments(src)))
	assert.Equal(t, uint64(96), sizes["CameraUniform"].size)
	assert.Equal(t, uint64(96), sizes["DrawUniform"].size)
	assert.Equal(t, uint64(144), sizes["QuadParams"].size)
}

func TestLoadScene(t *testing.T) {
	s, err := Load("scene")
	require.NoError(t, err)
	assert.Equal(t, "vs_main", s.EntryPoint(ShaderTypeVertex))
	assert.Equal(t, "fs_main", s.EntryPoint(ShaderTypeFragment))

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(24), layouts[0].ArrayStride)
	require.Len(t, layouts[0].Attributes, 2)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layouts[0].Attributes[1].Format)
	assert.Equal(t, uint64(12), layouts[0].Attributes[1].Offset)

	groups := s.BindGroupLayoutDescriptors()
	require.Len(t, groups, 2)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, groups[0].Entries[0].Buffer.Type)
	assert.Equal(t, uint64(96), groups[1].Entries[0].Buffer.MinBindingSize)
	assert.Len(t, s.Declarations(), 2)
}

func TestLoadQuadPrograms(t *testing.T) {
	first, err := Load("gpu_rays_first_pass")
	require.NoError(t, err)
	assert.Empty(t, first.VertexLayouts())
	entries := first.BindGroupLayoutDescriptors()[0].Entries
	require.Len(t, entries, 5)
	assert.Equal(t, uint64(144), entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, entries[1].Texture.SampleType)
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, entries[2].Texture.SampleType)
	binding, ok := first.BindGroupFromVarName(0, "particle_tex")
	assert.True(t, ok)
	assert.Equal(t, 4, binding)

	second, err := Load("gpu_rays_second_pass")
	require.NoError(t, err)
	assert.Len(t, second.BindGroupLayoutDescriptors()[0].Entries, 8)
}

func TestLoadUnknownProgram(t *testing.T) {
	_, err := Load("missing")
	assert.Error(t, err)
	assert.Contains(t, Programs(), "preview")
}

func TestNewShaderRequiresBothStages(t *testing.T) {
	_, err := NewShader("compute_only", "@compute @workgroup_size(1) fn main() {}")
	assert.Error(t, err)
}
