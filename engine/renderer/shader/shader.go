package shader

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/programs/*.wgsl
var programAssets embed.FS

// ShaderType identifies a render pipeline stage within a shader module.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage of a render pipeline.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage of a render pipeline.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	source                     string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              []wgpu.VertexBufferLayout
	entryPoints                map[ShaderType]string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader is a pre-processed WGSL module holding a vertex and a fragment entry point,
// along with the layout metadata parsed from its source for pipeline creation.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// EntryPoint returns the entry point name of a stage.
	//
	// Parameters:
	//   - stage: the pipeline stage
	//
	// Returns:
	//   - string: the entry point name, empty if the module has no such stage
	EntryPoint(stage ShaderType) string

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupFromVarName retrieves the binding index of a named variable within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable name was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// VertexLayouts retrieves the vertex buffer layouts of the vertex stage, in slot order.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layouts
	VertexLayouts() []wgpu.VertexBufferLayout

	// Module returns the shader module descriptor built from the processed source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the @oxy:group annotations found in the source.
	//
	// Returns:
	//   - []Annotation: the binding declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and parses a WGSL module.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - source: the raw WGSL source, possibly carrying @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: error if pre-processing fails or the module lacks a vertex or fragment entry point
func NewShader(key, source string) (Shader, error) {
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to pre-process %q: %w", key, err)
	}

	s := &shader{
		key:    key,
		source: processed,
		entryPoints: map[ShaderType]string{
			ShaderTypeVertex:   parseEntryPoint(processed, ShaderTypeVertex),
			ShaderTypeFragment: parseEntryPoint(processed, ShaderTypeFragment),
		},
		vertexLayouts: parseVertexLayouts(processed),
		declarations:  append([]Annotation(nil), pp.Declarations()...),
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: processed},
		},
	}
	for stage, entry := range s.entryPoints {
		if entry == "" {
			return nil, fmt.Errorf("shader: %q has no entry point for stage %d", key, stage)
		}
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(processed, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
	return s, nil
}

// Load parses one of the embedded programs by name.
//
// Parameters:
//   - name: the program name, e.g. "scene" or "gpu_rays_first_pass"
//
// Returns:
//   - Shader: the parsed shader
//   - error: error if no program of that name is embedded or it fails to parse
func Load(name string) (Shader, error) {
	data, err := programAssets.ReadFile(path.Join("assets/programs", name+".wgsl"))
	if err != nil {
		return nil, fmt.Errorf("shader: unknown program %q: %w", name, err)
	}
	return NewShader(name, string(data))
}

// Programs lists the names of the embedded programs.
//
// Returns:
//   - []string: program names in lexical order
func Programs() []string {
	entries, _ := programAssets.ReadDir("assets/programs")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".wgsl"))
	}
	return names
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint(stage ShaderType) string {
	return s.entryPoints[stage]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
