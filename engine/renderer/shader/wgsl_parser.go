package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslVertexFormatMap maps WGSL vertex attribute types to their wgpu vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
}

// wgslTextureDimMap maps WGSL texture base names to their view dimension
var wgslTextureDimMap = map[string]wgpu.TextureViewDimension{
	"texture_2d":             wgpu.TextureViewDimension2D,
	"texture_2d_array":       wgpu.TextureViewDimension2DArray,
	"texture_3d":             wgpu.TextureViewDimension3D,
	"texture_depth_2d":       wgpu.TextureViewDimension2D,
	"texture_depth_2d_array": wgpu.TextureViewDimension2DArray,
}

// wgslSampleTypeMap maps texel scalar types to their sample type. Float textures are
// unfilterable: programs read them with textureLoad and RGBA32F cannot be filtered.
var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeUnfilterableFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var (
	structBlockRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex      = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex       = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex         = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)
	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, name and type from
	// declarations like: @group(0) @binding(1) var depth_tex: texture_depth_2d;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexLayouts builds one vertex buffer layout per struct made only of @location fields.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - []wgpu.VertexBufferLayout: layouts in declaration order
func parseVertexLayouts(source string) []wgpu.VertexBufferLayout {
	var layouts []wgpu.VertexBufferLayout
	for _, ps := range parseStructBlocks(stripComments(source)) {
		if !isVertexInputStruct(ps) {
			continue
		}
		if layout, ok := buildVertexBufferLayout(ps); ok {
			layouts = append(layouts, layout)
		}
	}
	return layouts
}

// parseBindGroupLayouts extracts the bind group layout entries of every @group/@binding
// declaration, keyed by group index, along with the variable name of each binding.
//
// Parameters:
//   - source: the WGSL source code
//   - visibility: the shader stages the bindings are visible to
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index, entries sorted by binding
//   - map[int]map[int]string: variable names keyed by group then binding
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)
	cleaned := stripComments(source)
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		typeName := strings.TrimSpace(match[5])

		entry := classifyResource(uint32(binding), visibility, strings.TrimSpace(match[3]), typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(typeName, structSizes); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[group] = append(groups[group], entry)

		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
		}
		varNames[group][binding] = strings.TrimSpace(match[4])
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, varNames
}

// parseEntryPoint returns the name of the first function carrying the stage attribute.
func parseEntryPoint(source string, shaderType ShaderType) string {
	re := vertexEntryRegex
	if shaderType == ShaderTypeFragment {
		re = fragmentEntryRegex
	}
	if match := re.FindStringSubmatch(stripComments(source)); match != nil {
		return match[1]
	}
	return ""
}

func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{name: match[1], fields: parseStructFields(match[2])})
	}
	return structs
}

func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(line),
		}
		if loc := locationRegex.FindStringSubmatch(line); loc != nil {
			field.location, _ = strconv.Atoi(loc[1])
		}
		fields = append(fields, field)
	}
	return fields
}
