// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that drive struct injection and bind group declaration. The parsed results
// are consumed by the PreProcessor and by the renderer when it wires uniforms to groups.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct (and any helpers
	// shipped with it) at the annotation site.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include camera
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and appends an Annotation to the PreProcessor's declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 0 storage_uniform camera camera
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed (include or group).
	Type AnnotationType

	// Args holds the annotation's arguments:
	//   - include: [0] = struct type key
	//   - group:   [0] = address space, [1] = var name, [2] = struct type key
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source.
	Line int

	// Group and Binding are set for group annotations only.
	Group   *int
	Binding *int
}

// AnnotationArg is a typed string constant used as an annotation argument.
type AnnotationArg string

// Struct type arguments. Each maps to an embedded asset under assets/structs.
const (
	// AnnotationArgCamera identifies the CameraUniform struct (camera.GPUCameraUniform).
	AnnotationArgCamera AnnotationArg = "camera"

	// annotationArgVertex identifies the VertexInput struct (model.GPUVertex).
	annotationArgVertex AnnotationArg = "vertex"

	// AnnotationArgDraw identifies the per-draw DrawUniform struct: world matrix plus material params.
	AnnotationArgDraw AnnotationArg = "draw"

	// AnnotationArgQuadParams identifies the QuadParams struct shared by full-screen programs.
	AnnotationArgQuadParams AnnotationArg = "quad_params"

	// annotationArgQuadVarying injects the full-screen vertex stage and the quad helpers.
	annotationArgQuadVarying AnnotationArg = "quad_varying"
)

// Address space arguments.
const (
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead    AnnotationArg = "storage_read"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	annotationArgVertex,
	AnnotationArgDraw,
	AnnotationArgQuadParams,
	annotationArgQuadVarying,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not carry the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	_, after, ok := strings.Cut(strings.TrimSpace(line), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires five arguments (group, binding, address space, name, struct type)", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q: %w", lineNum, args[1], err)
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q: %w", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[5])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
