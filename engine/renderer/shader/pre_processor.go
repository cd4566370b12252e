// pre_processor.go implements the Oxy WGSL shader pre-processor. It replaces @oxy:
// annotations with embedded struct sources or generated binding declarations and
// collects the binding declarations so the renderer can find uniforms by struct type.
package shader

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed assets/structs/*.wgsl
var structAssets embed.FS

// registryEntry pairs an embedded WGSL struct source with the WGSL type name
// emitted in generated @group/@binding declarations.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source and records the generated bindings.
type PreProcessor interface {
	// Process replaces @oxy:include annotations with struct sources and @oxy:group annotations
	// with binding declarations. Each struct is injected at most once per call.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if an annotation is malformed
	Process(source string) (string, error)

	// Declarations returns the group annotations collected by the last Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the binding declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with every embedded struct registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:      {Source: mustStructAsset("camera_uniform"), Type: "CameraUniform"},
			annotationArgVertex:      {Source: mustStructAsset("vertex"), Type: "VertexInput"},
			AnnotationArgDraw:        {Source: mustStructAsset("draw_uniform"), Type: "DrawUniform"},
			AnnotationArgQuadParams:  {Source: mustStructAsset("quad_params"), Type: "QuadParams"},
			annotationArgQuadVarying: {Source: mustStructAsset("quad_varying"), Type: "QuadVarying"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform: "var<uniform>",
			annotationArgStorageTypeRead:    "var<storage, read>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if included[a.Args[0]] {
				continue
			}
			included[a.Args[0]] = true
			out = append(out, p.structRegistry[a.Args[0]].Source)
		case AnnotationTypeBindingGroup:
			entry := p.structRegistry[a.Args[2]]
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], entry.Type))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

func mustStructAsset(name string) string {
	data, err := structAssets.ReadFile("assets/structs/" + name + ".wgsl")
	if err != nil {
		panic(fmt.Sprintf("shader: missing embedded struct %q: %v", name, err))
	}
	return string(data)
}
