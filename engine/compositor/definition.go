package compositor

import (
	"fmt"
	"slices"
)

// PassType identifies the kind of work a pass performs on its target.
type PassType int

const (
	// PassClear clears the target colour and its depth attachment.
	PassClear PassType = iota

	// PassScene draws the workspace scene from the workspace camera.
	PassScene

	// PassQuad runs a full-screen program over the target.
	PassQuad
)

// TextureDefinition declares a node-local texture sized relative to the node's first input.
type TextureDefinition struct {
	Name string

	// WidthFactor and HeightFactor scale the first input's size. Zero means 1.
	WidthFactor  float32
	HeightFactor float32

	Format TextureFormat

	// DepthAttachment names a depth texture of the node used when this texture is a scene target.
	DepthAttachment string
}

// PassDefinition declares one pass of a target.
type PassDefinition struct {
	Type PassType

	// ClearColour is used by PassClear. Depth attachments are always cleared to 1.
	ClearColour [4]float32

	// VisibilityMask selects the scene objects drawn by PassScene.
	VisibilityMask uint32

	// NotifyListeners runs the workspace's scene pass listeners around this PassScene.
	// Scene passes without it draw the scene as is.
	NotifyListeners bool

	// Program, Inputs and Params configure PassQuad. Inputs name node textures or input channels;
	// Params are passed to the program verbatim.
	Program string
	Inputs  []string
	Params  []float32

	// FrustumCorners supplies the camera's view-space far corners to PassQuad.
	FrustumCorners bool
}

// TargetDefinition declares the ordered passes rendered into one texture.
type TargetDefinition struct {
	Target string
	Passes []PassDefinition
}

// NodeDefinition declares the textures and targets of a compositor node.
//
// Inputs name the channels bound, in order, to the textures given to Manager.AddWorkspace.
// Input 0 sizes the node's local textures.
type NodeDefinition struct {
	Name     string
	Inputs   []string
	Textures []TextureDefinition
	Targets  []TargetDefinition
	Output   string
}

// WorkspaceDefinition binds a name to the node executed by workspaces created from it.
type WorkspaceDefinition struct {
	Name string
	Node string
}

// validate checks that every name referenced by the node resolves.
func (d *NodeDefinition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: node definition has no name", ErrInvalidDefinition)
	}
	if len(d.Inputs) == 0 {
		return fmt.Errorf("%w: node %q has no inputs", ErrInvalidDefinition, d.Name)
	}

	known := map[string]*TextureDefinition{}
	for _, in := range d.Inputs {
		if _, dup := known[in]; dup || in == "" {
			return fmt.Errorf("%w: node %q has duplicate or empty input %q", ErrInvalidDefinition, d.Name, in)
		}
		known[in] = nil
	}
	for i := range d.Textures {
		t := &d.Textures[i]
		if _, dup := known[t.Name]; dup || t.Name == "" {
			return fmt.Errorf("%w: node %q has duplicate or empty texture %q", ErrInvalidDefinition, d.Name, t.Name)
		}
		known[t.Name] = t
	}
	for _, t := range d.Textures {
		if t.DepthAttachment == "" {
			continue
		}
		dt, ok := known[t.DepthAttachment]
		if !ok || dt == nil || !dt.Format.IsDepth() {
			return fmt.Errorf("%w: texture %q depth attachment %q is not a local depth texture", ErrInvalidDefinition, t.Name, t.DepthAttachment)
		}
	}

	for _, target := range d.Targets {
		tex, ok := known[target.Target]
		if !ok {
			return fmt.Errorf("%w: node %q targets unknown texture %q", ErrInvalidDefinition, d.Name, target.Target)
		}
		if tex != nil && tex.Format.IsDepth() {
			return fmt.Errorf("%w: node %q targets depth texture %q", ErrInvalidDefinition, d.Name, target.Target)
		}
		for _, pass := range target.Passes {
			switch pass.Type {
			case PassScene:
				if tex == nil || tex.DepthAttachment == "" {
					return fmt.Errorf("%w: scene pass target %q has no depth attachment", ErrInvalidDefinition, target.Target)
				}
			case PassQuad:
				if pass.Program == "" {
					return fmt.Errorf("%w: quad pass on %q has no program", ErrInvalidDefinition, target.Target)
				}
				for _, in := range pass.Inputs {
					if _, ok := known[in]; !ok {
						return fmt.Errorf("%w: quad pass on %q reads unknown texture %q", ErrInvalidDefinition, target.Target, in)
					}
					if in == target.Target {
						return fmt.Errorf("%w: quad pass on %q reads its own target", ErrInvalidDefinition, target.Target)
					}
				}
			case PassClear:
			default:
				return fmt.Errorf("%w: unknown pass type %d", ErrInvalidDefinition, pass.Type)
			}
		}
	}

	if d.Output != "" {
		if _, ok := known[d.Output]; !ok {
			return fmt.Errorf("%w: node %q outputs unknown texture %q", ErrInvalidDefinition, d.Name, d.Output)
		}
	}
	return nil
}

// clone deep-copies the definition so callers cannot mutate registered state.
func (d NodeDefinition) clone() NodeDefinition {
	d.Inputs = slices.Clone(d.Inputs)
	d.Textures = slices.Clone(d.Textures)
	targets := make([]TargetDefinition, len(d.Targets))
	for i, t := range d.Targets {
		passes := make([]PassDefinition, len(t.Passes))
		for j, p := range t.Passes {
			p.Inputs = slices.Clone(p.Inputs)
			p.Params = slices.Clone(p.Params)
			passes[j] = p
		}
		targets[i] = TargetDefinition{Target: t.Target, Passes: passes}
	}
	d.Targets = targets
	return d
}
