package compositor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
)

// Manager owns compositor definitions and live workspaces and renders them through a Backend.
//
// Definitions are registered by name. Workspaces are created from a workspace definition,
// allocate the node's local textures, and execute in creation order on RenderOneFrame.
type Manager interface {
	// Backend returns the backend executing the passes.
	Backend() Backend

	// AddNodeDefinition registers a node definition.
	//
	// Parameters:
	//   - def: the node definition
	//
	// Returns:
	//   - error: ErrDefinitionExists or ErrInvalidDefinition
	AddNodeDefinition(def NodeDefinition) error

	// HasNodeDefinition reports whether a node definition is registered under name.
	HasNodeDefinition(name string) bool

	// RemoveNodeDefinition unregisters a node definition.
	//
	// Parameters:
	//   - name: the node definition name
	//
	// Returns:
	//   - error: ErrUnknownDefinition, or ErrDefinitionInUse while a workspace definition references it
	RemoveNodeDefinition(name string) error

	// AddWorkspaceDefinition registers a workspace definition for an existing node.
	//
	// Parameters:
	//   - def: the workspace definition
	//
	// Returns:
	//   - error: ErrDefinitionExists, or ErrUnknownDefinition when the node is not registered
	AddWorkspaceDefinition(def WorkspaceDefinition) error

	// HasWorkspaceDefinition reports whether a workspace definition is registered under name.
	HasWorkspaceDefinition(name string) bool

	// RemoveWorkspaceDefinition unregisters a workspace definition.
	//
	// Parameters:
	//   - name: the workspace definition name
	//
	// Returns:
	//   - error: ErrUnknownDefinition, or ErrDefinitionInUse while a workspace uses it
	RemoveWorkspaceDefinition(name string) error

	// AddWorkspace instantiates a workspace definition. Inputs are bound in order to the node's input
	// channels and local textures are sized relative to inputs[0]. New workspaces start enabled.
	//
	// Parameters:
	//   - name: unique workspace name, also the prefix of its local texture names
	//   - definition: the workspace definition name
	//   - cam: the camera for scene passes
	//   - scn: the scene for scene passes (may be nil when the node has none)
	//   - inputs: textures bound to the node's input channels
	//
	// Returns:
	//   - Workspace: the created workspace
	//   - error: ErrUnknownDefinition, ErrInputMismatch, or a texture creation error
	AddWorkspace(name, definition string, cam camera.Camera, scn scene.Scene, inputs ...Texture) (Workspace, error)

	// RemoveWorkspace destroys a workspace and its local textures. Input textures are not destroyed.
	//
	// Parameters:
	//   - ws: the workspace to remove; unknown workspaces are ignored
	RemoveWorkspace(ws Workspace)

	// Workspaces returns the live workspaces in creation order.
	Workspaces() []Workspace

	// CreateTexture allocates a texture owned by the caller.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// DestroyTexture releases a texture created by CreateTexture.
	DestroyTexture(t Texture)

	// WriteTexture uploads RGBA float data into a colour texture.
	WriteTexture(t Texture, data []float32) error

	// ReadTexture reads a texture back to the CPU.
	ReadTexture(t Texture) ([]float32, error)

	// RenderOneFrame executes every enabled workspace in creation order and blocks until the frame completes.
	//
	// Returns:
	//   - error: the first pass or submission error
	RenderOneFrame() error
}

type manager struct {
	mu *sync.Mutex

	backend Backend
	log     *slog.Logger

	nodes         map[string]NodeDefinition
	workspaceDefs map[string]WorkspaceDefinition
	workspaces    []*workspace
}

var _ Manager = &manager{}

// NewManager creates a new compositor Manager.
// Panics when no backend is configured.
//
// Parameters:
//   - options: functional options to configure the manager
//
// Returns:
//   - Manager: the new manager
func NewManager(options ...ManagerBuilderOption) Manager {
	m := &manager{
		mu:            &sync.Mutex{},
		nodes:         make(map[string]NodeDefinition),
		workspaceDefs: make(map[string]WorkspaceDefinition),
	}
	for _, option := range options {
		option(m)
	}
	if m.backend == nil {
		panic("compositor: NewManager requires a backend")
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

func (m *manager) Backend() Backend {
	return m.backend
}

func (m *manager) AddNodeDefinition(def NodeDefinition) error {
	if err := def.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[def.Name]; ok {
		return fmt.Errorf("node %q: %w", def.Name, ErrDefinitionExists)
	}
	m.nodes[def.Name] = def.clone()
	return nil
}

func (m *manager) HasNodeDefinition(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.nodes[name]
	return ok
}

func (m *manager) RemoveNodeDefinition(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[name]; !ok {
		return fmt.Errorf("node %q: %w", name, ErrUnknownDefinition)
	}
	for _, wd := range m.workspaceDefs {
		if wd.Node == name {
			return fmt.Errorf("node %q referenced by workspace definition %q: %w", name, wd.Name, ErrDefinitionInUse)
		}
	}
	delete(m.nodes, name)
	return nil
}

func (m *manager) AddWorkspaceDefinition(def WorkspaceDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaceDefs[def.Name]; ok {
		return fmt.Errorf("workspace definition %q: %w", def.Name, ErrDefinitionExists)
	}
	if _, ok := m.nodes[def.Node]; !ok {
		return fmt.Errorf("node %q: %w", def.Node, ErrUnknownDefinition)
	}
	m.workspaceDefs[def.Name] = def
	return nil
}

func (m *manager) HasWorkspaceDefinition(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.workspaceDefs[name]
	return ok
}

func (m *manager) RemoveWorkspaceDefinition(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaceDefs[name]; !ok {
		return fmt.Errorf("workspace definition %q: %w", name, ErrUnknownDefinition)
	}
	for _, ws := range m.workspaces {
		if ws.definition == name {
			return fmt.Errorf("workspace definition %q used by %q: %w", name, ws.name, ErrDefinitionInUse)
		}
	}
	delete(m.workspaceDefs, name)
	return nil
}

func (m *manager) AddWorkspace(name, definition string, cam camera.Camera, scn scene.Scene, inputs ...Texture) (Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wd, ok := m.workspaceDefs[definition]
	if !ok {
		return nil, fmt.Errorf("workspace definition %q: %w", definition, ErrUnknownDefinition)
	}
	node := m.nodes[wd.Node]
	if len(inputs) != len(node.Inputs) {
		return nil, fmt.Errorf("workspace %q wants %d inputs, got %d: %w", name, len(node.Inputs), len(inputs), ErrInputMismatch)
	}
	for _, ws := range m.workspaces {
		if ws.name == name {
			return nil, fmt.Errorf("workspace %q: %w", name, ErrDefinitionExists)
		}
	}

	ws := &workspace{
		mu:         &sync.Mutex{},
		name:       name,
		definition: definition,
		node:       node,
		cam:        cam,
		scn:        scn,
		enabled:    true,
		channels:   make(map[string]Texture, len(node.Inputs)+len(node.Textures)),
	}
	for i, in := range node.Inputs {
		if inputs[i] == nil {
			return nil, fmt.Errorf("workspace %q input %q is nil: %w", name, in, ErrInputMismatch)
		}
		ws.channels[in] = inputs[i]
	}

	base := inputs[0]
	for _, td := range node.Textures {
		desc := TextureDescriptor{
			Name:   name + "/" + td.Name,
			Width:  scaled(base.Width(), td.WidthFactor),
			Height: scaled(base.Height(), td.HeightFactor),
			Format: td.Format,
		}
		tex, err := m.backend.CreateTexture(desc)
		if err != nil {
			for _, t := range ws.locals {
				m.backend.DestroyTexture(t)
			}
			return nil, fmt.Errorf("workspace %q texture %q: %w", name, td.Name, err)
		}
		ws.locals = append(ws.locals, tex)
		ws.channels[td.Name] = tex
	}

	m.workspaces = append(m.workspaces, ws)
	m.log.Debug("compositor workspace added", "workspace", name, "definition", definition)
	return ws, nil
}

func (m *manager) RemoveWorkspace(ws Workspace) {
	if ws == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.workspaces, func(w *workspace) bool { return Workspace(w) == ws })
	if i < 0 {
		return
	}
	w := m.workspaces[i]
	m.workspaces = slices.Delete(m.workspaces, i, i+1)
	for _, t := range w.locals {
		m.backend.DestroyTexture(t)
	}
	w.locals = nil
	m.log.Debug("compositor workspace removed", "workspace", w.name)
}

func (m *manager) Workspaces() []Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Workspace, len(m.workspaces))
	for i, w := range m.workspaces {
		out[i] = w
	}
	return out
}

func (m *manager) CreateTexture(desc TextureDescriptor) (Texture, error) {
	return m.backend.CreateTexture(desc)
}

func (m *manager) DestroyTexture(t Texture) {
	m.backend.DestroyTexture(t)
}

func (m *manager) WriteTexture(t Texture, data []float32) error {
	return m.backend.WriteTexture(t, data)
}

func (m *manager) ReadTexture(t Texture) ([]float32, error) {
	return m.backend.ReadTexture(t)
}

func (m *manager) RenderOneFrame() error {
	m.mu.Lock()
	var active []*workspace
	for _, w := range m.workspaces {
		if w.Enabled() {
			active = append(active, w)
		}
	}
	m.mu.Unlock()

	if err := m.backend.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	var err error
	for _, w := range active {
		if err = m.renderWorkspace(w); err != nil {
			break
		}
	}
	if endErr := m.backend.EndFrame(); endErr != nil {
		err = errors.Join(err, fmt.Errorf("end frame: %w", endErr))
	}
	return err
}

// renderWorkspace records every target of the workspace's node in order.
func (m *manager) renderWorkspace(w *workspace) error {
	if w.cam != nil {
		w.cam.Update()
	}
	for _, target := range w.node.Targets {
		tex := w.channels[target.Target]
		depth := w.depthFor(target.Target)
		for _, pass := range target.Passes {
			var err error
			switch pass.Type {
			case PassClear:
				err = m.backend.Clear(ClearPass{Target: tex, Depth: depth, Colour: pass.ClearColour, DepthValue: 1})
			case PassScene:
				err = m.renderScene(w, tex, depth, pass)
			case PassQuad:
				err = m.renderQuad(w, tex, pass)
			}
			if err != nil {
				return fmt.Errorf("workspace %q target %q: %w", w.name, target.Target, err)
			}
		}
	}
	return nil
}

func (m *manager) renderScene(w *workspace, target, depth Texture, def PassDefinition) error {
	if w.cam == nil || w.scn == nil {
		return nil
	}
	var listeners []ScenePassListener
	if def.NotifyListeners {
		listeners = w.snapshotListeners()
	}
	for _, l := range listeners {
		l.PreRender(w.cam)
	}
	pass := ScenePass{
		Target:         target,
		Depth:          depth,
		ViewProjection: w.cam.ViewProjectionMatrix(),
		Draws:          CollectDraws(w.scn, def.VisibilityMask, w.cam),
	}
	for _, l := range listeners {
		l.PostRender(w.cam)
	}
	return m.backend.DrawScene(pass)
}

func (m *manager) renderQuad(w *workspace, target Texture, def PassDefinition) error {
	pass := QuadPass{
		Target:  target,
		Program: def.Program,
		Params:  def.Params,
		Inputs:  make([]Texture, len(def.Inputs)),
	}
	for i, in := range def.Inputs {
		pass.Inputs[i] = w.channels[in]
	}
	if def.FrustumCorners && w.cam != nil {
		pass.Corners = ViewFarCorners(w.cam)
	}
	return m.backend.DrawQuad(pass)
}

// CollectDraws resolves the sub-items of every visible object intersecting the camera frustum.
// Materials and custom parameters are captured at call time.
//
// Parameters:
//   - scn: the scene to draw
//   - mask: the pass visibility mask
//   - cam: the camera used for frustum culling
//
// Returns:
//   - []Draw: the draw list in object ID order
func CollectDraws(scn scene.Scene, mask uint32, cam camera.Camera) []Draw {
	frustum := cam.Frustum()
	var draws []Draw
	for _, obj := range scn.Visible(mask) {
		if obj.Model() == nil || !frustum.IntersectsAABB(obj.WorldAABB()) {
			continue
		}
		world := obj.WorldMatrix()
		for _, sub := range obj.SubItems() {
			mat := sub.Material()
			custom, _ := sub.CustomParameter(material.CustomColorParamIndex)
			draws = append(draws, Draw{
				Mesh:     sub.Mesh(),
				World:    world,
				Material: mat,
				Params:   material.NewGPUMaterialParams(mat, custom),
			})
		}
	}
	return draws
}

// scaled applies a size factor, treating zero as 1 and never returning less than one texel.
func scaled(size uint32, factor float32) uint32 {
	if factor == 0 {
		return size
	}
	return uint32(max(1, math.Floor(float64(size)*float64(factor))))
}
