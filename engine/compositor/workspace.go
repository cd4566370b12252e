package compositor

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
)

// ScenePassListener is notified around the scene passes that set NotifyListeners in the
// workspaces it is attached to.
// Changes made to scene materials in PreRender apply to that pass only if PostRender reverts them.
type ScenePassListener interface {
	// PreRender runs immediately before the scene pass is recorded.
	//
	// Parameters:
	//   - cam: the camera the pass renders from
	PreRender(cam camera.Camera)

	// PostRender runs immediately after the scene pass is recorded.
	//
	// Parameters:
	//   - cam: the camera the pass renders from
	PostRender(cam camera.Camera)
}

// Workspace is a live instance of a workspace definition bound to a camera, a scene and input textures.
// Only enabled workspaces execute in Manager.RenderOneFrame.
type Workspace interface {
	// Name returns the workspace's unique name.
	Name() string

	// Definition returns the name of the workspace definition it was created from.
	Definition() string

	// Enabled reports whether the workspace executes on the next frame.
	Enabled() bool

	// SetEnabled enables or disables the workspace.
	//
	// Parameters:
	//   - enabled: true to execute the workspace
	SetEnabled(enabled bool)

	// Camera returns the camera used by scene passes and frustum corners.
	Camera() camera.Camera

	// Scene returns the scene drawn by scene passes.
	Scene() scene.Scene

	// Output returns the node's output texture, or nil when the node declares none.
	Output() Texture

	// Texture resolves a node texture or input channel by name.
	//
	// Parameters:
	//   - name: the local texture or input channel name
	//
	// Returns:
	//   - Texture: the bound texture
	//   - bool: false when the name is unknown
	Texture(name string) (Texture, bool)

	// AddListener attaches a scene pass listener.
	//
	// Parameters:
	//   - l: the listener
	AddListener(l ScenePassListener)

	// RemoveListener detaches a scene pass listener.
	//
	// Parameters:
	//   - l: the listener
	RemoveListener(l ScenePassListener)
}

type workspace struct {
	mu *sync.Mutex

	name       string
	definition string
	node       NodeDefinition

	cam camera.Camera
	scn scene.Scene

	enabled   bool
	channels  map[string]Texture
	locals    []Texture
	listeners []ScenePassListener
}

var _ Workspace = &workspace{}

func (w *workspace) Name() string {
	return w.name
}

func (w *workspace) Definition() string {
	return w.definition
}

func (w *workspace) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

func (w *workspace) SetEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = enabled
}

func (w *workspace) Camera() camera.Camera {
	return w.cam
}

func (w *workspace) Scene() scene.Scene {
	return w.scn
}

func (w *workspace) Output() Texture {
	if w.node.Output == "" {
		return nil
	}
	return w.channels[w.node.Output]
}

func (w *workspace) Texture(name string) (Texture, bool) {
	t, ok := w.channels[name]
	return t, ok
}

func (w *workspace) AddListener(l ScenePassListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, l)
}

func (w *workspace) RemoveListener(l ScenePassListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := slices.Index(w.listeners, l); i >= 0 {
		w.listeners = slices.Delete(w.listeners, i, i+1)
	}
}

func (w *workspace) snapshotListeners() []ScenePassListener {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.listeners)
}

// depthFor returns the depth attachment declared for a local texture.
func (w *workspace) depthFor(target string) Texture {
	for _, td := range w.node.Textures {
		if td.Name == target && td.DepthAttachment != "" {
			return w.channels[td.DepthAttachment]
		}
	}
	return nil
}
