package gpu_rays

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
)

// State is the position of a GpuRays sensor in its frame cycle.
type State int

const (
	StateUninitialized State = iota
	StateTexturesBuilt
	StateFirstPassComplete
	StateSecondPassComplete
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateTexturesBuilt:
		return "TexturesBuilt"
	case StateFirstPassComplete:
		return "FirstPassComplete"
	case StateSecondPassComplete:
		return "SecondPassComplete"
	case StatePublished:
		return "Published"
	}
	return "Unknown"
}

// ErrBufferTooSmall is returned by Copy when the destination cannot hold a scan.
var ErrBufferTooSmall = errors.New("gpu_rays: destination buffer too small")

// Channels is the number of floats per scan texel: range, retro and a reserved channel.
const Channels = 3

// GpuRays is a range sensor rendered with a cubemap first pass and a reprojection second pass.
//
// PreRender, Render and PostRender must be called in that order once per frame from the
// goroutine driving the compositor.
type GpuRays interface {
	// Name returns the sensor name used to prefix its compositor resources.
	Name() string

	// Config returns a copy of the sensor configuration.
	Config() Config

	// SetConfig replaces the configuration. It takes effect at the next CreateGpuRaysTextures,
	// so call Reconfigure once textures have been built.
	//
	// Parameters:
	//   - cfg: the new configuration
	SetConfig(cfg Config)

	// SetPose moves the sensor frame.
	//
	// Parameters:
	//   - world: the sensor's local-to-world transform
	SetPose(world [16]float32)

	// State returns the current frame cycle state.
	State() State

	// Faces returns the cube faces rendered by the first pass, empty before textures exist.
	Faces() CubeFaceSet

	// Width returns the number of horizontal rays of the current scan.
	Width() uint32

	// Height returns the number of vertical rays of the current scan.
	Height() uint32

	// Channels returns the number of floats per scan texel.
	Channels() uint32

	// CreateGpuRaysTextures builds the lookup texture, face cameras, textures and workspaces.
	// It runs once; later calls return the result of the first.
	//
	// Returns:
	//   - error: the setup error, after which the sensor produces no frames until Reconfigure
	CreateGpuRaysTextures() error

	// PreRender builds GPU resources on the first call.
	//
	// Returns:
	//   - error: the setup error, if any
	PreRender() error

	// Render runs the first pass for every referenced face, then the second pass.
	//
	// Returns:
	//   - error: error if a frame submission failed
	Render() error

	// PostRender reads the scan back, publishes it and notifies subscribers.
	//
	// Returns:
	//   - error: error if the readback failed
	PostRender() error

	// Data returns a copy of the last published scan.
	//
	// Returns:
	//   - []float32: Width*Height*Channels floats, nil before the first publish
	Data() []float32

	// Copy copies the last published scan into dst.
	//
	// Parameters:
	//   - dst: destination, at least Width*Height*Channels floats
	//
	// Returns:
	//   - error: ErrBufferTooSmall when dst is short
	Copy(dst []float32) error

	// ConnectNewGpuRaysFrame registers a callback invoked on every publish.
	//
	// Parameters:
	//   - cb: the callback
	//
	// Returns:
	//   - Subscription: cancels the callback
	ConnectNewGpuRaysFrame(cb FrameCallback) Subscription

	// Reconfigure releases all GPU resources so the next PreRender rebuilds them from the
	// current configuration.
	Reconfigure()

	// Destroy releases all GPU resources. Calling Destroy twice is a no-op.
	Destroy()
}

type gpuRays struct {
	mu *sync.Mutex

	name     string
	cfg      Config
	manager  compositor.Manager
	scn      scene.Scene
	mount    camera.PoseMount
	logger   *slog.Logger
	profiler *profiler.Profiler

	state    State
	setupErr error

	sample     *SampleTexture
	sampleTex  compositor.Texture
	faceTex    [CubeFaceCount]compositor.Texture
	faceCams   [CubeFaceCount]camera.Camera
	faceWs     [CubeFaceCount]compositor.Workspace
	secondTex  compositor.Texture
	secondWs   compositor.Workspace
	firstDefs  bool
	secondDefs bool

	switcher  *LaserRetroMaterialSwitcher
	working   []float32
	published []float32
	subs      *subscriptions
}

var _ GpuRays = &gpuRays{}

// NewGpuRays creates a range sensor. The compositor manager and scene are required.
//
// Parameters:
//   - options: variadic list of GpuRaysBuilderOption functions to configure the sensor
//
// Returns:
//   - GpuRays: the sensor
func NewGpuRays(options ...GpuRaysBuilderOption) GpuRays {
	g := &gpuRays{
		mu:     &sync.Mutex{},
		name:   nextSensorName(),
		cfg:    DefaultConfig(),
		mount:  camera.NewIdentityMount(),
		logger: slog.Default(),
		subs:   newSubscriptions(),
	}
	for _, opt := range options {
		opt(g)
	}
	if g.manager == nil {
		panic("gpu_rays: NewGpuRays requires a compositor manager")
	}
	if g.scn == nil {
		panic("gpu_rays: NewGpuRays requires a scene")
	}
	g.logger = g.logger.With("sensor", g.name)
	g.switcher = NewLaserRetroMaterialSwitcher(g.scn, g.logger)
	return g
}

func (g *gpuRays) Name() string {
	return g.name
}

func (g *gpuRays) Config() Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg
}

func (g *gpuRays) SetConfig(cfg Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
}

func (g *gpuRays) SetPose(world [16]float32) {
	g.mount.SetWorldMatrix(world)
}

func (g *gpuRays) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *gpuRays) Faces() CubeFaceSet {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sample == nil {
		return 0
	}
	return g.sample.Faces
}

func (g *gpuRays) Width() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sample != nil {
		return g.sample.Width
	}
	return g.cfg.RangeCount
}

func (g *gpuRays) Height() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sample != nil {
		return g.sample.Height
	}
	return g.cfg.VerticalRangeCount
}

func (g *gpuRays) Channels() uint32 {
	return Channels
}

func (g *gpuRays) CreateGpuRaysTextures() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createTextures()
}

func (g *gpuRays) createTextures() error {
	if g.setupErr != nil || g.sample != nil {
		return g.setupErr
	}
	if err := g.buildResources(); err != nil {
		g.releaseResources()
		g.setupErr = fmt.Errorf("gpu_rays %q: %w", g.name, err)
		g.logger.Error("range sensor setup failed", "error", err)
		return g.setupErr
	}
	g.state = StateTexturesBuilt
	g.logger.Info("range sensor textures built",
		"faces", g.sample.Faces.String(),
		"width", g.cfg.RangeCount,
		"height", g.cfg.VerticalRangeCount,
	)
	return nil
}

func (g *gpuRays) buildResources() error {
	g.cfg.Normalize(g.logger)
	if err := g.cfg.Validate(); err != nil {
		return err
	}
	cfg := g.cfg

	sample := BuildSampleTexture(cfg)
	g.sample = &sample
	tex, err := g.manager.CreateTexture(compositor.TextureDescriptor{
		Name:   g.name + "_sample",
		Width:  sample.Width,
		Height: sample.Height,
		Format: compositor.FormatRGBA32Float,
	})
	if err != nil {
		return fmt.Errorf("sample texture: %w", err)
	}
	g.sampleTex = tex
	if err := g.manager.WriteTexture(tex, sample.RGBA()); err != nil {
		return fmt.Errorf("sample texture upload: %w", err)
	}

	if err := g.buildFirstPass(cfg); err != nil {
		return fmt.Errorf("first pass: %w", err)
	}
	if err := g.buildSecondPass(cfg); err != nil {
		return fmt.Errorf("second pass: %w", err)
	}

	n := int(cfg.RangeCount) * int(cfg.VerticalRangeCount) * Channels
	g.working = make([]float32, n)
	g.published = make([]float32, n)
	return nil
}

func (g *gpuRays) buildFirstPass(cfg Config) error {
	if err := g.manager.AddNodeDefinition(firstPassNode(g.name, cfg)); err != nil {
		return err
	}
	if err := g.manager.AddWorkspaceDefinition(compositor.WorkspaceDefinition{
		Name: firstPassWorkspaceDefinition(g.name),
		Node: firstPassNodeDefinition(g.name),
	}); err != nil {
		_ = g.manager.RemoveNodeDefinition(firstPassNodeDefinition(g.name))
		return err
	}
	g.firstDefs = true

	for _, face := range g.sample.Faces.Faces() {
		tex, err := g.manager.CreateTexture(compositor.TextureDescriptor{
			Name:   firstPassTextureName(g.name, face),
			Width:  cfg.FirstPassResolution,
			Height: cfg.FirstPassResolution,
			Format: compositor.FormatRGBA32Float,
		})
		if err != nil {
			return fmt.Errorf("face %s texture: %w", face, err)
		}
		g.faceTex[face] = tex
		g.faceCams[face] = newFaceCamera(g.name, face, cfg, g.mount)

		ws, err := g.manager.AddWorkspace(firstPassWorkspaceName(g.name, face), firstPassWorkspaceDefinition(g.name), g.faceCams[face], g.scn, tex)
		if err != nil {
			return fmt.Errorf("face %s workspace: %w", face, err)
		}
		ws.SetEnabled(false)
		ws.AddListener(g.switcher)
		g.faceWs[face] = ws
	}
	return nil
}

func (g *gpuRays) buildSecondPass(cfg Config) error {
	tex, err := g.manager.CreateTexture(compositor.TextureDescriptor{
		Name:   secondPassTextureName(g.name),
		Width:  cfg.RangeCount,
		Height: cfg.VerticalRangeCount,
		Format: compositor.FormatRGBA32Float,
	})
	if err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	g.secondTex = tex

	if err := g.manager.AddNodeDefinition(secondPassNode(g.name, cfg)); err != nil {
		return err
	}
	if err := g.manager.AddWorkspaceDefinition(compositor.WorkspaceDefinition{
		Name: secondPassWorkspaceName(g.name),
		Node: secondPassNodeDefinition(g.name),
	}); err != nil {
		_ = g.manager.RemoveNodeDefinition(secondPassNodeDefinition(g.name))
		return err
	}
	g.secondDefs = true

	inputs := []compositor.Texture{tex, g.sampleTex}
	for f := range CubeFace(CubeFaceCount) {
		inputs = append(inputs, textureOr(g.faceTex[f], g.sampleTex))
	}
	ws, err := g.manager.AddWorkspace(secondPassWorkspaceName(g.name), secondPassWorkspaceName(g.name), nil, nil, inputs...)
	if err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	ws.SetEnabled(false)
	g.secondWs = ws
	return nil
}

// textureOr returns t, or fallback when t is nil.
func textureOr(t, fallback compositor.Texture) compositor.Texture {
	if t == nil {
		return fallback
	}
	return t
}

func (g *gpuRays) PreRender() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createTextures()
}

func (g *gpuRays) Render() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sample == nil {
		return nil
	}

	stop := g.profiler.Stage("gpu_rays.first_pass")
	err := g.renderWith(g.faceWs[:]...)
	stop()
	if err != nil {
		return fmt.Errorf("gpu_rays %q first pass: %w", g.name, err)
	}
	g.state = StateFirstPassComplete

	stop = g.profiler.Stage("gpu_rays.second_pass")
	err = g.renderWith(g.secondWs)
	stop()
	if err != nil {
		return fmt.Errorf("gpu_rays %q second pass: %w", g.name, err)
	}
	g.state = StateSecondPassComplete
	return nil
}

// renderWith enables the given workspaces for one frame.
func (g *gpuRays) renderWith(workspaces ...compositor.Workspace) error {
	for _, ws := range workspaces {
		if ws != nil {
			ws.SetEnabled(true)
		}
	}
	err := g.manager.RenderOneFrame()
	for _, ws := range workspaces {
		if ws != nil {
			ws.SetEnabled(false)
		}
	}
	return err
}

func (g *gpuRays) PostRender() error {
	g.mu.Lock()
	if g.state != StateSecondPassComplete {
		g.mu.Unlock()
		return nil
	}

	stop := g.profiler.Stage("gpu_rays.readback")
	rgba, err := g.manager.ReadTexture(g.secondTex)
	stop()
	if err != nil {
		g.mu.Unlock()
		return fmt.Errorf("gpu_rays %q readback: %w", g.name, err)
	}
	for i := range len(g.working) / Channels {
		copy(g.working[i*Channels:(i+1)*Channels], rgba[i*4:i*4+Channels])
	}
	copy(g.published, g.working)
	g.state = StatePublished

	data := g.published
	w, h := g.sample.Width, g.sample.Height
	g.mu.Unlock()

	g.subs.Emit(data, w, h, Channels, FormatFloat32RGB)
	return nil
}

func (g *gpuRays) Data() []float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.published == nil {
		return nil
	}
	out := make([]float32, len(g.published))
	copy(out, g.published)
	return out
}

func (g *gpuRays) Copy(dst []float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(dst) < len(g.published) {
		return fmt.Errorf("%w: need %d floats, got %d", ErrBufferTooSmall, len(g.published), len(dst))
	}
	copy(dst, g.published)
	return nil
}

func (g *gpuRays) ConnectNewGpuRaysFrame(cb FrameCallback) Subscription {
	return g.subs.Connect(cb)
}

func (g *gpuRays) Reconfigure() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseResources()
	g.setupErr = nil
}

func (g *gpuRays) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseResources()
}

// releaseResources tears down workspaces before the definitions and textures they use.
func (g *gpuRays) releaseResources() {
	for f := range g.faceWs {
		g.manager.RemoveWorkspace(g.faceWs[f])
		g.faceWs[f] = nil
	}
	g.manager.RemoveWorkspace(g.secondWs)
	g.secondWs = nil

	if g.firstDefs {
		g.removeDefinitions(firstPassWorkspaceDefinition(g.name), firstPassNodeDefinition(g.name))
		g.firstDefs = false
	}
	if g.secondDefs {
		g.removeDefinitions(secondPassWorkspaceName(g.name), secondPassNodeDefinition(g.name))
		g.secondDefs = false
	}

	for f := range g.faceTex {
		g.manager.DestroyTexture(g.faceTex[f])
		g.faceTex[f] = nil
		g.faceCams[f] = nil
	}
	g.manager.DestroyTexture(g.secondTex)
	g.manager.DestroyTexture(g.sampleTex)
	g.secondTex, g.sampleTex = nil, nil

	g.sample = nil
	g.working, g.published = nil, nil
	g.state = StateUninitialized
}

func (g *gpuRays) removeDefinitions(workspaceDef, nodeDef string) {
	if err := g.manager.RemoveWorkspaceDefinition(workspaceDef); err != nil {
		g.logger.Error("failed to remove workspace definition", "definition", workspaceDef, "error", err)
	}
	if err := g.manager.RemoveNodeDefinition(nodeDef); err != nil {
		g.logger.Error("failed to remove node definition", "definition", nodeDef, "error", err)
	}
}
