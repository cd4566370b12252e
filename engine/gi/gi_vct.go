package gi

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
)

// GlobalIlluminationVct is a single-volume voxel cone traced GI solution.
//
// Build voxelizes the participating visuals and computes lighting. Parameter changes that
// affect light transport take effect on the next UpdateLighting. The solution only shades
// the scene while enabled, and only one solution per Registry may be enabled.
type GlobalIlluminationVct interface {
	Solution
	Voxelizable
	LightPropagatable

	// SetResolution sets the voxel grid resolution used by the next Build.
	SetResolution(res [3]uint32)
	Resolution() [3]uint32

	// SetOctantCount sets how many octants per axis the grid is split into for building.
	// Each resolution component must be a multiple of its octant count.
	SetOctantCount(octants [3]uint32)
	OctantCount() [3]uint32

	// SetBounceCount sets the number of indirect bounces. Zero disables multiple bounces
	// immediately, without rebuilding.
	SetBounceCount(n uint32)
	BounceCount() uint32

	// SetParticipatingVisuals sets the StaticVisuals/DynamicVisuals mask used by Build.
	SetParticipatingVisuals(mask uint32)
	ParticipatingVisuals() uint32

	// SetThinWallCounter sets the opacity scale that compensates light leaking through thin walls.
	SetThinWallCounter(v float32)
	ThinWallCounter() float32

	// SetAnisotropic stores radiance per axis direction.
	SetAnisotropic(enabled bool)
	Anisotropic() bool

	// SetConserveMemory disables multiple bounces to save memory.
	SetConserveMemory(enabled bool)
	ConserveMemory() bool

	// SetHighQuality sets the material system's full cone count flag. The value is cached
	// and applied whenever this solution is enabled.
	SetHighQuality(enabled bool)
	HighQuality() bool

	// SetDebugVisualization selects the data returned by DebugColors.
	SetDebugVisualization(mode DebugVisualizationMode)
	DebugVisualization() DebugVisualizationMode

	// DebugColors returns per-voxel colours for the current debug mode, nil for DebugNone.
	DebugColors() [][4]float32

	// UpdateLighting recomputes light transport. It panics before the first Build.
	UpdateLighting()

	// SetEnabled binds or unbinds the solution from the registry. Enabling builds first
	// when needed and panics if another solution is active. Disabling a solution that
	// does not hold the slot is a no-op.
	SetEnabled(enabled bool)
	Enabled() bool

	// Grid returns the last voxelization, nil before Build.
	Grid() *VoxelGrid

	// Lighting returns the lighting volume, nil before Build.
	Lighting() *LightingVolume

	// Destroy disables the solution and releases its voxel and lighting data.
	Destroy()
}

type globalIlluminationVct struct {
	mu *sync.Mutex

	scn      scene.Scene
	registry *Registry
	logger   *slog.Logger
	profiler *profiler.Profiler
	workers  int

	voxelizer *voxelizer
	lighting  *LightingVolume

	resolution     [3]uint32
	octants        [3]uint32
	bounceCount    uint32
	participating  uint32
	thinWall       float32
	debugMode      DebugVisualizationMode
	highQuality    bool
	conserveMemory bool
	anisotropic    bool
}

var _ GlobalIlluminationVct = &globalIlluminationVct{}

// NewGlobalIlluminationVct creates a VCT solution for a scene. A scene is required.
//
// Parameters:
//   - options: variadic list of GlobalIlluminationVctBuilderOption functions
//
// Returns:
//   - GlobalIlluminationVct: the solution, disabled until SetEnabled(true)
func NewGlobalIlluminationVct(options ...GlobalIlluminationVctBuilderOption) GlobalIlluminationVct {
	g := &globalIlluminationVct{
		mu:            &sync.Mutex{},
		logger:        slog.Default(),
		workers:       runtime.NumCPU(),
		resolution:    [3]uint32{16, 16, 16},
		octants:       [3]uint32{1, 1, 1},
		bounceCount:   6,
		participating: StaticVisuals,
		thinWall:      1,
		debugMode:     DebugNone,
		anisotropic:   true,
	}
	for _, opt := range options {
		opt(g)
	}
	if g.scn == nil {
		panic("gi: NewGlobalIlluminationVct requires a scene")
	}
	if g.registry == nil {
		g.registry = RegistryFor(g.scn.Materials())
	}
	g.voxelizer = newVoxelizer(worker.NewDynamicWorkerPool(max(g.workers, 1), 256, 1*time.Second))
	return g
}

func (g *globalIlluminationVct) SetResolution(res [3]uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolution = res
}

func (g *globalIlluminationVct) Resolution() [3]uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolution
}

func (g *globalIlluminationVct) SetOctantCount(octants [3]uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.octants = octants
}

func (g *globalIlluminationVct) OctantCount() [3]uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.octants
}

func (g *globalIlluminationVct) SetBounceCount(n uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bounceCount = n
	if n == 0 && g.lighting != nil {
		g.lighting.setAllowMultipleBounces(false)
	}
}

func (g *globalIlluminationVct) BounceCount() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bounceCount
}

func (g *globalIlluminationVct) SetParticipatingVisuals(mask uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.participating = mask
}

func (g *globalIlluminationVct) ParticipatingVisuals() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.participating
}

func (g *globalIlluminationVct) SetThinWallCounter(v float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thinWall = v
}

func (g *globalIlluminationVct) ThinWallCounter() float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.thinWall
}

func (g *globalIlluminationVct) SetAnisotropic(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.anisotropic = enabled
	if g.lighting != nil {
		g.lighting.setAnisotropic(enabled)
	}
}

func (g *globalIlluminationVct) Anisotropic() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.anisotropic
}

func (g *globalIlluminationVct) SetConserveMemory(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conserveMemory = enabled
	if enabled && g.lighting != nil {
		g.lighting.setAllowMultipleBounces(false)
	}
}

func (g *globalIlluminationVct) ConserveMemory() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conserveMemory
}

func (g *globalIlluminationVct) SetHighQuality(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.highQuality = enabled
	if g.lighting != nil {
		g.registry.SetFullConeCount(g, enabled)
	}
}

func (g *globalIlluminationVct) HighQuality() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.highQuality
}

func (g *globalIlluminationVct) SetDebugVisualization(mode DebugVisualizationMode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.debugMode = mode
	g.syncDebugVisualization()
}

func (g *globalIlluminationVct) DebugVisualization() DebugVisualizationMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.debugMode
}

// syncDebugVisualization pushes the debug mode to the lighting volume and voxelizer.
// Modes after DebugEmissive have no voxelizer equivalent.
func (g *globalIlluminationVct) syncDebugVisualization() {
	if g.lighting != nil {
		g.lighting.setDebugVisualization(g.debugMode == DebugLighting)
	}
	if g.debugMode <= DebugEmissive {
		g.voxelizer.setDebugVisualization(g.debugMode)
	} else {
		g.voxelizer.setDebugVisualization(DebugNone)
	}
}

func (g *globalIlluminationVct) DebugColors() [][4]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.debugMode == DebugLighting && g.lighting != nil {
		return g.lighting.debugColors()
	}
	return g.voxelizer.debugColors()
}

func (g *globalIlluminationVct) Build() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.build()
}

func (g *globalIlluminationVct) build() error {
	defer g.profiler.Stage("gi.build")()

	if _, err := splitOctants(g.resolution, g.octants); err != nil {
		return err
	}

	g.voxelizer.gather(g.scn, g.participating, g.logger)

	region := g.voxelizer.autoCalculateRegion()
	if err := g.voxelizer.build(g.resolution, g.octants, region); err != nil {
		return err
	}

	if g.lighting == nil {
		g.lighting = newLightingVolume(g.voxelizer.current(), g.anisotropic)
	} else {
		g.lighting.setGrid(g.voxelizer.current())
	}
	g.lightingChanged()
	g.syncDebugVisualization()

	g.logger.Debug("gi built",
		"items", g.voxelizer.itemCount(),
		"resolution", g.resolution,
		"occupied", g.voxelizer.current().OccupiedCount(),
	)
	return nil
}

func (g *globalIlluminationVct) UpdateLighting() {
	g.LightingChanged()
}

func (g *globalIlluminationVct) LightingChanged() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lightingChanged()
}

func (g *globalIlluminationVct) lightingChanged() {
	if g.lighting == nil {
		panic("gi: incorrect usage detected, did you call Build?")
	}
	g.lighting.setAllowMultipleBounces(g.bounceCount > 0)
	g.lighting.update(g.scn.Lights(), g.bounceCount, g.thinWall)
	if g.conserveMemory {
		g.lighting.setAllowMultipleBounces(false)
	}
}

func (g *globalIlluminationVct) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !enabled {
		g.registry.Deactivate(g)
		return
	}
	if active := g.registry.Active(); active != nil && active != Solution(g) {
		panic("gi: there's already an active GI solution")
	}
	if g.lighting == nil {
		if err := g.build(); err != nil {
			g.logger.Error("gi: build on enable failed", "error", err)
			return
		}
	}
	g.registry.Activate(g, g.highQuality)
}

func (g *globalIlluminationVct) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lighting != nil && g.registry.IsActive(g)
}

func (g *globalIlluminationVct) Grid() *VoxelGrid {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lighting == nil {
		return nil
	}
	return g.lighting.Grid()
}

func (g *globalIlluminationVct) Lighting() *LightingVolume {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lighting
}

func (g *globalIlluminationVct) Sample(pos [3]float32) [3]float32 {
	g.mu.Lock()
	l := g.lighting
	g.mu.Unlock()
	if l == nil {
		return [3]float32{}
	}
	return l.Sample(pos)
}

func (g *globalIlluminationVct) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lighting != nil && g.registry.IsActive(g) {
		g.registry.Deactivate(g)
	}
	g.lighting = nil
	g.voxelizer.reset()
}
