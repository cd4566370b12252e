package gi

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
	"github.com/chewxy/math32"
	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"
)

// ErrNoCamera is returned by Start when no camera has been bound.
var ErrNoCamera = errors.New("gi: cascades need a bound camera")

// Cascade is one camera-centred voxel volume of a CiVct.
type Cascade struct {
	Resolution      [3]uint32
	OctantCount     [3]uint32
	AreaHalfSize    [3]float32
	CameraStepSize  [3]float32
	ThinWallCounter float32

	center    [3]float32
	built     bool
	voxelizer *voxelizer
	lighting  *LightingVolume
}

// Region returns the world-space box the cascade covers around its current centre.
func (c *Cascade) Region() common.AABB {
	var r common.AABB
	for i := range 3 {
		r.Min[i] = c.center[i] - c.AreaHalfSize[i]
		r.Max[i] = c.center[i] + c.AreaHalfSize[i]
	}
	return r
}

// Center returns the snapped centre of the last build.
func (c *Cascade) Center() [3]float32 {
	return c.center
}

// Lighting returns the cascade's lighting volume, nil before the first build.
func (c *Cascade) Lighting() *LightingVolume {
	return c.lighting
}

// snap rounds pos to the cascade's step grid. Axes without a step follow pos exactly.
func (c *Cascade) snap(pos [3]float32) [3]float32 {
	var out [3]float32
	for i := range 3 {
		if c.CameraStepSize[i] <= 0 {
			out[i] = pos[i]
			continue
		}
		out[i] = math32.Round(pos[i]/c.CameraStepSize[i]) * c.CameraStepSize[i]
	}
	return out
}

// CiVct is a cascaded voxel cone traced GI solution. Cascades are nested volumes that
// follow a camera and re-voxelize when it moves a full step.
type CiVct interface {
	Solution
	Updatable

	// SetMaxCascades bounds how many cascades may be added.
	SetMaxCascades(n int)
	MaxCascades() int

	// AddCascade appends a cascade. A non-nil ref seeds the new cascade's settings.
	// It panics past the cascade limit or after Start.
	//
	// Parameters:
	//   - ref: cascade to copy settings from, may be nil
	//
	// Returns:
	//   - *Cascade: the new cascade, ready to be tuned until Start
	AddCascade(ref *Cascade) *Cascade

	// Cascades returns the cascades in the order they were added.
	Cascades() []*Cascade

	// AutoCalculateStepSizes sets each cascade's camera step to stepSize voxels.
	AutoCalculateStepSizes(stepSize [3]float32)

	// Bind sets the camera the cascades follow.
	Bind(cam camera.Camera)

	// Start voxelizes and lights every cascade around the bound camera.
	Start(bounceCount uint32, anisotropic bool) error
	Started() bool

	// Stop disables the solution and drops all cascade data. Cascades may be re-tuned after Stop.
	Stop()

	SetEnabled(enabled bool)
	Enabled() bool

	SetHighQuality(enabled bool)
	HighQuality() bool
}

type ciVct struct {
	mu *sync.Mutex

	scn           scene.Scene
	registry      *Registry
	logger        *slog.Logger
	profiler      *profiler.Profiler
	pool          worker.DynamicWorkerPool
	participating uint32

	cam         camera.Camera
	cascades    []*Cascade
	maxCascades int
	bounceCount uint32
	anisotropic bool
	highQuality bool
	started     bool
}

var _ CiVct = &ciVct{}

// NewCiVct creates a cascaded GI solution for scn.
//
// Parameters:
//   - scn: the scene whose visuals and lights are voxelized
//   - options: variadic list of CiVctBuilderOption functions
//
// Returns:
//   - CiVct: the solution, with no cascades
func NewCiVct(scn scene.Scene, options ...CiVctBuilderOption) CiVct {
	if scn == nil {
		panic("gi: NewCiVct requires a scene")
	}
	c := &ciVct{
		mu:            &sync.Mutex{},
		scn:           scn,
		logger:        slog.Default(),
		participating: StaticVisuals | DynamicVisuals,
		maxCascades:   1,
	}
	workers := runtime.NumCPU()
	for _, opt := range options {
		opt(c, &workers)
	}
	if c.registry == nil {
		c.registry = RegistryFor(scn.Materials())
	}
	c.pool = worker.NewDynamicWorkerPool(max(workers, 1), 256, 1*time.Second)
	return c
}

func (c *ciVct) SetMaxCascades(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < len(c.cascades) {
		panic("gi: max cascades is below the number of cascades already added")
	}
	c.maxCascades = n
}

func (c *ciVct) MaxCascades() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxCascades
}

func (c *ciVct) AddCascade(ref *Cascade) *Cascade {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		panic("gi: cascades cannot be added after Start")
	}
	if len(c.cascades) >= c.maxCascades {
		panic("gi: too many cascades, raise SetMaxCascades first")
	}
	cas := &Cascade{
		Resolution:      [3]uint32{16, 16, 16},
		OctantCount:     [3]uint32{1, 1, 1},
		AreaHalfSize:    [3]float32{5, 5, 5},
		ThinWallCounter: 1,
	}
	if ref != nil {
		if err := copier.Copy(cas, ref); err != nil {
			panic("gi: copying cascade settings: " + err.Error())
		}
	}
	c.cascades = append(c.cascades, cas)
	return cas
}

func (c *ciVct) Cascades() []*Cascade {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Cascade(nil), c.cascades...)
}

func (c *ciVct) AutoCalculateStepSizes(stepSize [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cas := range c.cascades {
		for i := range 3 {
			if cas.Resolution[i] == 0 {
				continue
			}
			voxel := 2 * cas.AreaHalfSize[i] / float32(cas.Resolution[i])
			cas.CameraStepSize[i] = stepSize[i] * voxel
		}
	}
}

func (c *ciVct) Bind(cam camera.Camera) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cam = cam
}

func (c *ciVct) Start(bounceCount uint32, anisotropic bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cam == nil {
		return ErrNoCamera
	}
	for _, cas := range c.cascades {
		if _, err := splitOctants(cas.Resolution, cas.OctantCount); err != nil {
			return err
		}
	}
	c.bounceCount = bounceCount
	c.anisotropic = anisotropic
	for _, cas := range c.cascades {
		cas.voxelizer = newVoxelizer(c.pool)
		cas.lighting = nil
		cas.built = false
	}
	c.started = true
	return c.refresh(true)
}

func (c *ciVct) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *ciVct) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	return c.refresh(false)
}

// refresh rebuilds every cascade whose snapped centre moved, or all of them when force is set.
func (c *ciVct) refresh(force bool) error {
	defer c.profiler.Stage("civct.update")()

	c.cam.Update()
	pos := c.cam.Position()
	var dirty []*Cascade
	for _, cas := range c.cascades {
		center := cas.snap(pos)
		if force || !cas.built || center != cas.center {
			cas.center = center
			dirty = append(dirty, cas)
		}
	}
	if len(dirty) == 0 {
		return nil
	}

	gather := newVoxelizer(c.pool)
	gather.gather(c.scn, c.participating, c.logger)
	lights := c.scn.Lights()

	eg, _ := errgroup.WithContext(context.Background())
	for _, cas := range dirty {
		eg.Go(func() error {
			cas.voxelizer.shareItems(gather)
			if err := cas.voxelizer.build(cas.Resolution, cas.OctantCount, cas.Region()); err != nil {
				return err
			}
			grid := cas.voxelizer.current()
			if cas.lighting == nil {
				cas.lighting = newLightingVolume(grid, c.anisotropic)
			} else {
				cas.lighting.setGrid(grid)
			}
			cas.lighting.setAllowMultipleBounces(c.bounceCount > 0)
			cas.lighting.update(lights, c.bounceCount, cas.ThinWallCounter)
			cas.built = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	c.logger.Debug("civct cascades rebuilt", "count", len(dirty), "camera", pos)
	return nil
}

func (c *ciVct) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.Deactivate(c)
	for _, cas := range c.cascades {
		cas.voxelizer = nil
		cas.lighting = nil
		cas.built = false
	}
	c.started = false
}

func (c *ciVct) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enabled {
		c.registry.Activate(c, c.highQuality)
		return
	}
	c.registry.Deactivate(c)
}

func (c *ciVct) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && c.registry.IsActive(c)
}

func (c *ciVct) SetHighQuality(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.highQuality = enabled
	c.registry.SetFullConeCount(c, enabled)
}

func (c *ciVct) HighQuality() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highQuality
}

// Sample reads the finest built cascade that contains pos.
func (c *ciVct) Sample(pos [3]float32) [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cas := range c.cascades {
		if !cas.built || cas.lighting == nil {
			continue
		}
		r := cas.Region()
		inside := true
		for i := range 3 {
			if pos[i] < r.Min[i] || pos[i] > r.Max[i] {
				inside = false
				break
			}
		}
		if inside {
			return cas.lighting.Sample(pos)
		}
	}
	return [3]float32{}
}
