package gi

import (
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
	"github.com/chewxy/math32"
)

// maxTriangleSamples caps the per-edge sample count of a single triangle.
const maxTriangleSamples = 2048

type voxelItem struct {
	triangles [][3][3]float32
	albedo    [4]float32
	emissive  [3]float32
	bounds    common.AABB
}

type voxelAccum struct {
	albedo   [3]float32
	emissive [3]float32
	normal   [3]float32
	count    float32
}

// voxelizer converts world-space triangles into a VoxelGrid, one worker task per octant.
type voxelizer struct {
	mu   *sync.Mutex
	pool worker.DynamicWorkerPool

	items     []voxelItem
	grid      *VoxelGrid
	debugMode DebugVisualizationMode
}

func newVoxelizer(pool worker.DynamicWorkerPool) *voxelizer {
	return &voxelizer{mu: &sync.Mutex{}, pool: pool, debugMode: DebugNone}
}

func (v *voxelizer) removeAllItems() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = nil
}

// addItem captures the world-space triangles and materials of obj.
func (v *voxelizer) addItem(obj game_object.GameObject) {
	world := obj.WorldMatrix()
	var items []voxelItem
	for _, sub := range obj.SubItems() {
		mesh := sub.Mesh()
		if mesh == nil || mesh.TriangleCount() == 0 {
			continue
		}
		item := voxelItem{albedo: [4]float32{1, 1, 1, 1}, bounds: common.EmptyAABB()}
		if mat := sub.Material(); mat != nil {
			item.albedo = mat.BaseColor()
			item.emissive = mat.Emissive()
		}
		item.triangles = make([][3][3]float32, mesh.TriangleCount())
		for t := range mesh.TriangleCount() {
			a, b, c := mesh.Triangle(t)
			tri := [3][3]float32{
				common.TransformPoint(world[:], a),
				common.TransformPoint(world[:], b),
				common.TransformPoint(world[:], c),
			}
			item.triangles[t] = tri
			for _, p := range tri {
				item.bounds = item.bounds.Extend(p)
			}
		}
		items = append(items, item)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = append(v.items, items...)
}

// gather replaces the item list with the enabled visuals of scn whose kind is set in mask.
// Visuals the scene cannot resolve are logged and skipped.
func (v *voxelizer) gather(scn scene.Scene, mask uint32, logger *slog.Logger) {
	v.removeAllItems()
	for _, obj := range scn.Objects() {
		visual, err := scn.VisualByID(obj.ID())
		if err != nil {
			logger.Error("gi: skipping visual", "id", obj.ID(), "error", err)
			continue
		}
		if !visual.Enabled() || visual.Model() == nil {
			continue
		}
		kind := DynamicVisuals
		if visual.Static() {
			kind = StaticVisuals
		}
		if mask&kind == 0 {
			continue
		}
		v.addItem(visual)
	}
}

// shareItems points v at the items already captured by src.
func (v *voxelizer) shareItems(src *voxelizer) {
	src.mu.Lock()
	items := src.items
	src.mu.Unlock()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = items
}

func (v *voxelizer) itemCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.items)
}

// autoCalculateRegion returns the union of every item's bounds, padded so that no axis
// is degenerate and surfaces on the boundary fall inside the grid.
func (v *voxelizer) autoCalculateRegion() common.AABB {
	v.mu.Lock()
	defer v.mu.Unlock()
	region := common.EmptyAABB()
	for _, it := range v.items {
		region = region.Merge(it.bounds)
	}
	if region.IsEmpty() {
		return common.AABB{Min: [3]float32{-0.5, -0.5, -0.5}, Max: [3]float32{0.5, 0.5, 0.5}}
	}
	size := region.Size()
	pad := max(size[0], size[1], size[2], 1e-2) * 0.01
	for i := range 3 {
		region.Min[i] -= pad
		region.Max[i] += pad
	}
	return region
}

// build voxelizes every item into a new grid over region.
func (v *voxelizer) build(res, octants [3]uint32, region common.AABB) error {
	parts, err := splitOctants(res, octants)
	if err != nil {
		return err
	}
	grid := newVoxelGrid(res, region)

	v.mu.Lock()
	items := v.items
	v.mu.Unlock()

	// Octants cover disjoint voxel ranges, so tasks write the shared grid without locking.
	var wg sync.WaitGroup
	for i, o := range parts {
		wg.Add(1)
		oct := o
		v.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				voxelizeOctant(grid, oct, items)
				return nil, nil
			},
		})
	}
	wg.Wait()

	v.mu.Lock()
	v.grid = grid
	v.mu.Unlock()
	return nil
}

func voxelizeOctant(grid *VoxelGrid, o octant, items []voxelItem) {
	dims := [3]int{o.max[0] - o.min[0], o.max[1] - o.min[1], o.max[2] - o.min[2]}
	acc := make([]voxelAccum, dims[0]*dims[1]*dims[2])
	bounds := o.bounds(grid)
	vs := grid.VoxelSize()
	step := 0.5 * min(vs[0], vs[1], vs[2])

	for _, it := range items {
		if !overlaps(it.bounds, bounds) {
			continue
		}
		for _, tri := range it.triangles {
			tb := common.EmptyAABB().Extend(tri[0]).Extend(tri[1]).Extend(tri[2])
			if !overlaps(tb, bounds) {
				continue
			}
			e1 := common.Sub3(tri[1], tri[0])
			e2 := common.Sub3(tri[2], tri[0])
			cross := common.Cross3(e1, e2)
			if common.Length3(cross) == 0 {
				continue
			}
			normal := common.Normalize3(cross)

			edge := max(common.Length3(e1), common.Length3(e2), common.Length3(common.Sub3(tri[2], tri[1])))
			n := common.Clamp(int(math32.Ceil(edge/step)), 1, maxTriangleSamples)
			for i := 0; i <= n; i++ {
				for j := 0; j <= n-i; j++ {
					s, t := float32(i)/float32(n), float32(j)/float32(n)
					p := [3]float32{
						tri[0][0] + e1[0]*s + e2[0]*t,
						tri[0][1] + e1[1]*s + e2[1]*t,
						tri[0][2] + e1[2]*s + e2[2]*t,
					}
					x, y, z, ok := grid.Locate(p)
					if !ok || !o.contains(x, y, z) {
						continue
					}
					a := &acc[((z-o.min[2])*dims[1]+(y-o.min[1]))*dims[0]+(x-o.min[0])]
					for k := range 3 {
						a.albedo[k] += it.albedo[k]
						a.emissive[k] += it.emissive[k]
						a.normal[k] += normal[k]
					}
					a.count++
				}
			}
		}
	}

	for z := range dims[2] {
		for y := range dims[1] {
			for x := range dims[0] {
				a := acc[(z*dims[1]+y)*dims[0]+x]
				if a.count == 0 {
					continue
				}
				i := grid.Index(x+o.min[0], y+o.min[1], z+o.min[2])
				inv := 1 / a.count
				grid.Albedo[i] = [4]float32{a.albedo[0] * inv, a.albedo[1] * inv, a.albedo[2] * inv, 1}
				grid.Emissive[i] = [3]float32{a.emissive[0] * inv, a.emissive[1] * inv, a.emissive[2] * inv}
				if common.Length3(a.normal) > 0 {
					grid.Normal[i] = common.Normalize3(a.normal)
				}
			}
		}
	}
}

// debugColors renders the grid attribute selected by the voxelizer's debug mode.
func (v *voxelizer) debugColors() [][4]float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.grid == nil || v.debugMode == DebugNone {
		return nil
	}
	out := make([][4]float32, v.grid.Len())
	for i := range out {
		if !v.grid.Occupied(i) {
			continue
		}
		switch v.debugMode {
		case DebugAlbedo:
			out[i] = v.grid.Albedo[i]
		case DebugNormal:
			n := v.grid.Normal[i]
			out[i] = [4]float32{n[0]*0.5 + 0.5, n[1]*0.5 + 0.5, n[2]*0.5 + 0.5, 1}
		case DebugEmissive:
			e := v.grid.Emissive[i]
			out[i] = [4]float32{e[0], e[1], e[2], 1}
		}
	}
	return out
}

func (v *voxelizer) setDebugVisualization(mode DebugVisualizationMode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.debugMode = mode
}

func overlaps(a, b common.AABB) bool {
	for i := range 3 {
		if a.Max[i] < b.Min[i] || a.Min[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// reset drops the items and the last grid.
func (v *voxelizer) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = nil
	v.grid = nil
}

// current returns the last built grid.
func (v *voxelizer) current() *VoxelGrid {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.grid
}
