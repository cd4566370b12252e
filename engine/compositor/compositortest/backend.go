// Package compositortest provides a CPU implementation of compositor.Backend for tests.
//
// Scene passes ray-cast every triangle of the recorded draws through each pixel centre;
// quad passes run registered QuadKernels once per texel. Work is recorded between
// BeginFrame and EndFrame and executed on EndFrame, like a GPU queue submission.
package compositortest

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
)

// ErrNotRecording is returned when a pass is recorded outside BeginFrame/EndFrame.
var ErrNotRecording = errors.New("compositortest: no frame is being recorded")

type texture struct {
	desc     compositor.TextureDescriptor
	data     []float32
	released bool
}

func (t *texture) Name() string                     { return t.desc.Name }
func (t *texture) Width() uint32                    { return t.desc.Width }
func (t *texture) Height() uint32                   { return t.desc.Height }
func (t *texture) Format() compositor.TextureFormat { return t.desc.Format }

// Backend is a CPU compositor backend. The zero value is not usable; call NewBackend.
type Backend struct {
	mu *sync.Mutex

	kernels  map[string]compositor.QuadKernel
	textures map[string]*texture

	recording bool
	pending   []func()

	frames int
}

var _ compositor.Backend = &Backend{}

// NewBackend creates a CPU backend running the given quad kernels by program name.
//
// Parameters:
//   - kernels: quad programs available to quad passes
//
// Returns:
//   - *Backend: the new backend
func NewBackend(kernels map[string]compositor.QuadKernel) *Backend {
	b := &Backend{
		mu:       &sync.Mutex{},
		kernels:  make(map[string]compositor.QuadKernel),
		textures: make(map[string]*texture),
	}
	for name, k := range kernels {
		b.kernels[name] = k
	}
	return b
}

// RegisterProgram adds or replaces a quad kernel.
//
// Parameters:
//   - name: the program name
//   - k: the kernel
func (b *Backend) RegisterProgram(name string, k compositor.QuadKernel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kernels[name] = k
}

// Frames returns the number of submitted frames.
func (b *Backend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// LiveTextures returns the names of textures created and not yet destroyed, sorted.
func (b *Backend) LiveTextures() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for name := range b.textures {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (b *Backend) CreateTexture(desc compositor.TextureDescriptor) (compositor.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("compositortest: texture %q has zero size", desc.Name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.textures[desc.Name]; ok {
		return nil, fmt.Errorf("compositortest: texture %q already exists", desc.Name)
	}
	t := &texture{
		desc: desc,
		data: make([]float32, int(desc.Width)*int(desc.Height)*desc.Format.Channels()),
	}
	b.textures[desc.Name] = t
	return t, nil
}

func (b *Backend) DestroyTexture(t compositor.Texture) {
	tex, ok := t.(*texture)
	if !ok || tex == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if tex.released {
		return
	}
	tex.released = true
	delete(b.textures, tex.desc.Name)
}

func (b *Backend) WriteTexture(t compositor.Texture, data []float32) error {
	tex, err := b.live(t)
	if err != nil {
		return err
	}
	if tex.desc.Format.IsDepth() {
		return fmt.Errorf("compositortest: cannot write depth texture %q", tex.desc.Name)
	}
	if len(data) != len(tex.data) {
		return fmt.Errorf("compositortest: texture %q wants %d floats, got %d", tex.desc.Name, len(tex.data), len(data))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range data {
		tex.data[i] = store(tex.desc.Format, v)
	}
	return nil
}

func (b *Backend) ReadTexture(t compositor.Texture) ([]float32, error) {
	tex, err := b.live(t)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(tex.data), nil
}

func (b *Backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recording {
		return errors.New("compositortest: frame already being recorded")
	}
	b.recording = true
	b.pending = nil
	return nil
}

func (b *Backend) Clear(pass compositor.ClearPass) error {
	target, err := b.live(pass.Target)
	if err != nil {
		return err
	}
	var depth *texture
	if pass.Depth != nil {
		if depth, err = b.live(pass.Depth); err != nil {
			return err
		}
	}
	return b.record(func() {
		for i := 0; i < len(target.data); i += 4 {
			for c := range 4 {
				target.data[i+c] = store(target.desc.Format, pass.Colour[c])
			}
		}
		if depth != nil {
			for i := range depth.data {
				depth.data[i] = pass.DepthValue
			}
		}
	})
}

func (b *Backend) DrawScene(pass compositor.ScenePass) error {
	target, err := b.live(pass.Target)
	if err != nil {
		return err
	}
	depth, err := b.live(pass.Depth)
	if err != nil {
		return err
	}
	if depth.desc.Width != target.desc.Width || depth.desc.Height != target.desc.Height {
		return fmt.Errorf("compositortest: depth %q does not match target %q", depth.desc.Name, target.desc.Name)
	}
	return b.record(func() { rasterize(target, depth, pass) })
}

func (b *Backend) DrawQuad(pass compositor.QuadPass) error {
	target, err := b.live(pass.Target)
	if err != nil {
		return err
	}
	b.mu.Lock()
	kernel, ok := b.kernels[pass.Program]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("compositortest: unknown program %q", pass.Program)
	}
	inputs := make([]*texture, len(pass.Inputs))
	for i, in := range pass.Inputs {
		if inputs[i], err = b.live(in); err != nil {
			return err
		}
	}
	return b.record(func() { runQuad(target, inputs, kernel, pass) })
}

func (b *Backend) EndFrame() error {
	b.mu.Lock()
	if !b.recording {
		b.mu.Unlock()
		return ErrNotRecording
	}
	pending := b.pending
	b.pending = nil
	b.recording = false
	b.frames++
	b.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return nil
}

func (b *Backend) live(t compositor.Texture) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("compositortest: foreign or nil texture %v", t)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if tex.released {
		return nil, fmt.Errorf("compositortest: texture %q was destroyed", tex.desc.Name)
	}
	return tex, nil
}

func (b *Backend) record(fn func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.recording {
		return ErrNotRecording
	}
	b.pending = append(b.pending, fn)
	return nil
}

// store quantizes v the way the texture format would.
func store(f compositor.TextureFormat, v float32) float32 {
	if f != compositor.FormatRGBA8Unorm {
		return v
	}
	return float32(math.Round(float64(common.Clamp(v, 0, 1))*255)) / 255
}

// rasterize ray-casts the draws through every pixel centre with a less-than depth test.
func rasterize(target, depth *texture, pass compositor.ScenePass) {
	var inv [16]float32
	if !common.Invert4(inv[:], pass.ViewProjection[:]) {
		return
	}
	type tri struct {
		a, b, c [3]float32
		colour  [4]float32
	}
	var tris []tri
	for _, d := range pass.Draws {
		if d.Mesh == nil {
			continue
		}
		for i := range d.Mesh.TriangleCount() {
			a, bb, c := d.Mesh.Triangle(i)
			tris = append(tris, tri{
				a:      common.TransformPoint(d.World[:], a),
				b:      common.TransformPoint(d.World[:], bb),
				c:      common.TransformPoint(d.World[:], c),
				colour: d.Params.Color,
			})
		}
	}

	w, h := int(target.desc.Width), int(target.desc.Height)
	for y := range h {
		for x := range w {
			nx := (float32(x)+0.5)/float32(w)*2 - 1
			ny := 1 - (float32(y)+0.5)/float32(h)*2
			p0 := common.TransformPoint(inv[:], [3]float32{nx, ny, 0})
			p1 := common.TransformPoint(inv[:], [3]float32{nx, ny, 1})
			dir := common.Sub3(p1, p0)

			di := y*w + x
			best := depth.data[di]
			hit := -1
			for i, t := range tris {
				s, ok := intersect(p0, dir, t.a, t.b, t.c)
				if !ok {
					continue
				}
				p := [3]float32{p0[0] + dir[0]*s, p0[1] + dir[1]*s, p0[2] + dir[2]*s}
				z := common.TransformPoint(pass.ViewProjection[:], p)[2]
				if z >= 0 && z < best {
					best = z
					hit = i
				}
			}
			if hit < 0 {
				continue
			}
			depth.data[di] = best
			for c := range 4 {
				target.data[di*4+c] = store(target.desc.Format, tris[hit].colour[c])
			}
		}
	}
}

// intersect returns the segment parameter s in [0, 1] where origin + s*dir crosses triangle abc.
func intersect(origin, dir, a, b, c [3]float32) (float32, bool) {
	const eps = 1e-9
	e1 := common.Sub3(b, a)
	e2 := common.Sub3(c, a)
	p := common.Cross3(dir, e2)
	det := common.Dot3(e1, p)
	if det > -eps && det < eps {
		return 0, false
	}
	inv := 1 / det
	tv := common.Sub3(origin, a)
	u := common.Dot3(tv, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := common.Cross3(tv, e1)
	v := common.Dot3(dir, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	s := common.Dot3(e2, q) * inv
	if s < 0 || s > 1 {
		return 0, false
	}
	return s, true
}

// runQuad evaluates kernel for every texel of target.
func runQuad(target *texture, inputs []*texture, kernel compositor.QuadKernel, pass compositor.QuadPass) {
	w, h := int(target.desc.Width), int(target.desc.Height)
	load := func(unit, x, y int) [4]float32 {
		if unit < 0 || unit >= len(inputs) {
			return [4]float32{}
		}
		t := inputs[unit]
		tw, th := int(t.desc.Width), int(t.desc.Height)
		x = common.Clamp(x, 0, tw-1)
		y = common.Clamp(y, 0, th-1)
		if t.desc.Format.IsDepth() {
			return [4]float32{t.data[y*tw+x], 0, 0, 1}
		}
		i := (y*tw + x) * 4
		return [4]float32{t.data[i], t.data[i+1], t.data[i+2], t.data[i+3]}
	}
	size := func(unit int) (int, int) {
		if unit < 0 || unit >= len(inputs) {
			return 0, 0
		}
		return int(inputs[unit].desc.Width), int(inputs[unit].desc.Height)
	}

	out := make([]float32, len(target.data))
	for y := range h {
		for x := range w {
			v := kernel(compositor.QuadInvocation{
				X: x, Y: y, Width: w, Height: h,
				UV:      [2]float32{(float32(x) + 0.5) / float32(w), (float32(y) + 0.5) / float32(h)},
				Params:  pass.Params,
				Corners: pass.Corners,
				Load:    load,
				Size:    size,
			})
			i := (y*w + x) * 4
			for c := range 4 {
				out[i+c] = store(target.desc.Format, v[c])
			}
		}
	}
	copy(target.data, out)
}
