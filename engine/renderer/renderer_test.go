package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/common"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor/compositortest"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gpu_rays"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) Renderer {
	t.Helper()
	r, err := NewRenderer(WithForceSoftwareRenderer(false))
	if errors.Is(err, ErrNoAdapter) {
		t.Skip("no GPU adapter available")
	}
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestGPUQuadParamsLayout(t *testing.T) {
	q := NewGPUQuadParams([4][3]float32{{1, 2, 3}}, []float32{7, 8}, 64, 32)
	buf := q.Marshal()
	require.Len(t, buf, q.Size())
	got := floatsFromBytes(buf)
	assert.Equal(t, []float32{1, 2, 3, 0}, got[0:4])
	assert.Equal(t, float32(7), got[16])
	assert.Equal(t, float32(8), got[17])
	assert.Equal(t, []float32{64, 32}, got[32:34])
}

func TestGPUDrawUniformLayout(t *testing.T) {
	u := GPUDrawUniform{World: common.IdentityMatrix()}
	u.Material.Color = [4]float32{0.25, 0.5, 0.75, 1}
	buf := u.Marshal()
	require.Len(t, buf, u.Size())
	got := floatsFromBytes(buf)
	assert.Equal(t, float32(1), got[0])
	assert.Equal(t, float32(1), got[15])
	assert.Equal(t, []float32{0.25, 0.5, 0.75, 1}, got[16:20])
}

func TestAlignedBytesPerRow(t *testing.T) {
	assert.Equal(t, uint32(256), alignedBytesPerRow(1, 4))
	assert.Equal(t, uint32(256), alignedBytesPerRow(16, 16))
	assert.Equal(t, uint32(512), alignedBytesPerRow(17, 16))
}

func TestTextureRoundTrip(t *testing.T) {
	r := newTestRenderer(t)

	f, err := r.CreateTexture(compositor.TextureDescriptor{Name: "f", Width: 3, Height: 2, Format: compositor.FormatRGBA32Float})
	require.NoError(t, err)
	data := make([]float32, 3*2*4)
	for i := range data {
		data[i] = float32(i) * 1.5
	}
	require.NoError(t, r.WriteTexture(f, data))
	got, err := r.ReadTexture(f)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	u, err := r.CreateTexture(compositor.TextureDescriptor{Name: "u", Width: 1, Height: 1, Format: compositor.FormatRGBA8Unorm})
	require.NoError(t, err)
	require.NoError(t, r.WriteTexture(u, []float32{2, 0.5, -1, 1}))
	got, err = r.ReadTexture(u)
	require.NoError(t, err)
	assert.InDelta(t, 1, got[0], 1e-6)
	assert.InDelta(t, 0.5, got[1], 1.0/255)
	assert.InDelta(t, 0, got[2], 1e-6)

	assert.Error(t, r.WriteTexture(f, data[:4]))
	_, err = r.CreateTexture(compositor.TextureDescriptor{Name: "f", Width: 1, Height: 1, Format: compositor.FormatRGBA32Float})
	assert.Error(t, err)

	r.DestroyTexture(f)
	r.DestroyTexture(f)
	_, err = r.ReadTexture(f)
	assert.Error(t, err)
}

func TestPassesRequireFrame(t *testing.T) {
	r := newTestRenderer(t)
	target, err := r.CreateTexture(compositor.TextureDescriptor{Name: "t", Width: 2, Height: 2, Format: compositor.FormatRGBA32Float})
	require.NoError(t, err)

	assert.Error(t, r.Clear(compositor.ClearPass{Target: target}))
	assert.Error(t, r.EndFrame())
	require.NoError(t, r.BeginFrame())
	assert.Error(t, r.BeginFrame())
	require.NoError(t, r.EndFrame())
}

func TestClearColourAndDepth(t *testing.T) {
	r := newTestRenderer(t)
	target, err := r.CreateTexture(compositor.TextureDescriptor{Name: "c", Width: 4, Height: 4, Format: compositor.FormatRGBA32Float})
	require.NoError(t, err)
	depth, err := r.CreateTexture(compositor.TextureDescriptor{Name: "d", Width: 4, Height: 4, Format: compositor.FormatDepth32Float})
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.Clear(compositor.ClearPass{Target: target, Depth: depth, Colour: [4]float32{42, 0, 1, 1}, DepthValue: 0.5}))
	require.NoError(t, r.EndFrame())

	colour, err := r.ReadTexture(target)
	require.NoError(t, err)
	assert.Equal(t, []float32{42, 0, 1, 1}, colour[:4])
	d, err := r.ReadTexture(depth)
	require.NoError(t, err)
	require.Len(t, d, 16)
	assert.InDelta(t, 0.5, d[15], 1e-6)
}

func TestDrawSceneWritesColourAndDepth(t *testing.T) {
	r := newTestRenderer(t)
	target, err := r.CreateTexture(compositor.TextureDescriptor{Name: "c", Width: 8, Height: 8, Format: compositor.FormatRGBA32Float})
	require.NoError(t, err)
	depth, err := r.CreateTexture(compositor.TextureDescriptor{Name: "d", Width: 8, Height: 8, Format: compositor.FormatDepth32Float})
	require.NoError(t, err)

	var proj [16]float32
	common.Perspective(proj[:], math32.Pi/2, 1, 0.1, 10)
	world := common.Translation(0, 0, -2)
	mat := material.NewMaterial(material.WithBaseColor([4]float32{0.2, 0.4, 0.6, 1}))

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.Clear(compositor.ClearPass{Target: target, Depth: depth, DepthValue: 1}))
	require.NoError(t, r.DrawScene(compositor.ScenePass{
		Target:         target,
		Depth:          depth,
		ViewProjection: proj,
		Draws: []compositor.Draw{{
			Mesh:     model.NewPlaneMesh(5, 5),
			World:    world,
			Material: mat,
			Params:   material.NewGPUMaterialParams(mat, [4]float32{}),
		}},
	}))
	require.NoError(t, r.EndFrame())

	colour, err := r.ReadTexture(target)
	require.NoError(t, err)
	centre := (4*8 + 4) * 4
	assert.InDeltaSlice(t, []float32{0.2, 0.4, 0.6, 1}, colour[centre:centre+4], 1e-5)

	d, err := r.ReadTexture(depth)
	require.NoError(t, err)
	a, b := common.ProjectionParams(0.1, 10)
	assert.InDelta(t, 2, common.LinearDepth(d[4*8+4], a, b), 1e-3)
}

func TestSecondPassMatchesKernel(t *testing.T) {
	r := newTestRenderer(t)
	cpu := compositortest.NewBackend(gpu_rays.Kernels())

	run := func(b compositor.Backend) []float32 {
		lookup, err := b.CreateTexture(compositor.TextureDescriptor{Name: "lookup", Width: 3, Height: 1, Format: compositor.FormatRGBA32Float})
		require.NoError(t, err)
		require.NoError(t, b.WriteTexture(lookup, []float32{
			0.1, 0.1, 0, 0,
			0.9, 0.9, 5, 0,
			0.5, 0.5, 7, 0,
		}))
		inputs := []compositor.Texture{lookup}
		for f := range gpu_rays.CubeFaceCount {
			face, err := b.CreateTexture(compositor.TextureDescriptor{Name: "face" + string(rune('0'+f)), Width: 2, Height: 2, Format: compositor.FormatRGBA32Float})
			require.NoError(t, err)
			data := make([]float32, 16)
			for i := range 4 {
				data[i*4] = float32(f*10 + i)
				data[i*4+1] = float32(f)
			}
			require.NoError(t, b.WriteTexture(face, data))
			inputs = append(inputs, face)
		}
		target, err := b.CreateTexture(compositor.TextureDescriptor{Name: "out", Width: 3, Height: 1, Format: compositor.FormatRGBA32Float})
		require.NoError(t, err)

		require.NoError(t, b.BeginFrame())
		require.NoError(t, b.DrawQuad(compositor.QuadPass{
			Target:  target,
			Program: gpu_rays.ProgramSecondPass,
			Inputs:  inputs,
			Params:  []float32{1, 52},
		}))
		require.NoError(t, b.EndFrame())
		out, err := b.ReadTexture(target)
		require.NoError(t, err)
		return out
	}

	want := run(cpu)
	got := run(r)
	assert.InDeltaSlice(t, want, got, 1e-5)
	assert.Equal(t, float32(52), got[8])
}

func TestDrawQuadValidatesInputs(t *testing.T) {
	r := newTestRenderer(t)
	target, err := r.CreateTexture(compositor.TextureDescriptor{Name: "t", Width: 2, Height: 2, Format: compositor.FormatRGBA32Float})
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())
	err = r.DrawQuad(compositor.QuadPass{Target: target, Program: gpu_rays.ProgramSecondPass, Inputs: []compositor.Texture{target}})
	assert.Error(t, err)
	other, err := r.CreateTexture(compositor.TextureDescriptor{Name: "o", Width: 2, Height: 2, Format: compositor.FormatRGBA32Float})
	require.NoError(t, err)
	err = r.DrawQuad(compositor.QuadPass{Target: target, Program: gpu_rays.ProgramSecondPass, Inputs: []compositor.Texture{other}})
	assert.ErrorIs(t, err, compositor.ErrInputMismatch)
	err = r.DrawQuad(compositor.QuadPass{Target: target, Program: "missing"})
	assert.Error(t, err)
	require.NoError(t, r.EndFrame())
}

func TestPresentRequiresSurface(t *testing.T) {
	r := newTestRenderer(t)
	target, err := r.CreateTexture(compositor.TextureDescriptor{Name: "t", Width: 2, Height: 2, Format: compositor.FormatRGBA32Float})
	require.NoError(t, err)
	assert.Error(t, r.Present(target, PreviewParams{}))
}
