package compositor_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor/compositortest"
	"github.com/Carmen-Shannon/oxy-sensors/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sensors/engine/scene"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clearColour = [4]float32{0.25, 0.5, 0.75, 1}

func copyKernel(in compositor.QuadInvocation) [4]float32 {
	w, h := in.Size(0)
	return in.Load(0, int(in.UV[0]*float32(w)), int(in.UV[1]*float32(h)))
}

func testNode() compositor.NodeDefinition {
	return compositor.NodeDefinition{
		Name:   "Test/Node",
		Inputs: []string{"rt_input"},
		Textures: []compositor.TextureDefinition{
			{Name: "depth", Format: compositor.FormatDepth32Float},
			{Name: "colour", Format: compositor.FormatRGBA32Float, DepthAttachment: "depth"},
			{Name: "half", WidthFactor: 0.5, HeightFactor: 0.5, Format: compositor.FormatRGBA8Unorm},
		},
		Targets: []compositor.TargetDefinition{
			{Target: "colour", Passes: []compositor.PassDefinition{
				{Type: compositor.PassClear, ClearColour: clearColour},
				{Type: compositor.PassScene, VisibilityMask: game_object.DefaultVisibilityFlags, NotifyListeners: true},
			}},
			{Target: "rt_input", Passes: []compositor.PassDefinition{
				{Type: compositor.PassQuad, Program: "copy", Inputs: []string{"colour"}},
			}},
		},
		Output: "rt_input",
	}
}

type fixture struct {
	backend *compositortest.Backend
	mgr     compositor.Manager
	scn     scene.Scene
	box     game_object.GameObject
	red     material.Material
	cam     camera.Camera
	rt      compositor.Texture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{backend: compositortest.NewBackend(map[string]compositor.QuadKernel{"copy": copyKernel})}
	f.mgr = compositor.NewManager(compositor.WithBackend(f.backend))

	f.red = material.NewMaterial(material.WithName("red"), material.WithBaseColor([4]float32{1, 0, 0, 1}))
	mdl := model.NewModel(model.WithMeshes(model.NewBoxMesh([3]float32{1, 1, 1})))
	f.box = game_object.NewGameObject(game_object.WithModel(mdl, f.red), game_object.WithPosition(0, 0, -5))
	f.scn = scene.NewScene(scene.WithObjects(f.box))
	f.cam = camera.NewCamera(camera.WithFov(math32.Pi/2), camera.WithNear(0.1), camera.WithFar(10))

	require.NoError(t, f.mgr.AddNodeDefinition(testNode()))
	require.NoError(t, f.mgr.AddWorkspaceDefinition(compositor.WorkspaceDefinition{Name: "Test", Node: "Test/Node"}))

	var err error
	f.rt, err = f.mgr.CreateTexture(compositor.TextureDescriptor{Name: "rt", Width: 8, Height: 8, Format: compositor.FormatRGBA32Float})
	require.NoError(t, err)
	return f
}

func texel(data []float32, w, x, y int) [4]float32 {
	i := (y*w + x) * 4
	return [4]float32{data[i], data[i+1], data[i+2], data[i+3]}
}

func TestDefinitionLifecycle(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.mgr.AddNodeDefinition(testNode()), compositor.ErrDefinitionExists)
	assert.ErrorIs(t, f.mgr.AddWorkspaceDefinition(compositor.WorkspaceDefinition{Name: "Other", Node: "Missing"}), compositor.ErrUnknownDefinition)
	assert.ErrorIs(t, f.mgr.RemoveNodeDefinition("Test/Node"), compositor.ErrDefinitionInUse)

	ws, err := f.mgr.AddWorkspace("ws", "Test", f.cam, f.scn, f.rt)
	require.NoError(t, err)
	assert.ErrorIs(t, f.mgr.RemoveWorkspaceDefinition("Test"), compositor.ErrDefinitionInUse)

	f.mgr.RemoveWorkspace(ws)
	require.NoError(t, f.mgr.RemoveWorkspaceDefinition("Test"))
	require.NoError(t, f.mgr.RemoveNodeDefinition("Test/Node"))
	assert.False(t, f.mgr.HasNodeDefinition("Test/Node"))
	assert.False(t, f.mgr.HasWorkspaceDefinition("Test"))
	assert.ErrorIs(t, f.mgr.RemoveNodeDefinition("Test/Node"), compositor.ErrUnknownDefinition)
}

func TestInvalidNodeDefinitions(t *testing.T) {
	f := newFixture(t)

	noDepth := testNode()
	noDepth.Name = "NoDepth"
	noDepth.Textures[1].DepthAttachment = ""
	assert.ErrorIs(t, f.mgr.AddNodeDefinition(noDepth), compositor.ErrInvalidDefinition)

	badInput := testNode()
	badInput.Name = "BadInput"
	badInput.Targets[1].Passes[0].Inputs = []string{"nope"}
	assert.ErrorIs(t, f.mgr.AddNodeDefinition(badInput), compositor.ErrInvalidDefinition)

	_, err := f.mgr.AddWorkspace("ws", "Test", f.cam, f.scn)
	assert.ErrorIs(t, err, compositor.ErrInputMismatch)
}

func TestWorkspaceTexturesFollowInputSize(t *testing.T) {
	f := newFixture(t)
	ws, err := f.mgr.AddWorkspace("ws", "Test", f.cam, f.scn, f.rt)
	require.NoError(t, err)

	half, ok := ws.Texture("half")
	require.True(t, ok)
	assert.Equal(t, uint32(4), half.Width())
	assert.Equal(t, uint32(4), half.Height())
	assert.Same(t, f.rt, ws.Output())
	assert.Equal(t, []string{"rt", "ws/colour", "ws/depth", "ws/half"}, f.backend.LiveTextures())

	f.mgr.RemoveWorkspace(ws)
	assert.Equal(t, []string{"rt"}, f.backend.LiveTextures())
	assert.Empty(t, f.mgr.Workspaces())
}

func TestRenderOneFrameDrawsScene(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.AddWorkspace("ws", "Test", f.cam, f.scn, f.rt)
	require.NoError(t, err)

	require.NoError(t, f.mgr.RenderOneFrame())
	assert.Equal(t, 1, f.backend.Frames())

	data, err := f.mgr.ReadTexture(f.rt)
	require.NoError(t, err)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, texel(data, 8, 4, 4))
	assert.Equal(t, clearColour, texel(data, 8, 0, 0))
}

type swapListener struct {
	sub       game_object.SubItem
	with      material.Material
	saved     material.Material
	pre, post int
}

func (l *swapListener) PreRender(camera.Camera) {
	l.pre++
	l.saved = l.sub.Material()
	l.sub.SetMaterial(l.with)
}

func (l *swapListener) PostRender(camera.Camera) {
	l.post++
	l.sub.SetMaterial(l.saved)
}

func TestScenePassListenerSwapIsScoped(t *testing.T) {
	f := newFixture(t)
	ws, err := f.mgr.AddWorkspace("ws", "Test", f.cam, f.scn, f.rt)
	require.NoError(t, err)

	blue := material.NewMaterial(material.WithBaseColor([4]float32{0, 0, 1, 1}))
	l := &swapListener{sub: f.box.SubItems()[0], with: blue}
	ws.AddListener(l)

	require.NoError(t, f.mgr.RenderOneFrame())
	data, err := f.mgr.ReadTexture(f.rt)
	require.NoError(t, err)
	assert.Equal(t, [4]float32{0, 0, 1, 1}, texel(data, 8, 4, 4))
	assert.Equal(t, 1, l.pre)
	assert.Equal(t, 1, l.post)
	assert.Same(t, f.red, f.box.SubItems()[0].Material())

	ws.RemoveListener(l)
	require.NoError(t, f.mgr.RenderOneFrame())
	assert.Equal(t, 1, l.pre)
}

func TestListenersOnlyWrapOptedInScenePasses(t *testing.T) {
	f := newFixture(t)
	node := testNode()
	node.Name = "Test/TwoScenes"
	node.Textures = append(node.Textures,
		compositor.TextureDefinition{Name: "plain_depth", Format: compositor.FormatDepth32Float},
		compositor.TextureDefinition{Name: "plain", Format: compositor.FormatRGBA32Float, DepthAttachment: "plain_depth"},
	)
	node.Targets = append([]compositor.TargetDefinition{{Target: "plain", Passes: []compositor.PassDefinition{
		{Type: compositor.PassClear, ClearColour: clearColour},
		{Type: compositor.PassScene, VisibilityMask: game_object.DefaultVisibilityFlags},
	}}}, node.Targets...)
	require.NoError(t, f.mgr.AddNodeDefinition(node))
	require.NoError(t, f.mgr.AddWorkspaceDefinition(compositor.WorkspaceDefinition{Name: "TwoScenes", Node: node.Name}))
	ws, err := f.mgr.AddWorkspace("ws", "TwoScenes", f.cam, f.scn, f.rt)
	require.NoError(t, err)

	blue := material.NewMaterial(material.WithBaseColor([4]float32{0, 0, 1, 1}))
	l := &swapListener{sub: f.box.SubItems()[0], with: blue}
	ws.AddListener(l)
	require.NoError(t, f.mgr.RenderOneFrame())
	assert.Equal(t, 1, l.pre)
	assert.Equal(t, 1, l.post)

	plain, ok := ws.Texture("plain")
	require.True(t, ok)
	data, err := f.mgr.ReadTexture(plain)
	require.NoError(t, err)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, texel(data, 8, 4, 4))

	data, err = f.mgr.ReadTexture(f.rt)
	require.NoError(t, err)
	assert.Equal(t, [4]float32{0, 0, 1, 1}, texel(data, 8, 4, 4))
}

func TestDisabledWorkspaceDoesNotRender(t *testing.T) {
	f := newFixture(t)
	ws, err := f.mgr.AddWorkspace("ws", "Test", f.cam, f.scn, f.rt)
	require.NoError(t, err)
	ws.SetEnabled(false)

	sentinel := make([]float32, 8*8*4)
	for i := range sentinel {
		sentinel[i] = 7
	}
	require.NoError(t, f.mgr.WriteTexture(f.rt, sentinel))
	require.NoError(t, f.mgr.RenderOneFrame())

	data, err := f.mgr.ReadTexture(f.rt)
	require.NoError(t, err)
	assert.Equal(t, sentinel, data)
}

func TestFarCornerInterpolation(t *testing.T) {
	cam := camera.NewCamera(camera.WithFov(math32.Pi/2), camera.WithNear(0.1), camera.WithFar(10))
	corners := compositor.ViewFarCorners(cam)
	assert.InDelta(t, -10, corners[0][0], 1e-3)
	assert.InDelta(t, -10, corners[0][1], 1e-3)
	assert.InDelta(t, -10, corners[0][2], 1e-3)

	centre := compositor.FarCorner(corners, [2]float32{0.5, 0.5})
	assert.InDelta(t, 0, centre[0], 1e-3)
	assert.InDelta(t, 0, centre[1], 1e-3)

	topLeft := compositor.FarCorner(corners, [2]float32{0, 0})
	assert.InDelta(t, 10, topLeft[1], 1e-3)
}
