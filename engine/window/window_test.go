package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionString(t *testing.T) {
	assert.Equal(t, "toggle_range", ActionToggleRange.String())
	assert.Equal(t, "action(9)", Action(9).String())
}

func TestResizedIgnoresMinimize(t *testing.T) {
	w := &engineWindow{width: 10, height: 20}
	var calls [][2]int
	w.SetResizeCallback(func(width, height int) { calls = append(calls, [2]int{width, height}) })

	w.resized(0, 0)
	assert.Equal(t, 10, w.Width())
	w.resized(30, 40)
	assert.Equal(t, 30, w.Width())
	assert.Equal(t, 40, w.Height())
	assert.Equal(t, [][2]int{{30, 40}}, calls)
}

func TestUnopenedWindow(t *testing.T) {
	w := &engineWindow{}
	var got []Action
	w.SetActionCallback(func(a Action) { got = append(got, a) })
	w.dispatch(ActionTogglePause)
	assert.Equal(t, []Action{ActionTogglePause}, got)

	assert.False(t, w.IsRunning())
	assert.False(t, w.PollOnce())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	w.SetTitle("noop")
	assert.Equal(t, "noop", w.title)
}
