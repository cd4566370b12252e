package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Action is a preview command decoded from keyboard input.
type Action int

const (
	// ActionNextSource switches the preview to the next sensor output.
	ActionNextSource Action = iota

	// ActionPreviousSource switches the preview to the previous sensor output.
	ActionPreviousSource

	// ActionToggleRange switches between the colour view and the normalized range view.
	ActionToggleRange

	// ActionTogglePause pauses or resumes the simulation tick.
	ActionTogglePause
)

// String returns a readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNextSource:
		return "next_source"
	case ActionPreviousSource:
		return "previous_source"
	case ActionToggleRange:
		return "toggle_range"
	case ActionTogglePause:
		return "toggle_pause"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Window is a native preview window that the renderer presents sensor outputs into.
// Escape closes it.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetActionCallback sets the function receiving decoded preview actions.
	//
	// Parameters:
	//   - callback: function receiving the action
	SetActionCallback(callback func(action Action))

	// SetTitle replaces the window title.
	//
	// Parameters:
	//   - title: the new title text
	SetTitle(title string)

	// SurfaceDescriptor returns a platform-appropriate wgpu.SurfaceDescriptor for the window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true while the window is open.
	IsRunning() bool

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never opened
	Close() error

	// ProcessMessages runs the message loop until the window closes, calling the update
	// callback once per iteration. It must run on the thread that created the window.
	ProcessMessages()

	// PollOnce processes pending events without blocking.
	//
	// Returns:
	//   - bool: true if the window is still running
	PollOnce() bool

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	minWidth, minHeight int
	width, height       int

	// internalWindow holds the platform-specific window data.
	internalWindow *glfwWindow

	onUpdate func()
	onResize func(width, height int)
	onAction func(action Action)
}

var _ Window = &engineWindow{}

// NewWindow opens a preview window with the specified options.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: error if the platform window could not be created, e.g. without a display
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-sensors",
		minWidth:  160,
		minHeight: 120,
		width:     960,
		height:    480,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetActionCallback(callback func(action Action)) {
	w.onAction = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.PollOnce() {
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) PollOnce() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// resized records new framebuffer dimensions, ignoring minimized (zero-area) states.
func (w *engineWindow) resized(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

func (w *engineWindow) dispatch(a Action) {
	if w.onAction != nil {
		w.onAction(a)
	}
}
