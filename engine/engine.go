package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-sensors/engine/gi"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gpu_rays"
	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sensors/engine/window"
)

// sensorEntry tracks a registered sensor and whether it has been disabled by a setup failure.
type sensorEntry struct {
	rays   gpu_rays.GpuRays
	failed bool
}

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	logger *slog.Logger

	tickRateChannel chan time.Duration
	engineTickRate  time.Duration
	frameLimit      time.Duration

	running  atomic.Bool
	paused   atomic.Bool
	wg       sync.WaitGroup
	quitChan chan struct{}
	quitOnce sync.Once

	sensors []*sensorEntry
	gis     []gi.Updatable

	tickCallback  func(deltaTime float32)
	frameCallback func(frame uint64, deltaTime float32)
	frameCount    uint64
	lastFrame     time.Time

	profiler         *profiler.Profiler
	profilingEnabled bool

	window  window.Window
	preview *preview
}

// Engine drives range sensors and global illumination once per frame.
//
// Each frame runs PreRender, Render and PostRender on every sensor in registration order,
// then updates every GI solution. A sensor whose PreRender fails is logged once and
// skipped from then on. Frames run headless through RunFrames, or continuously with a
// preview window through Run.
type Engine interface {
	// AddSensor registers a range sensor.
	//
	// Parameters:
	//   - s: the sensor to drive each frame
	AddSensor(s gpu_rays.GpuRays)

	// Sensors returns the registered sensors in registration order.
	//
	// Returns:
	//   - []gpu_rays.GpuRays: the sensors
	Sensors() []gpu_rays.GpuRays

	// AddGlobalIllumination registers a GI solution updated after the sensors each frame.
	//
	// Parameters:
	//   - u: the GI solution
	AddGlobalIllumination(u gi.Updatable)

	// SetTickRate sets the rate of the tick callback in ticks per second.
	// The change takes effect immediately while running.
	//
	// Parameters:
	//   - fps: target ticks per second (60 when <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called at the tick rate while Run is active.
	// Use it to move the sensor mount or scene objects.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetFrameCallback registers the function called after each frame.
	//
	// Parameters:
	//   - callback: function receiving the frame number (from 1) and the delta time in seconds
	SetFrameCallback(callback func(frame uint64, deltaTime float32))

	// SetFrameLimit caps the frame rate of Run. Pass 0 to uncap (default).
	//
	// Parameters:
	//   - fps: maximum frames per second
	SetFrameLimit(fps float64)

	// EnableProfiler enables periodic stats logging.
	EnableProfiler()

	// DisableProfiler disables periodic stats logging. Stage timings are still recorded.
	DisableProfiler()

	// Profiler returns the profiler shared with the sensors and GI solutions.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// Frame renders a single frame.
	//
	// Returns:
	//   - error: the joined Render, PostRender and GI update errors of this frame
	Frame() error

	// RunFrames renders n frames headless, stopping at the first frame that returns an error.
	//
	// Parameters:
	//   - n: number of frames
	//
	// Returns:
	//   - error: error of the failing frame, wrapped with its frame number
	RunFrames(n int) error

	// Run renders frames until the window closes or Quit is called, presenting the selected
	// sensor's scan into the window. It must be called from the thread that created the window.
	//
	// Returns:
	//   - error: error if the engine has no window or no renderer to present with
	Run() error

	// Quit signals Run to stop. Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		logger:          slog.Default(),
		tickRateChannel: make(chan time.Duration, 1),
		engineTickRate:  time.Second / 60,
		quitChan:        make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(e.logger, time.Second)
	}
	return e
}

func (e *engine) AddSensor(s gpu_rays.GpuRays) {
	if s == nil {
		panic("engine: AddSensor requires a sensor")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sensors = append(e.sensors, &sensorEntry{rays: s})
}

func (e *engine) Sensors() []gpu_rays.GpuRays {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]gpu_rays.GpuRays, len(e.sensors))
	for i, s := range e.sensors {
		out[i] = s.rays
	}
	return out
}

func (e *engine) AddGlobalIllumination(u gi.Updatable) {
	if u == nil {
		panic("engine: AddGlobalIllumination requires a GI solution")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gis = append(e.gis, u)
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// Replace any pending update so the latest rate wins.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetFrameCallback(callback func(frame uint64, deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameCallback = callback
}

func (e *engine) SetFrameLimit(fps float64) {
	if fps <= 0 {
		e.frameLimit = 0
		return
	}
	e.frameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Frame() error {
	e.mu.Lock()
	sensors := append([]*sensorEntry(nil), e.sensors...)
	gis := append([]gi.Updatable(nil), e.gis...)
	frameCallback := e.frameCallback
	e.frameCount++
	frame := e.frameCount
	now := time.Now()
	var dt float32
	if !e.lastFrame.IsZero() {
		dt = float32(now.Sub(e.lastFrame).Seconds())
	}
	e.lastFrame = now
	e.mu.Unlock()

	var errs []error
	for _, s := range sensors {
		if err := e.renderSensor(s); err != nil {
			errs = append(errs, err)
		}
	}

	done := e.profiler.Stage("gi.update")
	for _, u := range gis {
		if err := u.Update(); err != nil {
			errs = append(errs, fmt.Errorf("gi update: %w", err))
		}
	}
	done()

	if frameCallback != nil {
		frameCallback(frame, dt)
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return errors.Join(errs...)
}

// renderSensor runs one sensor's frame. PreRender failures disable the sensor after a single log entry.
func (e *engine) renderSensor(s *sensorEntry) error {
	if s.failed {
		return nil
	}
	name := s.rays.Name()
	if err := s.rays.PreRender(); err != nil {
		s.failed = true
		e.logger.Error("sensor setup failed, skipping it", "sensor", name, "error", err)
		return nil
	}
	if err := s.rays.Render(); err != nil {
		return fmt.Errorf("sensor %s: render: %w", name, err)
	}
	if err := s.rays.PostRender(); err != nil {
		return fmt.Errorf("sensor %s: post render: %w", name, err)
	}
	return nil
}

func (e *engine) RunFrames(n int) error {
	for i := range n {
		if err := e.Frame(); err != nil {
			return fmt.Errorf("engine: frame %d: %w", i+1, err)
		}
	}
	return nil
}

func (e *engine) Run() error {
	if e.window == nil {
		return errors.New("engine: Run requires a window")
	}
	if e.preview == nil {
		return errors.New("engine: Run requires a renderer to present with")
	}
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine: already running")
	}

	e.window.SetResizeCallback(e.preview.resize)
	e.window.SetActionCallback(e.handleAction)

	e.wg.Add(2)
	go e.handleTick()
	go e.handleFrames()

	// Window events must be pumped from the thread that created the window.
loop:
	for e.window.PollOnce() {
		select {
		case <-e.quitChan:
			break loop
		case <-time.After(time.Millisecond):
		}
	}
	e.Quit()
	e.wg.Wait()
	e.running.Store(false)
	return nil
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChan)
	})
}

// handleAction applies a preview window action.
func (e *engine) handleAction(a window.Action) {
	switch a {
	case window.ActionNextSource:
		e.preview.cycle(1, len(e.Sensors()))
	case window.ActionPreviousSource:
		e.preview.cycle(-1, len(e.Sensors()))
	case window.ActionToggleRange:
		e.preview.toggleRange()
	case window.ActionTogglePause:
		paused := !e.paused.Load()
		e.paused.Store(paused)
		e.logger.Info("tick paused", "paused", paused)
	}
}

// handleTick fires the tick callback at the configured rate until quit.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()
	lastTick := time.Now()

	for {
		select {
		case <-e.quitChan:
			return
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		case now := <-ticker.C:
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.mu.Lock()
			cb := e.tickCallback
			e.mu.Unlock()
			if cb != nil && !e.paused.Load() {
				cb(dt)
			}
		}
	}
}

// handleFrames renders and presents frames until quit. A panic or a frame error stops the engine.
func (e *engine) handleFrames() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("frame goroutine recovered from panic", "panic", r)
			e.Quit()
		}
	}()

	for {
		select {
		case <-e.quitChan:
			return
		default:
		}

		start := time.Now()
		if err := e.Frame(); err != nil {
			e.logger.Error("frame failed", "error", err)
			e.Quit()
			return
		}
		if err := e.preview.present(e.Sensors()); err != nil {
			e.logger.Warn("preview present failed", "error", err)
		}

		if e.frameLimit > 0 {
			if remaining := e.frameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// attachPreview wires the renderer used to present into the window.
func (e *engine) attachPreview(r renderer.Renderer) {
	e.preview = newPreview(r, e.logger)
}
