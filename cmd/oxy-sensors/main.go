// Command oxy-sensors scans a scene with a simulated range sensor. It loads a TOML or YAML
// run configuration, builds the scene (primitives and glTF models), drives the sensor and
// global illumination for a number of frames and writes the last scan as a PNG. With
// engine.window set it instead opens a preview window and runs until closed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-sensors/config"
	"github.com/Carmen-Shannon/oxy-sensors/engine"
	"github.com/Carmen-Shannon/oxy-sensors/engine/camera"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor/compositortest"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gpu_rays"
	"github.com/Carmen-Shannon/oxy-sensors/engine/loader"
	"github.com/Carmen-Shannon/oxy-sensors/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sensors/engine/window"
)

func init() {
	// GLFW requires every window call on the main thread.
	runtime.LockOSThread()
}

// options are the command-line overrides of the configuration file.
type options struct {
	configPath string
	frames     int
	output     string
	watch      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "run configuration (.toml, .yaml or .yml); built-in defaults when empty")
	flag.IntVar(&opts.frames, "frames", 0, "override engine.frames")
	flag.StringVar(&opts.output, "output", "", "override engine.output")
	flag.BoolVar(&opts.watch, "watch", false, "reload sensor settings when the configuration file changes")
	flag.Parse()

	if err := run(opts); err != nil {
		slog.Error("oxy-sensors failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if opts.frames > 0 {
		cfg.Engine.Frames = opts.frames
	}
	if opts.output != "" {
		cfg.Engine.Output = opts.output
	}
	if len(cfg.Scene.Objects) == 0 {
		cfg.Scene = demoScene()
	}
	return cfg, cfg.Validate()
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	level, _ := cfg.Engine.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	prof := profiler.NewProfiler(logger, time.Second)

	scn, err := buildScene(cfg.Scene, loader.NewLoader(), logger)
	if err != nil {
		return err
	}

	var win window.Window
	if cfg.Engine.Window {
		win, err = window.NewWindow(
			window.WithTitle("oxy-sensors: "+cfg.Sensor.Name),
			window.WithSize(cfg.Engine.Width, cfg.Engine.Height),
		)
		if err != nil {
			return err
		}
		defer win.Close()
	}

	backend, rnd, err := newBackend(cfg.Engine, win, logger)
	if err != nil {
		return err
	}
	if rnd != nil {
		defer rnd.Release()
	}

	sensor := gpu_rays.NewGpuRays(
		gpu_rays.WithName(cfg.Sensor.Name),
		gpu_rays.WithConfig(cfg.Sensor.GpuRays()),
		gpu_rays.WithManager(compositor.NewManager(compositor.WithBackend(backend), compositor.WithLogger(logger))),
		gpu_rays.WithScene(scn),
		gpu_rays.WithPose(cfg.Sensor.Pose()),
		gpu_rays.WithLogger(logger),
		gpu_rays.WithProfiler(prof),
	)
	defer sensor.Destroy()
	sub := sensor.ConnectNewGpuRaysFrame(func(_ []float32, width, height, channels uint32, format string) {
		logger.Debug("scan published", "sensor", cfg.Sensor.Name, "width", width, "height", height, "channels", channels, "format", format)
	})
	defer sub.Cancel()

	giMount := camera.NewPoseMount(cfg.Sensor.Pose())
	lighting, err := buildGI(cfg.GI, scn, giMount, logger, prof)
	if err != nil {
		return err
	}

	engineOpts := []engine.EngineBuilderOption{
		engine.WithLogger(logger),
		engine.WithProfiler(prof),
		engine.WithProfiling(cfg.Engine.Profiling),
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithFrameLimit(cfg.Engine.FrameLimit),
		engine.WithSensors(sensor),
	}
	if lighting != nil {
		defer lighting.stop()
		engineOpts = append(engineOpts, engine.WithGlobalIllumination(lighting.updater))
	}
	if win != nil {
		engineOpts = append(engineOpts, engine.WithPreview(win, rnd))
	}
	eng := engine.NewEngine(engineOpts...)

	if opts.watch && opts.configPath != "" {
		w, err := config.NewWatcher(opts.configPath, func(next config.Config) {
			applySensorConfig(sensor, giMount, next.Sensor, logger)
		}, config.WithLogger(logger))
		if err != nil {
			return err
		}
		defer w.Close()
	}

	if win != nil {
		err = eng.Run()
	} else {
		err = eng.RunFrames(cfg.Engine.Frames)
	}
	if err != nil {
		return err
	}

	for _, st := range prof.Stages() {
		logger.Info("stage timing", "stage", st.Name, "count", st.Count, "avg", st.Average, "max", st.Max)
	}
	if lighting != nil {
		logger.Info("gi radiance at sensor", "rgb", lighting.sampler.Sample(cfg.Sensor.Position))
	}
	return writeScan(cfg, sensor, logger)
}

// newBackend opens the GPU renderer. Headless auto runs fall back to the CPU reference
// backend when no adapter exists.
func newBackend(cfg config.EngineConfig, win window.Window, logger *slog.Logger) (compositor.Backend, renderer.Renderer, error) {
	if cfg.Backend == config.BackendCPU {
		return compositortest.NewBackend(gpu_rays.Kernels()), nil, nil
	}
	ropts := []renderer.RendererBuilderOption{
		renderer.WithLogger(logger),
		renderer.WithForceSoftwareRenderer(cfg.ForceSoftwareRenderer),
	}
	if win != nil {
		ropts = append(ropts, renderer.WithSurface(win.SurfaceDescriptor(), win.Width(), win.Height()))
	}
	r, err := renderer.NewRenderer(ropts...)
	switch {
	case err == nil:
		return r, r, nil
	case errors.Is(err, renderer.ErrNoAdapter) && cfg.Backend == config.BackendAuto && win == nil:
		logger.Warn("no GPU adapter, scanning with the CPU reference backend")
		return compositortest.NewBackend(gpu_rays.Kernels()), nil, nil
	}
	return nil, nil, fmt.Errorf("open renderer: %w", err)
}

// applySensorConfig takes effect at the sensor's next PreRender.
func applySensorConfig(sensor gpu_rays.GpuRays, giMount camera.PoseMount, sc config.SensorConfig, logger *slog.Logger) {
	sensor.SetConfig(sc.GpuRays())
	sensor.SetPose(sc.Pose())
	giMount.SetWorldMatrix(sc.Pose())
	sensor.Reconfigure()
	logger.Info("sensor reconfigured", "sensor", sensor.Name(), "rays", sc.RangeCount, "vertical_rays", sc.VerticalRangeCount)
}

func writeScan(cfg config.Config, sensor gpu_rays.GpuRays, logger *slog.Logger) error {
	if cfg.Engine.Output == "" {
		return nil
	}
	if sensor.State() != gpu_rays.StatePublished {
		return fmt.Errorf("sensor %s published no scan", sensor.Name())
	}
	sc := sensor.Config()
	if err := gpu_rays.SaveScanImage(cfg.Engine.Output, sensor.Data(), sensor.Width(), sensor.Height(), sensor.Channels(),
		float32(sc.Near), float32(sc.Far), 64); err != nil {
		return err
	}
	logger.Info("scan written", "path", cfg.Engine.Output, "width", sensor.Width(), "height", sensor.Height())
	return nil
}
