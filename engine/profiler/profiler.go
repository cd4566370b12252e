package profiler

import (
	"cmp"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"
)

// Profiler tracks frame rate, memory statistics and named stage timings.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	logger         *slog.Logger
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stages map[string]*stageStats
}

type stageStats struct {
	count int
	total time.Duration
	max   time.Duration
}

// StageReport is the accumulated timing of one named stage since the last report.
type StageReport struct {
	Name    string
	Count   int
	Average time.Duration
	Max     time.Duration
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - logger: destination for periodic reports, slog.Default() when nil
//   - interval: report interval, one second when zero
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger, interval time.Duration) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		mu:             &sync.Mutex{},
		logger:         logger,
		lastTime:       time.Now(),
		updateInterval: interval,
		stages:         make(map[string]*stageStats),
	}
}

// Stage starts timing a named stage. Call the returned function when the stage ends.
// A nil Profiler returns a no-op.
//
// Parameters:
//   - name: stage name, e.g. "gpu_rays.first_pass"
//
// Returns:
//   - func(): stops the timer and records the duration
func (p *Profiler) Stage(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one sample to a named stage.
//
// Parameters:
//   - name: stage name
//   - d: the measured duration
func (p *Profiler) Record(name string, d time.Duration) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stages[name]
	if !ok {
		s = &stageStats{}
		p.stages[name] = s
	}
	s.count++
	s.total += d
	s.max = max(s.max, d)
}

// Stages returns the stage timings accumulated since the last report, sorted by name.
//
// Returns:
//   - []StageReport: one report per stage
func (p *Profiler) Stages() []StageReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stageReports()
}

func (p *Profiler) stageReports() []StageReport {
	out := make([]StageReport, 0, len(p.stages))
	for name, s := range p.stages {
		out = append(out, StageReport{Name: name, Count: s.count, Average: s.total / time.Duration(max(s.count, 1)), Max: s.max})
	}
	slices.SortFunc(out, func(a, b StageReport) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics and stage timings when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Info("profiler",
		"fps", fps,
		"heapMB", allocMB,
		"allocRateMBps", allocRateMB,
		"gc", gcCount,
		"gcLastPauseUs", lastPauseUs,
		"gcMaxPauseUs", maxPauseUs,
		"sysMB", sysMB,
	)
	for _, s := range p.stageReports() {
		p.logger.Info("profiler stage", "stage", s.Name, "count", s.Count, "avg", s.Average, "max", s.Max)
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	clear(p.stages)
	return true
}
