package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageTimingsAccumulate(t *testing.T) {
	p := NewProfiler(nil, time.Hour)
	p.Record("gpu_rays.first_pass", 2*time.Millisecond)
	p.Record("gpu_rays.first_pass", 4*time.Millisecond)
	p.Record("gi.build", time.Millisecond)

	stages := p.Stages()
	require.Len(t, stages, 2)
	assert.Equal(t, "gi.build", stages[0].Name)
	assert.Equal(t, "gpu_rays.first_pass", stages[1].Name)
	assert.Equal(t, 2, stages[1].Count)
	assert.Equal(t, 3*time.Millisecond, stages[1].Average)
	assert.Equal(t, 4*time.Millisecond, stages[1].Max)
}

func TestTickReportsAndResets(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(slog.New(slog.NewTextHandler(&buf, nil)), time.Nanosecond)
	stop := p.Stage("gpu_rays.readback")
	stop()

	time.Sleep(time.Millisecond)
	assert.True(t, p.Tick())
	assert.Contains(t, buf.String(), "fps=")
	assert.Contains(t, buf.String(), "stage=gpu_rays.readback")
	assert.Empty(t, p.Stages())
}

func TestNilProfilerStageIsNoop(t *testing.T) {
	var p *Profiler
	assert.NotPanics(t, func() { p.Stage("x")() })
}
