package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/compositor"
	"github.com/Carmen-Shannon/oxy-sensors/engine/gpu_rays"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer"
)

// previewPresenter is the part of renderer.Renderer the preview needs.
type previewPresenter interface {
	CreateTexture(desc compositor.TextureDescriptor) (compositor.Texture, error)
	DestroyTexture(t compositor.Texture)
	WriteTexture(t compositor.Texture, data []float32) error
	Present(source compositor.Texture, params renderer.PreviewParams) error
	Resize(width, height int)
}

// preview uploads the selected sensor's published scan into a texture and presents it.
type preview struct {
	mu *sync.Mutex

	presenter previewPresenter
	logger    *slog.Logger

	source    int
	rangeMode bool

	tex    compositor.Texture
	owner  string
	buffer []float32
	rgba   []float32
}

func newPreview(p previewPresenter, logger *slog.Logger) *preview {
	return &preview{
		mu:        &sync.Mutex{},
		presenter: p,
		logger:    logger,
		rangeMode: true,
	}
}

func (p *preview) resize(width, height int) {
	p.presenter.Resize(width, height)
}

// cycle moves the selection by step, wrapping over count sensors.
func (p *preview) cycle(step, count int) {
	if count == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = ((p.source+step)%count + count) % count
}

func (p *preview) toggleRange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rangeMode = !p.rangeMode
}

// present shows the selected sensor. Sensors without a published frame present nothing.
func (p *preview) present(sensors []gpu_rays.GpuRays) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(sensors) == 0 {
		return nil
	}
	s := sensors[min(p.source, len(sensors)-1)]
	if st := s.State(); st == gpu_rays.StateUninitialized || st == gpu_rays.StateTexturesBuilt {
		return nil
	}
	w, h := s.Width(), s.Height()
	n := int(w * h * s.Channels())
	if len(p.buffer) != n {
		p.buffer = make([]float32, n)
	}
	if err := s.Copy(p.buffer); err != nil {
		return err
	}

	if err := p.ensureTexture(s.Name(), w, h); err != nil {
		return err
	}
	p.rgba = expandRGBA(p.rgba, p.buffer, int(s.Channels()))
	if err := p.presenter.WriteTexture(p.tex, p.rgba); err != nil {
		return fmt.Errorf("upload preview of %s: %w", s.Name(), err)
	}

	cfg := s.Config()
	return p.presenter.Present(p.tex, renderer.PreviewParams{
		Range: p.rangeMode,
		Min:   float32(cfg.Near),
		Max:   float32(cfg.Far),
	})
}

// ensureTexture keeps one preview texture sized to the selected sensor.
func (p *preview) ensureTexture(name string, w, h uint32) error {
	if p.tex != nil && p.owner == name && p.tex.Width() == w && p.tex.Height() == h {
		return nil
	}
	if p.tex != nil {
		p.presenter.DestroyTexture(p.tex)
		p.tex = nil
	}
	tex, err := p.presenter.CreateTexture(compositor.TextureDescriptor{
		Name:   "engine.preview",
		Width:  w,
		Height: h,
		Format: compositor.FormatRGBA32Float,
	})
	if err != nil {
		return fmt.Errorf("create preview texture: %w", err)
	}
	p.tex, p.owner = tex, name
	p.logger.Debug("preview source", "sensor", name, "width", w, "height", h)
	return nil
}

// expandRGBA widens interleaved scan data to RGBA, reusing dst when it is large enough.
func expandRGBA(dst, src []float32, channels int) []float32 {
	texels := len(src) / channels
	if cap(dst) < texels*4 {
		dst = make([]float32, texels*4)
	}
	dst = dst[:texels*4]
	for i := range texels {
		for c := range 4 {
			switch {
			case c < channels:
				dst[i*4+c] = src[i*channels+c]
			case c == 3:
				dst[i*4+c] = 1
			default:
				dst[i*4+c] = 0
			}
		}
	}
	return dst
}
