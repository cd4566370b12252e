package gpu_rays

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-sensors/common"
)

// SampleTexture maps every scan texel to the cubemap face and face coordinate its ray hits.
type SampleTexture struct {
	Width, Height uint32

	// Data holds (u, v, face) per texel, row-major, row 0 at VerticalAngleMin.
	Data []float32

	// Faces is every face referenced by at least one texel.
	Faces CubeFaceSet

	key sampleKey
}

// BuildSampleTexture computes the scan-to-cubemap lookup for cfg. The result depends only
// on the angular configuration and is deterministic.
//
// Parameters:
//   - cfg: the sensor configuration
//
// Returns:
//   - SampleTexture: the lookup table and the faces it references
func BuildSampleTexture(cfg Config) SampleTexture {
	w, h := cfg.RangeCount, cfg.VerticalRangeCount
	st := SampleTexture{
		Width:  w,
		Height: h,
		Data:   make([]float32, 0, int(w)*int(h)*3),
		key:    cfg.sampleKey(),
	}

	var hStep, vStep float64
	if w > 1 {
		hStep = (cfg.AngleMax - cfg.AngleMin) / float64(w-1)
	}
	if h > 1 {
		vStep = (cfg.VerticalAngleMax - cfg.VerticalAngleMin) / float64(h-1)
	}

	var ry, rx, rot [16]float32
	for j := range h {
		v := cfg.VerticalAngleMin + float64(j)*vStep
		common.RotationX(rx[:], float32(-v))
		for i := range w {
			a := cfg.AngleMin + float64(i)*hStep
			common.RotationY(ry[:], float32(-a))
			common.Mul4(rot[:], ry[:], rx[:])
			dir := common.Normalize3(common.TransformDirection(rot[:], [3]float32{0, 0, 1}))

			uv, face := SampleCubemap(dir)
			st.Faces = st.Faces.Add(face)
			st.Data = append(st.Data, uv[0], uv[1], float32(face))
		}
	}
	return st
}

// RGBA expands the lookup to four channels (alpha = 1) for upload to an RGBA32F texture.
//
// Returns:
//   - []float32: Width*Height*4 floats
func (s *SampleTexture) RGBA() []float32 {
	out := make([]float32, 0, len(s.Data)/3*4)
	for i := 0; i+2 < len(s.Data); i += 3 {
		out = append(out, s.Data[i], s.Data[i+1], s.Data[i+2], 1)
	}
	return out
}

// Bytes returns the little-endian RGBA32F staging layout of the lookup.
//
// Returns:
//   - []byte: Width*Height*16 bytes
func (s *SampleTexture) Bytes() []byte {
	rgba := s.RGBA()
	buf := make([]byte, len(rgba)*4)
	for i, f := range rgba {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Matches reports whether the lookup was built for cfg's angular configuration.
func (s *SampleTexture) Matches(cfg Config) bool {
	return s.key == cfg.sampleKey()
}
