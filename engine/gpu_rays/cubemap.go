package gpu_rays

import (
	"math/bits"

	"github.com/chewxy/math32"
)

// CubeFace indexes the six faces of a cubemap. The order matches the first-pass
// render targets and the texture units of the second pass.
type CubeFace uint8

const (
	FacePositiveX CubeFace = iota
	FaceNegativeX
	FacePositiveY
	FaceNegativeY
	FacePositiveZ
	FaceNegativeZ

	// CubeFaceCount is the number of cubemap faces.
	CubeFaceCount = 6
)

var cubeFaceNames = [CubeFaceCount]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}

func (f CubeFace) String() string {
	if int(f) < len(cubeFaceNames) {
		return cubeFaceNames[f]
	}
	return "invalid"
}

// CubeFaceSet is a bit set of cube faces.
type CubeFaceSet uint8

// Add returns the set with face included.
func (s CubeFaceSet) Add(face CubeFace) CubeFaceSet {
	return s | 1<<face
}

// Has reports whether face is in the set.
func (s CubeFaceSet) Has(face CubeFace) bool {
	return s&(1<<face) != 0
}

// Len returns the number of faces in the set.
func (s CubeFaceSet) Len() int {
	return bits.OnesCount8(uint8(s))
}

// Faces returns the faces of the set in ascending index order.
func (s CubeFaceSet) Faces() []CubeFace {
	faces := make([]CubeFace, 0, s.Len())
	for f := range CubeFace(CubeFaceCount) {
		if s.Has(f) {
			faces = append(faces, f)
		}
	}
	return faces
}

func (s CubeFaceSet) String() string {
	out := "{"
	for i, f := range s.Faces() {
		if i > 0 {
			out += ","
		}
		out += f.String()
	}
	return out + "}"
}

// SampleCubemap maps a direction in cube space to the face it hits and the texture
// coordinate on that face. v grows downward on every face.
//
// Parameters:
//   - dir: a unit direction
//
// Returns:
//   - [2]float32: texture coordinate in [0, 1]^2
//   - CubeFace: the face selected by the dominant axis
func SampleCubemap(dir [3]float32) ([2]float32, CubeFace) {
	x, y, z := dir[0], dir[1], dir[2]
	ax, ay, az := math32.Abs(x), math32.Abs(y), math32.Abs(z)

	var face CubeFace
	var ma float32
	var uv [2]float32
	switch {
	case az >= ax && az >= ay:
		face = FacePositiveZ
		if z < 0 {
			face = FaceNegativeZ
			x = -x
		}
		ma = 0.5 / az
		uv = [2]float32{x, -y}
	case ay >= ax:
		face = FacePositiveY
		if y < 0 {
			face = FaceNegativeY
			z = -z
		}
		ma = 0.5 / ay
		uv = [2]float32{x, z}
	default:
		face = FacePositiveX
		if x < 0 {
			face = FaceNegativeX
		} else {
			z = -z
		}
		ma = 0.5 / ax
		uv = [2]float32{z, -y}
	}
	return [2]float32{uv[0]*ma + 0.5, uv[1]*ma + 0.5}, face
}

// faceBasis is the right, up and forward axes of a face camera in cube space.
type faceBasis struct {
	right, up, forward [3]float32
}

var faceBases = [CubeFaceCount]faceBasis{
	FacePositiveX: {right: [3]float32{0, 0, -1}, up: [3]float32{0, 1, 0}, forward: [3]float32{1, 0, 0}},
	FaceNegativeX: {right: [3]float32{0, 0, 1}, up: [3]float32{0, 1, 0}, forward: [3]float32{-1, 0, 0}},
	FacePositiveY: {right: [3]float32{1, 0, 0}, up: [3]float32{0, 0, -1}, forward: [3]float32{0, 1, 0}},
	FaceNegativeY: {right: [3]float32{1, 0, 0}, up: [3]float32{0, 0, 1}, forward: [3]float32{0, -1, 0}},
	FacePositiveZ: {right: [3]float32{1, 0, 0}, up: [3]float32{0, 1, 0}, forward: [3]float32{0, 0, 1}},
	FaceNegativeZ: {right: [3]float32{-1, 0, 0}, up: [3]float32{0, 1, 0}, forward: [3]float32{0, 0, -1}},
}

// cubeToSensor maps cube space into the sensor frame (X forward, Y left, Z up):
// cube +Z looks forward, cube +Y is up and cube +X is right.
var cubeToSensor = [16]float32{
	0, -1, 0, 0,
	0, 0, 1, 0,
	1, 0, 0, 0,
	0, 0, 0, 1,
}
