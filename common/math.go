package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// IdentityMatrix returns a new 4x4 identity matrix.
//
// Returns:
//   - [16]float32: the identity matrix (column-major)
func IdentityMatrix() [16]float32 {
	var m [16]float32
	Identity(m[:])
	return m
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (OpenGL/WebGPU convention).
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// Perspective creates a perspective projection matrix for WebGPU clip space (depth in [0, 1]).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / math32.Tan(fovY/2.0)
	Identity(out)

	a, b := ProjectionParams(near, far)
	out[0] = f / aspect
	out[5] = f
	out[10] = a
	out[11] = -1.0
	out[14] = b
	out[15] = 0.0
}

// ProjectionParams returns the depth projection constants A and B used by Perspective.
// A view-space depth z maps to NDC depth (A*z + B) / -z, so linear depth is B / (ndc + A).
//
// Parameters:
//   - near: near clipping plane distance
//   - far: far clipping plane distance
//
// Returns:
//   - a: the depth scale term far / (near - far)
//   - b: the depth offset term near*far / (near - far)
func ProjectionParams(near, far float32) (a, b float32) {
	return far / (near - far), (near * far) / (near - far)
}

// LinearDepth converts a WebGPU NDC depth value back to positive view-space distance
// along the camera's forward axis.
//
// Parameters:
//   - ndc: depth buffer value in [0, 1]
//   - a, b: projection constants from ProjectionParams
//
// Returns:
//   - float32: the linear view depth
func LinearDepth(ndc, a, b float32) float32 {
	return b / (ndc + a)
}

// Invert4 computes the inverse of a 4x4 column-major matrix using the Laplace
// expansion (cofactor) method. If the matrix is singular (determinant ≈ 0) the
// output is left unchanged and the function returns false.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements, column-major)
//
// Returns:
//   - bool: true if the matrix was successfully inverted, false if singular
func Invert4(out, m []float32) bool {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return false
	}

	invDet := 1.0 / det

	var buf [16]float32
	buf[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * invDet
	buf[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * invDet
	buf[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * invDet
	buf[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * invDet

	buf[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * invDet
	buf[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * invDet
	buf[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * invDet
	buf[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * invDet

	buf[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * invDet
	buf[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * invDet
	buf[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * invDet
	buf[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * invDet

	buf[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * invDet
	buf[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * invDet
	buf[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * invDet
	buf[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * invDet
	copy(out, buf[:])

	return true
}

// RotationX writes a rotation of angle radians about the X axis into out (column-major).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - angle: rotation angle in radians (right-handed)
func RotationX(out []float32, angle float32) {
	s, c := math32.Sincos(angle)
	Identity(out)
	out[5], out[6] = c, s
	out[9], out[10] = -s, c
}

// RotationY writes a rotation of angle radians about the Y axis into out (column-major).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - angle: rotation angle in radians (right-handed)
func RotationY(out []float32, angle float32) {
	s, c := math32.Sincos(angle)
	Identity(out)
	out[0], out[2] = c, -s
	out[8], out[10] = s, c
}

// RotationZ writes a rotation of angle radians about the Z axis into out (column-major).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - angle: rotation angle in radians (right-handed)
func RotationZ(out []float32, angle float32) {
	s, c := math32.Sincos(angle)
	Identity(out)
	out[0], out[1] = c, s
	out[4], out[5] = -s, c
}

// Translation builds a translation matrix.
//
// Parameters:
//   - x, y, z: translation components
//
// Returns:
//   - [16]float32: the translation matrix (column-major)
func Translation(x, y, z float32) [16]float32 {
	m := IdentityMatrix()
	m[12], m[13], m[14] = x, y, z
	return m
}

// BasisMatrix builds a matrix whose first three columns are the given axes and whose
// translation is origin.
//
// Parameters:
//   - x, y, z: the basis column vectors
//   - origin: the translation column
//
// Returns:
//   - [16]float32: the composed matrix (column-major)
func BasisMatrix(x, y, z, origin [3]float32) [16]float32 {
	return [16]float32{
		x[0], x[1], x[2], 0,
		y[0], y[1], y[2], 0,
		z[0], z[1], z[2], 0,
		origin[0], origin[1], origin[2], 1,
	}
}

// TransformPoint multiplies the point p (w = 1) by m and performs the perspective divide
// when w differs from 1.
//
// Parameters:
//   - m: 4x4 column-major matrix
//   - p: point to transform
//
// Returns:
//   - [3]float32: the transformed point
func TransformPoint(m []float32, p [3]float32) [3]float32 {
	x := m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12]
	y := m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13]
	z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]
	if w != 0 && w != 1 {
		return [3]float32{x / w, y / w, z / w}
	}
	return [3]float32{x, y, z}
}

// TransformDirection multiplies the direction d by the upper 3x3 of m (no translation).
//
// Parameters:
//   - m: 4x4 column-major matrix
//   - d: direction vector
//
// Returns:
//   - [3]float32: the transformed direction
func TransformDirection(m []float32, d [3]float32) [3]float32 {
	return [3]float32{
		m[0]*d[0] + m[4]*d[1] + m[8]*d[2],
		m[1]*d[0] + m[5]*d[1] + m[9]*d[2],
		m[2]*d[0] + m[6]*d[1] + m[10]*d[2],
	}
}

// Dot3 returns the dot product of a and b.
func Dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Cross3 returns the cross product a × b.
func Cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Sub3 returns a - b.
func Sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Length3 returns the Euclidean length of v.
func Length3(v [3]float32) float32 {
	return math32.Sqrt(Dot3(v, v))
}

// Normalize3 returns v scaled to unit length. Zero vectors are returned unchanged.
func Normalize3(v [3]float32) [3]float32 {
	l := Length3(v)
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
