package types

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Column-major matrices backed by mathgl.
type Mat3 mgl32.Mat3
type Mat4 mgl32.Mat4

// Matrices whose determinant magnitude falls below this value are
// considered singular.
const singularDetEpsilon float32 = 1e-12

// Create a 4x4 identity matrix.
func Ident4() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Create a translation matrix.
func Translate4(t Vec3) Mat4 {
	return Mat4(mgl32.Translate3D(t[0], t[1], t[2]))
}

// Create a scale matrix.
func Scale4(s Vec3) Mat4 {
	return Mat4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// Create a rotation matrix from Euler angles expressed in degrees. Rotations
// are applied in X, Y, Z order.
func RotateEuler4(deg Vec3) Mat4 {
	rx := mgl32.HomogRotate3DX(mgl32.DegToRad(deg[0]))
	ry := mgl32.HomogRotate3DY(mgl32.DegToRad(deg[1]))
	rz := mgl32.HomogRotate3DZ(mgl32.DegToRad(deg[2]))
	return Mat4(rz.Mul4(ry).Mul4(rx))
}

// Create a perspective projection matrix. The fov is specified in degrees.
func Perspective4(fovy, aspect, near, far float32) Mat4 {
	return Mat4(mgl32.Perspective(mgl32.DegToRad(fovy), aspect, near, far))
}

// Create a view matrix for an eye looking at center.
func LookAtV(eye, center, up Vec3) Mat4 {
	return Mat4(mgl32.LookAtV(mgl32.Vec3(eye), mgl32.Vec3(center), mgl32.Vec3(up)))
}

// Multiply with another matrix.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(m2)))
}

// Multiply with a 4 component column vector.
func (m Mat4) Mul4x1(v Vec4) Vec4 {
	return Vec4(mgl32.Mat4(m).Mul4x1(mgl32.Vec4(v)))
}

// Calculate the matrix inverse. A singular matrix yields the zero matrix.
func (m Mat4) Inv() Mat4 {
	return Mat4(mgl32.Mat4(m).Inv())
}

// Calculate the matrix transpose.
func (m Mat4) Transpose() Mat4 {
	return Mat4(mgl32.Mat4(m).Transpose())
}

// Calculate the matrix determinant.
func (m Mat4) Det() float32 {
	return mgl32.Mat4(m).Det()
}

// Returns true if the matrix can be inverted.
func (m Mat4) Invertible() bool {
	det := m.Det()
	return !math32.IsNaN(det) && math32.Abs(det) > singularDetEpsilon
}

// Transform a point (w = 1).
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return Vec3{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}

// Transform a direction (w = 0).
func (m Mat4) MulDir(d Vec3) Vec3 {
	return Vec3{
		m[0]*d[0] + m[4]*d[1] + m[8]*d[2],
		m[1]*d[0] + m[5]*d[1] + m[9]*d[2],
		m[2]*d[0] + m[6]*d[1] + m[10]*d[2],
	}
}

// Extract the top-left 3x3 matrix from a 4x4 matrix.
func (m Mat4) Mat3() Mat3 {
	return Mat3{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
}

// Multiply with a 3 component column vector.
func (m Mat3) Mul3x1(v Vec3) Vec3 {
	return Vec3(mgl32.Mat3(m).Mul3x1(mgl32.Vec3(v)))
}
