package types

import "github.com/go-gl/mathgl/mgl32"

// A 4x4 column-major matrix.
type Mat4 mgl32.Mat4

// Create an identity matrix.
func Ident4() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Create a translation matrix.
func Translate4(v Vec3) Mat4 {
	return Mat4(mgl32.Translate3D(v[0], v[1], v[2]))
}

// Create a scale matrix.
func Scale4(v Vec3) Mat4 {
	return Mat4(mgl32.Scale3D(v[0], v[1], v[2]))
}

// Create a rotation matrix from yaw, pitch and roll angles (in radians)
// applied around the x, y and z axis respectively.
func Rotate4(yaw, pitch, roll float32) Mat4 {
	yawQuat := mgl32.QuatRotate(yaw, mgl32.Vec3{1, 0, 0})
	pitchQuat := mgl32.QuatRotate(pitch, mgl32.Vec3{0, 1, 0})
	rollQuat := mgl32.QuatRotate(roll, mgl32.Vec3{0, 0, 1})
	return Mat4(rollQuat.Mul(pitchQuat.Mul(yawQuat)).Normalize().Mat4())
}

// Multiply two matrices.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(m2)))
}

// Invert matrix. A singular matrix yields the zero matrix.
func (m Mat4) Inv() Mat4 {
	return Mat4(mgl32.Mat4(m).Inv())
}

// Transform a point (w = 1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	out := mgl32.Mat4(m).Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	return Vec3{out[0], out[1], out[2]}
}

// Transform a box and return the box enclosing its 8 transformed corners.
func (m Mat4) TransformAabb(a Aabb) Aabb {
	out := EmptyAabb()
	for _, corner := range a.Corners() {
		out.Include(m.TransformPoint(corner))
	}
	return out
}
