package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"morphtree/internal/field"
)

// Vec converts a tree-space point to the float32 vector GL uniforms take.
func Vec(v field.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// Project applies m to the point p and returns homogeneous coordinates.
func Project(m mgl32.Mat4, p field.Vec3) mgl32.Vec4 {
	return m.Mul4x1(Vec(p).Vec4(1))
}
