package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"morphtree/internal/field"
)

// Camera framing for the morph scene.
const (
	CameraDistance = 35.0
	CameraHeight   = 5.0
	FovY           = 50 * math.Pi / 180
	Near           = 0.1
	Far            = 200.0

	// SceneOffsetY lowers the tree so the apex and star sit in frame.
	SceneOffsetY = -7.0
)

// Eye returns the camera position after orbiting yaw radians around +Y.
func Eye(yaw float64) field.Vec3 {
	return field.Vec3{
		X: CameraDistance * math.Sin(yaw),
		Y: CameraHeight,
		Z: CameraDistance * math.Cos(yaw),
	}
}

// View maps tree space to eye space, scene offset included.
func View(yaw float64) mgl32.Mat4 {
	look := mgl32.LookAtV(Vec(Eye(yaw)), mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	return look.Mul4(mgl32.Translate3D(0, SceneOffsetY, 0))
}

// ViewProjection is the full tree-space to clip-space transform.
func ViewProjection(yaw, aspect float64) mgl32.Mat4 {
	return mgl32.Perspective(FovY, float32(aspect), Near, Far).Mul4(View(yaw))
}

// Light is a point light in tree space.
type Light struct {
	Pos   field.Vec3
	Color [3]float32
}

// Lights are the warm key, red fill and emerald rim, moved into tree space.
var Lights = [3]Light{
	{Pos: field.Vec3{X: 20, Y: 30 - SceneOffsetY, Z: 20}, Color: [3]float32{1.0, 0.93, 0.73}},
	{Pos: field.Vec3{X: -15, Y: 10 - SceneOffsetY, Z: -15}, Color: [3]float32{0.6, 0.05, 0.05}},
	{Pos: field.Vec3{X: -10, Y: 20 - SceneOffsetY, Z: -20}, Color: [3]float32{0.0, 0.7, 0.38}},
}

// Ambient is the dim green fill applied to every surface.
var Ambient = [3]float32{0.0, 0.12, 0.06}
