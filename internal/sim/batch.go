package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	"morphtree/internal/field"
)

const (
	MatrixFloats = 16
	ColorFloats  = 3
)

// Batch is the per-class instance output of one tick. Slot order is fixed
// at generation time, so instance k is the same particle on every tick.
// Buffers are refreshed in place; consumers must copy what they keep.
type Batch struct {
	Class field.Class

	// Matrices holds one column-major model matrix (T * Rx * Ry * Rz * S) per instance.
	Matrices []float32
	// Colors holds linear RGB triplets in [0,1] per instance.
	Colors []float32
}

func newBatch(c field.Class, n int) *Batch {
	return &Batch{
		Class:    c,
		Matrices: make([]float32, n*MatrixFloats),
		Colors:   make([]float32, n*ColorFloats),
	}
}

// Len returns the number of instances.
func (b *Batch) Len() int { return len(b.Matrices) / MatrixFloats }

// Matrix returns instance k's model matrix.
func (b *Batch) Matrix(k int) []float32 {
	return b.Matrices[k*MatrixFloats : (k+1)*MatrixFloats]
}

// Position returns the translation part of instance k.
func (b *Batch) Position(k int) field.Vec3 {
	m := b.Matrix(k)
	return field.Vec3{X: float64(m[12]), Y: float64(m[13]), Z: float64(m[14])}
}

// Color returns instance k's colour.
func (b *Batch) Color(k int) (r, g, bl float32) {
	c := b.Colors[k*ColorFloats:]
	return c[0], c[1], c[2]
}

func (b *Batch) put(k int, pos field.Vec3, rot field.Euler, scale float64, col field.RGB) {
	writeMatrix(b.Matrices[k*MatrixFloats:(k+1)*MatrixFloats], pos, rot, scale)
	c := b.Colors[k*ColorFloats:]
	c[0], c[1], c[2] = col.Float32()
}

// writeMatrix composes translation, XYZ Euler rotation and uniform scale
// into dst (column-major, 16 floats).
func writeMatrix(dst []float32, pos field.Vec3, rot field.Euler, scale float64) {
	m := mgl64.Translate3D(pos.X, pos.Y, pos.Z).
		Mul4(mgl64.HomogRotate3DX(rot.X)).
		Mul4(mgl64.HomogRotate3DY(rot.Y)).
		Mul4(mgl64.HomogRotate3DZ(rot.Z)).
		Mul4(mgl64.Scale3D(scale, scale, scale))
	for i, v := range m {
		dst[i] = float32(v)
	}
}
