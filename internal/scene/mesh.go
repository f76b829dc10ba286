package scene

import "math"

// Instance geometry.
const (
	CubeSize       = 0.6
	SphereRadius   = 0.36
	SphereSegments = 16
	SphereRings    = 16
)

// VertexFloats is the interleaved vertex layout: position xyz, normal xyz.
const VertexFloats = 6

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []float32
	Indices  []uint32
}

// VertexCount returns the number of vertices.
func (m Mesh) VertexCount() int { return len(m.Vertices) / VertexFloats }

// Cube returns an axis-aligned cube centred on the origin with flat
// per-face normals.
func Cube(size float64) Mesh {
	h := float32(size / 2)
	faces := [6]struct {
		n    [3]float32
		u, v [3]float32
	}{
		{n: [3]float32{1, 0, 0}, u: [3]float32{0, 0, -1}, v: [3]float32{0, 1, 0}},
		{n: [3]float32{-1, 0, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{0, 1, 0}},
		{n: [3]float32{0, 1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, -1}},
		{n: [3]float32{0, -1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, 1}},
		{n: [3]float32{0, 0, 1}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 1, 0}},
		{n: [3]float32{0, 0, -1}, u: [3]float32{-1, 0, 0}, v: [3]float32{0, 1, 0}},
	}

	var m Mesh
	for fi, f := range faces {
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			for k := 0; k < 3; k++ {
				m.Vertices = append(m.Vertices, (f.n[k]+c[0]*f.u[k]+c[1]*f.v[k])*h)
			}
			m.Vertices = append(m.Vertices, f.n[0], f.n[1], f.n[2])
		}
		base := uint32(fi * 4)
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// UVSphere returns a latitude/longitude sphere. Normals point outward.
func UVSphere(radius float64, segments, rings int) Mesh {
	var m Mesh
	for r := 0; r <= rings; r++ {
		theta := float64(r) * math.Pi / float64(rings)
		st, ct := math.Sin(theta), math.Cos(theta)
		for s := 0; s <= segments; s++ {
			phi := float64(s) * 2 * math.Pi / float64(segments)
			nx, ny, nz := -math.Cos(phi)*st, ct, math.Sin(phi)*st
			m.Vertices = append(m.Vertices,
				float32(nx*radius), float32(ny*radius), float32(nz*radius),
				float32(nx), float32(ny), float32(nz))
		}
	}

	stride := uint32(segments + 1)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := uint32(r)*stride + uint32(s)
			b := a + stride
			m.Indices = append(m.Indices, a, b, a+1, b, b+1, a+1)
		}
	}
	return m
}
