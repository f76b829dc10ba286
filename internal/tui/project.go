package tui

import "math"

const (
	viewHalf   = 16.0 // world half-extent fitted to the shorter axis
	cellAspect = 2.0  // cells are roughly twice as tall as wide
)

// projector maps world points onto the grid with an orthographic camera
// orbiting the Y axis.
type projector struct {
	cos, sin float64
	scale    float64
	cx, cy   float64
}

// newProjector fits the scene into w x rows cells.
func newProjector(yaw float64, w, rows int) projector {
	scale := math.Min(float64(w)/(2*viewHalf*cellAspect), float64(rows)/(2*viewHalf))
	return projector{
		cos:   math.Cos(yaw),
		sin:   math.Sin(yaw),
		scale: scale,
		cx:    float64(w) / 2,
		cy:    float64(rows) / 2,
	}
}

// project returns the cell under (x, y, z) and its depth; larger is nearer.
func (p projector) project(x, y, z float64) (col, row int, depth float64) {
	rx := x*p.cos - z*p.sin
	rz := x*p.sin + z*p.cos
	col = int(math.Floor(p.cx + rx*p.scale*cellAspect))
	row = int(math.Floor(p.cy - y*p.scale))
	return col, row, rz
}
