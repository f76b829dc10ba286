package sim

import (
	"fmt"
	"math"

	"morphtree/internal/field"
)

// Star topper placement, in the same space as the tree targets.
const (
	TopperStartY     = 22.0
	TopperAssembledY = 14.0 // just above the apex
	TopperScatteredY = 27.0 // parked out of frame
	TopperStartScale = 1.0
	TopperTreeScale  = 1.5

	topperSpin = 1.2 // rad/s
)

// Per-second rates equivalent to lerp factors of 0.05 and 0.1 applied
// every frame at 60 fps.
var (
	topperRiseRate  = -60 * math.Log(1-0.05)
	topperScaleRate = -60 * math.Log(1-0.1)
)

// Topper is the star that settles onto the apex while assembled and
// shrinks away while scattered.
type Topper struct {
	Y     float64
	Scale float64
	Spin  float64
}

func NewTopper() *Topper {
	return &Topper{Y: TopperStartY, Scale: TopperStartScale}
}

// Update damps the star toward the mode's placement.
func (t *Topper) Update(dt float64, mode Mode) error {
	if !validDelta(dt) {
		return fmt.Errorf("%w: delta %v must be finite and non-negative", ErrInvalidArgument, dt)
	}
	if err := mode.Validate(); err != nil {
		return err
	}
	spin := t.Spin + topperSpin*dt
	if math.IsInf(spin, 0) {
		return fmt.Errorf("%w: delta %v overflows spin", ErrInvalidArgument, dt)
	}

	targetY, targetScale := TopperScatteredY, 0.0
	if mode == Assembled {
		targetY, targetScale = TopperAssembledY, TopperTreeScale
	}
	t.Y = damp(t.Y, targetY, -math.Expm1(-topperRiseRate*dt))
	t.Scale = damp(t.Scale, targetScale, -math.Expm1(-topperScaleRate*dt))
	t.Spin = math.Mod(spin, 2*math.Pi)
	return nil
}

// Visible reports whether the star is large enough to draw.
func (t *Topper) Visible() bool { return t.Scale > 1e-3 }

// Matrix writes the star's model matrix into dst, which must hold 16 floats.
func (t *Topper) Matrix(dst []float32) {
	writeMatrix(dst, field.Vec3{Y: t.Y}, field.Euler{Y: t.Spin}, t.Scale)
}
