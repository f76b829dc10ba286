package field

import (
	"fmt"
	"math"
)

// Generate builds count particles from seed. The same (count, seed) pair
// always yields the same field.
func Generate(count int, seed uint64) (*Set, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: particle count %d must be positive", ErrInvalidArgument, count)
	}

	r := NewRand(seed)
	s := &Set{
		Particles: make([]Particle, count),
		Slots:     make([]int, count),
	}

	for i := range count {
		t := float64(i) / float64(count)
		p := &s.Particles[i]
		p.ID = fmt.Sprintf("p-%d", i)
		p.Index = i

		// Tree: cone spiral tapering to the apex.
		angle := t * 2 * math.Pi * SpiralTurns
		y := t*TreeHeight - TreeHeight/2
		rad := BaseRadius*(1-t) + r.RangeF(-RadiusJitter/2, RadiusJitter/2)
		p.Tree.Position = Vec3{
			X: math.Cos(angle) * rad,
			Y: y,
			Z: math.Sin(angle) * rad,
		}

		// Scatter: uniform fill of a ball (cbrt keeps it volumetric).
		u := r.Float64()
		v := r.Float64()
		theta := 2 * math.Pi * u
		phi := math.Acos(2*v - 1)
		sr := ScatterRadius * math.Cbrt(r.Float64())
		p.Scatter.Position = Vec3{
			X: sr * math.Sin(phi) * math.Cos(theta),
			Y: sr * math.Sin(phi) * math.Sin(theta),
			Z: sr * math.Cos(phi),
		}

		// Yaw follows the spiral in the tree; scatter tumbles freely.
		p.Tree.Rotation = Euler{X: r.Float64(), Y: -angle, Z: r.Float64()}
		p.Scatter.Rotation = Euler{X: r.Float64() * math.Pi, Y: r.Float64() * math.Pi}

		p.Scale = r.RangeF(ScaleMin, ScaleMax)
		p.Color = Palette[r.Intn(len(Palette))]
		p.Speed = r.RangeF(SpeedMin, SpeedMax)
		if r.Float64() < CubeChance {
			p.Class = ClassCube
		} else {
			p.Class = ClassSphere
		}

		s.Slots[i] = s.Counts[p.Class]
		s.Counts[p.Class]++
		s.byClass[p.Class] = append(s.byClass[p.Class], i)
	}
	return s, nil
}
