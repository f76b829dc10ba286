package field

import (
	"errors"
	"math"
)

// ErrInvalidArgument marks a caller error: bad count, bad delta, unknown mode.
var ErrInvalidArgument = errors.New("invalid argument")

// Vec3 is a float64 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Len() float64    { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Euler is a rotation in radians, applied X then Y then Z.
type Euler struct {
	X, Y, Z float64
}

// Pose is a target placement: where a particle sits and how it is turned.
type Pose struct {
	Position Vec3
	Rotation Euler
}

// Class selects which instanced batch a particle is drawn in.
type Class uint8

const (
	ClassCube   Class = iota // ClassA, roughly 60% of the field
	ClassSphere              // ClassB
)

// NumClasses is the number of visual classes.
const NumClasses = 2

func (c Class) String() string {
	switch c {
	case ClassCube:
		return "cube"
	case ClassSphere:
		return "sphere"
	}
	return "unknown"
}

// Particle is the immutable per-particle dataset produced by Generate.
type Particle struct {
	ID    string
	Index int

	Scatter Pose
	Tree    Pose

	Scale float64
	Color RGB
	Speed float64 // idle oscillation rate; Index doubles as phase offset
	Class Class
}

// Set is a generated field. Particles and the class partition never change
// after Generate returns.
type Set struct {
	Particles []Particle

	// Slots[i] is particle i's position inside its class batch.
	Slots []int
	// Counts holds the population of each class.
	Counts [NumClasses]int

	byClass [NumClasses][]int
}

func (s *Set) Len() int { return len(s.Particles) }

// Members returns the particle indices of class c in particle order.
// The returned slice is shared; callers must not modify it.
func (s *Set) Members(c Class) []int {
	if int(c) >= NumClasses {
		return nil
	}
	return s.byClass[c]
}

// Stats summarizes a field for logging and sanity checks.
type Stats struct {
	Count        int
	Cubes        int
	Spheres      int
	BaseRadius   float64 // mean tree radius over the first decile of indices
	ApexRadius   float64 // mean tree radius over the last decile
	ScatterReach float64 // largest scatter distance from the origin
}

func (s *Set) Stats() Stats {
	st := Stats{
		Count:   len(s.Particles),
		Cubes:   s.Counts[ClassCube],
		Spheres: s.Counts[ClassSphere],
	}
	n := len(s.Particles)
	dec := max(1, n/10)
	for i := range s.Particles {
		p := &s.Particles[i]
		r := math.Hypot(p.Tree.Position.X, p.Tree.Position.Z)
		if i < dec {
			st.BaseRadius += r
		}
		if i >= n-dec {
			st.ApexRadius += r
		}
		if d := p.Scatter.Position.Len(); d > st.ScatterReach {
			st.ScatterReach = d
		}
	}
	if n > 0 {
		st.BaseRadius /= float64(dec)
		st.ApexRadius /= float64(dec)
	}
	return st
}
