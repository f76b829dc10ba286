package app

import (
	"math"

	"morphtree/internal/sim"
)

// Input is what a display collected since the last Poll.
type Input struct {
	Toggle bool
	Quit   bool
}

// Frame is everything a display needs to draw one tick. Batches are owned
// by the simulator and are only valid until the next tick.
type Frame struct {
	Tick      uint64
	DT        float64
	Clock     float64
	Mode      sim.Mode
	Cubes     *sim.Batch
	Spheres   *sim.Batch
	Topper    sim.Topper
	CameraYaw float64 // radians around +Y
}

// Display shows frames and reports user input.
type Display interface {
	Poll() Input
	Present(f Frame) error
	Close()
}

// OrbitSpeed is the camera's auto-rotation while scattered, in rad/s.
const OrbitSpeed = 0.052

// Orbit advances the auto-rotating camera angle. The camera holds still
// while the tree is assembled.
type Orbit struct {
	Yaw float64
}

func (o *Orbit) Update(dt float64, mode sim.Mode) {
	if mode == sim.Assembled {
		return
	}
	o.Yaw = math.Mod(o.Yaw+OrbitSpeed*dt, 2*math.Pi)
}

// headless discards frames. It never asks to toggle or quit.
type headless struct{}

// Headless returns a display that draws nothing.
func Headless() Display { return headless{} }

func (headless) Poll() Input           { return Input{} }
func (headless) Present(f Frame) error { return nil }
func (headless) Close()                {}
