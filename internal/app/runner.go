package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"morphtree/internal/sim"
	"morphtree/internal/stream"
)

// MaxDelta caps a single tick so a stalled frame cannot fling particles.
const MaxDelta = 0.1

// Chimer is told about every mode change.
type Chimer interface {
	Play(mode sim.Mode)
}

// Remote is a frame sink that can also ask for mode changes.
type Remote interface {
	Requests() <-chan stream.Request
	Broadcast(f stream.Frame)
}

// Runner drives the simulation from a display loop.
type Runner struct {
	log     zerolog.Logger
	sim     *sim.Simulator
	display Display
	remote  Remote
	chimes  Chimer

	topper *sim.Topper
	orbit  Orbit
	mode   sim.Mode

	fps         int
	autoToggle  float64
	sinceToggle float64
	now         func() time.Time
}

type RunnerOption func(*Runner) error

// WithRemote streams frames to r and accepts its mode requests.
func WithRemote(r Remote) RunnerOption {
	return func(rn *Runner) error {
		rn.remote = r
		return nil
	}
}

func WithChimes(c Chimer) RunnerOption {
	return func(rn *Runner) error {
		rn.chimes = c
		return nil
	}
}

func WithLogger(log zerolog.Logger) RunnerOption {
	return func(rn *Runner) error {
		rn.log = log
		return nil
	}
}

// WithFPS sets the tick rate of Run.
func WithFPS(fps int) RunnerOption {
	return func(rn *Runner) error {
		if fps <= 0 {
			return fmt.Errorf("%w: fps %d must be positive", sim.ErrInvalidArgument, fps)
		}
		rn.fps = fps
		return nil
	}
}

// WithAutoToggle flips the mode every period seconds; 0 disables it.
func WithAutoToggle(period float64) RunnerOption {
	return func(rn *Runner) error {
		if period < 0 || math.IsNaN(period) || math.IsInf(period, 0) {
			return fmt.Errorf("%w: auto toggle period %v", sim.ErrInvalidArgument, period)
		}
		rn.autoToggle = period
		return nil
	}
}

// WithStartMode sets the initial mode; the default is Scattered.
func WithStartMode(m sim.Mode) RunnerOption {
	return func(rn *Runner) error {
		if err := m.Validate(); err != nil {
			return err
		}
		rn.mode = m
		return nil
	}
}

func NewRunner(s *sim.Simulator, d Display, opts ...RunnerOption) (*Runner, error) {
	if s == nil || d == nil {
		return nil, fmt.Errorf("%w: runner needs a simulator and a display", sim.ErrInvalidArgument)
	}
	r := &Runner{
		log:     zerolog.Nop(),
		sim:     s,
		display: d,
		topper:  sim.NewTopper(),
		mode:    sim.Scattered,
		fps:     60,
		now:     time.Now,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Runner) Mode() sim.Mode            { return r.mode }
func (r *Runner) Simulator() *sim.Simulator { return r.sim }
func (r *Runner) Topper() sim.Topper        { return *r.topper }
func (r *Runner) CameraYaw() float64        { return r.orbit.Yaw }

// Step runs one tick: gather toggles, advance, draw, broadcast. dt is
// clamped to [0, MaxDelta]. It reports true once the display asked to quit.
func (r *Runner) Step(dt float64) (quit bool, err error) {
	dt = clampDelta(dt)

	in := r.display.Poll()
	if in.Quit {
		return true, nil
	}

	next := r.mode
	if in.Toggle {
		next = next.Toggle()
	}
	next = r.drainRequests(next)
	if r.autoToggle > 0 && next == r.mode {
		r.sinceToggle += dt
		if r.sinceToggle >= r.autoToggle {
			next = next.Toggle()
		}
	}
	r.setMode(next)

	cubes, spheres, err := r.sim.Advance(dt, r.mode)
	if err != nil {
		return false, fmt.Errorf("advance: %w", err)
	}
	if err := r.topper.Update(dt, r.mode); err != nil {
		return false, fmt.Errorf("topper: %w", err)
	}
	r.orbit.Update(dt, r.mode)

	f := Frame{
		Tick:      r.sim.Ticks(),
		DT:        dt,
		Clock:     r.sim.Clock(),
		Mode:      r.mode,
		Cubes:     cubes,
		Spheres:   spheres,
		Topper:    *r.topper,
		CameraYaw: r.orbit.Yaw,
	}
	if err := r.display.Present(f); err != nil {
		return false, fmt.Errorf("present: %w", err)
	}
	if r.remote != nil {
		r.remote.Broadcast(stream.Frame{
			Tick:    f.Tick,
			Mode:    f.Mode,
			Clock:   f.Clock,
			Cubes:   cubes,
			Spheres: spheres,
		})
	}
	return false, nil
}

// Run ticks at the configured rate until the display quits or ctx ends.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(r.fps))
	defer ticker.Stop()

	r.log.Info().Int("fps", r.fps).Str("mode", r.mode.String()).Msg("running")
	last := r.now()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Uint64("ticks", r.sim.Ticks()).Msg("stopped")
			return nil
		case <-ticker.C:
		}

		now := r.now()
		dt := now.Sub(last).Seconds()
		last = now

		quit, err := r.Step(dt)
		if err != nil {
			return err
		}
		if quit {
			r.log.Info().Uint64("ticks", r.sim.Ticks()).Msg("quit requested")
			return nil
		}
	}
}

func (r *Runner) drainRequests(mode sim.Mode) sim.Mode {
	if r.remote == nil {
		return mode
	}
	for {
		select {
		case req := <-r.remote.Requests():
			mode = req.Apply(mode)
		default:
			return mode
		}
	}
}

func (r *Runner) setMode(m sim.Mode) {
	if m == r.mode {
		return
	}
	r.log.Info().Str("from", r.mode.String()).Str("to", m.String()).Float64("clock", r.sim.Clock()).Msg("mode changed")
	r.mode = m
	r.sinceToggle = 0
	if r.chimes != nil {
		r.chimes.Play(m)
	}
}

func clampDelta(dt float64) float64 {
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	return math.Min(dt, MaxDelta)
}
