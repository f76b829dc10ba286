package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"morphtree/internal/field"
)

// Record is the mutable state of one particle.
type Record struct {
	Position field.Vec3
	Rotation field.Euler
}

// Simulator advances every particle toward the active target each tick and
// writes the result into two per-class batches.
type Simulator struct {
	set     *field.Set
	records []Record
	batches [field.NumClasses]*Batch
	clock   float64
	ticks   uint64
	workers int

	meter     metric.Meter
	tickCount metric.Int64Counter
	tickTime  metric.Float64Histogram
}

// Option configures a Simulator.
type Option func(*Simulator) error

// WithWorkers shards the per-tick sweep across n goroutines. Output is
// identical to the sequential sweep.
func WithWorkers(n int) Option {
	return func(s *Simulator) error {
		if n < 1 {
			return fmt.Errorf("%w: workers %d must be at least 1", ErrInvalidArgument, n)
		}
		s.workers = n
		return nil
	}
}

// WithMeter overrides the global OTel meter.
func WithMeter(m metric.Meter) Option {
	return func(s *Simulator) error {
		s.meter = m
		return nil
	}
}

// New seeds one record per particle from its scatter pose.
func New(set *field.Set, opts ...Option) (*Simulator, error) {
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("%w: empty particle set", ErrInvalidArgument)
	}
	s := &Simulator{
		set:     set,
		records: make([]Record, set.Len()),
		workers: 1,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.meter == nil {
		s.meter = meter()
	}

	var err error
	s.tickCount, err = s.meter.Int64Counter(
		"morphtree.sim.ticks",
		metric.WithDescription("Simulation ticks advanced"),
	)
	if err != nil {
		return nil, fmt.Errorf("tick counter: %w", err)
	}
	s.tickTime, err = s.meter.Float64Histogram(
		"morphtree.sim.tick.duration",
		metric.WithDescription("Wall time of one particle sweep"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("tick histogram: %w", err)
	}

	for c := range field.NumClasses {
		s.batches[c] = newBatch(field.Class(c), set.Counts[c])
	}
	for i := range set.Particles {
		p := &set.Particles[i]
		s.records[i] = Record{Position: p.Scatter.Position, Rotation: p.Scatter.Rotation}
		s.batches[p.Class].put(set.Slots[i], p.Scatter.Position, p.Scatter.Rotation, p.Scale, p.Color)
	}
	return s, nil
}

func (s *Simulator) Len() int            { return len(s.records) }
func (s *Simulator) Set() *field.Set     { return s.set }
func (s *Simulator) Clock() float64      { return s.clock }
func (s *Simulator) Ticks() uint64       { return s.ticks }
func (s *Simulator) Record(i int) Record { return s.records[i] }

// Batch returns the current output for class c.
func (s *Simulator) Batch(c field.Class) *Batch { return s.batches[c] }

// Advance moves the clock by dt and damps every particle toward the target
// selected by mode. The returned batches are owned by the simulator and are
// rewritten on the next call. On error nothing changes.
func (s *Simulator) Advance(dt float64, mode Mode) (cubes, spheres *Batch, err error) {
	if !validDelta(dt) {
		return nil, nil, fmt.Errorf("%w: delta %v must be finite and non-negative", ErrInvalidArgument, dt)
	}
	if err = mode.Validate(); err != nil {
		return nil, nil, err
	}
	next := s.clock + dt
	if math.IsInf(next, 0) {
		return nil, nil, fmt.Errorf("%w: delta %v overflows clock %v", ErrInvalidArgument, dt, s.clock)
	}

	start := time.Now()
	s.clock = next
	s.ticks++
	f := computeFactors(s.clock, dt, mode)

	n := len(s.records)
	if s.workers <= 1 || n < s.workers*64 {
		s.sweep(0, n, f)
	} else {
		var wg sync.WaitGroup
		chunk := (n + s.workers - 1) / s.workers
		for lo := 0; lo < n; lo += chunk {
			hi := min(lo+chunk, n)
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.sweep(lo, hi, f)
			}()
		}
		wg.Wait()
	}

	attrs := metric.WithAttributes(attribute.String("mode", mode.String()))
	s.tickCount.Add(context.Background(), 1, attrs)
	s.tickTime.Record(context.Background(), time.Since(start).Seconds(), attrs)

	return s.batches[field.ClassCube], s.batches[field.ClassSphere], nil
}

// sweep updates particles [lo, hi). Each particle writes only its own record
// and its own precomputed batch slot.
func (s *Simulator) sweep(lo, hi int, f tickFactors) {
	parts := s.set.Particles
	for i := lo; i < hi; i++ {
		p := &parts[i]
		rec := &s.records[i]

		target := p.Scatter
		if f.assembled {
			target = p.Tree
		}

		dest := idleDestination(target.Position, p.Speed, i, f.clock, f.intensity)
		rec.Position.X = damp(rec.Position.X, dest.X, f.posK)
		rec.Position.Y = damp(rec.Position.Y, dest.Y, f.posK)
		rec.Position.Z = damp(rec.Position.Z, dest.Z, f.posK)

		rec.Rotation.X = damp(rec.Rotation.X, target.Rotation.X, f.rotK)
		rec.Rotation.Y = damp(rec.Rotation.Y, target.Rotation.Y+f.yawDrift, f.rotK)
		rec.Rotation.Z = damp(rec.Rotation.Z, target.Rotation.Z, f.rotK)

		s.batches[p.Class].put(s.set.Slots[i], rec.Position, rec.Rotation, p.Scale, p.Color)
	}
}

// Destination returns where particle i is heading under mode at the
// current clock, idle offset included.
func (s *Simulator) Destination(i int, mode Mode) field.Vec3 {
	p := &s.set.Particles[i]
	if mode == Assembled {
		return idleDestination(p.Tree.Position, p.Speed, i, s.clock, floatAssembled)
	}
	return idleDestination(p.Scatter.Position, p.Speed, i, s.clock, floatScattered)
}

// idleDestination adds the float offset to X and Y. The particle index is
// its phase so neighbours drift out of step.
func idleDestination(target field.Vec3, speed float64, i int, clock, intensity float64) field.Vec3 {
	phase := float64(i)
	return field.Vec3{
		X: target.X + math.Sin(clock*speed+phase)*intensity,
		Y: target.Y + math.Cos(clock*speed*floatYRatio+phase)*intensity,
		Z: target.Z,
	}
}
