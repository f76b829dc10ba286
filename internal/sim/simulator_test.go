package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"morphtree/internal/field"
)

const frame = 0.016

func newTestSim(t *testing.T, n int, seed uint64, opts ...Option) *Simulator {
	t.Helper()
	set, err := field.Generate(n, seed)
	require.NoError(t, err)
	s, err := New(set, opts...)
	require.NoError(t, err)
	return s
}

func advanceFor(t *testing.T, s *Simulator, seconds, dt float64, mode Mode) {
	t.Helper()
	for range int(math.Round(seconds / dt)) {
		_, _, err := s.Advance(dt, mode)
		require.NoError(t, err)
	}
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	set, err := field.Generate(10, 1)
	require.NoError(t, err)
	_, err = New(set, WithWorkers(0))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestNew_WithMeter(t *testing.T) {
	set, err := field.Generate(10, 1)
	require.NoError(t, err)
	s, err := New(set, WithMeter(noop.NewMeterProvider().Meter("test")))
	require.NoError(t, err)
	_, _, err = s.Advance(frame, Assembled)
	assert.NoError(t, err)
}

func TestNew_StartsAtScatterTargets(t *testing.T) {
	s := newTestSim(t, 500, 5)
	set := s.Set()
	for i, p := range set.Particles {
		rec := s.Record(i)
		assert.Equal(t, p.Scatter.Position, rec.Position)
		assert.Equal(t, p.Scatter.Rotation, rec.Rotation)

		got := s.Batch(p.Class).Position(set.Slots[i])
		assert.InDelta(t, p.Scatter.Position.X, got.X, 1e-5)
		assert.InDelta(t, p.Scatter.Position.Y, got.Y, 1e-5)
		assert.InDelta(t, p.Scatter.Position.Z, got.Z, 1e-5)
	}
	assert.Zero(t, s.Clock())
}

func TestAdvance_RejectsBadDelta(t *testing.T) {
	s := newTestSim(t, 50, 1)
	before := s.Record(3)
	for _, dt := range []float64{-0.001, math.NaN(), math.Inf(1), math.Inf(-1)} {
		a, b, err := s.Advance(dt, Assembled)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
		assert.Nil(t, a)
		assert.Nil(t, b)
	}
	assert.Zero(t, s.Clock())
	assert.Zero(t, s.Ticks())
	assert.Equal(t, before, s.Record(3))
}

func TestAdvance_RejectsClockOverflow(t *testing.T) {
	s := newTestSim(t, 50, 1)
	_, _, err := s.Advance(math.MaxFloat64, Scattered)
	require.NoError(t, err)
	before := s.Record(3)

	a, b, err := s.Advance(math.MaxFloat64, Scattered)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Nil(t, a)
	assert.Nil(t, b)
	assert.Equal(t, math.MaxFloat64, s.Clock())
	assert.Equal(t, uint64(1), s.Ticks())
	assert.Equal(t, before, s.Record(3))

	_, _, err = s.Advance(frame, Scattered)
	require.NoError(t, err)
	for i := range s.Len() {
		p := s.Record(i).Position
		require.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z), "particle %d: %+v", i, p)
	}
}

func TestAdvance_RejectsUnknownMode(t *testing.T) {
	s := newTestSim(t, 50, 1)
	_, _, err := s.Advance(frame, Mode(7))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Zero(t, s.Clock())
}

func TestAdvance_ZeroDeltaKeepsPositions(t *testing.T) {
	s := newTestSim(t, 100, 8)
	_, _, err := s.Advance(0, Assembled)
	require.NoError(t, err)
	for i, p := range s.Set().Particles {
		assert.Equal(t, p.Scatter.Position, s.Record(i).Position)
	}
}

func TestAdvance_FirstScatteredTickBarelyMoves(t *testing.T) {
	s := newTestSim(t, 2000, 42)
	_, _, err := s.Advance(frame, Scattered)
	require.NoError(t, err)

	for i, p := range s.Set().Particles {
		d := s.Record(i).Position.Sub(p.Scatter.Position)
		assert.LessOrEqual(t, math.Abs(d.X), 0.5)
		assert.LessOrEqual(t, math.Abs(d.Y), 0.5)
		assert.Zero(t, d.Z, "idle motion never touches Z")
	}
}

func TestAdvance_ConvergesToTree(t *testing.T) {
	s := newTestSim(t, 2000, 42)
	advanceFor(t, s, 10, frame, Assembled)

	for i := range s.Set().Particles {
		d := s.Record(i).Position.Sub(s.Destination(i, Assembled))
		require.Less(t, d.Len(), 0.05, "particle %d", i)
	}
}

func TestAdvance_TimeSplittingIsStable(t *testing.T) {
	set, err := field.Generate(2000, 11)
	require.NoError(t, err)
	one, err := New(set)
	require.NoError(t, err)
	ten, err := New(set)
	require.NoError(t, err)

	_, _, err = one.Advance(1.0, Assembled)
	require.NoError(t, err)
	for range 10 {
		_, _, err = ten.Advance(0.1, Assembled)
		require.NoError(t, err)
	}

	assert.InDelta(t, one.Clock(), ten.Clock(), 1e-12)
	for i := range set.Particles {
		a, b := one.Record(i), ten.Record(i)
		assert.InDelta(t, a.Position.X, b.Position.X, 1e-2)
		assert.InDelta(t, a.Position.Y, b.Position.Y, 1e-2)
		assert.InDelta(t, a.Position.Z, b.Position.Z, 1e-9)
		assert.InDelta(t, a.Rotation.X, b.Rotation.X, 1e-9)
		assert.InDelta(t, a.Rotation.Y, b.Rotation.Y, 1e-9)
		assert.InDelta(t, a.Rotation.Z, b.Rotation.Z, 1e-9)
	}
}

func TestAdvance_ToggleMidFlightNeverJumps(t *testing.T) {
	s := newTestSim(t, 2000, 42)
	posK := -math.Expm1(-positionRate * frame)
	// Everything lives inside a 60-unit box, so no step may exceed this.
	maxStep := 60 * posK

	prev := make([]field.Vec3, s.Len())
	for i := range prev {
		prev[i] = s.Record(i).Position
	}
	for _, mode := range []Mode{Assembled, Scattered} {
		for range int(2 / frame) {
			_, _, err := s.Advance(frame, mode)
			require.NoError(t, err)
			for i := range prev {
				cur := s.Record(i).Position
				step := cur.Sub(prev[i]).Len()
				allowed := s.Destination(i, mode).Sub(prev[i]).Len() * posK
				require.LessOrEqual(t, step, allowed+1e-9, "particle %d", i)
				require.LessOrEqual(t, step, maxStep, "particle %d", i)
				prev[i] = cur
			}
		}
	}
}

func TestAdvance_ClassesStayPut(t *testing.T) {
	s := newTestSim(t, 1000, 21)
	set := s.Set()
	classes := make([]field.Class, set.Len())
	for i, p := range set.Particles {
		classes[i] = p.Class
	}

	mode := Scattered
	for tick := range 300 {
		if tick%50 == 0 {
			mode = mode.Toggle()
		}
		cubes, spheres, err := s.Advance(frame, mode)
		require.NoError(t, err)
		require.Equal(t, set.Counts[field.ClassCube], cubes.Len())
		require.Equal(t, set.Counts[field.ClassSphere], spheres.Len())
		assert.Equal(t, field.ClassCube, cubes.Class)
		assert.Equal(t, field.ClassSphere, spheres.Class)
	}
	for i, p := range set.Particles {
		assert.Equal(t, classes[i], p.Class)

		b := s.Batch(p.Class)
		pos := b.Position(set.Slots[i])
		assert.InDelta(t, s.Record(i).Position.X, pos.X, 1e-4)
		assert.InDelta(t, s.Record(i).Position.Y, pos.Y, 1e-4)
		assert.InDelta(t, s.Record(i).Position.Z, pos.Z, 1e-4)

		r, g, bl := b.Color(set.Slots[i])
		wr, wg, wb := p.Color.Float32()
		assert.Equal(t, [3]float32{wr, wg, wb}, [3]float32{r, g, bl})
	}
}

func TestAdvance_ShardedMatchesSequential(t *testing.T) {
	set, err := field.Generate(3000, 77)
	require.NoError(t, err)
	seq, err := New(set)
	require.NoError(t, err)
	par, err := New(set, WithWorkers(4))
	require.NoError(t, err)

	mode := Scattered
	for tick := range 120 {
		if tick%40 == 0 {
			mode = mode.Toggle()
		}
		a1, b1, err := seq.Advance(frame, mode)
		require.NoError(t, err)
		a2, b2, err := par.Advance(frame, mode)
		require.NoError(t, err)
		require.Equal(t, a1.Matrices, a2.Matrices)
		require.Equal(t, b1.Matrices, b2.Matrices)
	}
}

func TestAdvance_YawDriftsOnlyWhileScattered(t *testing.T) {
	s := newTestSim(t, 1, 4)
	p := s.Set().Particles[0]

	advanceFor(t, s, 20, frame, Scattered)
	// A ramping target is tracked with a constant steady-state lag.
	k := -math.Expm1(-rotationRate * frame)
	lag := (1 - k) * scatterYawDrift * frame / k
	want := p.Scatter.Rotation.Y + s.Clock()*scatterYawDrift - lag
	assert.InDelta(t, want, s.Record(0).Rotation.Y, 1e-3)

	advanceFor(t, s, 20, frame, Assembled)
	assert.InDelta(t, p.Tree.Rotation.Y, s.Record(0).Rotation.Y, 1e-3)
	assert.InDelta(t, p.Tree.Rotation.X, s.Record(0).Rotation.X, 1e-6)
}

func TestWriteMatrix(t *testing.T) {
	m := make([]float32, 16)
	writeMatrix(m, field.Vec3{X: 1, Y: 2, Z: 3}, field.Euler{}, 2)
	assert.Equal(t, []float32{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		1, 2, 3, 1,
	}, m)

	// Quarter turn about Y sends +X to -Z.
	writeMatrix(m, field.Vec3{}, field.Euler{Y: math.Pi / 2}, 1)
	assert.InDelta(t, 0, m[0], 1e-7)
	assert.InDelta(t, 0, m[1], 1e-7)
	assert.InDelta(t, -1, m[2], 1e-7)
	assert.InDelta(t, 1, m[8], 1e-7)

	// General pose against the closed-form XYZ Euler matrix.
	rot := field.Euler{X: 0.7, Y: -1.3, Z: 2.1}
	writeMatrix(m, field.Vec3{X: -4, Y: 5, Z: 0.5}, rot, 0.6)
	a, b := math.Cos(rot.X), math.Sin(rot.X)
	c, d := math.Cos(rot.Y), math.Sin(rot.Y)
	e, f := math.Cos(rot.Z), math.Sin(rot.Z)
	want := []float64{
		c * e, a*f + b*e*d, b*f - a*e*d, 0,
		-c * f, a*e - b*f*d, b*e + a*f*d, 0,
		d, -b * c, a * c, 0,
	}
	for i, w := range want {
		assert.InDelta(t, w*0.6, m[i], 1e-6, "element %d", i)
	}
	assert.Equal(t, []float32{-4, 5, 0.5, 1}, m[12:])
}
