package app

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morphtree/internal/field"
	"morphtree/internal/sim"
	"morphtree/internal/stream"
)

type fakeDisplay struct {
	inputs  []Input
	frames  []Frame
	presErr error
	closed  bool
}

func (d *fakeDisplay) Poll() Input {
	if len(d.inputs) == 0 {
		return Input{}
	}
	in := d.inputs[0]
	d.inputs = d.inputs[1:]
	return in
}

func (d *fakeDisplay) Present(f Frame) error {
	d.frames = append(d.frames, f)
	return d.presErr
}

func (d *fakeDisplay) Close() { d.closed = true }

type fakeChimes struct{ played []sim.Mode }

func (c *fakeChimes) Play(m sim.Mode) { c.played = append(c.played, m) }

type fakeRemote struct {
	reqs   chan stream.Request
	frames []stream.Frame
}

func newFakeRemote() *fakeRemote { return &fakeRemote{reqs: make(chan stream.Request, 8)} }

func (r *fakeRemote) Requests() <-chan stream.Request { return r.reqs }
func (r *fakeRemote) Broadcast(f stream.Frame)        { r.frames = append(r.frames, f) }

func newTestRunner(t *testing.T, d Display, opts ...RunnerOption) *Runner {
	t.Helper()
	set, err := field.Generate(200, 42)
	require.NoError(t, err)
	s, err := sim.New(set)
	require.NoError(t, err)
	r, err := NewRunner(s, d, opts...)
	require.NoError(t, err)
	return r
}

func TestNewRunner_RejectsBadInput(t *testing.T) {
	_, err := NewRunner(nil, Headless())
	assert.True(t, errors.Is(err, sim.ErrInvalidArgument))

	set, err := field.Generate(10, 1)
	require.NoError(t, err)
	s, err := sim.New(set)
	require.NoError(t, err)

	_, err = NewRunner(s, Headless(), WithFPS(0))
	assert.True(t, errors.Is(err, sim.ErrInvalidArgument))
	_, err = NewRunner(s, Headless(), WithAutoToggle(-1))
	assert.True(t, errors.Is(err, sim.ErrInvalidArgument))
	_, err = NewRunner(s, Headless(), WithStartMode(sim.Mode(9)))
	assert.True(t, errors.Is(err, sim.ErrInvalidArgument))
}

func TestStep_ClampsDelta(t *testing.T) {
	r := newTestRunner(t, Headless())

	_, err := r.Step(5)
	require.NoError(t, err)
	assert.InDelta(t, MaxDelta, r.Simulator().Clock(), 1e-12)

	for _, dt := range []float64{-1, math.NaN()} {
		_, err = r.Step(dt)
		require.NoError(t, err)
	}
	assert.InDelta(t, MaxDelta, r.Simulator().Clock(), 1e-12)
}

func TestStep_DisplayToggle(t *testing.T) {
	d := &fakeDisplay{inputs: []Input{{}, {Toggle: true}, {}, {Toggle: true}}}
	chimes := &fakeChimes{}
	r := newTestRunner(t, d, WithChimes(chimes))

	var modes []sim.Mode
	for range 4 {
		quit, err := r.Step(0.016)
		require.NoError(t, err)
		require.False(t, quit)
		modes = append(modes, r.Mode())
	}
	assert.Equal(t, []sim.Mode{sim.Scattered, sim.Assembled, sim.Assembled, sim.Scattered}, modes)
	assert.Equal(t, []sim.Mode{sim.Assembled, sim.Scattered}, chimes.played)

	require.Len(t, d.frames, 4)
	assert.Equal(t, sim.Assembled, d.frames[1].Mode, "the tick that toggles already uses the new mode")
	assert.Equal(t, uint64(4), d.frames[3].Tick)
}

func TestStep_QuitStopsBeforeAdvancing(t *testing.T) {
	d := &fakeDisplay{inputs: []Input{{Quit: true}}}
	r := newTestRunner(t, d)

	quit, err := r.Step(0.016)
	require.NoError(t, err)
	assert.True(t, quit)
	assert.Zero(t, r.Simulator().Ticks())
	assert.Empty(t, d.frames)
}

func TestStep_AutoToggle(t *testing.T) {
	r := newTestRunner(t, Headless(), WithAutoToggle(0.25))

	for range 2 {
		_, err := r.Step(0.1)
		require.NoError(t, err)
	}
	assert.Equal(t, sim.Scattered, r.Mode())

	_, err := r.Step(0.1)
	require.NoError(t, err)
	assert.Equal(t, sim.Assembled, r.Mode())

	// The timer restarts after each flip.
	for range 2 {
		_, err = r.Step(0.1)
		require.NoError(t, err)
	}
	assert.Equal(t, sim.Assembled, r.Mode())
	_, err = r.Step(0.1)
	require.NoError(t, err)
	assert.Equal(t, sim.Scattered, r.Mode())
}

func TestStep_RemoteRequestsAndBroadcast(t *testing.T) {
	remote := newFakeRemote()
	r := newTestRunner(t, Headless(), WithRemote(remote))

	remote.reqs <- stream.Request{Mode: sim.Assembled}
	remote.reqs <- stream.Request{Toggle: true}
	remote.reqs <- stream.Request{Toggle: true}
	_, err := r.Step(0.016)
	require.NoError(t, err)
	assert.Equal(t, sim.Assembled, r.Mode())

	require.Len(t, remote.frames, 1)
	f := remote.frames[0]
	assert.Equal(t, sim.Assembled, f.Mode)
	assert.Equal(t, uint64(1), f.Tick)
	set := r.Simulator().Set()
	assert.Equal(t, set.Counts[field.ClassCube], f.Cubes.Len())
	assert.Equal(t, set.Counts[field.ClassSphere], f.Spheres.Len())
}

func TestStep_PresentErrorSurfaces(t *testing.T) {
	boom := errors.New("boom")
	r := newTestRunner(t, &fakeDisplay{presErr: boom})
	_, err := r.Step(0.016)
	assert.ErrorIs(t, err, boom)
}

func TestStep_OrbitOnlyWhileScattered(t *testing.T) {
	r := newTestRunner(t, Headless())
	_, err := r.Step(0.1)
	require.NoError(t, err)
	assert.InDelta(t, OrbitSpeed*0.1, r.CameraYaw(), 1e-12)

	r2 := newTestRunner(t, Headless(), WithStartMode(sim.Assembled))
	_, err = r2.Step(0.1)
	require.NoError(t, err)
	assert.Zero(t, r2.CameraYaw())
}

func TestStep_TopperFollowsMode(t *testing.T) {
	r := newTestRunner(t, Headless(), WithStartMode(sim.Assembled))
	for range 200 {
		_, err := r.Step(0.05)
		require.NoError(t, err)
	}
	tp := r.Topper()
	assert.InDelta(t, sim.TopperAssembledY, tp.Y, 1e-3)
	assert.InDelta(t, sim.TopperTreeScale, tp.Scale, 1e-3)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	r := newTestRunner(t, Headless(), WithFPS(200))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Run(ctx))
	assert.Positive(t, r.Simulator().Ticks())
}

func TestRun_StopsOnQuit(t *testing.T) {
	d := &fakeDisplay{inputs: []Input{{}, {}, {Quit: true}}}
	r := newTestRunner(t, d, WithFPS(500))

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on quit")
	}
	assert.Equal(t, uint64(2), r.Simulator().Ticks())
}

func TestOrbit_Wraps(t *testing.T) {
	o := Orbit{Yaw: 2*math.Pi - 0.001}
	o.Update(0.1, sim.Scattered)
	assert.InDelta(t, OrbitSpeed*0.1-0.001, o.Yaw, 1e-9)
}
