package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"
	"github.com/rs/zerolog"

	"morphtree/internal/sim"
)

// Chimes plays a short bell arpeggio whenever the mode changes.
type Chimes struct {
	ctx    *oto.Context
	ready  chan struct{}
	volume float64
	log    zerolog.Logger

	clips [2][]byte
	wg    sync.WaitGroup
}

// NewChimes opens the sound device. Clips are synthesized up front.
func NewChimes(volume float64, log zerolog.Logger) (*Chimes, error) {
	ctx, ready, err := oto.NewContext(SampleRate, ChannelCount, oto.FormatFloat32LE)
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	c := &Chimes{ctx: ctx, ready: ready, volume: volume, log: log}
	c.clips[sim.Scattered] = Chime(sim.Scattered)
	c.clips[sim.Assembled] = Chime(sim.Assembled)
	return c, nil
}

// Play starts the chime for a switch into mode and returns immediately.
// Calls made before the device is ready are dropped.
func (c *Chimes) Play(mode sim.Mode) {
	if c == nil || c.volume <= 0 || mode.Validate() != nil {
		return
	}
	select {
	case <-c.ready:
	default:
		return
	}

	data := c.clips[mode]
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		player := c.ctx.NewPlayer(&soundReader{data: data})
		player.SetVolume(c.volume)
		player.Play()
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			c.log.Debug().Err(err).Msg("closing chime player")
		}
	}()
}

// Wait blocks until every started chime has finished.
func (c *Chimes) Wait() {
	if c != nil {
		c.wg.Wait()
	}
}

type soundReader struct {
	data []byte
	pos  int
}

func (r *soundReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
