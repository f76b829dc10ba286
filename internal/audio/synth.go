package audio

import (
	"math"

	"morphtree/internal/sim"
)

const (
	SampleRate   = 44100
	ChannelCount = 2
)

// Bell notes for the assemble chime, low to high (C major over two octaves).
var bellNotes = []float64{523.25, 659.25, 783.99, 1046.5, 1318.51}

const (
	noteStep = 0.09 // seconds between note onsets
	bellTail = 0.45 // ring-out after the last onset
)

// Chime returns the stereo float32 LE clip announcing a switch into mode:
// rising while the tree gathers, falling while it disperses.
func Chime(mode sim.Mode) []byte {
	notes := make([]float64, len(bellNotes))
	copy(notes, bellNotes)
	if mode != sim.Assembled {
		for i, j := 0, len(notes)-1; i < j; i, j = i+1, j-1 {
			notes[i], notes[j] = notes[j], notes[i]
		}
	}
	return bellArpeggio(notes, noteStep, bellTail)
}

// bellArpeggio staggers FM bell notes so each rings over the next.
func bellArpeggio(notes []float64, step, tail float64) []byte {
	stepN := int(step * SampleRate)
	total := len(notes)*stepN + int(tail*SampleRate)
	mix := make([]float64, total)

	for fi, freq := range notes {
		start := fi * stepN
		dur := total - start
		for j := 0; j < dur; j++ {
			t := float64(start+j) / SampleRate
			np := float64(j) / float64(dur)
			env := adsr(np, 0.003, 0.6, 0.05, 0.3)
			s := fm(t, freq, 3.5, 4.5*env) * env * 0.26
			// Octave shimmer.
			s += math.Sin(2*math.Pi*freq*2*t) * env * 0.06
			mix[start+j] += s
		}
	}
	buf := makeBuf(total)
	for i, s := range mix {
		putStereoF32(buf, i, softSat(s))
	}
	return buf
}

// putStereoF32 writes a [-1,1] sample as float32 LE to both stereo channels at frame i.
func putStereoF32(buf []byte, i int, sample float64) {
	v := math.Float32bits(float32(sample))
	buf[i*8] = byte(v)
	buf[i*8+1] = byte(v >> 8)
	buf[i*8+2] = byte(v >> 16)
	buf[i*8+3] = byte(v >> 24)
	buf[i*8+4] = byte(v)
	buf[i*8+5] = byte(v >> 8)
	buf[i*8+6] = byte(v >> 16)
	buf[i*8+7] = byte(v >> 24)
}

// softSat applies gentle tanh-like saturation.
func softSat(x float64) float64 {
	if x > 1.0 {
		return 1.0 - 0.5/(x)
	}
	if x < -1.0 {
		return -1.0 + 0.5/(-x)
	}
	return x - x*x*x/3.0
}

// adsr returns an envelope at normalized progress [0,1].
// attack/decay/release are fractions of the total duration.
func adsr(progress, attack, decay, sustain, release float64) float64 {
	switch {
	case progress < attack:
		return progress / attack
	case progress < attack+decay:
		return 1.0 - (progress-attack)/decay*(1.0-sustain)
	case progress < 1.0-release:
		return sustain
	default:
		return sustain * (1.0 - (progress-(1.0-release))/release)
	}
}

// fm returns an FM-synthesized sample.
// carrier: base frequency, modRatio: modulator/carrier ratio, modIdx: modulation depth.
func fm(t, carrier, modRatio, modIdx float64) float64 {
	mod := math.Sin(2 * math.Pi * carrier * modRatio * t)
	return math.Sin(2*math.Pi*carrier*t + modIdx*mod)
}

// makeBuf allocates a stereo float32 buffer for n samples.
func makeBuf(n int) []byte { return make([]byte, n*8) }
