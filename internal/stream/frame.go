package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"morphtree/internal/field"
	"morphtree/internal/sim"
)

// Wire header.
const (
	Magic   = "MTRF"
	Version = 1

	headerSize = len(Magic) + 1 + 8 + 1 + 8 + 4 + 4
)

var ErrBadFrame = errors.New("bad frame")

// Frame is one tick's worth of instance data.
type Frame struct {
	Tick    uint64
	Mode    sim.Mode
	Clock   float64
	Cubes   *sim.Batch
	Spheres *sim.Batch
}

// Encode appends the little-endian wire form of f to dst.
//
//	"MTRF" | version u8 | tick u64 | mode u8 | clock f64 | cubes u32 | spheres u32
//	cube matrices | cube colours | sphere matrices | sphere colours   (all f32)
func Encode(dst []byte, f Frame) []byte {
	nc, ns := batchLen(f.Cubes), batchLen(f.Spheres)
	need := headerSize + (nc+ns)*(sim.MatrixFloats+sim.ColorFloats)*4
	if cap(dst)-len(dst) < need {
		grown := make([]byte, len(dst), len(dst)+need)
		copy(grown, dst)
		dst = grown
	}

	le := binary.LittleEndian
	dst = append(dst, Magic...)
	dst = append(dst, Version)
	dst = le.AppendUint64(dst, f.Tick)
	dst = append(dst, byte(f.Mode))
	dst = le.AppendUint64(dst, math.Float64bits(f.Clock))
	dst = le.AppendUint32(dst, uint32(nc))
	dst = le.AppendUint32(dst, uint32(ns))
	for _, b := range []*sim.Batch{f.Cubes, f.Spheres} {
		if b == nil {
			continue
		}
		dst = appendFloats(dst, b.Matrices)
		dst = appendFloats(dst, b.Colors)
	}
	return dst
}

// Decode parses a frame produced by Encode. The returned batches own fresh
// buffers.
func Decode(b []byte) (Frame, error) {
	if len(b) < headerSize {
		return Frame{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrBadFrame, len(b))
	}
	if string(b[:4]) != Magic {
		return Frame{}, fmt.Errorf("%w: magic %q", ErrBadFrame, b[:4])
	}
	if b[4] != Version {
		return Frame{}, fmt.Errorf("%w: unsupported version %d", ErrBadFrame, b[4])
	}

	le := binary.LittleEndian
	var f Frame
	f.Tick = le.Uint64(b[5:])
	f.Mode = sim.Mode(b[13])
	if err := f.Mode.Validate(); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	f.Clock = math.Float64frombits(le.Uint64(b[14:]))
	nc := int(le.Uint32(b[22:]))
	ns := int(le.Uint32(b[26:]))

	body := b[headerSize:]
	if want := (nc + ns) * (sim.MatrixFloats + sim.ColorFloats) * 4; len(body) != want {
		return Frame{}, fmt.Errorf("%w: body is %d bytes, want %d", ErrBadFrame, len(body), want)
	}
	f.Cubes, body = readBatch(body, field.ClassCube, nc)
	f.Spheres, _ = readBatch(body, field.ClassSphere, ns)
	return f, nil
}

func batchLen(b *sim.Batch) int {
	if b == nil {
		return 0
	}
	return b.Len()
}

func appendFloats(dst []byte, fs []float32) []byte {
	for _, v := range fs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func readFloats(src []byte, n int) ([]float32, []byte) {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return out, src[n*4:]
}

func readBatch(src []byte, c field.Class, n int) (*sim.Batch, []byte) {
	b := &sim.Batch{Class: c}
	b.Matrices, src = readFloats(src, n*sim.MatrixFloats)
	b.Colors, src = readFloats(src, n*sim.ColorFloats)
	return b, src
}
