//go:build !android

package render

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"morphtree/internal/field"
	"morphtree/internal/scene"
	"morphtree/internal/sim"
)

// topperGlow lifts the star above the scene lighting.
const topperGlow = 0.6

// glOffset converts a byte offset to unsafe.Pointer for OpenGL VBO offset params.
func glOffset(n int) unsafe.Pointer { return unsafe.Pointer(uintptr(n)) }

// meshBuffers is one shared mesh plus its per-instance streams.
type meshBuffers struct {
	vao, vbo, ebo uint32
	modelVBO      uint32
	colorVBO      uint32
	indexCount    int32
	capacity      int // instances the stream buffers currently hold
}

type Renderer struct {
	prog uint32

	uViewProj   int32
	uEye        int32
	uAmbient    int32
	uLightPos   int32
	uLightColor int32
	uEmissive   int32

	meshes [field.NumClasses]meshBuffers
}

func NewRenderer() (*Renderer, error) {
	prog, err := linkProgram(instanceVertSrc, instanceFragSrc)
	if err != nil {
		return nil, fmt.Errorf("instance program: %w", err)
	}
	r := &Renderer{prog: prog}

	gl.UseProgram(prog)
	r.uViewProj = gl.GetUniformLocation(prog, gl.Str("uViewProj\x00"))
	r.uEye = gl.GetUniformLocation(prog, gl.Str("uEye\x00"))
	r.uAmbient = gl.GetUniformLocation(prog, gl.Str("uAmbient\x00"))
	r.uLightPos = gl.GetUniformLocation(prog, gl.Str("uLightPos\x00"))
	r.uLightColor = gl.GetUniformLocation(prog, gl.Str("uLightColor\x00"))
	r.uEmissive = gl.GetUniformLocation(prog, gl.Str("uEmissive\x00"))

	var pos, col [9]float32
	for i, l := range scene.Lights {
		pos[i*3], pos[i*3+1], pos[i*3+2] = float32(l.Pos.X), float32(l.Pos.Y), float32(l.Pos.Z)
		col[i*3], col[i*3+1], col[i*3+2] = l.Color[0], l.Color[1], l.Color[2]
	}
	gl.Uniform3fv(r.uLightPos, 3, &pos[0])
	gl.Uniform3fv(r.uLightColor, 3, &col[0])
	gl.Uniform3f(r.uAmbient, scene.Ambient[0], scene.Ambient[1], scene.Ambient[2])
	gl.Uniform1f(r.uEmissive, 0)

	r.meshes[field.ClassCube] = newMeshBuffers(scene.Cube(scene.CubeSize))
	r.meshes[field.ClassSphere] = newMeshBuffers(scene.UVSphere(scene.SphereRadius, scene.SphereSegments, scene.SphereRings))

	gl.BindVertexArray(0)
	return r, nil
}

func newMeshBuffers(m scene.Mesh) meshBuffers {
	var mb meshBuffers
	gl.GenVertexArrays(1, &mb.vao)
	gl.BindVertexArray(mb.vao)

	gl.GenBuffers(1, &mb.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, mb.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(m.Vertices)*4, gl.Ptr(&m.Vertices[0]), gl.STATIC_DRAW)
	stride := int32(scene.VertexFloats * 4)
	// aPos (vec3)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, glOffset(0))
	// aNormal (vec3)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, glOffset(3*4))

	gl.GenBuffers(1, &mb.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, mb.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(&m.Indices[0]), gl.STATIC_DRAW)
	mb.indexCount = int32(len(m.Indices))

	// aModel (mat4, one vec4 column per location), advanced per instance.
	gl.GenBuffers(1, &mb.modelVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, mb.modelVBO)
	for c := 0; c < 4; c++ {
		loc := uint32(2 + c)
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointer(loc, 4, gl.FLOAT, false, sim.MatrixFloats*4, glOffset(c*4*4))
		gl.VertexAttribDivisor(loc, 1)
	}

	// aColor (vec3), advanced per instance.
	gl.GenBuffers(1, &mb.colorVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, mb.colorVBO)
	gl.EnableVertexAttribArray(6)
	gl.VertexAttribPointer(6, 3, gl.FLOAT, false, sim.ColorFloats*4, glOffset(0))
	gl.VertexAttribDivisor(6, 1)

	return mb
}

func (r *Renderer) Destroy() {
	for i := range r.meshes {
		mb := &r.meshes[i]
		for _, id := range []uint32{mb.vbo, mb.ebo, mb.modelVBO, mb.colorVBO} {
			if id != 0 {
				gl.DeleteBuffers(1, &id)
			}
		}
		if mb.vao != 0 {
			gl.DeleteVertexArrays(1, &mb.vao)
		}
	}
	if r.prog != 0 {
		gl.DeleteProgram(r.prog)
	}
}

// BeginFrame clears the framebuffer and loads the camera. eye is in tree space.
func (r *Renderer) BeginFrame(viewProj mgl32.Mat4, eye field.Vec3, fbW, fbH int) {
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(r.prog)
	gl.UniformMatrix4fv(r.uViewProj, 1, false, &viewProj[0])
	e := scene.Vec(eye)
	gl.Uniform3fv(r.uEye, 1, &e[0])
}

// DrawBatch draws every instance of one class in a single call.
func (r *Renderer) DrawBatch(b *sim.Batch) {
	if b == nil || int(b.Class) >= len(r.meshes) {
		return
	}
	r.drawInstances(&r.meshes[b.Class], b.Matrices, b.Colors, b.Len())
}

// DrawTopper draws the star as a glowing gold cube.
func (r *Renderer) DrawTopper(t sim.Topper) {
	if !t.Visible() {
		return
	}
	var m [sim.MatrixFloats]float32
	t.Matrix(m[:])
	cr, cg, cb := field.ChampagneGold.Float32()
	col := [sim.ColorFloats]float32{cr, cg, cb}

	gl.Uniform1f(r.uEmissive, topperGlow)
	r.drawInstances(&r.meshes[field.ClassCube], m[:], col[:], 1)
	gl.Uniform1f(r.uEmissive, 0)
}

func (r *Renderer) drawInstances(mb *meshBuffers, matrices, colors []float32, n int) {
	if n == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, mb.modelVBO)
	if n > mb.capacity {
		gl.BufferData(gl.ARRAY_BUFFER, n*sim.MatrixFloats*4, gl.Ptr(&matrices[0]), gl.STREAM_DRAW)
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, n*sim.MatrixFloats*4, gl.Ptr(&matrices[0]))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, mb.colorVBO)
	if n > mb.capacity {
		gl.BufferData(gl.ARRAY_BUFFER, n*sim.ColorFloats*4, gl.Ptr(&colors[0]), gl.STREAM_DRAW)
		mb.capacity = n
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, n*sim.ColorFloats*4, gl.Ptr(&colors[0]))
	}

	gl.BindVertexArray(mb.vao)
	gl.DrawElementsInstanced(gl.TRIANGLES, mb.indexCount, gl.UNSIGNED_INT, nil, int32(n))
	gl.BindVertexArray(0)
}
