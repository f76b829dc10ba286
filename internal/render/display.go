//go:build !android

package render

import (
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"morphtree/internal/app"
	"morphtree/internal/scene"
	"morphtree/internal/sim"
)

const windowTitle = "Morph Tree"

// Display is the desktop window. It must be created and used from the
// main goroutine.
type Display struct {
	window *glfw.Window
	rend   *Renderer
	keys   *keyEdges

	titled   bool
	lastMode sim.Mode
}

func New(width, height int) (*Display, error) {
	runtime.LockOSThread()

	window, err := initWindow(width, height, windowTitle)
	if err != nil {
		return nil, err
	}
	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("gl init: %w", err)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.MULTISAMPLE)
	gl.Disable(gl.CULL_FACE)
	gl.ClearColor(0, 0, 0, 1)

	rend, err := NewRenderer()
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("renderer: %w", err)
	}
	return &Display{window: window, rend: rend, keys: newKeyEdges()}, nil
}

// Poll pumps window events. Space or Enter toggles; Escape or closing the
// window quits.
func (d *Display) Poll() app.Input {
	glfw.PollEvents()

	var in app.Input
	space := d.keys.justPressed(d.window, glfw.KeySpace)
	enter := d.keys.justPressed(d.window, glfw.KeyEnter)
	in.Toggle = space != enter
	if d.window.GetKey(glfw.KeyEscape) == glfw.Press {
		d.window.SetShouldClose(true)
	}
	in.Quit = d.window.ShouldClose()
	return in
}

func (d *Display) Present(f app.Frame) error {
	if !d.titled || f.Mode != d.lastMode {
		d.window.SetTitle(fmt.Sprintf("%s | %s [space]", windowTitle, f.Mode.Action()))
		d.titled, d.lastMode = true, f.Mode
	}

	fbW, fbH := d.window.GetFramebufferSize()
	if fbW <= 0 || fbH <= 0 {
		return nil // minimised
	}

	vp := scene.ViewProjection(f.CameraYaw, float64(fbW)/float64(fbH))
	eye := scene.Eye(f.CameraYaw)
	eye.Y -= scene.SceneOffsetY

	d.rend.BeginFrame(vp, eye, fbW, fbH)
	d.rend.DrawBatch(f.Cubes)
	d.rend.DrawBatch(f.Spheres)
	d.rend.DrawTopper(f.Topper)
	d.window.SwapBuffers()

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x", code)
	}
	return nil
}

func (d *Display) Close() {
	d.rend.Destroy()
	d.window.Destroy()
	glfw.Terminate()
}
