//go:build !android

package render

import "github.com/go-gl/glfw/v3.3/glfw"

// keyEdges turns held keys into single presses.
type keyEdges struct {
	prev map[glfw.Key]bool
}

func newKeyEdges() *keyEdges {
	return &keyEdges{prev: make(map[glfw.Key]bool)}
}

func (k *keyEdges) justPressed(window *glfw.Window, key glfw.Key) bool {
	down := window.GetKey(key) == glfw.Press
	jp := down && !k.prev[key]
	k.prev[key] = down
	return jp
}
