package tui

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"morphtree/internal/app"
	"morphtree/internal/field"
	"morphtree/internal/sim"
)

var glyphs = [field.NumClasses]rune{
	field.ClassCube:   '■',
	field.ClassSphere: '●',
}

const topperGlyph = '★'

// Display draws frames as coloured glyphs in a terminal.
type Display struct {
	screen tcell.Screen
	depth  []float64
	quit   bool
}

// New opens the controlling terminal.
func New() (*Display, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("tcell screen: %w", err)
	}
	return NewWithScreen(screen)
}

// NewWithScreen takes ownership of screen and initialises it.
func NewWithScreen(screen tcell.Screen) (*Display, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("tcell init: %w", err)
	}
	screen.HideCursor()
	screen.Clear()
	return &Display{screen: screen}, nil
}

// Poll drains pending key events. Space and Enter toggle; Escape, q and
// Ctrl-C quit.
func (d *Display) Poll() app.Input {
	var in app.Input
	for d.screen.HasPendingEvent() {
		switch ev := d.screen.PollEvent().(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				d.quit = true
			case tcell.KeyEnter:
				in.Toggle = !in.Toggle
			case tcell.KeyRune:
				switch ev.Rune() {
				case ' ':
					in.Toggle = !in.Toggle
				case 'q', 'Q':
					d.quit = true
				}
			}
		case *tcell.EventResize:
			d.screen.Sync()
		case nil:
			d.quit = true
			return app.Input{Quit: true}
		}
	}
	in.Quit = d.quit
	return in
}

// Present redraws the whole grid. The bottom row holds the status line.
func (d *Display) Present(f app.Frame) error {
	w, h := d.screen.Size()
	if w <= 0 || h <= 1 {
		return nil
	}
	rows := h - 1
	d.screen.Clear()

	if n := w * rows; cap(d.depth) < n {
		d.depth = make([]float64, n)
	} else {
		d.depth = d.depth[:n]
	}
	for i := range d.depth {
		d.depth[i] = math.Inf(-1)
	}

	proj := newProjector(f.CameraYaw, w, rows)
	for _, b := range []*sim.Batch{f.Cubes, f.Spheres} {
		if b != nil {
			d.drawBatch(proj, b, w, rows)
		}
	}
	if f.Topper.Visible() {
		col, row, _ := proj.project(0, f.Topper.Y, 0)
		if col >= 0 && col < w && row >= 0 && row < rows {
			d.screen.SetContent(col, row, topperGlyph, nil, styleFor(field.ChampagneGold.Float32()).Bold(true))
		}
	}

	n := 0
	if f.Cubes != nil {
		n += f.Cubes.Len()
	}
	if f.Spheres != nil {
		n += f.Spheres.Len()
	}
	status := fmt.Sprintf(" [space] %s | %s | t=%.1fs | %d particles | q quits ", f.Mode.Action(), f.Mode, f.Clock, n)
	d.drawText(0, h-1, w, status, tcell.StyleDefault.Reverse(true))

	d.screen.Show()
	return nil
}

func (d *Display) Close() { d.screen.Fini() }

func (d *Display) drawBatch(proj projector, b *sim.Batch, w, rows int) {
	glyph := glyphs[b.Class]
	for k := range b.Len() {
		m := b.Matrix(k)
		col, row, depth := proj.project(float64(m[12]), float64(m[13]), float64(m[14]))
		if col < 0 || col >= w || row < 0 || row >= rows {
			continue
		}
		cell := row*w + col
		if depth <= d.depth[cell] {
			continue
		}
		d.depth[cell] = depth
		d.screen.SetContent(col, row, glyph, nil, styleFor(b.Color(k)))
	}
}

func (d *Display) drawText(x, y, w int, s string, style tcell.Style) {
	for _, r := range s {
		if x >= w {
			return
		}
		d.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// styleFor lifts dark palette entries so they stay readable on a black terminal.
func styleFor(r, g, b float32) tcell.Style {
	lift := func(c float32) int32 { return int32(64 + c*191) }
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(lift(r), lift(g), lift(b)))
}
