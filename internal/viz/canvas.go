package viz

import (
	"math"
	"strings"

	"github.com/san-kum/tankdrive/internal/geom"
)

// Braille cells are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBase = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of Braille cells addressed in dots; a canvas of
// Width x Height cells holds (Width*2) x (Height*4) dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	col, row, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Unset(x, y int) {
	col, row, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] &^= pixelMap[y%4][x%2]
}

// IsSet reports whether the dot at (x, y) is lit.
func (c *Canvas) IsSet(x, y int) bool {
	col, row, ok := c.cell(x, y)
	if !ok {
		return false
	}
	return c.Grid[row][col]&pixelMap[y%4][x%2] != 0
}

func (c *Canvas) cell(x, y int) (col, row int, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, false
	}
	return col, row, true
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBase
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Field maps field inches onto a canvas, +Y up, with equal scale on both
// axes.
type Field struct {
	canvas *Canvas
	half   float64 // inches from center to edge
}

// FieldSize is the side of a competition field, in inches.
const FieldSize = 144.0

func NewField(c *Canvas) *Field {
	return &Field{canvas: c, half: FieldSize / 2}
}

// ToDots converts a field position to canvas dots.
func (f *Field) ToDots(x, y float64) (int, int) {
	w, h := float64(f.canvas.Width*2-1), float64(f.canvas.Height*4-1)
	scale := math.Min(w, h) / (2 * f.half)
	cx, cy := w/2, h/2
	return int(math.Round(cx + x*scale)), int(math.Round(cy - y*scale))
}

func (f *Field) Plot(x, y float64) {
	px, py := f.ToDots(x, y)
	f.canvas.Set(px, py)
}

func (f *Field) Line(x0, y0, x1, y1 float64) {
	ax, ay := f.ToDots(x0, y0)
	bx, by := f.ToDots(x1, y1)
	f.canvas.DrawLine(ax, ay, bx, by)
}

// Border outlines the field walls.
func (f *Field) Border() {
	h := f.half
	f.Line(-h, -h, h, -h)
	f.Line(h, -h, h, h)
	f.Line(h, h, -h, h)
	f.Line(-h, h, -h, -h)
}

// Robot draws a square chassis of the given width with a heading tick.
func (f *Field) Robot(p geom.Pose, width float64) {
	half := width / 2
	sin, cos := math.Sincos(p.Heading)
	corner := func(fx, fy float64) (float64, float64) {
		return p.X + fx*cos - fy*sin, p.Y + fx*sin + fy*cos
	}
	var xs, ys [4]float64
	for i, c := range [4][2]float64{{half, half}, {-half, half}, {-half, -half}, {half, -half}} {
		xs[i], ys[i] = corner(c[0], c[1])
	}
	for i := range xs {
		j := (i + 1) % len(xs)
		f.Line(xs[i], ys[i], xs[j], ys[j])
	}
	nose := p.Advance(width)
	f.Line(p.X, p.Y, nose.X, nose.Y)
}

// Marker draws a small cross at a target position.
func (f *Field) Marker(x, y, size float64) {
	f.Line(x-size, y, x+size, y)
	f.Line(x, y-size, x, y+size)
}
