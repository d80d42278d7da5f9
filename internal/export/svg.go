// Package export renders stored motion runs as standalone SVG files.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/motion"
	"github.com/san-kum/tankdrive/internal/viz"
)

const (
	background  = "#0a0a0a"
	pathColor   = "#00ccff"
	targetColor = "#ff00ff"
	startColor  = "#00ff88"
	endColor    = "#ffaa00"
)

// CanvasToSVG converts a Braille canvas to SVG, one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	w := float64(canvas.Width) * scale * 2
	h := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	header(&sb, w, h)
	sb.WriteString(`<g fill="#00ff00">` + "\n")

	r := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n",
				float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TraceToSVG draws the path of a motion trace in field coordinates with
// equal scale on both axes: the driven path, each distinct target, and
// start and end poses with heading ticks.
func TraceToSVG(trace []motion.Sample, width, height int) string {
	if len(trace) < 2 || width <= 0 || height <= 0 {
		return ""
	}

	b := boundsOf(trace)
	b.pad(0.1, 6)
	scale := math.Min(float64(width)/b.w(), float64(height)/b.h())
	offX := (float64(width) - b.w()*scale) / 2
	offY := (float64(height) - b.h()*scale) / 2
	toSVG := func(x, y float64) (float64, float64) {
		return offX + (x-b.minX)*scale, float64(height) - offY - (y-b.minY)*scale
	}

	var sb strings.Builder
	header(&sb, float64(width), float64(height))

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, pathColor)
	for i, s := range trace {
		x, y := toSVG(s.Pose.X, s.Pose.Y)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>` + "\n")

	var last *geom.Pose
	for i := range trace {
		t := trace[i].Target
		if last != nil && *last == t {
			continue
		}
		last = &trace[i].Target
		x, y := toSVG(t.X, t.Y)
		fmt.Fprintf(&sb, `<path stroke="%s" stroke-width="1.5" d="M%.1f,%.1f L%.1f,%.1f M%.1f,%.1f L%.1f,%.1f"/>`+"\n",
			targetColor, x-5, y-5, x+5, y+5, x-5, y+5, x+5, y-5)
	}

	tick := 4 * math.Max(1, scale)
	pose := func(p geom.Pose, color string) {
		x, y := toSVG(p.X, p.Y)
		nx, ny := x+tick*math.Cos(p.Heading), y-tick*math.Sin(p.Heading)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`+"\n", x, y, color)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1.5"/>`+"\n", x, y, nx, ny, color)
	}
	pose(trace[0].Pose, startColor)
	pose(trace[len(trace)-1].Pose, endColor)

	sb.WriteString("</svg>")
	return sb.String()
}

func header(sb *strings.Builder, w, h float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, w, h, w, h, background)
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func boundsOf(trace []motion.Sample) bounds {
	p := trace[0].Pose
	b := bounds{p.X, p.X, p.Y, p.Y}
	for _, s := range trace {
		for _, q := range [2]geom.Pose{s.Pose, s.Target} {
			b.minX = min(b.minX, q.X)
			b.maxX = max(b.maxX, q.X)
			b.minY = min(b.minY, q.Y)
			b.maxY = max(b.maxY, q.Y)
		}
	}
	return b
}

// pad grows the box by frac of its span on each side, and to at least
// minSpan inches on each axis.
func (b *bounds) pad(frac, minSpan float64) {
	grow := func(lo, hi *float64) {
		span := *hi - *lo
		extra := span * frac
		if span+2*extra < minSpan {
			extra = (minSpan - span) / 2
		}
		*lo -= extra
		*hi += extra
	}
	grow(&b.minX, &b.maxX)
	grow(&b.minY, &b.maxY)
}

func (b bounds) w() float64 { return b.maxX - b.minX }
func (b bounds) h() float64 { return b.maxY - b.minY }
