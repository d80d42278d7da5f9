// Package teleop maps operator stick input to drive power.
package teleop

import (
	"math"

	"github.com/san-kum/tankdrive/internal/config"
)

const stickRange = 127.0

// Curve is an exponential stick response with a deadband and a minimum
// output. A curve gain of 1 is linear; gains below 1 are treated as 1.
type Curve struct {
	deadband  float64
	minOutput float64
	gain      float64
}

func NewCurve(cfg config.Teleop) Curve {
	return Curve{
		deadband:  cfg.Deadband,
		minOutput: cfg.MinOutput,
		gain:      math.Max(cfg.Curve, 1),
	}
}

// Apply maps a stick value in [-127, 127] to a normalized power in [-1, 1].
func (c Curve) Apply(stick int) float64 {
	x := math.Max(-stickRange, math.Min(stickRange, float64(stick)))
	if math.Abs(x) <= c.deadband {
		return 0
	}

	g := math.Abs(x) - c.deadband
	gMax := stickRange - c.deadband
	i := math.Pow(c.gain, g-stickRange) * g
	iMax := math.Pow(c.gain, gMax-stickRange) * gMax

	out := (stickRange-c.minOutput)/stickRange*i*stickRange/iMax + c.minOutput
	return math.Copysign(math.Min(out/stickRange, 1), x)
}
