// Package geom holds planar pose arithmetic for the drivebase.
//
// Distances are inches. Headings are radians, counter-clockwise positive
// from the +X axis, normalized to [-π, π).
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

type Pose struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Heading float64 `json:"heading" yaml:"heading"`
}

func (p Pose) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// DistanceTo returns the straight-line distance between the two positions.
func (p Pose) DistanceTo(q Pose) float64 {
	return r2.Norm(r2.Sub(q.Vec(), p.Vec()))
}

// BearingTo returns the field angle of the line from p to q.
func (p Pose) BearingTo(q Pose) float64 {
	d := r2.Sub(q.Vec(), p.Vec())
	return math.Atan2(d.Y, d.X)
}

// Advance moves the pose distance inches along its own heading.
func (p Pose) Advance(distance float64) Pose {
	return Pose{
		X:       p.X + distance*math.Cos(p.Heading),
		Y:       p.Y + distance*math.Sin(p.Heading),
		Heading: p.Heading,
	}
}

func (p Pose) IsFinite() bool {
	for _, v := range [...]float64{p.X, p.Y, p.Heading} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.1f°)", p.X, p.Y, Degrees(p.Heading))
}

// WrapAngle maps any angle into [-π, π). Angles already in range are
// returned unchanged.
func WrapAngle(a float64) float64 {
	if a >= -math.Pi && a < math.Pi {
		return a
	}
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// AngleDiff returns the shortest signed rotation from current to target.
func AngleDiff(target, current float64) float64 {
	return WrapAngle(target - current)
}

func Degrees(rad float64) float64 { return rad * 180 / math.Pi }
func Radians(deg float64) float64 { return deg * math.Pi / 180 }
