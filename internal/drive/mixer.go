// Package drive converts high-level drive commands into per-side power.
//
// Power is normalized to [-1, 1]. Inputs are never rejected: this path
// serves live operator input, so out-of-range values are clamped and NaN
// is treated as zero.
package drive

import (
	"math"

	"github.com/san-kum/tankdrive/internal/config"
)

// ReferenceTrackWidth is the track width, in inches, at which a unit
// angular command from Mix spins the chassis with both sides at full power.
const ReferenceTrackWidth = config.DefaultTrackWidth

// Mixer is immutable and safe for concurrent use.
type Mixer struct {
	trackWidth float64
	maxSpeed   float64
}

func NewMixer(d config.Drivetrain) Mixer {
	return Mixer{
		trackWidth: d.TrackWidth,
		maxSpeed:   d.MaxSpeed(),
	}
}

// Mix combines a normalized linear and angular command. Positive angular
// turns counter-clockwise. Angular is a turn rate relative to
// ReferenceTrackWidth, so a wider chassis gets a proportionally larger
// side difference for the same command. When either side would exceed
// full power both are scaled down together so the turn ratio is preserved.
func (m Mixer) Mix(linear, angular float64) (left, right float64) {
	linear, angular = sanitize(linear), sanitize(angular)
	omega := angular * 2 * m.maxSpeed / ReferenceTrackWidth
	return m.MixVelocity(linear*m.maxSpeed, omega)
}

// MixVelocity converts a body velocity (inches/s, radians/s) into power
// using the track width and the drivetrain top speed.
func (m Mixer) MixVelocity(v, omega float64) (left, right float64) {
	if m.maxSpeed <= 0 {
		return 0, 0
	}
	v, omega = sanitize(v), sanitize(omega)
	half := omega * m.trackWidth / 2
	return desaturate((v-half)/m.maxSpeed, (v+half)/m.maxSpeed)
}

// Tank passes each side straight through, clamped to the valid range.
func (m Mixer) Tank(left, right float64) (float64, float64) {
	return Clamp(sanitize(left)), Clamp(sanitize(right))
}

func Clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func desaturate(left, right float64) (float64, float64) {
	peak := math.Max(math.Abs(left), math.Abs(right))
	if peak > 1 {
		left /= peak
		right /= peak
	}
	return Clamp(left), Clamp(right)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
