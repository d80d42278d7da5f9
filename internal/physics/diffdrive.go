package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/dynamo"
)

const (
	IdxX = iota
	IdxY
	IdxHeading
	IdxLeftVel
	IdxRightVel
	IdxLeftDist
	IdxRightDist

	DiffDriveDim
)

// Nominal motor electrics, per motor.
const (
	BatteryVoltage = 12.8
	StallCurrent   = 2.5
)

type DiffDrive struct {
	TrackWidth float64 // in
	MaxSpeed   float64 // in/s at full power
	MotorLag   float64 // first-order time constant, s
}

func NewDiffDrive(d config.Drivetrain, s config.Sim) *DiffDrive {
	return &DiffDrive{
		TrackWidth: d.TrackWidth,
		MaxSpeed:   d.MaxSpeed(),
		MotorLag:   s.MotorLag.Seconds(),
	}
}

func (d *DiffDrive) StateDim() int {
	return DiffDriveDim
}

func (d *DiffDrive) ControlDim() int {
	return 2
}

func (d *DiffDrive) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	var pl, pr float64
	if len(u) >= 2 {
		pl, pr = clampUnit(u[0]), clampUnit(u[1])
	}

	theta := x[IdxHeading]
	vl, vr := x[IdxLeftVel], x[IdxRightVel]
	v := (vl + vr) / 2

	dx := make(dynamo.State, DiffDriveDim)
	dx[IdxX] = v * math.Cos(theta)
	dx[IdxY] = v * math.Sin(theta)
	dx[IdxHeading] = (vr - vl) / d.TrackWidth
	dx[IdxLeftVel] = (pl*d.MaxSpeed - vl) / d.MotorLag
	dx[IdxRightVel] = (pr*d.MaxSpeed - vr) / d.MotorLag
	dx[IdxLeftDist] = vl
	dx[IdxRightDist] = vr
	return dx
}

// MotorWatts estimates the electrical power drawn by one motor at the given
// normalized power and wheel speed, from a brushed DC model with
// back-EMF proportional to speed.
func (d *DiffDrive) MotorWatts(power, speed float64) float64 {
	volts := clampUnit(power) * BatteryVoltage
	emf := speed / d.MaxSpeed * BatteryVoltage
	resistance := BatteryVoltage / StallCurrent
	current := (volts - emf) / resistance
	return math.Abs(volts * current)
}

func (d *DiffDrive) GetParams() map[string]float64 {
	return map[string]float64{
		"track_width": d.TrackWidth,
		"max_speed":   d.MaxSpeed,
		"motor_lag":   d.MotorLag,
	}
}

func (d *DiffDrive) SetParam(name string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %g", name, value)
	}
	switch name {
	case "track_width":
		d.TrackWidth = value
	case "max_speed":
		d.MaxSpeed = value
	case "motor_lag":
		d.MotorLag = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
