package teleop

import (
	"context"
	"time"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/drive"
	"github.com/san-kum/tankdrive/internal/hw"
	"github.com/san-kum/tankdrive/internal/monitoring"
)

// Driver runs tank-style operator control: each stick drives its own side.
type Driver struct {
	pad    hw.Gamepad
	motors hw.Motors
	curve  Curve
	mixer  drive.Mixer
	period time.Duration
}

func NewDriver(cfg *config.Config, pad hw.Gamepad, motors hw.Motors) *Driver {
	return &Driver{
		pad:    pad,
		motors: motors,
		curve:  NewCurve(cfg.Teleop),
		mixer:  drive.NewMixer(cfg.Drivetrain),
		period: cfg.Teleop.Period,
	}
}

// Cycle reads the sticks once and commands the motors. A gamepad error
// commands zero power for the cycle.
func (d *Driver) Cycle() (left, right float64) {
	ly, ry, err := d.pad.Axes()
	if err != nil {
		monitoring.Logf("teleop: gamepad: %v", err)
	} else {
		left, right = d.mixer.Tank(d.curve.Apply(ly), d.curve.Apply(ry))
	}
	if err := d.motors.SetPower(left, right); err != nil {
		monitoring.Logf("teleop: set power: %v", err)
	}
	return left, right
}

// Run cycles until ctx is done, then commands zero power.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()
	defer func() {
		if err := d.motors.SetPower(0, 0); err != nil {
			monitoring.Logf("teleop: stop: %v", err)
		}
	}()

	for {
		d.Cycle()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
