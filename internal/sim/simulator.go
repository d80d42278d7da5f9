package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/integrators"
	"github.com/san-kum/tankdrive/internal/physics"
)

// BatteryCapacity is the simulated pack energy in joules (1100 mAh at 12.8 V).
const BatteryCapacity = 1.1 * 3600 * physics.BatteryVoltage

// Drivebase is a simulated robot chassis. It satisfies hw.Drivebase and is
// safe for concurrent use.
type Drivebase struct {
	mu sync.Mutex

	plant      *physics.DiffDrive
	integrator dynamo.Integrator
	substeps   int

	travelPerRev  float64
	motorsPerSide int

	x          dynamo.State
	u          dynamo.Control
	t          float64
	elapsed    time.Duration
	usedEnergy float64

	encoderErr error
	headingErr error
}

func NewDrivebase(cfg *config.Config) (*Drivebase, error) {
	integ, err := integrators.New(cfg.Sim.Integrator)
	if err != nil {
		return nil, err
	}
	plant := physics.NewDiffDrive(cfg.Drivetrain, cfg.Sim)
	return &Drivebase{
		plant:         plant,
		integrator:    integ,
		substeps:      max(cfg.Sim.Substeps, 1),
		travelPerRev:  cfg.Drivetrain.TravelPerRev(),
		motorsPerSide: cfg.Drivetrain.MotorsPerSide,
		x:             make(dynamo.State, plant.StateDim()),
		u:             dynamo.Control{0, 0},
	}, nil
}

func (d *Drivebase) SetPower(left, right float64) error {
	if math.IsNaN(left) || math.IsNaN(right) {
		return fmt.Errorf("sim: NaN power %v/%v", left, right)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.u[0], d.u[1] = left, right
	return nil
}

// Power returns the last commanded side powers.
func (d *Drivebase) Power() (left, right float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.u[0], d.u[1]
}

// Encoders reports cumulative motor revolutions per side.
func (d *Drivebase) Encoders() (float64, float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.encoderErr; err != nil {
		d.encoderErr = nil
		return 0, 0, err
	}
	return d.x[physics.IdxLeftDist] / d.travelPerRev, d.x[physics.IdxRightDist] / d.travelPerRev, nil
}

// Heading reports the true chassis heading, as an ideal inertial sensor.
func (d *Drivebase) Heading() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.headingErr; err != nil {
		d.headingErr = nil
		return 0, err
	}
	return geom.WrapAngle(d.x[physics.IdxHeading]), nil
}

func (d *Drivebase) MotorWatts() ([]float64, []float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	left := make([]float64, d.motorsPerSide)
	right := make([]float64, d.motorsPerSide)
	wl := d.plant.MotorWatts(d.u[0], d.x[physics.IdxLeftVel])
	wr := d.plant.MotorWatts(d.u[1], d.x[physics.IdxRightVel])
	for i := range left {
		left[i], right[i] = wl, wr
	}
	return left, right, nil
}

func (d *Drivebase) BatteryPercent() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return math.Max(0, 100*(1-d.usedEnergy/BatteryCapacity)), nil
}

// FailNextRead makes the next Encoders (or Heading) call return err.
func (d *Drivebase) FailNextRead(encoders, heading error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.encoderErr, d.headingErr = encoders, heading
}

// Step advances the plant by dt under the current power command.
func (d *Drivebase) Step(dt time.Duration) error {
	if dt <= 0 {
		return fmt.Errorf("%w: sim step %v", dynamo.ErrInvalidInterval, dt)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	h := dt.Seconds() / float64(d.substeps)
	for i := 0; i < d.substeps; i++ {
		watts := d.plant.MotorWatts(d.u[0], d.x[physics.IdxLeftVel]) +
			d.plant.MotorWatts(d.u[1], d.x[physics.IdxRightVel])
		d.usedEnergy += watts * float64(d.motorsPerSide) * h

		next := d.integrator.Step(d.plant, d.x, d.u, d.t, h)
		if !next.IsValid() {
			return fmt.Errorf("sim: invalid state at t=%.4f", d.t)
		}
		d.x = next
		d.t += h
	}
	d.elapsed += dt
	return nil
}

// Run steps the plant in real time until ctx is done.
func (d *Drivebase) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Step(period); err != nil {
				return err
			}
		}
	}
}

// Truth returns the plant's actual pose.
func (d *Drivebase) Truth() geom.Pose {
	d.mu.Lock()
	defer d.mu.Unlock()
	return geom.Pose{
		X:       d.x[physics.IdxX],
		Y:       d.x[physics.IdxY],
		Heading: geom.WrapAngle(d.x[physics.IdxHeading]),
	}
}

// State returns a copy of the plant state vector.
func (d *Drivebase) State() dynamo.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.x.Clone()
}

// Elapsed returns simulated time.
func (d *Drivebase) Elapsed() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.elapsed
}

// Place teleports the chassis to p at rest. Encoder counts are kept.
func (d *Drivebase) Place(p geom.Pose) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.x[physics.IdxX], d.x[physics.IdxY], d.x[physics.IdxHeading] = p.X, p.Y, p.Heading
	d.x[physics.IdxLeftVel], d.x[physics.IdxRightVel] = 0, 0
}

// PlantParams returns the physical parameters of the simulated chassis.
func (d *Drivebase) PlantParams() map[string]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plant.GetParams()
}

// SetPlantParam changes the simulated chassis without touching the robot
// configuration, so a controller can be run against a mismatched plant.
func (d *Drivebase) SetPlantParam(name string, value float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plant.SetParam(name, value)
}
