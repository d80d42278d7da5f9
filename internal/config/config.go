package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tankdrive/internal/dynamo"
)

const (
	DefaultTrackWidth      = 15.5
	DefaultWheelDiameter   = 3.25
	DefaultMaxRPM          = 480.0
	DefaultMotorRPM        = 600.0
	DefaultHorizontalDrift = 2.0

	DefaultOdomPeriod      = 10 * time.Millisecond
	DefaultMotionPeriod    = 10 * time.Millisecond
	DefaultTeleopPeriod    = 25 * time.Millisecond
	DefaultTelemetryPeriod = 50 * time.Millisecond

	// DefaultOutputRange is the controller output that maps to full power.
	DefaultOutputRange = 127.0

	// gainPeriod converts per-cycle derivative gains tuned at a 10 ms
	// loop into the per-second gains the PID uses.
	gainPeriod = 0.01
)

type Config struct {
	Drivetrain Drivetrain `yaml:"drivetrain"`
	Lateral    PID        `yaml:"lateral"`
	Angular    PID        `yaml:"angular"`
	Odometry   Odometry   `yaml:"odometry"`
	Motion     Motion     `yaml:"motion"`
	Teleop     Teleop     `yaml:"teleop"`
	Telemetry  Telemetry  `yaml:"telemetry"`
	Sim        Sim        `yaml:"sim"`
}

// Drivetrain describes the chassis geometry. Distances are inches.
type Drivetrain struct {
	TrackWidth      float64 `yaml:"track_width"`
	WheelDiameter   float64 `yaml:"wheel_diameter"`
	GearRatio       float64 `yaml:"gear_ratio"` // wheel revolutions per motor revolution
	MaxRPM          float64 `yaml:"max_rpm"`    // wheel rpm at full power
	HorizontalDrift float64 `yaml:"horizontal_drift"`
	MotorsPerSide   int     `yaml:"motors_per_side"`
}

// WheelCircumference returns the distance travelled per wheel revolution.
func (d Drivetrain) WheelCircumference() float64 {
	return math.Pi * d.WheelDiameter
}

// TravelPerRev returns the distance travelled per motor revolution.
func (d Drivetrain) TravelPerRev() float64 {
	return d.WheelCircumference() * d.GearRatio
}

// MaxSpeed returns the wheel surface speed at full power, in inches per second.
func (d Drivetrain) MaxSpeed() float64 {
	return d.MaxRPM / 60 * d.WheelCircumference()
}

// PID holds the gains and exit conditions of one closed-loop axis. Errors
// are in the axis's own units (inches lateral, degrees angular); outputs
// are on the motion output range.
type PID struct {
	Kp                float64       `yaml:"kp"`
	Ki                float64       `yaml:"ki"`
	Kd                float64       `yaml:"kd"`
	AntiWindup        float64       `yaml:"anti_windup"`
	IntegralLimit     float64       `yaml:"integral_limit"`
	SmallError        float64       `yaml:"small_error"`
	SmallErrorTimeout time.Duration `yaml:"small_error_timeout"`
	LargeError        float64       `yaml:"large_error"`
	LargeErrorTimeout time.Duration `yaml:"large_error_timeout"`
	Slew              float64       `yaml:"slew"`
}

type Odometry struct {
	Period time.Duration `yaml:"period"`
	// HeadingTrust blends the heading sensor into the wheel estimate:
	// 0 uses wheels only, 1 uses the sensor only.
	HeadingTrust float64 `yaml:"heading_trust"`
	// FaultSpeedRatio rejects encoder deltas implying a wheel speed above
	// this multiple of the drivetrain top speed. 0 disables the check.
	FaultSpeedRatio float64 `yaml:"fault_speed_ratio"`
}

type Motion struct {
	Period         time.Duration `yaml:"period"`
	OutputRange    float64       `yaml:"output_range"`
	SettleRadius   float64       `yaml:"settle_radius"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
}

type Teleop struct {
	Period    time.Duration `yaml:"period"`
	Deadband  float64       `yaml:"deadband"`   // stick units, 0..127
	MinOutput float64       `yaml:"min_output"` // stick units, 0..127
	Curve     float64       `yaml:"curve"`      // 1 is linear, must be >= 1
}

type Telemetry struct {
	Period time.Duration `yaml:"period"`
}

type Sim struct {
	Integrator string        `yaml:"integrator"`
	MotorLag   time.Duration `yaml:"motor_lag"`
	Substeps   int           `yaml:"substeps"`
}

func DefaultConfig() *Config {
	return &Config{
		Drivetrain: Drivetrain{
			TrackWidth:      DefaultTrackWidth,
			WheelDiameter:   DefaultWheelDiameter,
			GearRatio:       DefaultMaxRPM / DefaultMotorRPM,
			MaxRPM:          DefaultMaxRPM,
			HorizontalDrift: DefaultHorizontalDrift,
			MotorsPerSide:   3,
		},
		Lateral: PID{
			Kp:                10,
			Ki:                0,
			Kd:                3 * gainPeriod,
			AntiWindup:        3,
			SmallError:        1,
			SmallErrorTimeout: 100 * time.Millisecond,
			LargeError:        3,
			LargeErrorTimeout: 500 * time.Millisecond,
			Slew:              20,
		},
		Angular: PID{
			Kp:                2,
			Ki:                0,
			Kd:                10 * gainPeriod,
			AntiWindup:        3,
			SmallError:        1,
			SmallErrorTimeout: 100 * time.Millisecond,
			LargeError:        3,
			LargeErrorTimeout: 500 * time.Millisecond,
			Slew:              0,
		},
		Odometry: Odometry{
			Period:          DefaultOdomPeriod,
			HeadingTrust:    0,
			FaultSpeedRatio: 2,
		},
		Motion: Motion{
			Period:         DefaultMotionPeriod,
			OutputRange:    DefaultOutputRange,
			SettleRadius:   7.5,
			DefaultTimeout: 4 * time.Second,
		},
		Teleop: Teleop{
			Period:    DefaultTeleopPeriod,
			Deadband:  3,
			MinOutput: 0,
			Curve:     1,
		},
		Telemetry: Telemetry{
			Period: DefaultTelemetryPeriod,
		},
		Sim: Sim{
			Integrator: "rk4",
			MotorLag:   80 * time.Millisecond,
			Substeps:   2,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOnto(path, DefaultConfig())
}

// LoadOnto reads the YAML file at path over a copy of base, so fields the
// file leaves out keep base's values. base is not modified.
func LoadOnto(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns an independent copy; all fields are values.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) Validate() error {
	d := c.Drivetrain
	switch {
	case d.TrackWidth <= 0:
		return invalid("drivetrain.track_width", d.TrackWidth)
	case d.WheelDiameter <= 0:
		return invalid("drivetrain.wheel_diameter", d.WheelDiameter)
	case d.GearRatio <= 0:
		return invalid("drivetrain.gear_ratio", d.GearRatio)
	case d.MaxRPM <= 0:
		return invalid("drivetrain.max_rpm", d.MaxRPM)
	case d.HorizontalDrift < 0:
		return invalid("drivetrain.horizontal_drift", d.HorizontalDrift)
	case d.MotorsPerSide < 1:
		return invalid("drivetrain.motors_per_side", d.MotorsPerSide)
	}

	if err := c.Lateral.validate("lateral"); err != nil {
		return err
	}
	if err := c.Angular.validate("angular"); err != nil {
		return err
	}

	o := c.Odometry
	switch {
	case o.Period <= 0:
		return invalid("odometry.period", o.Period)
	case o.HeadingTrust < 0 || o.HeadingTrust > 1:
		return invalid("odometry.heading_trust", o.HeadingTrust)
	case o.FaultSpeedRatio < 0:
		return invalid("odometry.fault_speed_ratio", o.FaultSpeedRatio)
	}

	m := c.Motion
	switch {
	case m.Period <= 0:
		return invalid("motion.period", m.Period)
	case m.OutputRange <= 0:
		return invalid("motion.output_range", m.OutputRange)
	case m.SettleRadius < 0:
		return invalid("motion.settle_radius", m.SettleRadius)
	case m.DefaultTimeout <= 0:
		return invalid("motion.default_timeout", m.DefaultTimeout)
	}

	t := c.Teleop
	switch {
	case t.Period <= 0:
		return invalid("teleop.period", t.Period)
	case t.Deadband < 0 || t.Deadband >= 127:
		return invalid("teleop.deadband", t.Deadband)
	case t.MinOutput < 0 || t.MinOutput >= 127:
		return invalid("teleop.min_output", t.MinOutput)
	case t.Curve < 1:
		return invalid("teleop.curve", t.Curve)
	}

	if c.Telemetry.Period <= 0 {
		return invalid("telemetry.period", c.Telemetry.Period)
	}

	s := c.Sim
	switch {
	case s.Integrator != "rk4" && s.Integrator != "euler":
		return invalid("sim.integrator", s.Integrator)
	case s.MotorLag <= 0:
		return invalid("sim.motor_lag", s.MotorLag)
	case s.Substeps < 1:
		return invalid("sim.substeps", s.Substeps)
	}
	return nil
}

func (p PID) validate(axis string) error {
	switch {
	case p.Kp < 0 || p.Ki < 0 || p.Kd < 0:
		return invalid(axis+" gains", fmt.Sprintf("%g/%g/%g", p.Kp, p.Ki, p.Kd))
	case p.AntiWindup < 0:
		return invalid(axis+".anti_windup", p.AntiWindup)
	case p.IntegralLimit < 0:
		return invalid(axis+".integral_limit", p.IntegralLimit)
	case p.SmallError < 0 || p.SmallErrorTimeout < 0:
		return invalid(axis+".small_error", p.SmallError)
	case p.LargeError < 0 || p.LargeErrorTimeout < 0:
		return invalid(axis+".large_error", p.LargeError)
	case p.Slew < 0:
		return invalid(axis+".slew", p.Slew)
	}
	return nil
}

func invalid(field string, value interface{}) error {
	return fmt.Errorf("%w: %s = %v", dynamo.ErrInvalidConfig, field, value)
}
