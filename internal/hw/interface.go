// Package hw declares the hardware the drive stack talks to. Drivers live
// outside this module; internal/sim provides a simulated implementation.
package hw

type Motors interface {
	// SetPower commands each side of the drivetrain. Power is in [-1, 1].
	SetPower(left, right float64) error
}

type Sensors interface {
	// Encoders returns cumulative motor revolutions for each side.
	Encoders() (left, right float64, err error)
	// Heading returns the inertial sensor's absolute heading in radians.
	Heading() (float64, error)
}

type PowerMonitor interface {
	// MotorWatts returns the output power of each motor, per side.
	MotorWatts() (left, right []float64, err error)
	BatteryPercent() (float64, error)
}

type Gamepad interface {
	// Axes returns the left and right vertical stick positions in [-127, 127].
	Axes() (leftY, rightY int, err error)
}

// Drivebase bundles the hardware a Robot needs.
type Drivebase interface {
	Motors
	Sensors
	PowerMonitor
}
