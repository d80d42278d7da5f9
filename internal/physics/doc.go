// Package physics provides the plant model used to simulate the drivebase.
//
// [DiffDrive] implements [dynamo.System] for a skid-steer chassis whose two
// sides are driven by lagged DC motors. State layout:
//
//	x[0] X position (in)     x[3] left wheel speed (in/s)
//	x[1] Y position (in)     x[4] right wheel speed (in/s)
//	x[2] heading (rad)       x[5] left travel (in)
//	                         x[6] right travel (in)
//
// Control is the normalized side power {left, right} in [-1, 1].
package physics
