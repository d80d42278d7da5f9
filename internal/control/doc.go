// Package control provides the closed-loop controller used on each motion
// axis.
//
// A [PID] turns an error signal into an output on the motion output range
// and tracks whether the axis has settled:
//
//   - [Running]: default phase at command start
//   - [SmallBand]: error inside the small tolerance, timer running
//   - [Settled]: terminal until [PID.Reset]
//
// # Usage
//
//	pid := control.NewPID(cfg.Lateral)
//	out, err := pid.Compute(errInches, 10*time.Millisecond)
//	if pid.Settled() { ... }
//
// The controller is owned by one motion command at a time and is not safe
// for concurrent use; [PID.State] returns a copy for telemetry.
package control
