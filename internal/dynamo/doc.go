// Package dynamo provides the primitives shared across the drive stack.
//
// It defines the sentinel errors every layer reports through, and the
// small numerical vocabulary used by the plant simulation:
//
//   - [State]: vector representing plant state
//   - [System]: interface for plant models (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//
// # Errors
//
// Errors are matched with [errors.Is]. [ErrMotionTimeout] is returned
// alongside a valid result and is not fatal; [ErrSensorFault] is recovered
// locally by the pose estimator and only logged by the background cycle.
package dynamo
