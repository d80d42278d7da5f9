package dynamo

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for the drive stack.
var (
	// ErrInvalidInterval indicates a non-positive time step was supplied.
	ErrInvalidInterval = errors.New("tankdrive: invalid interval (dt must be positive)")

	// ErrSensorFault indicates a sensor sample was NaN, infinite or implausible.
	ErrSensorFault = errors.New("tankdrive: sensor fault")

	// ErrMotionTimeout indicates a motion command did not settle in time.
	ErrMotionTimeout = errors.New("tankdrive: motion timed out before settling")

	// ErrMotionBusy indicates a motion command was rejected because another is active.
	ErrMotionBusy = errors.New("tankdrive: motion command already in progress")

	// ErrMotionCanceled indicates a motion command was stopped by an external signal.
	ErrMotionCanceled = errors.New("tankdrive: motion canceled")

	// ErrInvalidConfig indicates a configuration value is outside its valid range.
	ErrInvalidConfig = errors.New("tankdrive: invalid configuration")
)

// CycleError wraps an error with the control cycle it occurred in.
type CycleError struct {
	Cycle   int
	Elapsed time.Duration
	Wrapped error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %d (%v): %v", e.Cycle, e.Elapsed, e.Wrapped)
}

func (e *CycleError) Unwrap() error {
	return e.Wrapped
}
