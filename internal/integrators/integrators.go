// Package integrators steps a [dynamo.System] forward in time.
package integrators

import (
	"fmt"

	"github.com/san-kum/tankdrive/internal/dynamo"
)

// New returns the integrator registered under name ("rk4" or "euler").
func New(name string) (dynamo.Integrator, error) {
	switch name {
	case "rk4", "":
		return NewRK4(), nil
	case "euler":
		return NewEuler(), nil
	default:
		return nil, fmt.Errorf("%w: unknown integrator %q", dynamo.ErrInvalidConfig, name)
	}
}
