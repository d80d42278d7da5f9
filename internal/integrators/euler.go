package integrators

import "github.com/san-kum/tankdrive/internal/dynamo"

// Euler is the explicit first-order method. It is cheap and only accurate
// at substep sizes well below the plant's motor lag.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	next := make(dynamo.State, len(x))
	offset(next, x, dyn.Derive(x, u, t), dt)
	return next
}
