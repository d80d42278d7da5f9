package integrators

import "github.com/san-kum/tankdrive/internal/dynamo"

// Classic Runge-Kutta stage offsets (fractions of dt) and weights.
var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Weights = [4]float64{1, 2, 2, 1}
)

// RK4 is the classic fourth-order Runge-Kutta method. Stage buffers are
// reused between steps, so an RK4 must not be shared across goroutines.
type RK4 struct {
	k     [4]dynamo.State
	trial dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.trial) == n {
		return
	}
	for s := range r.k {
		r.k[s] = make(dynamo.State, n)
	}
	r.trial = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.resize(len(x))

	for s := range r.k {
		in := x
		if s > 0 {
			offset(r.trial, x, r.k[s-1], rk4Nodes[s]*dt)
			in = r.trial
		}
		copy(r.k[s], dyn.Derive(in, u, t+rk4Nodes[s]*dt))
	}

	next := make(dynamo.State, len(x))
	copy(next, x)
	for s, k := range r.k {
		offset(next, next, k, rk4Weights[s]*dt/6)
	}
	return next
}

// offset sets dst = x + h·k. dst may alias x.
func offset(dst, x, k dynamo.State, h float64) {
	for i := range dst {
		dst[i] = x[i] + h*k[i]
	}
}
