package control

import (
	"fmt"
	"math"
	"time"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/dynamo"
)

type Phase int

const (
	Running Phase = iota
	SmallBand
	Settled
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case SmallBand:
		return "small-band"
	case Settled:
		return "settled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a copy of the controller's mutable state.
type State struct {
	Integral  float64
	PrevError float64
	Output    float64
	SmallTime time.Duration
	LargeTime time.Duration
	Phase     Phase
}

type PID struct {
	cfg config.PID

	integral  float64
	prevErr   float64
	lastOut   float64
	smallTime time.Duration
	largeTime time.Duration
	phase     Phase
	first     bool
}

func NewPID(cfg config.PID) *PID {
	return &PID{
		cfg:   cfg,
		first: true,
	}
}

// Compute advances the controller by dt and returns the slew-limited output.
// A non-positive dt returns ErrInvalidInterval and leaves the state untouched.
func (p *PID) Compute(err float64, dt time.Duration) (float64, error) {
	if dt <= 0 {
		return p.lastOut, fmt.Errorf("%w: got %v", dynamo.ErrInvalidInterval, dt)
	}
	secs := dt.Seconds()
	mag := math.Abs(err)

	// Integral only runs while the error is outside the anti-windup band.
	if p.cfg.AntiWindup == 0 || mag > p.cfg.AntiWindup {
		p.integral += err * secs
		if lim := p.cfg.IntegralLimit; lim > 0 {
			p.integral = clamp(p.integral, -lim, lim)
		}
	} else {
		p.integral = 0
	}

	derivative := 0.0
	if p.first {
		p.first = false
	} else {
		derivative = (err - p.prevErr) / secs
	}

	u := p.cfg.Kp*err + p.cfg.Ki*p.integral + p.cfg.Kd*derivative

	if s := p.cfg.Slew; s > 0 {
		u = clamp(u, p.lastOut-s, p.lastOut+s)
	}

	p.prevErr = err
	p.lastOut = u
	p.updatePhase(mag, dt)

	return u, nil
}

func (p *PID) updatePhase(mag float64, dt time.Duration) {
	if p.phase == Settled {
		return
	}

	if p.cfg.SmallError > 0 && mag < p.cfg.SmallError {
		p.smallTime += dt
		p.phase = SmallBand
	} else {
		p.smallTime = 0
		p.phase = Running
	}

	if p.cfg.LargeError > 0 && mag < p.cfg.LargeError {
		p.largeTime += dt
	} else {
		p.largeTime = 0
	}

	smallDone := p.cfg.SmallError > 0 && p.smallTime >= p.cfg.SmallErrorTimeout
	largeDone := p.cfg.LargeError > 0 && p.largeTime >= p.cfg.LargeErrorTimeout
	if smallDone || largeDone {
		p.phase = Settled
	}
}

// Reset clears integral, derivative, slew and settling state.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.lastOut = 0
	p.smallTime = 0
	p.largeTime = 0
	p.phase = Running
	p.first = true
}

func (p *PID) Phase() Phase  { return p.phase }
func (p *PID) Settled() bool { return p.phase == Settled }

func (p *PID) State() State {
	return State{
		Integral:  p.integral,
		PrevError: p.prevErr,
		Output:    p.lastOut,
		SmallTime: p.smallTime,
		LargeTime: p.largeTime,
		Phase:     p.phase,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
