package motion

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/control"
	"github.com/san-kum/tankdrive/internal/drive"
	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/hw"
	"github.com/san-kum/tankdrive/internal/monitoring"
)

// gravity in the units the slip limit was tuned with.
const gravity = 9.8

// PoseSource supplies pose snapshots; odom.Estimator implements it.
type PoseSource interface {
	Pose() geom.Pose
}

type Executor struct {
	cfg   config.Motion
	drift float64
	mixer drive.Mixer

	pose   PoseSource
	motors hw.Motors
	pacer  Pacer

	lateral *control.PID
	angular *control.PID

	busy   atomic.Bool
	status atomic.Pointer[Status]

	mu        sync.Mutex
	observers []Observer
	metrics   []Metric
}

// NewExecutor wires an executor to its pose feedback and motors. A nil
// pacer runs each command on a wall-clock ticker at the motion period.
func NewExecutor(cfg *config.Config, pose PoseSource, motors hw.Motors, pacer Pacer) *Executor {
	e := &Executor{
		cfg:     cfg.Motion,
		drift:   cfg.Drivetrain.HorizontalDrift,
		mixer:   drive.NewMixer(cfg.Drivetrain),
		pose:    pose,
		motors:  motors,
		pacer:   pacer,
		lateral: control.NewPID(cfg.Lateral),
		angular: control.NewPID(cfg.Angular),
	}
	e.status.Store(&Status{})
	return e
}

func (e *Executor) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

func (e *Executor) AddMetric(m Metric) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = append(e.metrics, m)
}

// Busy reports whether a command is running.
func (e *Executor) Busy() bool { return e.busy.Load() }

// Status returns the latest cycle's view of the executor.
func (e *Executor) Status() Status { return *e.status.Load() }

// RunTo drives to target, arriving with the target heading. A zero timeout
// uses the configured default.
func (e *Executor) RunTo(ctx context.Context, target geom.Pose, timeout time.Duration, opts ...Option) (*Result, error) {
	target.Heading = geom.WrapAngle(target.Heading)
	return e.execute(ctx, e.command(ToPose, target, timeout, opts))
}

// TurnTo rotates in place to the absolute heading (radians).
func (e *Executor) TurnTo(ctx context.Context, heading float64, timeout time.Duration, opts ...Option) (*Result, error) {
	target := e.pose.Pose()
	target.Heading = geom.WrapAngle(heading)
	return e.execute(ctx, e.command(ToHeading, target, timeout, opts))
}

// Drive moves distance inches along the current heading; negative values
// reverse.
func (e *Executor) Drive(ctx context.Context, distance float64, timeout time.Duration, opts ...Option) (*Result, error) {
	target := e.pose.Pose().Advance(distance)
	if distance < 0 {
		opts = append([]Option{Backwards()}, opts...)
	}
	return e.execute(ctx, e.command(ToPose, target, timeout, opts))
}

func (e *Executor) command(kind Kind, target geom.Pose, timeout time.Duration, opts []Option) Command {
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	cmd := Command{
		Kind:     kind,
		Target:   target,
		Timeout:  timeout,
		Forwards: true,
		MaxSpeed: e.cfg.OutputRange,
	}
	for _, opt := range opts {
		opt(&cmd)
	}
	cmd.MaxSpeed = math.Min(cmd.MaxSpeed, e.cfg.OutputRange)
	return cmd
}

func (e *Executor) execute(ctx context.Context, cmd Command) (*Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, dynamo.ErrMotionBusy
	}
	defer e.busy.Store(false)

	pacer := e.pacer
	if pacer == nil {
		t := NewTicker(e.cfg.Period)
		defer t.Stop()
		pacer = t
	}

	e.mu.Lock()
	observers := append([]Observer(nil), e.observers...)
	metrics := append([]Metric(nil), e.metrics...)
	e.mu.Unlock()
	for _, m := range metrics {
		m.Reset()
	}

	e.lateral.Reset()
	e.angular.Reset()

	period := e.cfg.Period
	res := &Result{Command: cmd, Metrics: make(map[string]float64)}

	for cycle := 0; ; cycle++ {
		res.Cycles = cycle
		res.Elapsed = time.Duration(cycle) * period

		if err := ctx.Err(); err != nil {
			e.finish(res, metrics)
			return res, fmt.Errorf("%w: %w", dynamo.ErrMotionCanceled, err)
		}
		if res.Elapsed >= cmd.Timeout {
			e.finish(res, metrics)
			return res, fmt.Errorf("%w: %v after %v", dynamo.ErrMotionTimeout, cmd, res.Elapsed)
		}

		pose := e.pose.Pose()
		latErr, angErr := e.errors(cmd, pose)

		var latOut float64
		if cmd.Kind == ToPose {
			out, err := e.lateral.Compute(latErr, period)
			if err != nil {
				e.finish(res, metrics)
				return res, &dynamo.CycleError{Cycle: cycle, Elapsed: res.Elapsed, Wrapped: err}
			}
			latOut = out
		}
		angOut, err := e.angular.Compute(angErr, period)
		if err != nil {
			e.finish(res, metrics)
			return res, &dynamo.CycleError{Cycle: cycle, Elapsed: res.Elapsed, Wrapped: err}
		}

		settled := e.settled(cmd)
		latOut, angOut = e.limit(cmd, pose, latOut, angOut)
		var left, right float64
		if !settled {
			left, right = e.mixer.Mix(latOut/e.cfg.OutputRange, angOut/e.cfg.OutputRange)
		}

		s := Sample{
			Cycle:        cycle,
			Elapsed:      res.Elapsed,
			Pose:         pose,
			Target:       cmd.Target,
			LateralError: latErr,
			AngularError: angErr,
			LateralOut:   latOut,
			AngularOut:   angOut,
			Left:         left,
			Right:        right,
			LateralPhase: e.lateral.Phase(),
			AngularPhase: e.angular.Phase(),
		}
		res.Trace = append(res.Trace, s)
		for _, m := range metrics {
			m.Observe(s)
		}
		for _, o := range observers {
			o.OnSample(s)
		}
		e.status.Store(&Status{
			Active:       true,
			Command:      cmd,
			Cycle:        cycle,
			LateralPhase: s.LateralPhase,
			AngularPhase: s.AngularPhase,
			Left:         left,
			Right:        right,
		})

		if settled {
			res.Cycles = cycle + 1
			res.Settled = true
			e.finish(res, metrics)
			return res, nil
		}

		if err := e.motors.SetPower(left, right); err != nil {
			monitoring.Logf("motion: set power: %v", err)
		}

		if err := pacer.Wait(ctx); err != nil {
			res.Cycles = cycle + 1
			res.Elapsed = time.Duration(res.Cycles) * period
			e.finish(res, metrics)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, fmt.Errorf("%w: %w", dynamo.ErrMotionCanceled, ctxErr)
			}
			return res, &dynamo.CycleError{Cycle: cycle, Elapsed: res.Elapsed, Wrapped: err}
		}
	}
}

// finish commands zero power and completes the result.
func (e *Executor) finish(res *Result, metrics []Metric) {
	if err := e.motors.SetPower(0, 0); err != nil {
		monitoring.Logf("motion: stop: %v", err)
	}
	res.Final = e.pose.Pose()
	for _, m := range metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	e.status.Store(&Status{
		Command:      res.Command,
		Cycle:        res.Cycles,
		LateralPhase: e.lateral.Phase(),
		AngularPhase: e.angular.Phase(),
	})
}

// errors returns the lateral error in inches and the angular error in
// degrees for pose p.
func (e *Executor) errors(cmd Command, p geom.Pose) (lateral, angular float64) {
	if cmd.Kind == ToHeading {
		return 0, geom.Degrees(geom.AngleDiff(cmd.Target.Heading, p.Heading))
	}

	dist := p.DistanceTo(cmd.Target)
	bearing := p.BearingTo(cmd.Target)
	lateral = dist * math.Cos(geom.AngleDiff(bearing, p.Heading))

	steer := cmd.Target.Heading
	if dist > e.cfg.SettleRadius {
		steer = bearing
		if !cmd.Forwards {
			steer += math.Pi
		}
	}
	return lateral, geom.Degrees(geom.AngleDiff(steer, p.Heading))
}

func (e *Executor) settled(cmd Command) bool {
	if cmd.Kind == ToHeading {
		return e.angular.Settled()
	}
	return e.lateral.Settled() && e.angular.Settled()
}

// limit caps both outputs at the command's max speed, keeps the lateral
// output below the slip speed of the current arc, and gives the angular
// output priority when the two together would exceed max speed.
func (e *Executor) limit(cmd Command, p geom.Pose, lateral, angular float64) (float64, float64) {
	top := cmd.MaxSpeed
	angular = clampAbs(angular, top)
	if cmd.Kind == ToHeading {
		return 0, angular
	}

	lateral = clampAbs(lateral, top)
	if e.drift > 0 && p.DistanceTo(cmd.Target) > e.cfg.SettleRadius {
		if k := curvature(p, cmd.Target); k != 0 {
			lateral = clampAbs(lateral, math.Sqrt(e.drift/math.Abs(k)*gravity))
		}
	}

	if over := math.Abs(lateral) + math.Abs(angular) - top; over > 0 {
		lateral = math.Copysign(math.Max(0, math.Abs(lateral)-over), lateral)
	}
	return lateral, angular
}

// curvature of the circular arc tangent to p's heading that passes through
// q. Positive curves counter-clockwise.
func curvature(p, q geom.Pose) float64 {
	dx, dy := q.X-p.X, q.Y-p.Y
	d2 := dx*dx + dy*dy
	if d2 == 0 {
		return 0
	}
	cross := math.Cos(p.Heading)*dy - math.Sin(p.Heading)*dx
	return 2 * cross / d2
}

func clampAbs(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
