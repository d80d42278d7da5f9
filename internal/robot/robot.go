// Package robot assembles the drive stack around one drivebase and owns its
// background tasks.
package robot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/control"
	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/hw"
	"github.com/san-kum/tankdrive/internal/monitoring"
	"github.com/san-kum/tankdrive/internal/motion"
	"github.com/san-kum/tankdrive/internal/odom"
	"github.com/san-kum/tankdrive/internal/sim"
	"github.com/san-kum/tankdrive/internal/telemetry"
	"github.com/san-kum/tankdrive/internal/teleop"
)

var ErrRunning = errors.New("robot: already started")

type Robot struct {
	cfg  *config.Config
	base hw.Drivebase

	est     *odom.Estimator
	tracker *odom.Tracker
	exec    *motion.Executor

	sinks      []telemetry.Sink
	background []func(context.Context) error
	lockstep   bool

	mu      sync.Mutex
	stop    context.CancelFunc
	group   *errgroup.Group
	cancels map[int]context.CancelFunc
	nextID  int
}

type Option func(*Robot)

// WithSink publishes telemetry to s while the robot is started.
func WithSink(s telemetry.Sink) Option {
	return func(r *Robot) { r.sinks = append(r.sinks, s) }
}

// WithTask runs fn alongside the robot's own tasks between Start and Stop.
func WithTask(fn func(context.Context) error) Option {
	return func(r *Robot) { r.background = append(r.background, fn) }
}

// WithMetrics attaches metrics to every motion command.
func WithMetrics(ms ...motion.Metric) Option {
	return func(r *Robot) {
		for _, m := range ms {
			r.exec.AddMetric(m)
		}
	}
}

// WithObserver attaches an observer to every motion command.
func WithObserver(o motion.Observer) Option {
	return func(r *Robot) { r.exec.AddObserver(o) }
}

// New builds a robot that paces motion on the wall clock and tracks its
// pose in the background once started.
func New(cfg *config.Config, base hw.Drivebase, opts ...Option) (*Robot, error) {
	return build(cfg, base, nil, opts)
}

// NewLockstep builds a robot over a simulated drivebase whose time only
// advances with motion cycles. Pose tracking is driven by those cycles
// rather than a background task, so commands run as fast as the CPU allows
// and are deterministic.
func NewLockstep(cfg *config.Config, base *sim.Drivebase, opts ...Option) (*Robot, error) {
	return build(cfg, base, base, opts)
}

// NewRealtime builds a robot over a simulated drivebase that is stepped in
// real time while the robot is started.
func NewRealtime(cfg *config.Config, base *sim.Drivebase, opts ...Option) (*Robot, error) {
	step := WithTask(func(ctx context.Context) error {
		return base.Run(ctx, cfg.Odometry.Period)
	})
	return build(cfg, base, nil, append([]Option{step}, opts...))
}

func build(cfg *config.Config, base hw.Drivebase, lockstep *sim.Drivebase, opts []Option) (*Robot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Robot{
		cfg:     cfg,
		base:    base,
		est:     odom.NewEstimator(cfg.Drivetrain, cfg.Odometry),
		cancels: make(map[int]context.CancelFunc),
	}
	r.tracker = odom.NewTracker(r.est, base, cfg.Odometry.Period)

	var pacer motion.Pacer
	if lockstep != nil {
		r.lockstep = true
		pacer = sim.NewLockstep(lockstep, r.tracker, cfg.Motion.Period)
		if err := r.tracker.Poll(cfg.Odometry.Period); err != nil {
			return nil, err
		}
	}
	r.exec = motion.NewExecutor(cfg, r.est, base, pacer)

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Robot) Config() *config.Config { return r.cfg }

// Start launches pose tracking, telemetry and any extra tasks. They run
// until Stop or until ctx is done.
func (r *Robot) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.group != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	if !r.lockstep {
		g.Go(func() error { return r.tracker.Run(gctx) })
	}
	for _, sink := range r.sinks {
		g.Go(func() error { return telemetry.Loop(gctx, r.cfg.Telemetry.Period, r, sink) })
	}
	for _, task := range r.background {
		g.Go(func() error { return task(gctx) })
	}

	r.stop, r.group = cancel, g
	return nil
}

// Stop cancels any motion, stops the background tasks, waits for them and
// leaves the motors at zero power.
func (r *Robot) Stop() error {
	r.CancelMotion()

	r.mu.Lock()
	stop, g := r.stop, r.group
	r.stop, r.group = nil, nil
	r.mu.Unlock()

	var err error
	if g != nil {
		stop()
		err = g.Wait()
	}
	if perr := r.base.SetPower(0, 0); perr != nil {
		err = errors.Join(err, perr)
	}
	return err
}

// Calibrate zeroes the pose at the field origin and re-primes the encoders.
// It fails with ErrMotionBusy while a command is running, since a lockstep
// command polls the tracker itself.
func (r *Robot) Calibrate() error {
	if r.exec.Busy() {
		return fmt.Errorf("calibrate: %w", dynamo.ErrMotionBusy)
	}
	r.SetPose(geom.Pose{})
	r.tracker.Reprime()
	if r.lockstep {
		if err := r.tracker.Poll(r.cfg.Odometry.Period); err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
	}
	monitoring.Logf("robot: calibrated at %v", r.Pose())
	return nil
}

func (r *Robot) Pose() geom.Pose { return r.est.Pose() }

func (r *Robot) SetPose(p geom.Pose) { r.est.SetPose(p) }

func (r *Robot) MotionStatus() motion.Status { return r.exec.Status() }

func (r *Robot) RunTo(ctx context.Context, target geom.Pose, timeout time.Duration, opts ...motion.Option) (*motion.Result, error) {
	return r.command(ctx, func(ctx context.Context) (*motion.Result, error) {
		return r.exec.RunTo(ctx, target, timeout, opts...)
	})
}

func (r *Robot) TurnTo(ctx context.Context, heading float64, timeout time.Duration, opts ...motion.Option) (*motion.Result, error) {
	return r.command(ctx, func(ctx context.Context) (*motion.Result, error) {
		return r.exec.TurnTo(ctx, heading, timeout, opts...)
	})
}

func (r *Robot) Drive(ctx context.Context, distance float64, timeout time.Duration, opts ...motion.Option) (*motion.Result, error) {
	return r.command(ctx, func(ctx context.Context) (*motion.Result, error) {
		return r.exec.Drive(ctx, distance, timeout, opts...)
	})
}

func (r *Robot) command(ctx context.Context, run func(context.Context) (*motion.Result, error)) (*motion.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.cancels[id] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.cancels, id)
		r.mu.Unlock()
		cancel()
	}()
	return run(ctx)
}

// CancelMotion stops the running command, if any. The command commands
// zero power and returns ErrMotionCanceled.
func (r *Robot) CancelMotion() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.cancels {
		cancel()
	}
}

// Teleop hands the drivebase to the operator until ctx is done. Any
// running motion command is canceled first.
func (r *Robot) Teleop(ctx context.Context, pad hw.Gamepad) error {
	r.CancelMotion()
	if err := teleop.NewDriver(r.cfg, pad, r.base).Run(ctx); err != nil {
		return fmt.Errorf("teleop: %w", err)
	}
	return nil
}

// Snapshot implements telemetry.Source.
func (r *Robot) Snapshot() telemetry.Snapshot {
	st := r.exec.Status()
	s := telemetry.Snapshot{
		Time:           time.Now(),
		Pose:           r.est.Pose(),
		MotionActive:   st.Active,
		Target:         st.Command.Target,
		LateralSettled: st.LateralPhase == control.Settled,
		AngularSettled: st.AngularPhase == control.Settled,
		LeftPower:      st.Left,
		RightPower:     st.Right,
		SensorFaults:   r.tracker.Faults(),
	}
	if left, right, err := r.base.MotorWatts(); err == nil {
		s.LeftWatts, s.RightWatts = left, right
	}
	if pct, err := r.base.BatteryPercent(); err == nil {
		s.Battery = pct
	}
	return s
}
