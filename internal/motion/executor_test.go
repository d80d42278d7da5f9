package motion_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/control"
	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/motion"
	"github.com/san-kum/tankdrive/internal/odom"
	"github.com/san-kum/tankdrive/internal/sim"
)

type rig struct {
	cfg   *config.Config
	base  *sim.Drivebase
	est   *odom.Estimator
	pace  *sim.Lockstep
	exec  *motion.Executor
	power *powerLog
}

// powerLog records every command on the way to the simulated motors.
type powerLog struct {
	mu    sync.Mutex
	next  *sim.Drivebase
	calls [][2]float64
}

func (p *powerLog) SetPower(left, right float64) error {
	p.mu.Lock()
	p.calls = append(p.calls, [2]float64{left, right})
	p.mu.Unlock()
	return p.next.SetPower(left, right)
}

func (p *powerLog) last() [2]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return [2]float64{}
	}
	return p.calls[len(p.calls)-1]
}

func newRig(cfg *config.Config) *rig {
	base, err := sim.NewDrivebase(cfg)
	Expect(err).NotTo(HaveOccurred())

	est := odom.NewEstimator(cfg.Drivetrain, cfg.Odometry)
	tracker := odom.NewTracker(est, base, cfg.Odometry.Period)
	Expect(tracker.Poll(cfg.Odometry.Period)).To(Succeed())

	pace := sim.NewLockstep(base, tracker, cfg.Motion.Period)
	power := &powerLog{next: base}
	return &rig{
		cfg:   cfg,
		base:  base,
		est:   est,
		pace:  pace,
		exec:  motion.NewExecutor(cfg, est, power, pace),
		power: power,
	}
}

// gatedPacer blocks each cycle until released or canceled.
type gatedPacer struct {
	gate    chan struct{}
	waiting chan struct{}
}

func (g *gatedPacer) Wait(ctx context.Context) error {
	select {
	case g.waiting <- struct{}{}:
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.gate:
		return nil
	}
}

// cancelAfter cancels the command's context after n cycles.
type cancelAfter struct {
	n      int
	cancel context.CancelFunc
	inner  motion.Pacer
}

func (c *cancelAfter) Wait(ctx context.Context) error {
	c.n--
	if c.n <= 0 {
		c.cancel()
	}
	return c.inner.Wait(ctx)
}

type failingPacer struct{ err error }

func (f failingPacer) Wait(context.Context) error { return f.err }

var _ = Describe("Executor", func() {
	var r *rig

	BeforeEach(func() {
		r = newRig(config.DefaultConfig())
	})

	Describe("RunTo", func() {
		It("drives 24 inches forward and settles", func() {
			res, err := r.exec.RunTo(context.Background(), geom.Pose{X: 24}, 4*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Settled).To(BeTrue())
			Expect(res.Final.X).To(BeNumerically("~", 24, 3))
			Expect(res.Final.Y).To(BeNumerically("~", 0, 0.5))
			Expect(res.Elapsed).To(BeNumerically("<", 4*time.Second))
			Expect(res.Elapsed).To(Equal(time.Duration(res.Cycles) * r.cfg.Motion.Period))
			Expect(r.power.last()).To(Equal([2]float64{0, 0}))
		})

		It("reaches a target off to the side and honours the final heading", func() {
			target := geom.Pose{X: 30, Y: 20, Heading: math.Pi / 2}
			res, err := r.exec.RunTo(context.Background(), target, 6*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Settled).To(BeTrue())
			Expect(res.Final.DistanceTo(target)).To(BeNumerically("<", r.cfg.Motion.SettleRadius+1))
			Expect(geom.Degrees(res.Final.Heading)).To(BeNumerically("~", 90, 3))
		})

		It("reverses when asked to drive backwards", func() {
			res, err := r.exec.Drive(context.Background(), -18, 4*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Command.Forwards).To(BeFalse())
			Expect(res.Final.X).To(BeNumerically("~", -18, 3))
			Expect(math.Abs(geom.Degrees(res.Final.Heading))).To(BeNumerically("<", 5))
		})

		It("respects the max speed option", func() {
			res, err := r.exec.Drive(context.Background(), 24, 6*time.Second, motion.MaxSpeed(40))
			Expect(err).NotTo(HaveOccurred())
			for _, s := range res.Trace {
				Expect(math.Abs(s.LateralOut) + math.Abs(s.AngularOut)).To(BeNumerically("<=", 40+1e-9))
			}
		})

		It("records a sample per cycle for observers and the trace", func() {
			var seen int
			r.exec.AddObserver(motion.ObserverFunc(func(motion.Sample) { seen++ }))

			res, err := r.exec.Drive(context.Background(), 12, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trace).To(HaveLen(res.Cycles))
			Expect(seen).To(Equal(res.Cycles))
			Expect(res.Trace[0].LateralError).To(BeNumerically("~", 12, 1e-9))
		})
	})

	Describe("TurnTo", func() {
		It("turns 90 degrees in place using only the angular controller", func() {
			res, err := r.exec.TurnTo(context.Background(), math.Pi/2, 3*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Settled).To(BeTrue())
			Expect(geom.Degrees(res.Final.Heading)).To(BeNumerically("~", 90, 3))
			Expect(math.Hypot(res.Final.X, res.Final.Y)).To(BeNumerically("<", 0.5))
			for _, s := range res.Trace {
				Expect(s.LateralOut).To(BeZero())
				Expect(s.LateralPhase).To(Equal(control.Running))
			}
		})
	})

	Describe("termination", func() {
		It("returns a valid result alongside a timeout", func() {
			res, err := r.exec.RunTo(context.Background(), geom.Pose{X: 48}, 50*time.Millisecond)
			Expect(errors.Is(err, dynamo.ErrMotionTimeout)).To(BeTrue())
			Expect(res).NotTo(BeNil())
			Expect(res.Settled).To(BeFalse())
			Expect(res.Cycles).To(Equal(5))
			Expect(r.power.last()).To(Equal([2]float64{0, 0}))
		})

		It("commands zero power before reporting cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			exec := motion.NewExecutor(r.cfg, r.est, r.power, &cancelAfter{n: 20, cancel: cancel, inner: r.pace})

			res, err := exec.RunTo(ctx, geom.Pose{X: 48}, 4*time.Second)
			Expect(errors.Is(err, dynamo.ErrMotionCanceled)).To(BeTrue())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(res.Cycles).To(Equal(20))
			Expect(r.power.last()).To(Equal([2]float64{0, 0}))
			Expect(exec.Busy()).To(BeFalse())
		})

		It("stops with the interval error on a zero period", func() {
			cfg := config.DefaultConfig()
			cfg.Motion.Period = 0
			exec := motion.NewExecutor(cfg, r.est, r.power, r.pace)

			_, err := exec.TurnTo(context.Background(), 1, time.Second)
			Expect(errors.Is(err, dynamo.ErrInvalidInterval)).To(BeTrue())
			var cycleErr *dynamo.CycleError
			Expect(errors.As(err, &cycleErr)).To(BeTrue())
			Expect(cycleErr.Cycle).To(Equal(0))
			Expect(r.power.last()).To(Equal([2]float64{0, 0}))
		})

		It("stops when the pacer fails", func() {
			boom := errors.New("pacer broke")
			exec := motion.NewExecutor(r.cfg, r.est, r.power, failingPacer{boom})

			_, err := exec.Drive(context.Background(), 10, time.Second)
			Expect(errors.Is(err, boom)).To(BeTrue())
			Expect(r.power.last()).To(Equal([2]float64{0, 0}))
		})
	})

	Describe("single command rule", func() {
		It("rejects a second command while one is active", func() {
			pacer := &gatedPacer{gate: make(chan struct{}), waiting: make(chan struct{}, 1)}
			exec := motion.NewExecutor(r.cfg, r.est, r.power, pacer)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := exec.RunTo(ctx, geom.Pose{X: 24}, 4*time.Second)
				done <- err
			}()

			Eventually(pacer.waiting).Should(Receive())
			Expect(exec.Busy()).To(BeTrue())
			Expect(exec.Status().Active).To(BeTrue())

			_, err := exec.TurnTo(context.Background(), 1, time.Second)
			Expect(err).To(MatchError(dynamo.ErrMotionBusy))
			Expect(exec.Status().Command.Target).To(Equal(geom.Pose{X: 24}))
			Expect(exec.Status().Cycle).To(Equal(0))

			pacer.gate <- struct{}{}
			Eventually(pacer.waiting).Should(Receive())
			st := exec.Status()
			Expect(st.Active).To(BeTrue())
			Expect(st.Cycle).To(Equal(1))
			Expect(st.Command.Target).To(Equal(geom.Pose{X: 24}))

			cancel()
			Eventually(done).Should(Receive(MatchError(dynamo.ErrMotionCanceled)))
			Expect(exec.Busy()).To(BeFalse())
			Expect(exec.Status().Active).To(BeFalse())
		})
	})
})
