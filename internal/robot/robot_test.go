package robot_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/metrics"
	"github.com/san-kum/tankdrive/internal/motion"
	"github.com/san-kum/tankdrive/internal/robot"
	"github.com/san-kum/tankdrive/internal/sim"
	"github.com/san-kum/tankdrive/internal/telemetry"
)

type stickPad struct{ ly, ry int }

func (p stickPad) Axes() (int, int, error) { return p.ly, p.ry, nil }

var _ = Describe("Robot", func() {
	var (
		cfg  *config.Config
		base *sim.Drivebase
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		var err error
		base, err = sim.NewDrivebase(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an invalid configuration", func() {
		cfg.Drivetrain.TrackWidth = 0
		_, err := robot.NewLockstep(cfg, base)
		Expect(errors.Is(err, dynamo.ErrInvalidConfig)).To(BeTrue())
	})

	Context("in lockstep simulation", func() {
		var r *robot.Robot

		BeforeEach(func() {
			var err error
			r, err = robot.NewLockstep(cfg, base, robot.WithMetrics(metrics.Standard()...))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Start(context.Background())).To(Succeed())
			DeferCleanup(r.Stop)
		})

		It("refuses to start twice", func() {
			Expect(r.Start(context.Background())).To(MatchError(robot.ErrRunning))
		})

		It("runs a square routine and returns near the origin", func() {
			ctx := context.Background()
			for i := 1; i <= 4; i++ {
				_, err := r.Drive(ctx, 24, 0)
				Expect(err).NotTo(HaveOccurred())
				_, err = r.TurnTo(ctx, geom.WrapAngle(float64(i)*math.Pi/2), 0)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(r.Pose().DistanceTo(geom.Pose{})).To(BeNumerically("<", 10))
		})

		It("tracks the simulated chassis", func() {
			res, err := r.RunTo(context.Background(), geom.Pose{X: 24}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metrics).To(HaveKey("lateral_rms_error"))
			Expect(r.Pose().DistanceTo(base.Truth())).To(BeNumerically("<", 0.5))

			st := r.MotionStatus()
			Expect(st.Active).To(BeFalse())
			Expect(st.Command.Target).To(Equal(geom.Pose{X: 24}))
			Expect(st.Cycle).To(Equal(res.Cycles))
		})

		It("cancels the running command on request", func() {
			var canceling *robot.Robot
			stopAt10 := motion.ObserverFunc(func(s motion.Sample) {
				if s.Cycle == 10 {
					canceling.CancelMotion()
				}
			})
			var err error
			canceling, err = robot.NewLockstep(cfg, base, robot.WithObserver(stopAt10))
			Expect(err).NotTo(HaveOccurred())

			res, err := canceling.Drive(context.Background(), 2000, time.Hour)
			Expect(err).To(MatchError(dynamo.ErrMotionCanceled))
			Expect(res.Settled).To(BeFalse())
			Expect(res.Cycles).To(Equal(11))
			l, rr := base.Power()
			Expect([]float64{l, rr}).To(Equal([]float64{0, 0}))
		})

		It("re-zeroes the pose on calibrate", func() {
			_, err := r.Drive(context.Background(), 12, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Pose().X).To(BeNumerically(">", 6))

			Expect(r.Calibrate()).To(Succeed())
			Expect(r.Pose()).To(Equal(geom.Pose{}))
		})

		It("refuses to calibrate while a command is running", func() {
			var (
				driving *robot.Robot
				calErr  error
			)
			calibrateAt5 := motion.ObserverFunc(func(s motion.Sample) {
				if s.Cycle == 5 {
					calErr = driving.Calibrate()
				}
			})
			var err error
			driving, err = robot.NewLockstep(cfg, base, robot.WithObserver(calibrateAt5))
			Expect(err).NotTo(HaveOccurred())

			_, err = driving.Drive(context.Background(), 12, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(calErr).To(MatchError(dynamo.ErrMotionBusy))
			Expect(driving.Pose().X).To(BeNumerically(">", 6))
		})

		It("reports a telemetry snapshot", func() {
			s := r.Snapshot()
			Expect(s.Battery).To(BeNumerically("==", 100))
			Expect(s.LeftWatts).To(HaveLen(cfg.Drivetrain.MotorsPerSide))
			Expect(s.RightWatts).To(HaveLen(cfg.Drivetrain.MotorsPerSide))
			Expect(s.MotionActive).To(BeFalse())
		})
	})

	Context("in real time", func() {
		It("publishes telemetry and drives the simulated chassis", func() {
			var published atomic.Int64
			sink := telemetry.SinkFunc(func(telemetry.Snapshot) error {
				published.Add(1)
				return nil
			})
			r, err := robot.NewRealtime(cfg, base, robot.WithSink(sink))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Start(context.Background())).To(Succeed())

			res, err := r.Drive(context.Background(), 12, 3*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Settled).To(BeTrue())
			Expect(base.Truth().X).To(BeNumerically("~", 12, 3))

			Expect(r.Stop()).To(Succeed())
			Expect(published.Load()).To(BeNumerically(">", 1))
		})

		It("hands the drivebase to the operator", func() {
			r, err := robot.NewRealtime(cfg, base)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Start(context.Background())).To(Succeed())
			defer r.Stop()

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			Expect(r.Teleop(ctx, stickPad{ly: 100, ry: 100})).To(Succeed())

			Eventually(func() float64 { return r.Pose().X }).Should(BeNumerically(">", 1))
			l, rr := base.Power()
			Expect([]float64{l, rr}).To(Equal([]float64{0, 0}))
		})
	})
})
