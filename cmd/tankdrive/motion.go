package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/metrics"
	"github.com/san-kum/tankdrive/internal/motion"
	"github.com/san-kum/tankdrive/internal/robot"
	"github.com/san-kum/tankdrive/internal/routine"
	"github.com/san-kum/tankdrive/internal/sim"
	"github.com/san-kum/tankdrive/internal/storage"
	"github.com/san-kum/tankdrive/internal/telemetry"
)

// newSimRobot starts a robot over a fresh simulated drivebase. Lockstep
// robots run as fast as the CPU allows; realtime ones log telemetry.
func newSimRobot(ctx context.Context, cfg *config.Config) (*robot.Robot, error) {
	base, err := sim.NewDrivebase(cfg)
	if err != nil {
		return nil, err
	}
	opts := []robot.Option{robot.WithMetrics(metrics.Standard()...)}

	var r *robot.Robot
	if realtime {
		r, err = robot.NewRealtime(cfg, base, append(opts, robot.WithSink(telemetry.LogSink{}))...)
	} else {
		r, err = robot.NewLockstep(cfg, base, opts...)
	}
	if err != nil {
		return nil, err
	}
	if err := r.Start(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func commandOptions() []motion.Option {
	var opts []motion.Option
	if backwards {
		opts = append(opts, motion.Backwards())
	}
	if maxSpeed > 0 {
		opts = append(opts, motion.MaxSpeed(maxSpeed))
	}
	return opts
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func runMove(cmd *cobra.Command, args []string) error {
	v, err := parseFloats(args)
	if err != nil {
		return err
	}
	target := geom.Pose{X: v[0], Y: v[1], Heading: geom.WrapAngle(geom.Radians(v[2]))}
	return runSingle(cmd, "move", func(ctx context.Context, r *robot.Robot) (*motion.Result, error) {
		return r.RunTo(ctx, target, timeout, commandOptions()...)
	})
}

func runTurn(cmd *cobra.Command, args []string) error {
	v, err := parseFloats(args)
	if err != nil {
		return err
	}
	heading := geom.WrapAngle(geom.Radians(v[0]))
	return runSingle(cmd, "turn", func(ctx context.Context, r *robot.Robot) (*motion.Result, error) {
		return r.TurnTo(ctx, heading, timeout, commandOptions()...)
	})
}

func runDrive(cmd *cobra.Command, args []string) error {
	v, err := parseFloats(args)
	if err != nil {
		return err
	}
	return runSingle(cmd, "drive", func(ctx context.Context, r *robot.Robot) (*motion.Result, error) {
		return r.Drive(ctx, v[0], timeout, commandOptions()...)
	})
}

func runSingle(cmd *cobra.Command, label string, run func(context.Context, *robot.Robot) (*motion.Result, error)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	r, err := newSimRobot(ctx, cfg)
	if err != nil {
		return err
	}

	res, runErr := run(ctx, r)
	stopErr := r.Stop()
	if res == nil {
		return errors.Join(runErr, stopErr)
	}

	printResult(res)
	if errors.Is(runErr, dynamo.ErrMotionTimeout) {
		fmt.Println("timed out before settling")
		runErr = nil
	}
	if err := saveRun(label, cfg, res); err != nil {
		return err
	}
	return errors.Join(runErr, stopErr)
}

func saveRun(label string, cfg *config.Config, res *motion.Result) error {
	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(label, cfg, res)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func printResult(res *motion.Result) {
	fmt.Printf("command: %v\n", res.Command)
	fmt.Printf("final:   %v\n", res.Final)
	fmt.Printf("settled: %v after %d cycles (%v)\n", res.Settled, res.Cycles, res.Elapsed)
	if len(res.Metrics) == 0 {
		return
	}
	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.4f\n", name, res.Metrics[name])
	}
}

func runRoutine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := routine.Load(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	r, err := newSimRobot(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("running routine %s (%d steps)\n", rt.Name, len(rt.Steps))
	results, runErr := routine.Run(ctx, r, rt)
	stopErr := r.Stop()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tACTION\tSETTLED\tTIMED OUT\tELAPSED\tFINAL")
	for i, sr := range results {
		if sr.Result == nil {
			fmt.Fprintf(w, "%d\t%v\t-\t-\t-\t-\n", i+1, sr.Step)
			continue
		}
		fmt.Fprintf(w, "%d\t%v\t%v\t%v\t%v\t%v\n", i+1, sr.Step, sr.Result.Settled, sr.TimedOut, sr.Result.Elapsed, sr.Result.Final)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for i, sr := range results {
		if sr.Result == nil {
			continue
		}
		if err := saveRun(fmt.Sprintf("%s#%d", rt.Name, i+1), cfg, sr.Result); err != nil {
			return err
		}
	}
	fmt.Printf("final pose: %v\n", r.Pose())
	return errors.Join(runErr, stopErr)
}
