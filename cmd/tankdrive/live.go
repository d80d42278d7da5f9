package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/metrics"
	"github.com/san-kum/tankdrive/internal/monitoring"
	"github.com/san-kum/tankdrive/internal/robot"
	"github.com/san-kum/tankdrive/internal/routine"
	"github.com/san-kum/tankdrive/internal/sim"
	"github.com/san-kum/tankdrive/internal/viz"
)

// robotControls lets the dashboard reach a robot built after the program.
type robotControls struct {
	*robot.Robot
}

func runTeleop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return runLive(cfg, "teleop", func(ctx context.Context, r *robot.Robot, pad *viz.KeyboardPad) error {
		return r.Teleop(ctx, pad)
	})
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := routine.Load(args[0])
	if err != nil {
		return err
	}
	return runLive(cfg, rt.Name, func(ctx context.Context, r *robot.Robot, _ *viz.KeyboardPad) error {
		results, err := routine.Run(ctx, r, rt)
		monitoring.Logf("routine %s: %d steps run, final pose %v", rt.Name, len(results), r.Pose())
		return err
	})
}

// runLive shows the dashboard over a realtime simulated robot while job
// runs. Diagnostics go to a log file so they do not tear the display.
func runLive(cfg *config.Config, title string, job func(context.Context, *robot.Robot, *viz.KeyboardPad) error) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(dataDir, "tankdrive.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	prevLogf := monitoring.SetLogger(log.New(logFile, "", log.LstdFlags).Printf)
	defer monitoring.SetLogger(prevLogf)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctl := &robotControls{}
	pad := viz.NewKeyboardPad(viz.DefaultHold)
	p := tea.NewProgram(viz.NewModel(title, cfg.Drivetrain.TrackWidth, ctl, pad), tea.WithAltScreen(), tea.WithContext(ctx))

	base, err := sim.NewDrivebase(cfg)
	if err != nil {
		return err
	}
	r, err := robot.NewRealtime(cfg, base,
		robot.WithMetrics(metrics.Standard()...),
		robot.WithSink(viz.NewProgramSink(p)))
	if err != nil {
		return err
	}
	ctl.Robot = r

	if err := r.Start(ctx); err != nil {
		return err
	}

	jobErr := make(chan error, 1)
	go func() {
		err := job(ctx, r, pad)
		if err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("%s: %v", title, err)
		}
		jobErr <- err
	}()

	_, runErr := p.Run()
	cancel()
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}
	err = <-jobErr
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if stopErr := r.Stop(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("%s: %w", title, err))
	}
	return runErr
}
