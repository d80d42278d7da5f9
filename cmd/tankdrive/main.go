package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/optim"
)

var (
	dataDir      string
	configFile   string
	preset       string
	gainSets     []string
	headingTrust float64
	integrator   string

	timeout   time.Duration
	backwards bool
	maxSpeed  float64
	realtime  bool
	noSave    bool
)

// main registers the tankdrive commands and executes the root command,
// exiting with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "tankdrive",
		Short:        "tank drivetrain motion control on a simulated robot",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tankdrive", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringArrayVar(&gainSets, "set", nil, "override a gain, e.g. lateral.kp=8 (repeatable)")
	rootCmd.PersistentFlags().Float64Var(&headingTrust, "heading-trust", 0, "heading sensor weight, 0..1")
	rootCmd.PersistentFlags().StringVar(&integrator, "integrator", "rk4", "plant integrator (rk4, euler)")

	motionFlags := func(c *cobra.Command) {
		c.Flags().DurationVar(&timeout, "timeout", 0, "command timeout (0 uses the configured default)")
		c.Flags().BoolVar(&backwards, "backwards", false, "drive in reverse")
		c.Flags().Float64Var(&maxSpeed, "max-speed", 0, "output cap on the 0..127 range (0 for none)")
		c.Flags().BoolVar(&realtime, "realtime", false, "run on the wall clock with telemetry logging")
		c.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	}

	moveCmd := &cobra.Command{
		Use:   "move [x] [y] [heading]",
		Short: "drive to a field pose (inches, degrees)",
		Args:  cobra.ExactArgs(3),
		RunE:  runMove,
	}
	motionFlags(moveCmd)

	turnCmd := &cobra.Command{
		Use:   "turn [heading]",
		Short: "turn in place to a field heading (degrees)",
		Args:  cobra.ExactArgs(1),
		RunE:  runTurn,
	}
	motionFlags(turnCmd)

	driveCmd := &cobra.Command{
		Use:   "drive [inches]",
		Short: "drive straight along the current heading",
		Args:  cobra.ExactArgs(1),
		RunE:  runDrive,
	}
	motionFlags(driveCmd)

	routineCmd := &cobra.Command{
		Use:   "routine [file]",
		Short: "run a scripted autonomous routine",
		Args:  cobra.ExactArgs(1),
		RunE:  runRoutine,
	}
	routineCmd.Flags().BoolVar(&realtime, "realtime", false, "run on the wall clock with telemetry logging")
	routineCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	teleopCmd := &cobra.Command{
		Use:   "teleop",
		Short: "drive the simulated robot from the keyboard",
		Args:  cobra.NoArgs,
		RunE:  runTeleop,
	}

	dashboardCmd := &cobra.Command{
		Use:   "dashboard [routine]",
		Short: "watch a routine run live on the field view",
		Args:  cobra.ExactArgs(1),
		RunE:  runDashboard,
	}

	rootCmd.AddCommand(moveCmd, turnCmd, driveCmd, routineCmd, teleopCmd, dashboardCmd)
	rootCmd.AddCommand(runCommands()...)
	rootCmd.AddCommand(tuneCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: preset, then config
// file overlaid on it, then command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOnto(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("heading-trust") {
		cfg.Odometry.HeadingTrust = headingTrust
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	for _, kv := range gainSets {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want name=value", kv)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", kv, err)
		}
		if err := optim.Apply(cfg, name, v); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
