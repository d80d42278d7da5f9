package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/tankdrive/internal/monitoring"
	"github.com/san-kum/tankdrive/internal/optim"
)

var (
	scenarioName  string
	scenarioSize  float64
	searchParams  []string
	workers       int
	topN          int
	trials        int
	spread        float64
	headingSpread float64
	plantSpread   float64
	seed          int64
)

func tuneCommands() []*cobra.Command {
	scenarioFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&scenarioName, "scenario", "drive", "drive or turn")
		c.Flags().Float64Var(&scenarioSize, "amount", 24, "inches to drive or degrees to turn")
		c.Flags().IntVar(&workers, "workers", 0, "concurrent trials (0 for GOMAXPROCS)")
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search PID gains on the simulated robot",
		Long: "grid search PID gains on the simulated robot.\n\n" +
			"each --param is name=lo:hi:n, e.g. lateral.kp=5:15:5. names: " + strings.Join(optim.Params(), ", "),
		Args: cobra.NoArgs,
		RunE: runTune,
	}
	scenarioFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&searchParams, "param", nil, "search axis name=lo:hi:n (repeatable)")
	tuneCmd.Flags().IntVar(&topN, "top", 5, "trials to show")

	mcCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "repeat a scenario from randomly perturbed starts",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	scenarioFlags(mcCmd)
	mcCmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	mcCmd.Flags().Float64Var(&spread, "spread", 2, "max start offset per axis (in)")
	mcCmd.Flags().Float64Var(&headingSpread, "heading-spread", 5, "max start heading offset (deg)")
	mcCmd.Flags().Float64Var(&plantSpread, "plant-spread", 0, "fractional chassis mismatch, e.g. 0.1 for ±10%")
	mcCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 for time-based)")

	return []*cobra.Command{tuneCmd, mcCmd}
}

func scenario() (optim.Scenario, error) {
	switch scenarioName {
	case "drive":
		return optim.DriveScenario(scenarioSize), nil
	case "turn":
		return optim.TurnScenario(scenarioSize), nil
	default:
		return nil, fmt.Errorf("unknown scenario: %s (drive, turn)", scenarioName)
	}
}

// parseSearchParam reads name=lo:hi:n.
func parseSearchParam(s string) (string, []float64, error) {
	name, spec, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("--param %q: want name=lo:hi:n", s)
	}
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("--param %q: want name=lo:hi:n", s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("--param %q: %w", s, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("--param %q: %w", s, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("--param %q: bad point count", s)
	}
	return name, optim.Range(lo, hi, n), nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := scenario()
	if err != nil {
		return err
	}
	if len(searchParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}

	names := make([]string, 0, len(searchParams))
	ranges := make([][]float64, 0, len(searchParams))
	for _, p := range searchParams {
		name, values, err := parseSearchParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// trials log every command; keep the table readable
	prevLogf := monitoring.SetLogger(nil)
	defer monitoring.SetLogger(prevLogf)

	gs := optim.NewGridSearch(names, ranges)
	gs.Workers = workers
	best, all, err := gs.Search(ctx, cfg, sc, optim.SettleScore)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSCORE\tSETTLED\tELAPSED\n", strings.ToUpper(strings.Join(names, "\t")))
	for i, t := range all {
		if i >= topN {
			break
		}
		for _, n := range names {
			fmt.Fprintf(w, "%.4g\t", t.Params[n])
		}
		fmt.Fprintf(w, "%.3f\t%v\t%v\n", t.Score, t.Settled, t.Elapsed)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d trials; best:", len(all))
	for _, n := range names {
		fmt.Printf(" --set %s=%.4g", n, best.Params[n])
	}
	fmt.Println()
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := scenario()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	prevLogf := monitoring.SetLogger(nil)
	defer monitoring.SetLogger(prevLogf)

	results, err := optim.RunMonteCarlo(ctx, cfg, sc, optim.MonteCarloConfig{
		NumTrials:     trials,
		Spread:        spread,
		HeadingSpread: headingSpread,
		PlantSpread:   plantSpread,
		Seed:          seed,
		Workers:       workers,
	})
	if err != nil {
		return err
	}

	settled, unsettled := optim.MonteCarloStats(results)
	fmt.Printf("trials: %d  settled: %d  unsettled: %d\n", len(results), settled, unsettled)
	for _, r := range results {
		if r.Err != nil || !r.Settled {
			fmt.Printf("  trial %d from %v plant %v: final %v settled=%v err=%v\n", r.TrialID, r.Start, r.Plant, r.Final, r.Settled, r.Err)
		}
	}
	return nil
}
