package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/tankdrive/internal/analysis"
	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/export"
	"github.com/san-kum/tankdrive/internal/motion"
	"github.com/san-kum/tankdrive/internal/storage"
	"github.com/san-kum/tankdrive/internal/viz"
)

var (
	phaseAxis   string
	exportFmt   string
	exportOut   string
	svgWidth    int
	svgHeight   int
	deadbandArg float64
)

func runCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot errors and side power of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "oscillation and frequency analysis of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&deadbandArg, "deadband", 0.5, "error treated as zero when counting crossings")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "error phase portrait (error vs rate)",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&phaseAxis, "axis", "lateral", "lateral or angular")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json or svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFmt, "format", "json", "json, svg (path) or field (braille field view as svg)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&svgWidth, "width", 600, "svg width")
	exportCmd.Flags().IntVar(&svgHeight, "height", 600, "svg height")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration as yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if exportOut != "" {
				return config.Save(exportOut, cfg)
			}
			return yaml.NewEncoder(os.Stdout).Encode(cfg)
		},
	}
	configCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to file instead of stdout")

	return []*cobra.Command{listCmd, plotCmd, analyzeCmd, phaseCmd, exportCmd, presetsCmd, configCmd}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tTIME\tCOMMAND\tSETTLED\tELAPSED\tCYCLES")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%v\t%d\n",
			run.ID,
			run.Label,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Command,
			run.Settled,
			run.Elapsed,
			run.Cycles,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []motion.Sample, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	trace, err := st.LoadTrace(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(trace) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, trace, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, trace, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("command: %s\n", meta.Command)
	fmt.Printf("samples: %d\n\n", len(trace))

	left := make([]float64, len(trace))
	right := make([]float64, len(trace))
	for i, s := range trace {
		left[i], right[i] = s.Left, s.Right
	}

	plots := []struct {
		caption string
		data    []float64
	}{
		{"lateral error (in)", analysis.LateralErrors(trace)},
		{"angular error (deg)", analysis.AngularErrors(trace)},
	}
	for _, p := range plots {
		fmt.Println(asciigraph.Plot(p.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(p.caption),
		))
		fmt.Println()
	}

	fmt.Println(asciigraph.PlotMany([][]float64{left, right},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Magenta),
		asciigraph.Caption("side power (left, right)"),
	))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, trace, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("oscillation analysis: %s\n", meta.ID)
	fmt.Printf("command: %s\n\n", meta.Command)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AXIS\tCROSSINGS\tPEAK AFTER CROSS\tDOMINANT HZ\tOSCILLATING")
	axes := []struct {
		name string
		errs []float64
	}{
		{"lateral", analysis.LateralErrors(trace)},
		{"angular", analysis.AngularErrors(trace)},
	}
	for _, a := range axes {
		rep := analysis.DetectOscillation(a.errs, meta.Period, deadbandArg)
		fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\t%v\n", a.name, rep.ZeroCrossings, rep.PeakAfterCross, rep.DominantHz, rep.Oscillating)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	ps := analysis.PowerSpectrum(axes[0].errs)
	if len(ps) > 2 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(ps[1:],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (lateral error)"),
		))
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, trace, err := loadRun(args[0])
	if err != nil {
		return err
	}

	var errs []float64
	switch phaseAxis {
	case "lateral":
		errs = analysis.LateralErrors(trace)
	case "angular":
		errs = analysis.AngularErrors(trace)
	default:
		return fmt.Errorf("unknown axis: %s (lateral, angular)", phaseAxis)
	}

	portrait := analysis.ErrorPortrait(errs, meta.Period)
	if portrait == nil {
		return fmt.Errorf("run %s is too short for a phase portrait", meta.ID)
	}

	fmt.Printf("phase portrait: %s\n", meta.ID)
	fmt.Printf("x: %s error, y: its rate per second\n\n", phaseAxis)
	fmt.Print(analysis.PhasePortraitToASCII(portrait, 70, 24))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch exportFmt {
	case "json":
		return st.ExportJSON(out, runID)
	case "svg":
		trace, err := st.LoadTrace(runID)
		if err != nil {
			return err
		}
		svg := export.TraceToSVG(trace, svgWidth, svgHeight)
		if svg == "" {
			return fmt.Errorf("run %s has too few samples to draw", runID)
		}
		_, err = fmt.Fprintln(out, svg)
		return err
	case "field":
		trace, err := st.LoadTrace(runID)
		if err != nil {
			return err
		}
		if len(trace) == 0 {
			return fmt.Errorf("run %s has no samples", runID)
		}
		c := viz.NewCanvas(svgWidth/8, svgHeight/16)
		field := viz.NewField(c)
		field.Border()
		for _, s := range trace {
			field.Plot(s.Pose.X, s.Pose.Y)
		}
		field.Robot(trace[len(trace)-1].Pose, config.DefaultTrackWidth)
		_, err = fmt.Fprintln(out, export.CanvasToSVG(c, 4))
		return err
	default:
		return fmt.Errorf("unknown format: %s (json, svg, field)", exportFmt)
	}
}
