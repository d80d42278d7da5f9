// Package storage persists motion runs: metadata.json plus trace.csv in a
// directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/control"
	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/motion"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Label     string             `json:"label"`
	Command   string             `json:"command"`
	Kind      string             `json:"kind"`
	Timestamp time.Time          `json:"timestamp"`
	Target    geom.Pose          `json:"target"`
	Final     geom.Pose          `json:"final"`
	Settled   bool               `json:"settled"`
	Cycles    int                `json:"cycles"`
	Elapsed   time.Duration      `json:"elapsed_ns"`
	Period    time.Duration      `json:"period_ns"`
	Lateral   config.PID         `json:"lateral"`
	Angular   config.PID         `json:"angular"`
	Metrics   map[string]float64 `json:"metrics"`
}

var traceHeader = []string{
	"cycle", "elapsed_ms",
	"x", "y", "heading_deg",
	"target_x", "target_y", "target_heading_deg",
	"lateral_error", "angular_error",
	"lateral_out", "angular_out",
	"left", "right",
	"lateral_phase", "angular_phase",
}

// Save writes a run and returns its id.
func (s *Store) Save(label string, cfg *config.Config, res *motion.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Label:     label,
		Command:   res.Command.String(),
		Kind:      res.Command.Kind.String(),
		Timestamp: time.Now(),
		Target:    res.Command.Target,
		Final:     res.Final,
		Settled:   res.Settled,
		Cycles:    res.Cycles,
		Elapsed:   res.Elapsed,
		Period:    cfg.Motion.Period,
		Lateral:   cfg.Lateral,
		Angular:   cfg.Angular,
		Metrics:   res.Metrics,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trace.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(traceHeader); err != nil {
		return "", err
	}
	for _, smp := range res.Trace {
		if err := w.Write(traceRow(smp)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return runID, nil
}

func traceRow(s motion.Sample) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return []string{
		strconv.Itoa(s.Cycle),
		strconv.FormatInt(s.Elapsed.Milliseconds(), 10),
		f(s.Pose.X), f(s.Pose.Y), f(geom.Degrees(s.Pose.Heading)),
		f(s.Target.X), f(s.Target.Y), f(geom.Degrees(s.Target.Heading)),
		f(s.LateralError), f(s.AngularError),
		f(s.LateralOut), f(s.AngularOut),
		f(s.Left), f(s.Right),
		strconv.Itoa(int(s.LateralPhase)), strconv.Itoa(int(s.AngularPhase)),
	}
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTrace reads a run's per-cycle samples back.
func (s *Store) LoadTrace(runID string) ([]motion.Sample, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(dir, "trace.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(traceHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []motion.Sample{}, nil
	}

	trace := make([]motion.Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		smp, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%s trace line %d: %w", runID, i+2, err)
		}
		trace = append(trace, smp)
	}
	return trace, nil
}

func parseRow(rec []string) (motion.Sample, error) {
	var vals [16]float64
	for i, field := range rec {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return motion.Sample{}, err
		}
		vals[i] = v
	}
	return motion.Sample{
		Cycle:        int(vals[0]),
		Elapsed:      time.Duration(vals[1]) * time.Millisecond,
		Pose:         geom.Pose{X: vals[2], Y: vals[3], Heading: geom.Radians(vals[4])},
		Target:       geom.Pose{X: vals[5], Y: vals[6], Heading: geom.Radians(vals[7])},
		LateralError: vals[8],
		AngularError: vals[9],
		LateralOut:   vals[10],
		AngularOut:   vals[11],
		Left:         vals[12],
		Right:        vals[13],
		LateralPhase: control.Phase(vals[14]),
		AngularPhase: control.Phase(vals[15]),
	}, nil
}

// runDir rejects ids that are not run ids, so callers cannot escape the
// store directory.
func (s *Store) runDir(runID string) (string, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	return filepath.Join(s.baseDir, runID), nil
}
