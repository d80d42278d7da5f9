// Package optim tunes controller gains against the simulated drivebase.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/metrics"
	"github.com/san-kum/tankdrive/internal/motion"
	"github.com/san-kum/tankdrive/internal/robot"
	"github.com/san-kum/tankdrive/internal/sim"
)

// Scenario is the motion a trial scores.
type Scenario func(ctx context.Context, r *robot.Robot) (*motion.Result, error)

func DriveScenario(distance float64) Scenario {
	return func(ctx context.Context, r *robot.Robot) (*motion.Result, error) {
		return r.Drive(ctx, distance, 0)
	}
}

// TurnScenario turns in place by degrees from the current heading.
func TurnScenario(degrees float64) Scenario {
	return func(ctx context.Context, r *robot.Robot) (*motion.Result, error) {
		return r.TurnTo(ctx, r.Pose().Heading+degrees*math.Pi/180, 0)
	}
}

// Objective scores a result; lower is better.
type Objective func(*motion.Result) float64

// SettleScore favours fast settling and penalises overshoot heavily; an
// unsettled run scores worse than any settled one.
func SettleScore(res *motion.Result) float64 {
	score := res.Elapsed.Seconds()
	score += res.Metrics["lateral_overshoot"] + res.Metrics["angular_overshoot"]/10
	if !res.Settled {
		score += 1000
	}
	return score
}

type Trial struct {
	Params  map[string]float64
	Score   float64
	Settled bool
	Elapsed time.Duration
	Metrics map[string]float64
	Err     error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	// Workers bounds concurrent trials; 0 uses GOMAXPROCS.
	Workers int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs scenario once per grid point on a fresh simulated robot and
// returns the best trial plus every trial sorted by score.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, scenario Scenario, objective Objective) (Trial, []Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return Trial{}, nil, fmt.Errorf("%d params but %d ranges", len(g.paramNames), len(g.ranges))
	}
	for _, name := range g.paramNames {
		if err := Apply(base.Clone(), name, 0); err != nil {
			return Trial{}, nil, err
		}
	}

	var points []map[string]float64
	g.searchRecursive(0, make(map[string]float64), &points)
	if len(points) == 0 {
		return Trial{}, nil, errors.New("empty search grid")
	}

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trials := make([]Trial, len(points))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, params := range points {
		eg.Go(func() error {
			trials[i] = runTrial(ctx, base, params, scenario, objective)
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return Trial{}, nil, err
	}

	sort.SliceStable(trials, func(i, j int) bool { return trials[i].Score < trials[j].Score })
	return trials[0], trials, nil
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		point := make(map[string]float64, len(current))
		for k, v := range current {
			point[k] = v
		}
		*out = append(*out, point)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[paramName] = val
		g.searchRecursive(depth+1, current, out)
	}
	delete(current, paramName)
}

func runTrial(ctx context.Context, base *config.Config, params map[string]float64, scenario Scenario, objective Objective) Trial {
	t := Trial{Params: params, Score: math.Inf(1)}

	cfg := base.Clone()
	for name, v := range params {
		if err := Apply(cfg, name, v); err != nil {
			t.Err = err
			return t
		}
	}

	res, err := simulate(ctx, cfg, nil, scenario)
	if res != nil {
		t.Settled, t.Elapsed, t.Metrics = res.Settled, res.Elapsed, res.Metrics
		t.Score = objective(res)
	}
	if err != nil && !errors.Is(err, dynamo.ErrMotionTimeout) {
		t.Err = err
		t.Score = math.Inf(1)
	}
	return t
}

// simulate runs scenario on a fresh lockstep robot, optionally placed at
// start first.
func simulate(ctx context.Context, cfg *config.Config, place func(*sim.Drivebase, *robot.Robot), scenario Scenario) (*motion.Result, error) {
	base, err := sim.NewDrivebase(cfg)
	if err != nil {
		return nil, err
	}
	r, err := robot.NewLockstep(cfg, base, robot.WithMetrics(metrics.Standard()...))
	if err != nil {
		return nil, err
	}
	if place != nil {
		place(base, r)
	}
	return scenario(ctx, r)
}

// Range returns n evenly spaced values from lo to hi inclusive.
func Range(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
