package optim

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/robot"
	"github.com/san-kum/tankdrive/internal/sim"
)

// MonteCarloConfig perturbs the starting pose and simulated chassis of a
// scenario to measure how repeatable it is.
type MonteCarloConfig struct {
	NumTrials int
	// Spread is the maximum start offset in inches along each axis;
	// HeadingSpread is the maximum heading offset in degrees.
	Spread        float64
	HeadingSpread float64
	// PlantSpread scales the simulated chassis away from the configured
	// one: each plant parameter is multiplied by a factor drawn from
	// [1-PlantSpread, 1+PlantSpread]. The controller is not told.
	PlantSpread float64
	Seed        int64
	Workers     int
}

type MonteCarloResult struct {
	TrialID int
	Start   geom.Pose
	Plant   map[string]float64 // only the perturbed parameters
	Final   geom.Pose
	Settled bool
	Elapsed time.Duration
	Err     error
}

// RunMonteCarlo runs scenario from NumTrials perturbed starts.
func RunMonteCarlo(ctx context.Context, cfg *config.Config, scenario Scenario, mc MonteCarloConfig) ([]MonteCarloResult, error) {
	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	nominal, err := sim.NewDrivebase(cfg)
	if err != nil {
		return nil, err
	}
	plantNames := make([]string, 0)
	for name := range nominal.PlantParams() {
		plantNames = append(plantNames, name)
	}
	sort.Strings(plantNames)
	nominalParams := nominal.PlantParams()

	starts := make([]geom.Pose, mc.NumTrials)
	plants := make([]map[string]float64, mc.NumTrials)
	for i := range starts {
		starts[i] = geom.Pose{
			X:       (rng.Float64() - 0.5) * 2 * mc.Spread,
			Y:       (rng.Float64() - 0.5) * 2 * mc.Spread,
			Heading: geom.Radians((rng.Float64() - 0.5) * 2 * mc.HeadingSpread),
		}
		if mc.PlantSpread > 0 {
			plants[i] = make(map[string]float64, len(plantNames))
			for _, name := range plantNames {
				plants[i][name] = nominalParams[name] * (1 + (rng.Float64()-0.5)*2*mc.PlantSpread)
			}
		}
	}

	results := make([]MonteCarloResult, mc.NumTrials)
	eg, ctx := errgroup.WithContext(ctx)
	if mc.Workers > 0 {
		eg.SetLimit(mc.Workers)
	}
	for i, start := range starts {
		eg.Go(func() error {
			var plantErr error
			place := func(base *sim.Drivebase, r *robot.Robot) {
				for name, v := range plants[i] {
					plantErr = errors.Join(plantErr, base.SetPlantParam(name, v))
				}
				base.Place(start)
				r.SetPose(start)
			}
			res, err := simulate(ctx, cfg, place, scenario)
			results[i] = MonteCarloResult{TrialID: i, Start: start, Plant: plants[i], Err: errors.Join(plantErr, err)}
			if res != nil {
				results[i].Final, results[i].Settled, results[i].Elapsed = res.Final, res.Settled, res.Elapsed
			}
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarloStats counts settled and unsettled trials.
func MonteCarloStats(results []MonteCarloResult) (settled int, unsettled int) {
	for _, r := range results {
		if r.Settled {
			settled++
		} else {
			unsettled++
		}
	}
	return
}
