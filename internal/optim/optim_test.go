package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/monitoring"
	"github.com/san-kum/tankdrive/internal/physics"
)

func quiet(t *testing.T) {
	orig := monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(orig) })
}

func TestApply(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := Apply(cfg, "angular.kd", 0.2); err != nil || cfg.Angular.Kd != 0.2 {
		t.Errorf("Apply angular.kd: %v (kd=%v)", err, cfg.Angular.Kd)
	}
	for _, bad := range []string{"kp", "vertical.kp", "lateral.mass"} {
		if err := Apply(cfg, bad, 1); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
	if n := len(Params()); n != 14 {
		t.Errorf("expected 14 tunable params, got %d", n)
	}
}

func TestRange(t *testing.T) {
	got := Range(1, 2, 3)
	if len(got) != 3 || got[0] != 1 || got[1] != 1.5 || got[2] != 2 {
		t.Errorf("Range = %v", got)
	}
	if got := Range(5, 9, 1); len(got) != 1 || got[0] != 5 {
		t.Errorf("single-point Range = %v", got)
	}
}

func TestGridSearch_PrefersSettlingGains(t *testing.T) {
	quiet(t)
	g := NewGridSearch([]string{"lateral.kp", "lateral.kd"}, [][]float64{{0.5, 10}, {0.03}})
	g.Workers = 2

	best, all, err := g.Search(context.Background(), config.DefaultConfig(), DriveScenario(24), SettleScore)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 trials, got %d", len(all))
	}
	if best.Params["lateral.kp"] != 10 || !best.Settled {
		t.Errorf("expected kp=10 to win and settle, got %+v", best)
	}
	if all[0].Score > all[1].Score {
		t.Error("trials should be sorted by score")
	}
	for _, tr := range all {
		if tr.Err != nil {
			t.Errorf("trial %v failed: %v", tr.Params, tr.Err)
		}
	}
}

func TestGridSearch_Errors(t *testing.T) {
	cfg := config.DefaultConfig()

	if _, _, err := NewGridSearch([]string{"lateral.kp"}, nil).Search(context.Background(), cfg, DriveScenario(1), SettleScore); err == nil {
		t.Error("expected mismatched ranges error")
	}
	if _, _, err := NewGridSearch([]string{"lateral.mass"}, [][]float64{{1}}).Search(context.Background(), cfg, DriveScenario(1), SettleScore); err == nil {
		t.Error("expected unknown param error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewGridSearch([]string{"lateral.kp"}, [][]float64{{10}}).Search(ctx, cfg, DriveScenario(24), SettleScore)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunMonteCarlo(t *testing.T) {
	quiet(t)
	results, err := RunMonteCarlo(context.Background(), config.DefaultConfig(), TurnScenario(90), MonteCarloConfig{
		NumTrials:     4,
		Spread:        6,
		HeadingSpread: 10,
		Seed:          7,
	})
	if err != nil {
		t.Fatal(err)
	}
	settled, unsettled := MonteCarloStats(results)
	if settled != 4 || unsettled != 0 {
		t.Errorf("expected all turns to settle, got %d/%d", settled, unsettled)
	}
	for _, r := range results {
		turned := r.Final.Heading - r.Start.Heading
		if math.Abs(turned*180/math.Pi-90) > 4 {
			t.Errorf("trial %d turned %.1f°", r.TrialID, turned*180/math.Pi)
		}
		if math.Hypot(r.Final.X-r.Start.X, r.Final.Y-r.Start.Y) > 0.5 {
			t.Errorf("trial %d moved during a turn in place", r.TrialID)
		}
	}
}

func TestRunMonteCarlo_PlantSpread(t *testing.T) {
	quiet(t)
	results, err := RunMonteCarlo(context.Background(), config.DefaultConfig(), DriveScenario(24), MonteCarloConfig{
		NumTrials:   4,
		PlantSpread: 0.2,
		Seed:        11,
		Workers:     2,
	})
	if err != nil {
		t.Fatal(err)
	}
	nominal := physics.NewDiffDrive(config.DefaultConfig().Drivetrain, config.DefaultConfig().Sim).GetParams()
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("trial %d: %v", r.TrialID, r.Err)
		}
		if len(r.Plant) != len(nominal) {
			t.Fatalf("trial %d perturbed %d params, want %d", r.TrialID, len(r.Plant), len(nominal))
		}
		for name, v := range r.Plant {
			if ratio := v / nominal[name]; ratio < 0.8 || ratio > 1.2 {
				t.Errorf("trial %d %s scaled by %.3f", r.TrialID, name, ratio)
			}
		}
		if !r.Settled {
			t.Errorf("trial %d did not settle on a mismatched plant", r.TrialID)
		}
	}
}
