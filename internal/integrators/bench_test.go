package integrators

import (
	"testing"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/physics"
)

func benchPlant() (*physics.DiffDrive, dynamo.State) {
	cfg := config.DefaultConfig()
	plant := physics.NewDiffDrive(cfg.Drivetrain, cfg.Sim)
	return plant, make(dynamo.State, plant.StateDim())
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn, x := benchPlant()
	u := dynamo.Control{0.5, 0.7}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, u, 0, 0.005)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn, x := benchPlant()
	u := dynamo.Control{0.5, 0.7}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, u, 0, 0.005)
	}
}
