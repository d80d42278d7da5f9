package motion

import (
	"time"

	"github.com/san-kum/tankdrive/internal/control"
	"github.com/san-kum/tankdrive/internal/geom"
)

// Sample is one control cycle as seen by observers.
type Sample struct {
	Cycle        int
	Elapsed      time.Duration
	Pose         geom.Pose
	Target       geom.Pose
	LateralError float64 // in
	AngularError float64 // deg
	LateralOut   float64
	AngularOut   float64
	Left, Right  float64
	LateralPhase control.Phase
	AngularPhase control.Phase
}

type Observer interface {
	OnSample(s Sample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Sample)

func (f ObserverFunc) OnSample(s Sample) { f(s) }

// Metric summarises a command's samples into one number.
type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Result struct {
	Command Command
	Final   geom.Pose
	Cycles  int
	Elapsed time.Duration
	Settled bool
	Trace   []Sample
	Metrics map[string]float64
}

// Status is a point-in-time view of the executor for telemetry.
type Status struct {
	Active       bool
	Command      Command
	Cycle        int
	LateralPhase control.Phase
	AngularPhase control.Phase
	Left, Right  float64
}
