// Package telemetry publishes periodic snapshots of the drive stack.
package telemetry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/monitoring"
)

type Snapshot struct {
	Time           time.Time
	Pose           geom.Pose
	MotionActive   bool
	Target         geom.Pose // valid while MotionActive
	LateralSettled bool
	AngularSettled bool
	LeftPower      float64
	RightPower     float64
	LeftWatts      []float64
	RightWatts     []float64
	Battery        float64 // percent
	SensorFaults   int64
}

// Source produces a snapshot on demand; robot.Robot implements it.
type Source interface {
	Snapshot() Snapshot
}

type Sink interface {
	Publish(s Snapshot) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Snapshot) error

func (f SinkFunc) Publish(s Snapshot) error { return f(s) }

// Loop publishes a snapshot every period until ctx is done. Sink errors
// are logged and never stop the loop.
func Loop(ctx context.Context, period time.Duration, src Source, sink Sink) error {
	if period <= 0 {
		return fmt.Errorf("telemetry: period must be positive, got %v", period)
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		if err := sink.Publish(src.Snapshot()); err != nil {
			monitoring.Logf("telemetry: publish: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// LogSink writes the motor and battery report through the diagnostic
// logger.
type LogSink struct{}

func (LogSink) Publish(s Snapshot) error {
	monitoring.Logf("%s", Report(s))
	return nil
}

// Report renders the snapshot as the multi-line status screen.
func Report(s Snapshot) string {
	var b strings.Builder
	b.WriteString("Data n' Stuff:\n")
	for i, w := range s.RightWatts {
		fmt.Fprintf(&b, "Right Motor %d Power: %dW\n", i+1, int(w))
	}
	for i, w := range s.LeftWatts {
		fmt.Fprintf(&b, "Left Motor %d Power: %dW\n", i+1, int(w))
	}
	fmt.Fprintf(&b, "Battery Percentage: %d %%\n", int(s.Battery))
	fmt.Fprintf(&b, "Pose: %v", s.Pose)
	return b.String()
}

// BatteryRGB fades from green at full charge through yellow to red when
// empty.
func BatteryRGB(percent float64) (r, g, b uint8) {
	percent = math.Max(0, math.Min(100, percent))
	red := math.Min(255, 510-percent*5.1)
	green := math.Min(255, percent*5.1)
	return uint8(red), uint8(green), 20
}

func BatteryColor(percent float64) lipgloss.Color {
	r, g, b := BatteryRGB(percent)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b))
}
