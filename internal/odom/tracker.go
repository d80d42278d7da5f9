package odom

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/hw"
	"github.com/san-kum/tankdrive/internal/monitoring"
)

// Tracker is the background estimation cycle: it reads the sensors at a
// fixed period and feeds the deltas to an Estimator.
type Tracker struct {
	est     *Estimator
	sensors hw.Sensors
	period  time.Duration

	primed       bool
	lastL, lastR float64
	reprime      atomic.Bool
	faults       atomic.Int64
}

func NewTracker(est *Estimator, sensors hw.Sensors, period time.Duration) *Tracker {
	return &Tracker{est: est, sensors: sensors, period: period}
}

// Poll runs one estimation cycle. Sensor faults are logged and absorbed;
// only ErrInvalidInterval is returned.
func (t *Tracker) Poll(dt time.Duration) error {
	if t.reprime.Swap(false) {
		t.primed = false
	}

	l, r, err := t.sensors.Encoders()
	if err != nil {
		t.fault("encoder read failed: %v", err)
		return nil
	}
	if !t.primed {
		if finite(l) && finite(r) {
			t.lastL, t.lastR, t.primed = l, r, true
		}
		return nil
	}

	var heading float64
	if t.est.trust > 0 {
		heading, err = t.sensors.Heading()
		if err != nil {
			t.fault("heading read failed: %v", err)
			return nil
		}
	}

	_, err = t.est.Update(l-t.lastL, r-t.lastR, heading, dt)
	switch {
	case err == nil:
	case errors.Is(err, dynamo.ErrInvalidInterval):
		return err
	case errors.Is(err, dynamo.ErrSensorFault):
		t.fault("holding pose: %v", err)
	default:
		return err
	}
	// Advance past faulty deltas too so a glitched counter is not replayed
	// forever; a non-finite reading forces a fresh prime instead.
	if finite(l) && finite(r) {
		t.lastL, t.lastR = l, r
	} else {
		t.primed = false
	}
	return nil
}

// Run polls until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		if err := t.Poll(t.period); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Reprime makes the next cycle re-read the encoders without producing a
// delta, e.g. after the encoders are reset. Safe while Run is active.
func (t *Tracker) Reprime() {
	t.reprime.Store(true)
}

// Faults returns the number of absorbed sensor faults.
func (t *Tracker) Faults() int64 { return t.faults.Load() }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (t *Tracker) fault(format string, v ...interface{}) {
	t.faults.Add(1)
	monitoring.Logf("odom: "+format, v...)
}
