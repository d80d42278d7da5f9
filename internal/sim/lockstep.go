package sim

import (
	"context"
	"time"
)

// Poller runs one estimation cycle; odom.Tracker implements it.
type Poller interface {
	Poll(dt time.Duration) error
}

// Lockstep paces a control loop against simulated time: each Wait steps
// the drivebase by one period and then runs the estimator, so the next
// cycle sees fresh pose feedback without any wall-clock sleeping.
type Lockstep struct {
	base    *Drivebase
	tracker Poller
	period  time.Duration
	cycles  int
}

func NewLockstep(base *Drivebase, tracker Poller, period time.Duration) *Lockstep {
	return &Lockstep{base: base, tracker: tracker, period: period}
}

func (l *Lockstep) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.base.Step(l.period); err != nil {
		return err
	}
	l.cycles++
	if l.tracker != nil {
		return l.tracker.Poll(l.period)
	}
	return nil
}

// Cycles returns the number of completed waits.
func (l *Lockstep) Cycles() int { return l.cycles }
