package sim

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingPoller struct {
	calls int
	dt    time.Duration
	err   error
}

func (c *countingPoller) Poll(dt time.Duration) error {
	c.calls++
	c.dt = dt
	return c.err
}

func TestLockstep_StepsThenPolls(t *testing.T) {
	base, _ := newBase(t)
	poller := &countingPoller{}
	pace := NewLockstep(base, poller, 10*time.Millisecond)

	for i := 0; i < 5; i++ {
		if err := pace.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if poller.calls != 5 || poller.dt != 10*time.Millisecond {
		t.Errorf("poller saw %d calls with dt %v", poller.calls, poller.dt)
	}
	if base.Elapsed() != 50*time.Millisecond || pace.Cycles() != 5 {
		t.Errorf("elapsed %v after %d cycles", base.Elapsed(), pace.Cycles())
	}
}

func TestLockstep_CanceledContext(t *testing.T) {
	base, _ := newBase(t)
	pace := NewLockstep(base, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pace.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if base.Elapsed() != 0 {
		t.Error("canceled wait should not advance time")
	}
}

func TestLockstep_PropagatesPollError(t *testing.T) {
	base, _ := newBase(t)
	boom := errors.New("boom")
	pace := NewLockstep(base, &countingPoller{err: boom}, 10*time.Millisecond)
	if err := pace.Wait(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected poll error, got %v", err)
	}
}
