package odom

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/monitoring"
)

type fakeSensors struct {
	mu           sync.Mutex
	left, right  float64
	heading      float64
	encoderErr   error
	headingErr   error
	headingReads int
}

func (f *fakeSensors) Encoders() (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.left, f.right, f.encoderErr
}

func (f *fakeSensors) Heading() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headingReads++
	return f.heading, f.headingErr
}

func (f *fakeSensors) set(l, r float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left, f.right = l, r
}

func muteLogs(t *testing.T) {
	orig := monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(orig) })
}

func TestTracker_DeltasFromCumulative(t *testing.T) {
	est := newEstimator(0)
	s := &fakeSensors{left: 10, right: 10}
	tr := NewTracker(est, s, 10*time.Millisecond)

	if err := tr.Poll(10 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if est.Pose().X != 0 {
		t.Fatal("first poll should only prime")
	}

	s.set(10.1, 10.1)
	if err := tr.Poll(10 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	want := 0.1 * config.DefaultConfig().Drivetrain.TravelPerRev()
	if math.Abs(est.Pose().X-want) > 1e-9 {
		t.Errorf("X = %v, want %v", est.Pose().X, want)
	}
}

func TestTracker_SkipsHeadingWithoutTrust(t *testing.T) {
	est := newEstimator(0)
	s := &fakeSensors{headingErr: errors.New("no imu")}
	tr := NewTracker(est, s, 10*time.Millisecond)

	tr.Poll(10 * time.Millisecond)
	tr.Poll(10 * time.Millisecond)
	if s.headingReads != 0 {
		t.Errorf("heading should not be read at zero trust, got %d reads", s.headingReads)
	}
	if tr.Faults() != 0 {
		t.Errorf("expected no faults, got %d", tr.Faults())
	}
}

func TestTracker_AbsorbsFaults(t *testing.T) {
	muteLogs(t)
	est := newEstimator(0)
	s := &fakeSensors{}
	tr := NewTracker(est, s, 10*time.Millisecond)
	tr.Poll(10 * time.Millisecond)

	s.encoderErr = errors.New("bus timeout")
	if err := tr.Poll(10 * time.Millisecond); err != nil {
		t.Errorf("read errors should be absorbed, got %v", err)
	}
	s.encoderErr = nil

	s.set(math.NaN(), 0)
	if err := tr.Poll(10 * time.Millisecond); err != nil {
		t.Errorf("sensor faults should be absorbed, got %v", err)
	}
	if tr.Faults() != 2 {
		t.Errorf("expected 2 faults, got %d", tr.Faults())
	}

	// Recovery: the next finite reading re-primes, the one after moves.
	s.set(1, 1)
	tr.Poll(10 * time.Millisecond)
	s.set(1.05, 1.05)
	tr.Poll(10 * time.Millisecond)
	if est.Pose().X <= 0 {
		t.Error("tracker should recover after a fault")
	}
}

func TestTracker_InvalidIntervalIsFatal(t *testing.T) {
	est := newEstimator(0)
	tr := NewTracker(est, &fakeSensors{}, 10*time.Millisecond)
	tr.Poll(10 * time.Millisecond)

	if err := tr.Poll(0); err == nil {
		t.Error("expected ErrInvalidInterval from Poll")
	}
}

func TestTracker_Reprime(t *testing.T) {
	est := newEstimator(0)
	s := &fakeSensors{left: 5, right: 5}
	tr := NewTracker(est, s, 10*time.Millisecond)
	tr.Poll(10 * time.Millisecond)

	tr.Reprime()
	s.set(0, 0)
	tr.Poll(10 * time.Millisecond)
	if est.Pose().X != 0 {
		t.Errorf("reprime should swallow the encoder reset, got X=%v", est.Pose().X)
	}
}

func TestTracker_RunStopsOnCancel(t *testing.T) {
	est := newEstimator(0)
	tr := NewTracker(est, &fakeSensors{}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean exit, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
