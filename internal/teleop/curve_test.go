package teleop

import (
	"math"
	"testing"

	"github.com/san-kum/tankdrive/internal/config"
)

func TestCurve_Linear(t *testing.T) {
	c := NewCurve(config.Teleop{Curve: 1})

	for _, stick := range []int{-127, -64, 0, 1, 50, 127} {
		got := c.Apply(stick)
		want := float64(stick) / 127
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("Apply(%d) = %v, want %v", stick, got, want)
		}
	}
}

func TestCurve_Deadband(t *testing.T) {
	c := NewCurve(config.Teleop{Deadband: 5, Curve: 1})

	for _, stick := range []int{-5, -1, 0, 3, 5} {
		if got := c.Apply(stick); got != 0 {
			t.Errorf("Apply(%d) = %v inside deadband", stick, got)
		}
	}
	if got := c.Apply(127); math.Abs(got-1) > 1e-12 {
		t.Errorf("full stick should still reach full power, got %v", got)
	}
}

func TestCurve_MinOutput(t *testing.T) {
	c := NewCurve(config.Teleop{Deadband: 5, MinOutput: 20, Curve: 1})

	got := c.Apply(6)
	if got < 20.0/127 {
		t.Errorf("just past the deadband should jump to min output, got %v", got)
	}
	if got := c.Apply(-127); math.Abs(got+1) > 1e-12 {
		t.Errorf("expected -1 at full reverse, got %v", got)
	}
}

func TestCurve_ExpoMonotonic(t *testing.T) {
	c := NewCurve(config.Teleop{Curve: 1.019})

	prev := 0.0
	for stick := 1; stick <= 127; stick++ {
		got := c.Apply(stick)
		if got < prev {
			t.Fatalf("curve not monotonic at %d", stick)
		}
		if got > float64(stick)/127+1e-12 {
			t.Fatalf("expo should stay below linear at %d", stick)
		}
		prev = got
	}
	if math.Abs(prev-1) > 1e-12 {
		t.Errorf("expected full power at 127, got %v", prev)
	}
}

func TestCurve_SubLinearGainNeverExceedsStick(t *testing.T) {
	for _, gain := range []float64{0, 0.5, 0.9} {
		c := NewCurve(config.Teleop{Curve: gain})
		for stick := -127; stick <= 127; stick++ {
			got := c.Apply(stick)
			if math.Abs(got) > math.Abs(float64(stick))/127+1e-12 {
				t.Fatalf("gain %v: Apply(%d) = %v exceeds the stick", gain, stick, got)
			}
		}
	}
}

func TestCurve_ClampsOutOfRange(t *testing.T) {
	c := NewCurve(config.Teleop{Curve: 1})
	if got := c.Apply(400); math.Abs(got-1) > 1e-12 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
}
