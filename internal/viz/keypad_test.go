package viz

import (
	"testing"
	"time"
)

func TestKeyboardPad_HoldExpires(t *testing.T) {
	now := time.Unix(0, 0)
	p := NewKeyboardPad(100 * time.Millisecond)
	p.now = func() time.Time { return now }

	p.Press(LeftStick, 127)
	l, r, err := p.Axes()
	if err != nil {
		t.Fatal(err)
	}
	if l != 127 || r != 0 {
		t.Errorf("axes = (%d, %d), want (127, 0)", l, r)
	}

	now = now.Add(99 * time.Millisecond)
	if l, _, _ := p.Axes(); l != 127 {
		t.Errorf("left = %d before hold expired", l)
	}
	now = now.Add(time.Millisecond)
	if l, _, _ := p.Axes(); l != 0 {
		t.Errorf("left = %d after hold expired", l)
	}
}

func TestKeyboardPad_ClampAndRelease(t *testing.T) {
	p := NewKeyboardPad(0)
	p.Press(RightStick, -500)
	if _, r, _ := p.Axes(); r != -127 {
		t.Errorf("right = %d, want -127", r)
	}
	p.Release()
	if l, r, _ := p.Axes(); l != 0 || r != 0 {
		t.Errorf("axes = (%d, %d) after release", l, r)
	}
}
