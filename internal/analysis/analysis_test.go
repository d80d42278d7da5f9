package analysis

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/tankdrive/internal/motion"
)

const period = 10 * time.Millisecond

func sine(n int, hz, amp, decay float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) * period.Seconds()
		out[i] = amp * math.Exp(-decay*t) * math.Sin(2*math.Pi*hz*t)
	}
	return out
}

func TestPowerSpectrum(t *testing.T) {
	if ps := PowerSpectrum([]float64{1}); ps != nil {
		t.Errorf("expected nil for a single sample, got %v", ps)
	}
	ps := PowerSpectrum([]float64{3, 3, 3, 3})
	if len(ps) != 3 {
		t.Fatalf("expected n/2+1 bins, got %d", len(ps))
	}
	for k, p := range ps {
		if p > 1e-18 {
			t.Errorf("constant signal has power %v at bin %d", p, k)
		}
	}
}

func TestDominantFrequency(t *testing.T) {
	hz, power := DominantFrequency(sine(200, 2, 1, 0), period)
	if math.Abs(hz-2) > 1e-9 {
		t.Errorf("expected 2 Hz, got %v", hz)
	}
	if power <= 0 {
		t.Error("expected positive peak power")
	}
}

func TestDetectOscillation(t *testing.T) {
	ringing := DetectOscillation(sine(300, 3, 10, 0.5), period, 0.1)
	if !ringing.Oscillating || ringing.ZeroCrossings < 3 {
		t.Errorf("expected ringing, got %+v", ringing)
	}
	if math.Abs(ringing.DominantHz-3) > 0.5 {
		t.Errorf("expected ~3 Hz, got %v", ringing.DominantHz)
	}

	decay := make([]float64, 200)
	for i := range decay {
		decay[i] = 24 * math.Exp(-float64(i)/30)
	}
	if rep := DetectOscillation(decay, period, 0.1); rep.Oscillating || rep.ZeroCrossings != 0 {
		t.Errorf("monotone approach flagged: %+v", rep)
	}

	once := []float64{10, 5, 1, -0.8, -0.3, 0.05, 0}
	rep := DetectOscillation(once, period, 0.1)
	if rep.ZeroCrossings != 1 || rep.Oscillating {
		t.Errorf("single overshoot: %+v", rep)
	}
	if rep.PeakAfterCross != 0.8 {
		t.Errorf("expected ring-back 0.8, got %v", rep.PeakAfterCross)
	}
}

func TestErrorSeries(t *testing.T) {
	trace := []motion.Sample{{LateralError: 1, AngularError: -2}, {LateralError: 0.5, AngularError: -1}}
	if got := LateralErrors(trace); got[0] != 1 || got[1] != 0.5 {
		t.Errorf("LateralErrors = %v", got)
	}
	if got := AngularErrors(trace); got[0] != -2 || got[1] != -1 {
		t.Errorf("AngularErrors = %v", got)
	}
}

func TestErrorPortrait(t *testing.T) {
	if ErrorPortrait([]float64{1}, period) != nil {
		t.Error("expected nil portrait for one sample")
	}
	p := ErrorPortrait([]float64{2, 1, 0.5}, period)
	if len(p.Points) != 2 || p.Points[0].X != 1 || math.Abs(p.Points[0].Y+100) > 1e-9 {
		t.Errorf("unexpected portrait %+v", p.Points)
	}

	art := PhasePortraitToASCII(ErrorPortrait(sine(200, 1, 5, 0.2), period), 40, 12)
	lines := strings.Split(strings.TrimRight(art, "\n"), "\n")
	if len(lines) != 12 || !strings.ContainsRune(art, '•') {
		t.Errorf("unexpected ASCII portrait:\n%s", art)
	}
	if PhasePortraitToASCII(nil, 10, 10) != "" {
		t.Error("expected empty output for nil portrait")
	}
}
