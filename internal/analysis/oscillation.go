package analysis

import (
	"math"
	"time"

	"github.com/san-kum/tankdrive/internal/motion"
)

func LateralErrors(trace []motion.Sample) []float64 {
	out := make([]float64, len(trace))
	for i, s := range trace {
		out[i] = s.LateralError
	}
	return out
}

func AngularErrors(trace []motion.Sample) []float64 {
	out := make([]float64, len(trace))
	for i, s := range trace {
		out[i] = s.AngularError
	}
	return out
}

type OscillationReport struct {
	ZeroCrossings int
	DominantHz    float64
	// PeakAfterCross is the largest error magnitude after the first
	// crossing, i.e. the worst ring-back.
	PeakAfterCross float64
	Oscillating    bool
}

// minCrossings is how many sign changes count as ringing rather than a
// single overshoot and recovery.
const minCrossings = 3

// DetectOscillation looks for ringing in an error signal sampled every
// period. Errors inside deadband are treated as zero so that noise around
// the target is not counted.
func DetectOscillation(errs []float64, period time.Duration, deadband float64) OscillationReport {
	var rep OscillationReport
	sign := 0
	for _, e := range errs {
		s := 0
		switch {
		case e > deadband:
			s = 1
		case e < -deadband:
			s = -1
		}
		if s == 0 {
			continue
		}
		if sign != 0 && s != sign {
			rep.ZeroCrossings++
		}
		sign = s
		if rep.ZeroCrossings > 0 {
			rep.PeakAfterCross = math.Max(rep.PeakAfterCross, math.Abs(e))
		}
	}
	rep.DominantHz, _ = DominantFrequency(errs, period)
	rep.Oscillating = rep.ZeroCrossings >= minCrossings
	return rep
}
