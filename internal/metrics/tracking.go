package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/tankdrive/internal/motion"
)

// Axis selects which error a metric follows.
type Axis int

const (
	Lateral Axis = iota
	Angular
)

func (a Axis) String() string {
	if a == Angular {
		return "angular"
	}
	return "lateral"
}

func (a Axis) error(s motion.Sample) float64 {
	if a == Angular {
		return s.AngularError
	}
	return s.LateralError
}

// RMSError is the root-mean-square error of one axis over the command.
type RMSError struct {
	axis  Axis
	errSq []float64
}

func NewRMSError(axis Axis) *RMSError {
	return &RMSError{axis: axis}
}

func (r *RMSError) Name() string { return r.axis.String() + "_rms_error" }

func (r *RMSError) Observe(s motion.Sample) {
	e := r.axis.error(s)
	r.errSq = append(r.errSq, e*e)
}

func (r *RMSError) Value() float64 {
	if len(r.errSq) == 0 {
		return 0
	}
	return math.Sqrt(stat.Mean(r.errSq, nil))
}

func (r *RMSError) Reset() { r.errSq = r.errSq[:0] }

// Overshoot is the largest error seen on the far side of the target, in
// the axis's units. An approach that never crosses scores zero.
type Overshoot struct {
	axis    Axis
	initial float64
	started bool
	worst   float64
}

func NewOvershoot(axis Axis) *Overshoot {
	return &Overshoot{axis: axis}
}

func (o *Overshoot) Name() string { return o.axis.String() + "_overshoot" }

func (o *Overshoot) Observe(s motion.Sample) {
	e := o.axis.error(s)
	if !o.started {
		o.initial, o.started = e, true
		return
	}
	if o.initial == 0 || math.Signbit(e) == math.Signbit(o.initial) {
		return
	}
	o.worst = math.Max(o.worst, math.Abs(e))
}

func (o *Overshoot) Value() float64 { return o.worst }

func (o *Overshoot) Reset() {
	o.initial, o.started, o.worst = 0, false, 0
}

// Saturation is the fraction of cycles with either side at full power.
type Saturation struct {
	name      string
	threshold float64
	saturated int
	samples   int
}

func NewSaturation(threshold float64) *Saturation {
	return &Saturation{
		name:      "saturation",
		threshold: threshold,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(sample motion.Sample) {
	s.samples++
	if math.Abs(sample.Left) >= s.threshold || math.Abs(sample.Right) >= s.threshold {
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}

// Standard returns the metric set attached to every executor built by the
// robot and the tuner.
func Standard() []motion.Metric {
	return []motion.Metric{
		NewControlEffort(),
		NewRMSError(Lateral),
		NewRMSError(Angular),
		NewOvershoot(Lateral),
		NewOvershoot(Angular),
		NewSaturation(0.99),
	}
}
