// Package odom estimates the robot's field pose from wheel encoders and an
// optional heading sensor.
package odom

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/tankdrive/internal/config"
	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/geom"
)

// Estimator integrates wheel travel into a pose. Update and SetPose may be
// called from one writer at a time; Pose is safe from any goroutine.
type Estimator struct {
	travelPerRev float64
	trackWidth   float64
	maxSpeed     float64
	trust        float64
	faultRatio   float64

	pose atomic.Pointer[geom.Pose]

	mu     sync.Mutex
	offset float64
	tared  bool
}

func NewEstimator(d config.Drivetrain, o config.Odometry) *Estimator {
	e := &Estimator{
		travelPerRev: d.TravelPerRev(),
		trackWidth:   d.TrackWidth,
		maxSpeed:     d.MaxSpeed(),
		trust:        o.HeadingTrust,
		faultRatio:   o.FaultSpeedRatio,
	}
	e.pose.Store(&geom.Pose{})
	return e
}

// Pose returns a copy of the latest estimate.
func (e *Estimator) Pose() geom.Pose {
	return *e.pose.Load()
}

// SetPose overwrites the estimate. The heading sensor is re-tared against
// the new heading on the next update.
func (e *Estimator) SetPose(p geom.Pose) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p.Heading = geom.WrapAngle(p.Heading)
	e.pose.Store(&p)
	e.tared = false
}

// Update folds one cycle of sensor data into the pose. Deltas are motor
// revolutions since the previous call; headingSample is the sensor's
// absolute heading in radians and is ignored when heading trust is zero.
// On ErrSensorFault the previous pose is kept and returned.
func (e *Estimator) Update(leftDelta, rightDelta, headingSample float64, dt time.Duration) (geom.Pose, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := *e.pose.Load()
	if dt <= 0 {
		return prev, fmt.Errorf("%w: got %v", dynamo.ErrInvalidInterval, dt)
	}
	if err := e.check(leftDelta, rightDelta, headingSample, dt); err != nil {
		return prev, err
	}

	left := leftDelta * e.travelPerRev
	right := rightDelta * e.travelPerRev

	heading := prev.Heading + (right-left)/e.trackWidth
	if e.trust > 0 {
		if !e.tared {
			e.offset = prev.Heading - headingSample
			e.tared = true
		}
		sensor := geom.WrapAngle(headingSample + e.offset)
		heading += e.trust * geom.AngleDiff(sensor, heading)
	}
	dTheta := geom.AngleDiff(heading, prev.Heading)

	ds := (left + right) / 2
	chord := ds
	if math.Abs(dTheta) >= 1e-9 {
		chord = 2 * (ds / dTheta) * math.Sin(dTheta/2)
	}
	mid := prev.Heading + dTheta/2

	next := geom.Pose{
		X:       prev.X + chord*math.Cos(mid),
		Y:       prev.Y + chord*math.Sin(mid),
		Heading: geom.WrapAngle(prev.Heading + dTheta),
	}
	if !next.IsFinite() {
		return prev, fmt.Errorf("%w: non-finite pose %v", dynamo.ErrSensorFault, next)
	}
	e.pose.Store(&next)
	return next, nil
}

func (e *Estimator) check(left, right, heading float64, dt time.Duration) error {
	for _, v := range [...]float64{left, right} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: encoder delta %v", dynamo.ErrSensorFault, v)
		}
		if e.faultRatio > 0 {
			speed := math.Abs(v*e.travelPerRev) / dt.Seconds()
			if speed > e.faultRatio*e.maxSpeed {
				return fmt.Errorf("%w: encoder delta %v implies %.1f in/s", dynamo.ErrSensorFault, v, speed)
			}
		}
	}
	if e.trust > 0 && (math.IsNaN(heading) || math.IsInf(heading, 0)) {
		return fmt.Errorf("%w: heading sample %v", dynamo.ErrSensorFault, heading)
	}
	return nil
}
