// Package routine loads and runs scripted autonomous routines.
//
// A routine is a YAML file:
//
//	name: skills-left
//	start: {x: 0, y: 0, heading: 0}
//	steps:
//	  - drive: 24
//	  - turn: 90
//	  - move: {x: 24, y: 24, heading: 90}
//	    timeout: 2s
//	    backwards: true
//	  - wait: 250ms
//
// Headings are degrees, counter-clockwise from the +X axis. A step that
// times out is logged and the routine moves on, the way a match
// autonomous does; any other error stops the routine.
package routine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tankdrive/internal/dynamo"
	"github.com/san-kum/tankdrive/internal/geom"
	"github.com/san-kum/tankdrive/internal/monitoring"
	"github.com/san-kum/tankdrive/internal/motion"
)

type Routine struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Start       *FieldPose `yaml:"start,omitempty"`
	Steps       []Step     `yaml:"steps"`
}

// FieldPose is a pose with the heading in degrees.
type FieldPose struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading"`
}

func (p FieldPose) Pose() geom.Pose {
	return geom.Pose{X: p.X, Y: p.Y, Heading: geom.WrapAngle(geom.Radians(p.Heading))}
}

// Step holds exactly one action: Move, Turn, Drive or Wait.
type Step struct {
	Move  *FieldPose    `yaml:"move,omitempty"`
	Turn  *float64      `yaml:"turn,omitempty"`
	Drive *float64      `yaml:"drive,omitempty"`
	Wait  time.Duration `yaml:"wait,omitempty"`

	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Backwards bool          `yaml:"backwards,omitempty"`
	MaxSpeed  float64       `yaml:"max_speed,omitempty"`
}

func (s Step) String() string {
	switch {
	case s.Move != nil:
		return fmt.Sprintf("move to (%.1f, %.1f, %.0f°)", s.Move.X, s.Move.Y, s.Move.Heading)
	case s.Turn != nil:
		return fmt.Sprintf("turn to %.0f°", *s.Turn)
	case s.Drive != nil:
		return fmt.Sprintf("drive %.1f in", *s.Drive)
	default:
		return fmt.Sprintf("wait %v", s.Wait)
	}
}

func (s Step) options() []motion.Option {
	var opts []motion.Option
	if s.Backwards {
		opts = append(opts, motion.Backwards())
	}
	if s.MaxSpeed > 0 {
		opts = append(opts, motion.MaxSpeed(s.MaxSpeed))
	}
	return opts
}

func Load(path string) (*Routine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Routine, error) {
	var r Routine
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Routine) Validate() error {
	if len(r.Steps) == 0 {
		return fmt.Errorf("routine %q: no steps", r.Name)
	}
	for i, s := range r.Steps {
		n := 0
		for _, set := range []bool{s.Move != nil, s.Turn != nil, s.Drive != nil, s.Wait > 0} {
			if set {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("routine %q step %d: want exactly one action, got %d", r.Name, i+1, n)
		}
		if s.Timeout < 0 || s.MaxSpeed < 0 {
			return fmt.Errorf("routine %q step %d: negative timeout or max speed", r.Name, i+1)
		}
	}
	return nil
}

// Driver is the motion surface a routine needs; robot.Robot implements it.
type Driver interface {
	SetPose(p geom.Pose)
	RunTo(ctx context.Context, target geom.Pose, timeout time.Duration, opts ...motion.Option) (*motion.Result, error)
	TurnTo(ctx context.Context, heading float64, timeout time.Duration, opts ...motion.Option) (*motion.Result, error)
	Drive(ctx context.Context, distance float64, timeout time.Duration, opts ...motion.Option) (*motion.Result, error)
}

type StepResult struct {
	Step     Step
	Result   *motion.Result
	TimedOut bool
}

// Run executes the routine's steps in order. The returned slice holds a
// result for every step that ran, including the failing one.
func Run(ctx context.Context, d Driver, r *Routine) ([]StepResult, error) {
	if r.Start != nil {
		d.SetPose(r.Start.Pose())
	}

	results := make([]StepResult, 0, len(r.Steps))
	for i, step := range r.Steps {
		monitoring.Logf("routine %s: step %d/%d: %v", r.Name, i+1, len(r.Steps), step)

		res, err := runStep(ctx, d, step)
		sr := StepResult{Step: step, Result: res}
		if errors.Is(err, dynamo.ErrMotionTimeout) {
			sr.TimedOut = true
			monitoring.Logf("routine %s: step %d timed out, continuing", r.Name, i+1)
			err = nil
		}
		results = append(results, sr)
		if err != nil {
			return results, fmt.Errorf("routine %s step %d (%v): %w", r.Name, i+1, step, err)
		}
	}
	return results, nil
}

func runStep(ctx context.Context, d Driver, s Step) (*motion.Result, error) {
	switch {
	case s.Move != nil:
		return d.RunTo(ctx, s.Move.Pose(), s.Timeout, s.options()...)
	case s.Turn != nil:
		return d.TurnTo(ctx, geom.Radians(*s.Turn), s.Timeout, s.options()...)
	case s.Drive != nil:
		return d.Drive(ctx, *s.Drive, s.Timeout, s.options()...)
	default:
		t := time.NewTimer(s.Wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
			return nil, nil
		}
	}
}
