package motion

import (
	"fmt"
	"time"

	"github.com/san-kum/tankdrive/internal/geom"
)

type Kind int

const (
	ToPose Kind = iota
	ToHeading
)

func (k Kind) String() string {
	switch k {
	case ToPose:
		return "to-pose"
	case ToHeading:
		return "to-heading"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is one motion request. It does not change while it runs.
type Command struct {
	Kind     Kind
	Target   geom.Pose
	Timeout  time.Duration
	Forwards bool
	// MaxSpeed caps the controller output, on the motion output range.
	MaxSpeed float64
}

func (c Command) String() string {
	if c.Kind == ToHeading {
		return fmt.Sprintf("turn to %.1f°", geom.Degrees(c.Target.Heading))
	}
	dir := "forwards"
	if !c.Forwards {
		dir = "backwards"
	}
	return fmt.Sprintf("move %s to %v", dir, c.Target)
}

type Option func(*Command)

// Backwards drives the move in reverse.
func Backwards() Option {
	return func(c *Command) { c.Forwards = false }
}

// MaxSpeed caps the output of the command's controllers.
func MaxSpeed(v float64) Option {
	return func(c *Command) {
		if v > 0 {
			c.MaxSpeed = v
		}
	}
}
