package viz

import (
	"sync"
	"time"
)

// DefaultHold is how long a key press keeps its stick deflected. Terminals
// repeat held keys faster than this, so holding a key drives continuously.
const DefaultHold = 150 * time.Millisecond

// Stick names one vertical axis of a tank gamepad.
type Stick int

const (
	LeftStick Stick = iota
	RightStick
)

// KeyboardPad implements hw.Gamepad from key presses: each press pins a
// stick at a position until the hold expires.
type KeyboardPad struct {
	mu    sync.Mutex
	hold  time.Duration
	now   func() time.Time
	value [2]int
	until [2]time.Time
}

func NewKeyboardPad(hold time.Duration) *KeyboardPad {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &KeyboardPad{hold: hold, now: time.Now}
}

// Press deflects a stick to value, clamped to [-127, 127].
func (p *KeyboardPad) Press(s Stick, value int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value[s] = max(-127, min(127, value))
	p.until[s] = p.now().Add(p.hold)
}

// Release centers both sticks.
func (p *KeyboardPad) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = [2]int{}
	p.until = [2]time.Time{}
}

func (p *KeyboardPad) Axes() (leftY, rightY int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	var out [2]int
	for i := range out {
		if now.Before(p.until[i]) {
			out[i] = p.value[i]
		}
	}
	return out[0], out[1], nil
}
