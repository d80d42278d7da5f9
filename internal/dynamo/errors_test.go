package dynamo

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestCycleError(t *testing.T) {
	err := &CycleError{Cycle: 12, Elapsed: 120 * time.Millisecond, Wrapped: ErrInvalidInterval}

	if !errors.Is(err, ErrInvalidInterval) {
		t.Error("CycleError should unwrap to its cause")
	}
	want := fmt.Sprintf("cycle 12 (120ms): %v", ErrInvalidInterval)
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Clone(t *testing.T) {
	a := State{1, 2}
	b := a.Clone()
	b[0] = 99
	if a[0] != 1 {
		t.Error("Clone should not share backing storage")
	}
}
