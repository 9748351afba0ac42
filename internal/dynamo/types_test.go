package dynamo

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
)

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

func TestState_Norms(t *testing.T) {
	s := State{3, -4}
	if got := s.Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("Norm() = %v, want 5", got)
	}
	if got := s.MaxAbs(); got != 4 {
		t.Errorf("MaxAbs() = %v, want 4", got)
	}
	d := State{1, 2, 3}.Sub(State{1, 1})
	if d[0] != 0 || d[1] != 1 || d[2] != 3 {
		t.Errorf("Sub failed: got %v", d)
	}
}

func TestNewLayout(t *testing.T) {
	l, err := NewLayout(4, []int{1, 0, 1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 1, 1, 2}
	for i, off := range want {
		if l.Offset[i] != off {
			t.Errorf("Offset[%d] = %d, want %d", i, l.Offset[i], off)
		}
	}
	if l.NumBoundStates() != 3 {
		t.Errorf("NumBoundStates() = %d, want 3", l.NumBoundStates())
	}
}

func TestNewLayout_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		nComp  int
		nBound []int
	}{
		{"zero components", 0, nil},
		{"short nbound", 3, []int{1, 1}},
		{"negative nbound", 2, []int{1, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.nComp, tt.nBound)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Time: 1.5, Step: 150, Wrapped: ErrConvergence}
	expected := "step 150 (t=1.5000): dynamo: nonlinear solver did not converge"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrConvergence) {
		t.Error("SimulationError does not unwrap to ErrConvergence")
	}
}

func TestParallelFor(t *testing.T) {
	var sum atomic.Int64
	ParallelFor(1000, 10, func(start, end int) {
		for i := start; i < end; i++ {
			sum.Add(int64(i))
		}
	})
	if sum.Load() != 999*1000/2 {
		t.Errorf("ParallelFor visited wrong range: sum %d", sum.Load())
	}
}

func TestParallelFor_Small(t *testing.T) {
	calls := 0
	ParallelFor(0, 4, func(start, end int) {
		calls++
		if start != 0 || end != 0 {
			t.Errorf("got range [%d, %d)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("expected one call, got %d", calls)
	}
}
