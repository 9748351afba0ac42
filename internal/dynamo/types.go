package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// MaxAbs returns the infinity norm of the state.
func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Position locates a discretization point inside a unit operation.
type Position struct {
	Axial    float64 `yaml:"z" toml:"z" json:"z"`
	Radial   float64 `yaml:"rho" toml:"rho" json:"rho"`
	Particle float64 `yaml:"r" toml:"r" json:"r"`
}

// Point identifies one evaluation call: simulation time, section and location.
type Point struct {
	Time    float64
	Section int
	Pos     Position
}

// Layout describes how bound states are distributed over components.
type Layout struct {
	NComp  int
	NBound []int
	// Offset[i] is the index of the first bound state of component i.
	Offset []int
}

// NewLayout computes bound-state offsets. Offsets are strictly monotonic and
// skip components without bound states.
func NewLayout(nComp int, nBound []int) (Layout, error) {
	if nComp <= 0 {
		return Layout{}, Invalidf("NCOMP must be positive, got %d", nComp)
	}
	if len(nBound) < nComp {
		return Layout{}, Invalidf("NBOUND requires %d entries, got %d", nComp, len(nBound))
	}
	l := Layout{
		NComp:  nComp,
		NBound: make([]int, nComp),
		Offset: make([]int, nComp),
	}
	off := 0
	for i := 0; i < nComp; i++ {
		if nBound[i] < 0 {
			return Layout{}, Invalidf("NBOUND[%d] must be non-negative, got %d", i, nBound[i])
		}
		l.NBound[i] = nBound[i]
		l.Offset[i] = off
		off += nBound[i]
	}
	return l, nil
}

// NumBoundStates returns the total number of bound states.
func (l Layout) NumBoundStates() int {
	n := 0
	for _, b := range l.NBound {
		n += b
	}
	return n
}
