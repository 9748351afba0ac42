package metrics

import (
	"github.com/san-kum/adsorb/internal/sim"
)

// TotalBound reports the bound amount of the last sample, skipping the
// leading salt states.
type TotalBound struct {
	name  string
	skip  int
	total float64
}

func NewTotalBound(skip int) *TotalBound {
	return &TotalBound{
		name: "total_bound",
		skip: skip,
	}
}

func (b *TotalBound) Name() string { return b.name }

func (b *TotalBound) Observe(s sim.Sample) {
	b.total = 0
	for i := b.skip; i < len(s.Q); i++ {
		b.total += s.Q[i]
	}
}

func (b *TotalBound) Value() float64 { return b.total }

func (b *TotalBound) Reset() { b.total = 0 }

// NewtonIterations is the mean number of Newton iterations per step.
type NewtonIterations struct {
	name    string
	sum     int
	samples int
}

func NewNewtonIterations() *NewtonIterations {
	return &NewtonIterations{
		name: "newton_iterations",
	}
}

func (n *NewtonIterations) Name() string { return n.name }

func (n *NewtonIterations) Observe(s sim.Sample) {
	n.sum += s.Iterations
	n.samples++
}

func (n *NewtonIterations) Value() float64 {
	if n.samples == 0 {
		return 0
	}
	return float64(n.sum) / float64(n.samples)
}

func (n *NewtonIterations) Reset() {
	n.sum = 0
	n.samples = 0
}
