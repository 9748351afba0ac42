package metrics

import (
	"math"

	"github.com/san-kum/adsorb/internal/sim"
)

// CapacityResidual tracks the largest violation of the salt capacity
// balance, the first residual row of a model with salt.
type CapacityResidual struct {
	name string
	max  float64
}

func NewCapacityResidual() *CapacityResidual {
	return &CapacityResidual{
		name: "capacity_residual",
	}
}

func (c *CapacityResidual) Name() string {
	return c.name
}

func (c *CapacityResidual) Observe(s sim.Sample) {
	if len(s.Residual) == 0 {
		return
	}
	c.max = math.Max(c.max, math.Abs(s.Residual[0]))
}

func (c *CapacityResidual) Value() float64 {
	return c.max
}

func (c *CapacityResidual) Reset() {
	c.max = 0
}
