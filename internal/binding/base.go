package binding

import (
	"fmt"

	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/linalg"
	"github.com/san-kum/adsorb/internal/params"
)

// Base implements the parts of Model shared by all laws. A law embeds Base,
// declares its parameters on the Set passed to newBase and installs a Kernel.
type Base struct {
	name string
	// salt marks state 0 as the conserved capacity equation, which is always
	// quasi-stationary.
	salt     bool
	validate func(dynamo.Layout) error

	layout      dynamo.Layout
	nStates     int
	discretized bool
	configured  bool
	qs          []bool

	params   *params.Set
	registry *params.Registry
	ext      []params.ExternalFunction
	kernel   Kernel
}

func newBase(name string, set *params.Set, salt bool, validate func(dynamo.Layout) error) Base {
	return Base{
		name:     name,
		salt:     salt,
		validate: validate,
		params:   set,
		registry: params.NewRegistry(),
	}
}

func (b *Base) Name() string { return b.name }

func (b *Base) ConfigureDiscretization(nComp int, nBound []int) error {
	layout, err := dynamo.NewLayout(nComp, nBound)
	if err != nil {
		return err
	}
	for i, n := range layout.NBound {
		if n > 1 {
			return dynamo.Invalidf("%s does not support multiple bound states (NBOUND[%d] = %d)", b.name, i, n)
		}
	}
	if b.salt && layout.NBound[0] != 1 {
		return dynamo.Invalidf("%s requires exactly one bound state for salt component (NBOUND[0] = %d)", b.name, layout.NBound[0])
	}
	if b.validate != nil {
		if err := b.validate(layout); err != nil {
			return err
		}
	}

	n := layout.NumBoundStates()
	qs := make([]bool, n)
	if b.salt {
		qs[0] = true
	}
	b.layout = layout
	b.nStates = n
	b.qs = qs
	b.discretized = true
	b.configured = false
	return nil
}

// Configure reads IS_KINETIC and the law parameters. IS_KINETIC is either a
// single flag or one flag per bound state. Nothing changes unless every
// parameter is valid.
func (b *Base) Configure(src params.Provider, unit int) error {
	if !b.discretized {
		return fmt.Errorf("%w: %s: configure discretization first", dynamo.ErrNotConfigured, b.name)
	}
	kinetic, err := src.GetBoolArray("IS_KINETIC")
	if err != nil {
		return err
	}
	if len(kinetic) != 1 && len(kinetic) < b.nStates {
		return dynamo.Invalidf("IS_KINETIC requires 1 or %d elements, got %d", b.nStates, len(kinetic))
	}
	qs := make([]bool, b.nStates)
	for i := range qs {
		if len(kinetic) == 1 {
			qs[i] = !kinetic[0]
		} else {
			qs[i] = !kinetic[i]
		}
	}
	if b.salt {
		qs[0] = true
	}

	if err := b.params.Configure(src, b.layout.NComp); err != nil {
		return err
	}
	reg := params.NewRegistry()
	b.params.Register(reg, unit, b.layout.NBound)

	b.qs = qs
	b.registry = reg
	b.configured = true
	return nil
}

func (b *Base) SetExternalFunctions(ext []params.ExternalFunction) {
	b.ext = append([]params.ExternalFunction(nil), ext...)
}

func (b *Base) Layout() dynamo.Layout { return b.layout }

func (b *Base) NumBoundStates() int { return b.nStates }

func (b *Base) HasSalt() bool { return b.salt }

func (b *Base) DependsOnTime() bool { return b.params.DependsOnTime() }

func (b *Base) Parameters() *params.Registry { return b.registry }

func (b *Base) IsQuasiStationary(i int) bool { return b.qs[i] }

func (b *Base) HasQuasiStationaryReactions() bool {
	for _, q := range b.qs {
		if q {
			return true
		}
	}
	return false
}

func (b *Base) AlgebraicBlock() (start, n int) {
	start = -1
	for i, q := range b.qs {
		if q {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, 0
	}
	for i := start; i < len(b.qs) && b.qs[i]; i++ {
		n++
	}
	return start, n
}

// JacobianAddDiscretized advances jac past the local block.
func (b *Base) JacobianAddDiscretized(alpha float64, jac linalg.RowIterator) {
	for _, q := range b.qs {
		if !q {
			jac.Add(0, alpha)
		}
		jac.Next()
	}
}

func (b *Base) MultiplyWithDerivativeJacobian(yDotS, res []float64, timeFactor float64) {
	for i, q := range b.qs {
		if q {
			res[i] = 0
		} else {
			res[i] = timeFactor * yDotS[i]
		}
	}
}

// prepare validates buffer sizes and refreshes driving-signal dependent
// parameters for p.
func (b *Base) prepare(p dynamo.Point, ny, nCp, nRes int, yDot []float64) error {
	if !b.configured {
		return fmt.Errorf("%w: %s", dynamo.ErrNotConfigured, b.name)
	}
	if ny < b.nStates || nRes < b.nStates || nCp < b.layout.NComp {
		return fmt.Errorf("%w: %s needs %d bound states and %d components, got y=%d res=%d cp=%d",
			dynamo.ErrDimensionMismatch, b.name, b.nStates, b.layout.NComp, ny, nRes, nCp)
	}
	if yDot != nil && len(yDot) < b.nStates {
		return fmt.Errorf("%w: %s: yDot has %d entries, want %d", dynamo.ErrDimensionMismatch, b.name, len(yDot), b.nStates)
	}
	return b.params.Update(p.Time, p.Section, p.Pos, b.ext)
}
