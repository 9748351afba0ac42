package binding

import (
	"github.com/san-kum/adsorb/internal/ad"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/params"
)

// Env is the evaluation context handed to a flux function. It converts
// parameter values into the arithmetic type of the current instantiation.
type Env[T ad.Number[T]] struct {
	Point dynamo.Point
	conv  func(ad.Active) T
}

func plainEnv(p dynamo.Point) *Env[ad.Real] {
	return &Env[ad.Real]{Point: p, conv: func(v ad.Active) ad.Real { return ad.Real(v.Value()) }}
}

// activeEnv returns an Env whose parameters carry their derivative seeds
// only when withParams is set.
func activeEnv(p dynamo.Point, withParams bool) *Env[ad.Active] {
	conv := func(v ad.Active) ad.Active { return ad.Const(v.Value()) }
	if withParams {
		conv = func(v ad.Active) ad.Active { return v }
	}
	return &Env[ad.Active]{Point: p, conv: conv}
}

// Param converts a parameter value.
func (e *Env[T]) Param(v ad.Active) T { return e.conv(v) }

// Scalar returns the current value of a scalar parameter.
func (e *Env[T]) Scalar(p *params.Param) T { return e.conv(p.Value()) }

// At returns the current value of a component parameter.
func (e *Env[T]) At(p *params.Param, comp int) T { return e.conv(p.At(comp)) }

// Const lifts a plain number.
func (e *Env[T]) Const(v float64) T { return ad.Lift[T](v) }

// FluxFunc computes the raw flux of every bound state into res. Time
// derivative terms are added by Base, never by the flux.
type FluxFunc[T ad.Number[T]] func(env *Env[T], y, yCp, res []T) error

// Kernel holds the plain and derivative instantiations of one flux formula.
type Kernel struct {
	plain  FluxFunc[ad.Real]
	active FluxFunc[ad.Active]
}

// NewKernel binds a generic flux formula to a law. Pass the same generic
// function instantiated twice, e.g. NewKernel(m, smaFlux[ad.Real], smaFlux[ad.Active]).
func NewKernel[L any](law L,
	plain func(L, *Env[ad.Real], []ad.Real, []ad.Real, []ad.Real) error,
	active func(L, *Env[ad.Active], []ad.Active, []ad.Active, []ad.Active) error,
) Kernel {
	return Kernel{
		plain: func(env *Env[ad.Real], y, yCp, res []ad.Real) error {
			return plain(law, env, y, yCp, res)
		},
		active: func(env *Env[ad.Active], y, yCp, res []ad.Active) error {
			return active(law, env, y, yCp, res)
		},
	}
}

// Residual evaluates with plain values throughout.
func (b *Base) Residual(p dynamo.Point, y, yCp, yDot []float64, timeFactor float64, res []float64) error {
	if err := b.prepare(p, len(y), len(yCp), len(res), yDot); err != nil {
		return err
	}
	out := make([]ad.Real, b.nStates)
	if err := b.kernel.plain(plainEnv(p), ad.Reals(y[:b.nStates]), ad.Reals(yCp[:b.layout.NComp]), out); err != nil {
		return err
	}
	ad.Floats(res, out)
	if yDot == nil {
		return nil
	}
	for i, qs := range b.qs {
		if !qs {
			res[i] += float64(timeFactor * yDot[i])
		}
	}
	return nil
}

// ResidualActive evaluates with dual state, liquid phase, parameters and
// time. It serves combined state and parameter sensitivities.
func (b *Base) ResidualActive(t ad.Active, p dynamo.Point, y, yCp []ad.Active, yDot []float64, timeFactor ad.Active, res []ad.Active) error {
	p.Time = t.Value()
	if err := b.prepare(p, len(y), len(yCp), len(res), yDot); err != nil {
		return err
	}
	return b.activeResidual(activeEnv(p, true), y, yCp, yDot, timeFactor, res)
}

// ResidualStateActive evaluates with dual state and liquid phase and plain
// parameters. Its derivatives form the state Jacobian.
func (b *Base) ResidualStateActive(p dynamo.Point, y, yCp []ad.Active, yDot []float64, timeFactor float64, res []ad.Active) error {
	if err := b.prepare(p, len(y), len(yCp), len(res), yDot); err != nil {
		return err
	}
	return b.activeResidual(activeEnv(p, false), y, yCp, yDot, ad.Const(timeFactor), res)
}

// ResidualParamActive evaluates with plain state and dual parameters and
// time. Its derivatives are parameter sensitivities.
func (b *Base) ResidualParamActive(t ad.Active, p dynamo.Point, y, yCp, yDot []float64, timeFactor ad.Active, res []ad.Active) error {
	p.Time = t.Value()
	if err := b.prepare(p, len(y), len(yCp), len(res), yDot); err != nil {
		return err
	}
	return b.activeResidual(activeEnv(p, true), ad.ToActive(y), ad.ToActive(yCp), yDot, timeFactor, res)
}

func (b *Base) activeResidual(env *Env[ad.Active], y, yCp []ad.Active, yDot []float64, timeFactor ad.Active, res []ad.Active) error {
	if err := b.kernel.active(env, y[:b.nStates], yCp[:b.layout.NComp], res[:b.nStates]); err != nil {
		return err
	}
	if yDot == nil {
		return nil
	}
	for i, qs := range b.qs {
		if !qs {
			res[i] = res[i].Add(timeFactor.Mul(ad.Const(yDot[i])))
		}
	}
	return nil
}
