package binding

import (
	"math"

	"github.com/san-kum/adsorb/internal/ad"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/linalg"
	"github.com/san-kum/adsorb/internal/params"
)

// StericMassAction is the steric mass action law:
//
//	q_0 = Lambda - sum_j nu_j q_j
//	dq_i/dt = ka_i cp_i (qbar_0/refQ)^nu_i - kd_i q_i (cp_0/refC0)^nu_i
//	qbar_0 = q_0 - sum_j sigma_j q_j
//
// Component 0 is salt with exactly one bound state. Non-binding components
// are allowed.
type StericMassAction struct {
	Base
	kA, kD, nu, sigma *params.Param
	lambda            *params.Param
}

// NewStericMassAction returns an unconfigured law. With external set every
// parameter follows a driving signal.
func NewStericMassAction(external bool) *StericMassAction {
	set := params.NewSet("SMA_", external)
	m := &StericMassAction{}
	// Declaration order fixes the EXTFUN index of each parameter.
	m.kA = set.Vector("KA")
	m.kD = set.Vector("KD")
	m.nu = set.Vector("NU")
	m.sigma = set.Vector("SIGMA")
	m.lambda = set.Scalar("LAMBDA")

	name := "STERIC_MASS_ACTION"
	if external {
		name = "EXT_STERIC_MASS_ACTION"
	}
	m.Base = newBase(name, set, true, nil)
	m.kernel = NewKernel(m, smaFlux[ad.Real], smaFlux[ad.Active])
	return m
}

// smaCapacity returns Lambda - sum_j nu_j q_j. The salt residual and the
// salt substitution share it, so a substituted state has a zero residual.
func smaCapacity[T ad.Number[T]](m *StericMassAction, env *Env[T], y []T) T {
	l := m.layout
	c := env.Scalar(m.lambda)
	for j := 1; j < l.NComp; j++ {
		if l.NBound[j] == 0 {
			continue
		}
		c = c.Sub(env.At(m.nu, j).Mul(y[l.Offset[j]]))
	}
	return c
}

func smaFlux[T ad.Number[T]](m *StericMassAction, env *Env[T], y, yCp, res []T) error {
	l := m.layout
	res[0] = y[0].Sub(smaCapacity(m, env, y))

	q0bar := y[0]
	for j := 1; j < l.NComp; j++ {
		if l.NBound[j] == 0 {
			continue
		}
		q0bar = q0bar.Sub(env.At(m.sigma, j).Mul(y[l.Offset[j]]))
	}

	refC0, refQ := m.params.RefConcentrations()
	c0 := yCp[0].Div(env.Const(refC0))
	q0 := q0bar.Div(env.Const(refQ))

	for i := 1; i < l.NComp; i++ {
		if l.NBound[i] == 0 {
			continue
		}
		s := l.Offset[i]
		nu := env.At(m.nu, i)
		des := env.At(m.kD, i).Mul(y[s]).Mul(c0.Pow(nu))
		ads := env.At(m.kA, i).Mul(yCp[i]).Mul(q0.Pow(nu))
		res[s] = des.Sub(ads)
	}
	return nil
}

func (m *StericMassAction) AnalyticJacobian(p dynamo.Point, y, yCp []float64, offsetCp int, jac linalg.RowIterator) error {
	if err := m.prepare(p, len(y), len(yCp), m.nStates, nil); err != nil {
		return err
	}
	l := m.layout

	q0bar := y[0]
	jac.Set(0, 1)
	for j := 1; j < l.NComp; j++ {
		if l.NBound[j] == 0 {
			continue
		}
		s := l.Offset[j]
		jac.Set(s, m.nu.At(j).Value())
		q0bar -= m.sigma.At(j).Value() * y[s]
	}
	jac.Next()

	refC0, refQ := m.params.RefConcentrations()
	c0 := yCp[0] / refC0
	q0 := q0bar / refQ

	for i := 1; i < l.NComp; i++ {
		if l.NBound[i] == 0 {
			continue
		}
		s := l.Offset[i]
		ka := m.kA.At(i).Value()
		kd := m.kD.At(i).Value()
		nu := m.nu.At(i).Value()

		c0PowNu := math.Pow(c0, nu)
		q0PowNu := math.Pow(q0, nu)
		dc0 := math.Pow(c0, nu-1) / refC0
		dq0 := nu * math.Pow(q0, nu-1) / refQ

		// -s reaches q_0 from the diagonal, a further -offsetCp reaches cp_0.
		jac.Set(-s-offsetCp, kd*y[s]*nu*dc0)
		jac.Set(i-s-offsetCp, -ka*q0PowNu)
		jac.Set(-s, -ka*yCp[i]*dq0)
		for j := 1; j < l.NComp; j++ {
			if l.NBound[j] == 0 {
				continue
			}
			jac.Set(l.Offset[j]-s, ka*yCp[i]*dq0*m.sigma.At(j).Value())
		}
		jac.Add(0, kd*c0PowNu)
		jac.Next()
	}
	return nil
}

func (m *StericMassAction) PreConsistentInitialState(p dynamo.Point, y, yCp []float64) bool {
	if !m.configured || len(y) < m.nStates || len(yCp) < m.layout.NComp {
		return false
	}
	if err := m.params.Update(p.Time, p.Section, p.Pos, m.ext); err != nil {
		return false
	}
	y[0] = float64(smaCapacity(m, plainEnv(p), ad.Reals(y[:m.nStates])))
	return true
}

func (m *StericMassAction) PostConsistentInitialState(p dynamo.Point, y, yCp []float64) bool {
	return m.PreConsistentInitialState(p, y, yCp)
}

var _ Model = (*StericMassAction)(nil)
