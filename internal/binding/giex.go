package binding

import (
	"math"

	"github.com/san-kum/adsorb/internal/ad"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/linalg"
	"github.com/san-kum/adsorb/internal/params"
)

// GeneralizedIonExchange extends steric mass action with pH and
// concentration dependent rates. Component 1 carries the pH and never binds.
//
//	nu_i(pH) = nu_i + pH nuLin_i + pH^2 nuQuad_i
//	ka_i     = kA_i exp(pH kALin_i + pH^2 kAQuad_i + kASalt_i cp_0/refC0 + kAProt_i cp_i)
//	kd_i     = kD_i exp(pH kDLin_i + pH^2 kDQuad_i + kDSalt_i cp_0/refC0 + kDProt_i cp_i)
//	q_0      = Lambda - sum_{j>=2} nu_j(pH) q_j
type GeneralizedIonExchange struct {
	Base
	kA, kALin, kAQuad, kASalt, kAProt *params.Param
	kD, kDLin, kDQuad, kDSalt, kDProt *params.Param
	nu, nuLin, nuQuad                 *params.Param
	sigma                             *params.Param
	lambda                            *params.Param
}

func NewGeneralizedIonExchange(external bool) *GeneralizedIonExchange {
	set := params.NewSet("GIEX_", external)
	m := &GeneralizedIonExchange{}
	m.lambda = set.Scalar("LAMBDA")
	m.kA = set.Vector("KA")
	m.kALin = set.Vector("KA_LIN")
	m.kAQuad = set.Vector("KA_QUAD")
	m.kASalt = set.Vector("KA_SALT")
	m.kAProt = set.Vector("KA_PROT")
	m.kD = set.Vector("KD")
	m.kDLin = set.Vector("KD_LIN")
	m.kDQuad = set.Vector("KD_QUAD")
	m.kDSalt = set.Vector("KD_SALT")
	m.kDProt = set.Vector("KD_PROT")
	m.nu = set.Vector("NU")
	m.nuLin = set.Vector("NU_LIN")
	m.nuQuad = set.Vector("NU_QUAD")
	m.sigma = set.Vector("SIGMA")

	name := "GENERALIZED_ION_EXCHANGE"
	if external {
		name = "EXT_GENERALIZED_ION_EXCHANGE"
	}
	m.Base = newBase(name, set, true, func(l dynamo.Layout) error {
		if l.NComp < 3 {
			return dynamo.Invalidf("%s requires at least 3 components, got %d", name, l.NComp)
		}
		if l.NBound[1] != 0 {
			return dynamo.Invalidf("%s requires non-binding modifier component (NBOUND[1] = %d)", name, l.NBound[1])
		}
		return nil
	})
	m.kernel = NewKernel(m, giexFlux[ad.Real], giexFlux[ad.Active])
	return m
}

// giexNu returns the characteristic charge of component j at the given pH.
func giexNu[T ad.Number[T]](m *GeneralizedIonExchange, env *Env[T], pH T, j int) T {
	return env.At(m.nu, j).Add(pH.Mul(env.At(m.nuLin, j).Add(pH.Mul(env.At(m.nuQuad, j)))))
}

func giexCapacity[T ad.Number[T]](m *GeneralizedIonExchange, env *Env[T], y, yCp []T) T {
	l := m.layout
	pH := yCp[1]
	c := env.Scalar(m.lambda)
	for j := 2; j < l.NComp; j++ {
		if l.NBound[j] == 0 {
			continue
		}
		c = c.Sub(giexNu(m, env, pH, j).Mul(y[l.Offset[j]]))
	}
	return c
}

// giexRate evaluates k0 exp(pH (lin + pH quad) + salt c0 + prot cp).
func giexRate[T ad.Number[T]](env *Env[T], k0, lin, quad, salt, prot *params.Param, i int, pH, c0, cp T) T {
	arg := pH.Mul(env.At(lin, i).Add(pH.Mul(env.At(quad, i)))).
		Add(env.At(salt, i).Mul(c0)).
		Add(env.At(prot, i).Mul(cp))
	return env.At(k0, i).Mul(arg.Exp())
}

func giexFlux[T ad.Number[T]](m *GeneralizedIonExchange, env *Env[T], y, yCp, res []T) error {
	l := m.layout
	pH := yCp[1]
	res[0] = y[0].Sub(giexCapacity(m, env, y, yCp))

	q0bar := y[0]
	for j := 2; j < l.NComp; j++ {
		if l.NBound[j] == 0 {
			continue
		}
		q0bar = q0bar.Sub(env.At(m.sigma, j).Mul(y[l.Offset[j]]))
	}

	refC0, refQ := m.params.RefConcentrations()
	c0 := yCp[0].Div(env.Const(refC0))
	q0 := q0bar.Div(env.Const(refQ))

	for i := 2; i < l.NComp; i++ {
		if l.NBound[i] == 0 {
			continue
		}
		s := l.Offset[i]
		nu := giexNu(m, env, pH, i)
		ka := giexRate(env, m.kA, m.kALin, m.kAQuad, m.kASalt, m.kAProt, i, pH, c0, yCp[i])
		kd := giexRate(env, m.kD, m.kDLin, m.kDQuad, m.kDSalt, m.kDProt, i, pH, c0, yCp[i])
		des := kd.Mul(y[s]).Mul(c0.Pow(nu))
		ads := ka.Mul(yCp[i]).Mul(q0.Pow(nu))
		res[s] = des.Sub(ads)
	}
	return nil
}

func (m *GeneralizedIonExchange) AnalyticJacobian(p dynamo.Point, y, yCp []float64, offsetCp int, jac linalg.RowIterator) error {
	if err := m.prepare(p, len(y), len(yCp), m.nStates, nil); err != nil {
		return err
	}
	l := m.layout
	pH := yCp[1]
	at := func(par *params.Param, i int) float64 { return par.At(i).Value() }

	q0bar := y[0]
	dpH := 0.0
	jac.Set(0, 1)
	for j := 2; j < l.NComp; j++ {
		if l.NBound[j] == 0 {
			continue
		}
		s := l.Offset[j]
		jac.Set(s, at(m.nu, j)+pH*(at(m.nuLin, j)+pH*at(m.nuQuad, j)))
		dpH += (at(m.nuLin, j) + 2*pH*at(m.nuQuad, j)) * y[s]
		q0bar -= at(m.sigma, j) * y[s]
	}
	jac.Set(1-offsetCp, dpH)
	jac.Next()

	refC0, refQ := m.params.RefConcentrations()
	c0 := yCp[0] / refC0
	q0 := q0bar / refQ

	for i := 2; i < l.NComp; i++ {
		if l.NBound[i] == 0 {
			continue
		}
		s := l.Offset[i]
		nu := at(m.nu, i) + pH*(at(m.nuLin, i)+pH*at(m.nuQuad, i))
		dNu := at(m.nuLin, i) + 2*pH*at(m.nuQuad, i)

		c0PowNu := math.Pow(c0, nu)
		q0PowNu := math.Pow(q0, nu)
		dc0 := math.Pow(c0, nu-1) / refC0
		dq0 := nu * math.Pow(q0, nu-1) / refQ

		ka := at(m.kA, i) * math.Exp(pH*(at(m.kALin, i)+pH*at(m.kAQuad, i))+at(m.kASalt, i)*c0+at(m.kAProt, i)*yCp[i])
		kd := at(m.kD, i) * math.Exp(pH*(at(m.kDLin, i)+pH*at(m.kDQuad, i))+at(m.kDSalt, i)*c0+at(m.kDProt, i)*yCp[i])
		dKa := ka * (at(m.kALin, i) + 2*pH*at(m.kAQuad, i))
		dKd := kd * (at(m.kDLin, i) + 2*pH*at(m.kDQuad, i))

		jac.Set(-s-offsetCp, kd*y[s]*(nu*dc0+c0PowNu*at(m.kDSalt, i)/refC0)-ka*yCp[i]*q0PowNu*at(m.kASalt, i)/refC0)
		jac.Set(1-s-offsetCp, y[s]*c0PowNu*(dKd+kd*math.Log(c0)*dNu)-yCp[i]*q0PowNu*(dKa+ka*math.Log(q0)*dNu))
		jac.Set(i-s-offsetCp, -ka*q0PowNu*(1+yCp[i]*at(m.kAProt, i))+kd*y[s]*c0PowNu*at(m.kDProt, i))
		jac.Set(-s, -ka*yCp[i]*dq0)
		for j := 2; j < l.NComp; j++ {
			if l.NBound[j] == 0 {
				continue
			}
			jac.Set(l.Offset[j]-s, ka*yCp[i]*dq0*at(m.sigma, j))
		}
		jac.Add(0, kd*c0PowNu)
		jac.Next()
	}
	return nil
}

func (m *GeneralizedIonExchange) PreConsistentInitialState(p dynamo.Point, y, yCp []float64) bool {
	if !m.configured || len(y) < m.nStates || len(yCp) < m.layout.NComp {
		return false
	}
	if err := m.params.Update(p.Time, p.Section, p.Pos, m.ext); err != nil {
		return false
	}
	env := plainEnv(p)
	y[0] = float64(giexCapacity(m, env, ad.Reals(y[:m.nStates]), ad.Reals(yCp[:m.layout.NComp])))
	return true
}

func (m *GeneralizedIonExchange) PostConsistentInitialState(p dynamo.Point, y, yCp []float64) bool {
	return m.PreConsistentInitialState(p, y, yCp)
}

var _ Model = (*GeneralizedIonExchange)(nil)
