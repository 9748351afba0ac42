package binding

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/adsorb/internal/ad"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/linalg"
	"github.com/san-kum/adsorb/internal/nonlin"
)

// Phase is a step of consistent initialization.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseNewtonSolve
	PhaseSubstituteConserved
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseNewtonSolve:
		return "NEWTON_SOLVE"
	case PhaseSubstituteConserved:
		return "SUBSTITUTE_CONSERVED"
	case PhaseDone:
		return "DONE"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ConsistentInitializer makes the bound states of one point satisfy every
// quasi-stationary equation. The conserved salt state is not a Newton
// unknown: it is eliminated through the salt equation during the solve and
// substituted afterwards.
type ConsistentInitializer struct {
	Solver nonlin.Solver
	// UseAD linearizes with the AD Jacobian instead of the analytic one.
	UseAD bool
	// CheckJacobian compares analytic and AD Jacobians on every
	// linearization and logs the largest difference at debug level.
	CheckJacobian bool
	Log           logrus.FieldLogger

	phases []Phase
}

func NewConsistentInitializer(solver nonlin.Solver) *ConsistentInitializer {
	if solver == nil {
		solver = nonlin.NewNewton()
	}
	return &ConsistentInitializer{Solver: solver, Log: logrus.StandardLogger()}
}

// Phases returns the phases visited by the last Run.
func (c *ConsistentInitializer) Phases() []Phase { return c.phases }

func (c *ConsistentInitializer) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// Run updates y in place. A failed solve still leaves the last iterate with
// a substituted salt state in y and returns an error wrapping
// dynamo.ErrConvergence.
func (c *ConsistentInitializer) Run(m Model, p dynamo.Point, y, yCp []float64, tol float64) error {
	c.phases = append(c.phases[:0], PhaseInit)
	n := m.NumBoundStates()
	nComp := m.Layout().NComp
	if len(y) < n || len(yCp) < nComp {
		return fmt.Errorf("%w: %s needs %d bound states and %d components", dynamo.ErrDimensionMismatch, m.Name(), n, nComp)
	}
	if !m.HasQuasiStationaryReactions() {
		c.phases = append(c.phases, PhaseDone)
		return nil
	}
	if m.HasSalt() && !m.PreConsistentInitialState(p, y, yCp) {
		return fmt.Errorf("%w: %s: cannot substitute salt state", dynamo.ErrNotConfigured, m.Name())
	}

	var unknowns []int
	for i := 0; i < n; i++ {
		if m.IsQuasiStationary(i) && !(m.HasSalt() && i == 0) {
			unknowns = append(unknowns, i)
		}
	}

	var solveErr error
	if len(unknowns) > 0 {
		c.phases = append(c.phases, PhaseNewtonSolve)
		solveErr = c.solve(m, p, y, yCp, unknowns, tol)
	}

	c.phases = append(c.phases, PhaseSubstituteConserved)
	if m.HasSalt() && !m.PostConsistentInitialState(p, y, yCp) {
		return fmt.Errorf("%w: %s: cannot substitute salt state", dynamo.ErrNotConfigured, m.Name())
	}
	if solveErr != nil {
		return solveErr
	}
	c.phases = append(c.phases, PhaseDone)
	return nil
}

func (c *ConsistentInitializer) solve(m Model, p dynamo.Point, y, yCp []float64, unknowns []int, tol float64) error {
	n := m.NumBoundStates()
	nu := len(unknowns)
	salt := m.HasSalt()
	log := c.log().WithFields(logrus.Fields{"model": m.Name(), "t": p.Time, "section": p.Section})

	work := make([]float64, n)
	copy(work, y[:n])
	full := make([]float64, n)
	fullJac := mat.NewDense(n, n, nil)
	checkJac := mat.NewDense(n, n, nil)
	yAD := ad.Seed(work, n, 0)
	cpAD := ad.ToActive(yCp[:m.Layout().NComp])
	resAD := make([]ad.Active, n)

	// load copies the unknowns into work and substitutes the salt state.
	load := func(x []float64) error {
		for a, i := range unknowns {
			work[i] = x[a]
		}
		if salt && !m.PreConsistentInitialState(p, work, yCp) {
			return fmt.Errorf("%w: %s", dynamo.ErrNotConfigured, m.Name())
		}
		return nil
	}

	analytic := func(dst *mat.Dense) error {
		dst.Zero()
		// cp columns fall left of the matrix and are clipped.
		return m.AnalyticJacobian(p, work, yCp, m.Layout().NComp, linalg.NewDenseRow(dst, 0, 0).Clipped())
	}

	residual := func(x, res []float64) error {
		if err := load(x); err != nil {
			return err
		}
		if err := m.Residual(p, work, yCp, nil, 0, full); err != nil {
			return err
		}
		for a, i := range unknowns {
			res[a] = full[i]
		}
		return nil
	}

	jacobian := func(x []float64, jr *mat.Dense) error {
		if err := load(x); err != nil {
			return err
		}
		if c.UseAD {
			ad.CopyToActive(yAD, work)
			if err := m.ResidualStateActive(p, yAD, cpAD, nil, 0, resAD); err != nil {
				return err
			}
			ad.ExtractJacobian(resAD, 0, fullJac)
			if c.CheckJacobian {
				if err := analytic(checkJac); err != nil {
					return err
				}
				log.WithField("max_diff", ad.CompareJacobian(resAD, 0, checkJac)).Debug("jacobian check")
			}
		} else if err := analytic(fullJac); err != nil {
			return err
		}

		for a, i := range unknowns {
			for b, j := range unknowns {
				v := fullJac.At(i, j)
				if salt {
					// q_0 depends on q_j through the salt equation.
					v -= fullJac.At(i, 0) * fullJac.At(0, j) / fullJac.At(0, 0)
				}
				jr.Set(a, b, v)
			}
		}
		return nil
	}

	x := make([]float64, nu)
	for a, i := range unknowns {
		x[a] = y[i]
	}
	ws := make([]float64, c.Solver.WorkspaceSize(nu))
	ok := c.Solver.Solve(residual, jacobian, tol, x, ws, mat.NewDense(nu, nu, nil), nu)
	for a, i := range unknowns {
		y[i] = x[a]
	}
	if ok {
		return nil
	}

	res := make([]float64, nu)
	if err := residual(x, res); err != nil {
		return fmt.Errorf("%w: %s: %v", dynamo.ErrConvergence, m.Name(), err)
	}
	norm := floats.Norm(res, 2)
	log.WithField("residual", norm).Warn("consistent initialization did not converge")
	if st, isNewton := c.Solver.(interface{ Stats() nonlin.Stats }); isNewton && st.Stats().Err != nil {
		return fmt.Errorf("%w: %s: residual %g: %v", dynamo.ErrConvergence, m.Name(), norm, st.Stats().Err)
	}
	return fmt.Errorf("%w: %s: residual %g", dynamo.ErrConvergence, m.Name(), norm)
}
