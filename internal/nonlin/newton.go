package nonlin

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("nonlin: singular Jacobian")

// Stats describes the most recent Solve call.
type Stats struct {
	Iterations int
	Residual   float64
	Damping    float64
	// Err is set when the solve stopped because of an evaluation failure or a
	// singular Jacobian rather than the iteration budget.
	Err error
}

// Newton is a damped Newton solver with backtracking line search.
// A Newton value must not be shared between goroutines.
type Newton struct {
	MaxIterations int
	// MinDamping is the smallest step fraction tried before giving up.
	MinDamping float64
	// StepTolerance stops the iteration when the scaled update is this small
	// and the residual is below the tolerance.
	StepTolerance float64
	Log           logrus.FieldLogger

	stats Stats
}

func NewNewton() *Newton {
	return &Newton{
		MaxIterations: 50,
		MinDamping:    1e-4,
		StepTolerance: 1e-14,
		Log:           logrus.StandardLogger(),
	}
}

var _ Solver = (*Newton)(nil)

// Stats returns the statistics of the last Solve.
func (s *Newton) Stats() Stats { return s.stats }

// WorkspaceSize returns the scratch length needed for n unknowns.
func (s *Newton) WorkspaceSize(n int) int { return 4 * n }

func (s *Newton) Solve(residual ResidualFunc, jacobian JacobianFunc, tol float64, x, workspace []float64, jac *mat.Dense, n int) bool {
	s.stats = Stats{}
	if n == 0 {
		return true
	}
	if len(x) < n || len(workspace) < s.WorkspaceSize(n) {
		s.stats.Err = fmt.Errorf("nonlin: need %d unknowns and %d workspace, got %d and %d", n, s.WorkspaceSize(n), len(x), len(workspace))
		return false
	}
	if jac == nil {
		jac = mat.NewDense(n, n, nil)
	} else if r, c := jac.Dims(); r != n || c != n {
		s.stats.Err = fmt.Errorf("nonlin: Jacobian is %dx%d, want %dx%d", r, c, n, n)
		return false
	}
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = 50
	}
	minDamping := s.MinDamping
	if minDamping <= 0 {
		minDamping = 1e-4
	}

	x = x[:n]
	res := workspace[0:n]
	dx := workspace[n : 2*n]
	trial := workspace[2*n : 3*n]
	trialRes := workspace[3*n : 4*n]

	if err := residual(x, res); err != nil {
		s.stats.Err = err
		return false
	}
	norm := floats.Norm(res, 2)
	s.stats.Residual = norm

	var lu mat.LU
	dxv := mat.NewVecDense(n, dx)
	for iter := 1; iter <= maxIter; iter++ {
		if norm <= tol {
			return true
		}
		s.stats.Iterations = iter

		if err := jacobian(x, jac); err != nil {
			s.stats.Err = err
			return false
		}
		lu.Factorize(jac)
		if err := lu.SolveVecTo(dxv, false, mat.NewVecDense(n, res)); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
				s.stats.Err = errSingular
				return false
			}
		}
		if !finite(dx) {
			s.stats.Err = errSingular
			return false
		}

		damping := 1.0
		accepted := false
		var trialNorm float64
		for damping >= minDamping {
			for i := range trial {
				trial[i] = x[i] - damping*dx[i]
			}
			if err := residual(trial, trialRes); err == nil {
				trialNorm = floats.Norm(trialRes, 2)
				if !math.IsNaN(trialNorm) && trialNorm < (1-1e-4*damping)*norm {
					accepted = true
					break
				}
			}
			damping /= 2
		}
		if !accepted {
			log.WithFields(logrus.Fields{
				"iter":     iter,
				"residual": norm,
			}).Debug("newton: line search failed")
			return norm <= tol
		}

		step := damping * floats.Norm(dx, 2)
		copy(x, trial)
		copy(res, trialRes)
		norm = trialNorm
		s.stats.Residual = norm
		s.stats.Damping = damping

		log.WithFields(logrus.Fields{
			"iter":     iter,
			"residual": norm,
			"damping":  damping,
		}).Debug("newton: step")

		if step <= s.StepTolerance*(1+floats.Norm(x, 2)) && norm <= tol {
			return true
		}
	}
	return norm <= tol
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
