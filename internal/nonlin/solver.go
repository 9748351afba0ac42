// Package nonlin defines the nonlinear solver contract used for consistent
// initialization and implicit time steps, and a damped Newton solver.
package nonlin

import "gonum.org/v1/gonum/mat"

// ResidualFunc evaluates the residual at x into res.
type ResidualFunc func(x, res []float64) error

// JacobianFunc evaluates the Jacobian at x into jac, an n by n matrix.
type JacobianFunc func(x []float64, jac *mat.Dense) error

// Solver finds x with |residual(x)| <= tol.
//
// x holds the initial guess on entry and the last iterate on return.
// workspace must have at least WorkspaceSize(n) elements. jac is scratch
// storage for the Jacobian and may be nil.
type Solver interface {
	WorkspaceSize(n int) int
	Solve(residual ResidualFunc, jacobian JacobianFunc, tol float64, x, workspace []float64, jac *mat.Dense, n int) bool
}
