// Package binding evaluates adsorption binding models at a single
// discretization point.
//
// A binding model maps the liquid phase concentrations cp and bound states q
// of one point to the residual of the bound-phase equations and its Jacobian.
// Each law writes its flux once as a generic function over ad.Number. Base
// turns that function into the plain and derivative entry points of Model,
// classifies equations as kinetic or quasi-stationary and assembles the
// discretized time derivative.
//
// A Model caches parameter values that follow external driving signals, so
// every discretization point evaluated concurrently needs its own Model.
package binding

import (
	"github.com/san-kum/adsorb/internal/ad"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/linalg"
	"github.com/san-kum/adsorb/internal/params"
)

// Model is a configured binding model.
type Model interface {
	Name() string

	// ConfigureDiscretization sets the number of components and bound states
	// per component.
	ConfigureDiscretization(nComp int, nBound []int) error
	// Configure reads parameters and registers them under unit.
	Configure(src params.Provider, unit int) error
	SetExternalFunctions(ext []params.ExternalFunction)

	Layout() dynamo.Layout
	NumBoundStates() int
	HasSalt() bool
	DependsOnTime() bool
	Parameters() *params.Registry

	// IsQuasiStationary reports whether bound state i is algebraic.
	IsQuasiStationary(i int) bool
	HasQuasiStationaryReactions() bool
	// AlgebraicBlock returns the contiguous range of algebraic equations
	// starting at the first quasi-stationary state.
	AlgebraicBlock() (start, n int)

	Residual(p dynamo.Point, y, yCp, yDot []float64, timeFactor float64, res []float64) error
	ResidualActive(t ad.Active, p dynamo.Point, y, yCp []ad.Active, yDot []float64, timeFactor ad.Active, res []ad.Active) error
	ResidualStateActive(p dynamo.Point, y, yCp []ad.Active, yDot []float64, timeFactor float64, res []ad.Active) error
	ResidualParamActive(t ad.Active, p dynamo.Point, y, yCp, yDot []float64, timeFactor ad.Active, res []ad.Active) error

	// AnalyticJacobian writes the derivatives of the raw flux starting at the
	// row jac currently addresses. The liquid phase of component k sits
	// k-offsetCp columns from the diagonal of the first row.
	AnalyticJacobian(p dynamo.Point, y, yCp []float64, offsetCp int, jac linalg.RowIterator) error
	// JacobianAddDiscretized adds alpha to the diagonal of every kinetic row.
	JacobianAddDiscretized(alpha float64, jac linalg.RowIterator)
	// MultiplyWithDerivativeJacobian computes res = dF/dyDot * yDotS.
	MultiplyWithDerivativeJacobian(yDotS, res []float64, timeFactor float64)

	// PreConsistentInitialState and PostConsistentInitialState substitute
	// the conserved capacity state from the other bound states.
	PreConsistentInitialState(p dynamo.Point, y, yCp []float64) bool
	PostConsistentInitialState(p dynamo.Point, y, yCp []float64) bool
}
