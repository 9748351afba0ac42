// Package dynamo provides the shared primitives of the adsorption kinetics core.
//
// The package defines the vocabulary used by every other package:
//
//   - [State]: vector of bound-phase or liquid-phase values at one point
//   - [Position]: location of a discretization point (axial, radial, particle)
//   - [Point]: time, section and position of one evaluation call
//   - sentinel errors such as [ErrInvalidConfiguration] and [ErrConvergence]
//
// # Thread Safety
//
// Nothing in this package holds shared mutable state. [ParallelFor] fans work
// out over goroutines; callers must make sure every chunk only touches data
// it owns (one binding model instance per discretization point).
package dynamo
