package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for binding model configuration and evaluation.
var (
	// ErrInvalidConfiguration indicates missing or undersized parameter arrays
	// or a structural violation of a binding model's requirements.
	ErrInvalidConfiguration = errors.New("dynamo: invalid configuration")

	// ErrMissingParameter indicates that a parameter source lacks a requested key.
	ErrMissingParameter = errors.New("dynamo: missing parameter")

	// ErrConvergence indicates that a nonlinear solve did not meet its tolerance
	// within the iteration budget.
	ErrConvergence = errors.New("dynamo: nonlinear solver did not converge")

	// ErrDimensionMismatch indicates buffers whose length does not match the
	// configured number of components or bound states.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrUnknownModel indicates a binding model identifier without a factory.
	ErrUnknownModel = errors.New("dynamo: unknown binding model")

	// ErrNotConfigured indicates use of a model before its discretization was set.
	ErrNotConfigured = errors.New("dynamo: model not configured")
)

// Invalidf wraps ErrInvalidConfiguration with a message naming the offending parameter.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
