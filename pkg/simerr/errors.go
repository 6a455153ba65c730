// Package simerr defines the typed error kinds raised across the
// simulation core. Every exported error type satisfies the
// standard error interface and is meant to be matched with errors.As.
package simerr

import "fmt"

// BadParameter reports a parameter outside its valid domain, e.g. a
// non-positive resistance.
type BadParameter struct {
	Entity string
	Param  string
	Value  float64
	Reason string
}

func (e *BadParameter) Error() string {
	return fmt.Sprintf("%s: parameter %s=%g invalid: %s", e.Entity, e.Param, e.Value, e.Reason)
}

// UnknownEntity reports a reference to an entity name that does not
// exist in the circuit (e.g. a controlled source's controlling source).
type UnknownEntity struct {
	Name string
}

func (e *UnknownEntity) Error() string {
	return fmt.Sprintf("unknown entity %q", e.Name)
}

// UnknownVariable reports a reference to a node/branch variable name
// that was never created in the VariableSet.
type UnknownVariable struct {
	Name string
}

func (e *UnknownVariable) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Name)
}

// DuplicateEntity reports an attempt to add two entities under the
// same name to a Circuit.
type DuplicateEntity struct {
	Name string
}

func (e *DuplicateEntity) Error() string {
	return fmt.Sprintf("duplicate entity %q", e.Name)
}

// DuplicateVariable reports two Create calls producing the same name
// under different kinds.
type DuplicateVariable struct {
	Name string
}

func (e *DuplicateVariable) Error() string {
	return fmt.Sprintf("duplicate variable %q", e.Name)
}

// SingularMatrix reports a factorization failure: no acceptable pivot
// existed in the remaining submatrix at the given row. Entity, when
// known, names the device that most recently stamped into that row —
// a diagnostic aid, populated only when the caller tracks stamp
// provenance (debug builds).
type SingularMatrix struct {
	Row    int
	Entity string
}

func (e *SingularMatrix) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("singular matrix at row %d (last stamped by %s)", e.Row, e.Entity)
	}
	return fmt.Sprintf("singular matrix at row %d", e.Row)
}

// NoConvergence reports Newton or transient step-down exhaustion,
// carrying the last residual and the step size in effect.
type NoConvergence struct {
	Iterations   int
	LastResidual float64
	StepSize     float64
}

func (e *NoConvergence) Error() string {
	return fmt.Sprintf("failed to converge after %d iterations (residual=%g, step=%g)",
		e.Iterations, e.LastResidual, e.StepSize)
}

// Cancelled reports that a caller-supplied cancellation token fired.
type Cancelled struct {
	At string // "iteration" or "timepoint", for diagnostics
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("simulation cancelled at %s", e.At)
}
