// Package behavior implements the Device Behaviour Framework: a
// device instance contributes one or more Behaviours keyed by
// analysis kind, each exposing setup, pointer-binding, load, and
// convergence-check steps. The framework owns the construction-time
// ordering problem (a controlled source must load after the branch
// behaviour it reads from) but never the per-device math — that lives
// in pkg/device.
package behavior

import (
	"spicecore/internal/config"
	"spicecore/pkg/matrix"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
)

// Kind identifies which simulation phase a Behaviour participates in.
type Kind int

const (
	Temperature    Kind = iota // re-evaluate temperature-dependent parameters
	Biasing                    // DC/OP/Transient resistive stamp
	Frequency                  // AC small-signal stamp at the OP
	TimeDerivative             // transient reactive stamp (trapezoidal/Gear)
	Accept                     // end-of-timestep commit notification
	Convergence                // device-specific convergence predicate
)

func (k Kind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Biasing:
		return "biasing"
	case Frequency:
		return "frequency"
	case TimeDerivative:
		return "time-derivative"
	case Accept:
		return "accept"
	case Convergence:
		return "convergence"
	default:
		return "unknown"
	}
}

// Params is the subset of pkg/entity's ParameterSet a Behaviour needs;
// kept narrow here so this package never imports pkg/entity (entity
// values flow in through Context instead, breaking what would
// otherwise be a import cycle between the two packages).
type Params interface {
	Float(name string) (float64, bool)
	Int(name string) (int, bool)
	Bool(name string) (bool, bool)
	String(name string) (string, bool)
}

// Context is everything a Behaviour's Setup needs: its own entity's
// parameters, a resolver for named sibling behaviours (the
// "a controlled source reads the controlling voltage source's
// branch-equation behaviour"), and the shared numerical configuration.
type Context struct {
	Config *config.Base
	Params Params

	// Sibling resolves another entity's Behaviour of a given Kind by
	// entity name. It is only valid to call during Setup, after the
	// topological sort in Order has run.
	Sibling func(entityName string, kind Kind) (Behaviour, error)
}

// Behaviour is the unit of device contribution to one simulation
// phase. Implementations hold the handles they bind in
// BindVariables/BindMatrix plus any per-device state carried between
// calls (a diode's last junction voltage, a reactive device's own
// state.History); the solution vector lives in the state.Solver the
// driver passes to Load.
type Behaviour interface {
	// Kind reports which simulation phase this Behaviour belongs to.
	Kind() Kind

	// Name identifies the owning entity, used for dependency edges and
	// error reporting.
	Name() string

	// DependsOn lists the entity names this Behaviour's Setup will
	// resolve via Context.Sibling — declared up front so Order can
	// topologically sort before any Setup runs.
	DependsOn() []string

	// Setup binds parameters and resolves sibling behaviours. Called
	// once per simulation, in dependency order.
	Setup(ctx *Context) error

	// BindVariables creates or maps this behaviour's unknowns (branch
	// currents, internal nodes) against the shared variable set.
	BindVariables(vars *variable.Set) error

	// BindMatrix acquires the stable matrix/RHS handles this
	// behaviour will accumulate into on every Load.
	BindMatrix(solver *matrix.Solver) error

	// Load stamps the current contribution into the handles bound by
	// BindMatrix, reading the solution/history the driver passes in.
	Load(st *state.Solver) error

	// IsConvergent reports whether this behaviour's own nonlinear
	// quantities (e.g. a diode's limited junction voltage) have
	// settled; the driver ANDs this across every behaviour.
	IsConvergent(st *state.Solver) bool

	// Unsetup releases any resolved sibling references. Called on
	// cancellation or simulation teardown.
	Unsetup()
}

// Set is an ordered, topologically-sorted collection of Behaviours of
// a single Kind, ready to have BindVariables/BindMatrix/Load driven in
// order by a simulation driver.
type Set struct {
	kind  Kind
	items []Behaviour
}

// KindOf returns the analysis kind every Behaviour in this Set shares.
func (s *Set) KindOf() Kind { return s.kind }

// All returns the Behaviours in load order.
func (s *Set) All() []Behaviour { return s.items }

// Setup calls Setup on every Behaviour, in topological order — by the
// time this runs, BindVariables must already have run for every
// Behaviour a Context.Sibling lookup might resolve, since a sibling's
// branch/node variables (not its Setup) are what a dependent reads.
func (s *Set) Setup(ctx *Context) error {
	for _, b := range s.items {
		if err := b.Setup(ctx); err != nil {
			return err
		}
	}
	return nil
}

// BindVariables calls BindVariables on every Behaviour, in order.
func (s *Set) BindVariables(vars *variable.Set) error {
	for _, b := range s.items {
		if err := b.BindVariables(vars); err != nil {
			return err
		}
	}
	return nil
}

// BindMatrix calls BindMatrix on every Behaviour, in order.
func (s *Set) BindMatrix(solver *matrix.Solver) error {
	for _, b := range s.items {
		if err := b.BindMatrix(solver); err != nil {
			return err
		}
	}
	return nil
}

// Load stamps every Behaviour in topological order (the
// ordering guarantee: a behaviour loads after every behaviour it
// DependsOn).
func (s *Set) Load(st *state.Solver) error {
	for _, b := range s.items {
		if err := b.Load(st); err != nil {
			return err
		}
	}
	return nil
}

// Convergent ANDs IsConvergent across every Behaviour in the set.
func (s *Set) Convergent(st *state.Solver) bool {
	for _, b := range s.items {
		if !b.IsConvergent(st) {
			return false
		}
	}
	return true
}

// Unsetup tears down every Behaviour in the set, in reverse order.
func (s *Set) Unsetup() {
	for i := len(s.items) - 1; i >= 0; i-- {
		s.items[i].Unsetup()
	}
}

// byName indexes a slice of Behaviours for DependsOn resolution during
// ordering; a name absent from the index is an unresolved reference.
func byName(items []Behaviour) map[string]Behaviour {
	idx := make(map[string]Behaviour, len(items))
	for _, b := range items {
		idx[b.Name()] = b
	}
	return idx
}
