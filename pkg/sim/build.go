// Package sim implements the Newton-Raphson engine, the
// operating-point recovery sequence, and
// the DC/AC/transient sweep loops built on top of the Behaviour
// framework and sparse matrix layer. A Simulation is a pure function of
// a device list and a configuration — it carries no global
// state and constructs a fresh variable set and matrix for every Build.
package sim

import (
	"spicecore/internal/config"
	"spicecore/pkg/behavior"
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
	"spicecore/pkg/variable"
)

// accepter is implemented by reactive devices that need a distinct
// end-of-step commit notification (Capacitor, Inductor, VoltageSwitch).
type accepter interface {
	AcceptBehaviour() behavior.Behaviour
}

// frequencyProvider is implemented by devices whose AC stamp differs
// from their Biasing stamp (independent sources, diode, VCVS,
// inductor). A device without this method but with
// Kind()==Biasing is reused directly as its own Frequency behaviour:
// a purely real, linear stamp (Resistor, VCCS, CCCS, CCVS) is already
// correct under AddComplex-free accumulation, since MatrixElement.Add
// only ever touches the real part. A TimeDerivative device without
// this method (Capacitor) is left out of the Frequency set and
// contributes no AC stamp.
type frequencyProvider interface {
	FrequencyBehaviour() behavior.Behaviour
}

// Simulation wires a flat device list into bound, ordered Behaviour
// Sets ready to drive: Biasing and TimeDerivative pull load order from
// behavior.Order, Accept and Frequency are assembled separately since
// neither participates in the Newton stamping loop.
type Simulation struct {
	Config *config.Base

	Vars   *variable.Set
	Matrix *matrix.Solver

	Biasing    *behavior.Set
	Reactive   *behavior.Set
	Accept     *behavior.Set
	Frequency  *behavior.Set
}

// Build constructs a Simulation from a flat list of device Behaviours
// (one per entity — the object a device constructor in pkg/device
// returns). Order within the list does not matter: BindVariables runs
// for every item before any Setup call, so a controlled source's
// Context.Sibling lookup always finds its controlling device's branch
// variable already allocated, regardless of declaration order — the
// ordering guarantee concerns Setup/Load sequencing, not variable
// allocation, which touches only a device's own pins.
func Build(items []behavior.Behaviour, cfg *config.Base) (*Simulation, error) {
	vars := variable.NewSet()
	for _, b := range items {
		if err := b.BindVariables(vars); err != nil {
			return nil, err
		}
	}

	index := make(map[string]behavior.Behaviour, len(items))
	for _, b := range items {
		index[b.Name()] = b
	}
	ctx := &behavior.Context{
		Config: cfg,
		Sibling: func(name string, _ behavior.Kind) (behavior.Behaviour, error) {
			b, ok := index[name]
			if !ok {
				return nil, &simerr.UnknownEntity{Name: name}
			}
			return b, nil
		},
	}

	var biasingItems, reactiveItems []behavior.Behaviour
	var acceptItems, freqItems []behavior.Behaviour
	for _, b := range items {
		switch b.Kind() {
		case behavior.Biasing:
			biasingItems = append(biasingItems, b)
		case behavior.TimeDerivative:
			reactiveItems = append(reactiveItems, b)
		}
		if a, ok := b.(accepter); ok {
			acceptItems = append(acceptItems, a.AcceptBehaviour())
		}
		if f, ok := b.(frequencyProvider); ok {
			freqItems = append(freqItems, f.FrequencyBehaviour())
		} else if b.Kind() == behavior.Biasing {
			freqItems = append(freqItems, b)
		}
	}

	biasing, err := behavior.Order(behavior.Biasing, biasingItems)
	if err != nil {
		return nil, err
	}
	reactive, err := behavior.Order(behavior.TimeDerivative, reactiveItems)
	if err != nil {
		return nil, err
	}
	accept, err := behavior.Order(behavior.Accept, acceptItems)
	if err != nil {
		return nil, err
	}
	frequency, err := behavior.Order(behavior.Frequency, freqItems)
	if err != nil {
		return nil, err
	}

	if err := biasing.Setup(ctx); err != nil {
		return nil, err
	}
	if err := reactive.Setup(ctx); err != nil {
		return nil, err
	}

	sim := &Simulation{
		Config:    cfg,
		Vars:      vars,
		Biasing:   biasing,
		Reactive:  reactive,
		Accept:    accept,
		Frequency: frequency,
	}
	return sim, nil
}

// bindReal constructs a real-valued matrix solver and binds every
// Biasing/TimeDerivative handle against it — the pass every DC/OP/
// transient driver needs before it can Load and Solve.
func (s *Simulation) bindReal() error {
	solver, err := matrix.New(s.Vars.Size(), false, s.Config)
	if err != nil {
		return err
	}
	if err := s.Biasing.BindMatrix(solver); err != nil {
		return err
	}
	if err := s.Reactive.BindMatrix(solver); err != nil {
		return err
	}
	s.Matrix = solver
	return nil
}

// bindComplex constructs a complex-valued matrix solver and binds
// every Frequency handle against it, for an AC sweep.
func (s *Simulation) bindComplex() (*matrix.Solver, error) {
	solver, err := matrix.New(s.Vars.Size(), true, s.Config)
	if err != nil {
		return nil, err
	}
	if err := s.Frequency.BindMatrix(solver); err != nil {
		return nil, err
	}
	return solver, nil
}
