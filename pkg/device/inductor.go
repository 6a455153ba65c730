package device

import (
	"math"

	"spicecore/internal/config"
	"spicecore/pkg/behavior"
	"spicecore/pkg/entity"
	"spicecore/pkg/integrate"
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
)

// dcShortResistance stands in for a true 0Ω short at DC, keeping the
// branch row's diagonal nonzero so the pivot search never sees it as
// structurally singular.
const dcShortResistance = 1e-9

// Inductor adds a branch-current unknown and stamps the dual of
// Capacitor's companion model: flux φ=L*ib instead of charge q=C*v,
// with the branch equation V(pos)-V(neg)-geq*ib=-ieq replacing the
// voltage source's V(pos)-V(neg)=value.
type Inductor struct {
	baseEntity
	noDeps
	noUnsetup
	branchPair

	posName, negName string
	l                float64

	bb *matrix.MatrixElement // the (branch,branch) diagonal, beyond branchPair's ±1 structure

	hist *state.History
	slot state.Slot
	it   *integrate.Integrator

	lastI, lastV float64
}

// InductorSchema returns the ParameterSchema bound to l: "l".
func InductorSchema(l *Inductor) entity.ParameterSchema {
	return entity.ParameterSchema{
		"l": func(v entity.ParameterValue) error {
			if v.Real <= 0 {
				return &simerr.BadParameter{Entity: l.name, Param: "l", Value: v.Real, Reason: "inductance must be positive"}
			}
			l.l = v.Real
			return nil
		},
	}
}

func NewInductor(name, pos, neg string, value float64, cfg *config.Base) *Inductor {
	hist := state.NewHistory(3)
	return &Inductor{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos,
		negName:    neg,
		l:          value,
		hist:       hist,
		slot:       hist.Allocate(),
		it:         integrate.New(integrate.Trapezoidal),
	}
}

func (l *Inductor) Kind() behavior.Kind { return behavior.TimeDerivative }

func (l *Inductor) Setup(ctx *behavior.Context) error {
	if l.l <= 0 {
		return &simerr.BadParameter{Entity: l.name, Param: "l", Value: l.l, Reason: "inductance must be positive"}
	}
	return nil
}

func (l *Inductor) BindVariables(vars *variable.Set) error {
	return l.branchPair.bindVariables(vars, l.posName, l.negName, l.name+"#branch")
}

func (l *Inductor) BindMatrix(solver *matrix.Solver) error {
	if err := l.branchPair.bindMatrix(solver); err != nil {
		return err
	}
	l.bb = solver.GetElement(l.branch.Index, l.branch.Index)
	solver.NoteStamp(l.branch.Index, l.name)
	return nil
}

// BranchIndex exposes the branch-current variable index for sibling
// behaviours (CCCS/CCVS) that read this inductor's current.
func (l *Inductor) BranchIndex() int { return l.branch.Index }

func (l *Inductor) Load(st *state.Solver) error {
	l.stampStructure()
	ib := st.At(l.branch.Index)

	if st.Dt <= 0 {
		// DC steady state: an inductor is a short, approximated by a
		// tiny series resistance rather than leaving bb at exactly 0
		// (which would make the branch row structurally singular).
		l.bb.Add(-dcShortResistance)
		l.lastI, l.lastV = ib, 0
		return nil
	}

	flux := l.l * ib
	geq, ieq := l.it.Contribution(l.hist, l.slot, st.Dt, ib, flux, l.l)
	l.bb.Add(-geq)
	l.rhsB.Add(-ieq)

	l.lastI = ib
	l.lastV = geq*ib - ieq
	return nil
}

func (l *Inductor) IsConvergent(*state.Solver) bool { return true }

func (l *Inductor) Integrator() *integrate.Integrator { return l.it }

// LocalTruncationError estimates this step's LTE from the flux
// history's divided differences; see Capacitor.LocalTruncationError.
func (l *Inductor) LocalTruncationError(dt float64) float64 {
	return integrate.LocalTruncationError(l.hist, l.slot, dt)
}

// SnapshotHistory/RestoreHistory let the transient driver roll back a
// rejected step across every reactive device in lockstep.
func (l *Inductor) SnapshotHistory() { l.hist.Snapshot() }
func (l *Inductor) RestoreHistory()  { l.hist.Restore() }

func (l *Inductor) AcceptBehaviour() behavior.Behaviour { return &inductorAccept{l: l} }

type inductorAccept struct {
	l *Inductor
}

func (a *inductorAccept) Kind() behavior.Kind { return behavior.Accept }
func (a *inductorAccept) Name() string        { return a.l.name }
func (a *inductorAccept) DependsOn() []string { return nil }
func (a *inductorAccept) Setup(ctx *behavior.Context) error      { return nil }
func (a *inductorAccept) BindVariables(vars *variable.Set) error { return nil }
func (a *inductorAccept) BindMatrix(solver *matrix.Solver) error { return nil }
func (a *inductorAccept) IsConvergent(*state.Solver) bool        { return true }
func (a *inductorAccept) Unsetup()                               {}

func (a *inductorAccept) Load(st *state.Solver) error {
	a.l.hist.Accept()
	flux := a.l.l * a.l.lastI
	a.l.hist.Set(a.l.slot, flux, a.l.lastV)
	return nil
}

// FrequencyBehaviour returns l's Frequency Behaviour: the branch
// equation V(pos)-V(neg)=jωL*ib.
func (l *Inductor) FrequencyBehaviour() behavior.Behaviour { return &inductorAC{l: l} }

type inductorAC struct {
	l *Inductor
}

func (a *inductorAC) Kind() behavior.Kind { return behavior.Frequency }
func (a *inductorAC) Name() string        { return a.l.name }
func (a *inductorAC) DependsOn() []string { return nil }
func (a *inductorAC) Setup(ctx *behavior.Context) error { return nil }

func (a *inductorAC) BindVariables(vars *variable.Set) error {
	return a.l.branchPair.bindVariables(vars, a.l.posName, a.l.negName, a.l.name+"#branch")
}
func (a *inductorAC) BindMatrix(solver *matrix.Solver) error {
	if err := a.l.branchPair.bindMatrix(solver); err != nil {
		return err
	}
	a.l.bb = solver.GetElement(a.l.branch.Index, a.l.branch.Index)
	return nil
}
func (a *inductorAC) IsConvergent(*state.Solver) bool { return true }
func (a *inductorAC) Unsetup()                        {}

func (a *inductorAC) Load(st *state.Solver) error {
	a.l.stampStructureComplex()
	omega := 2 * math.Pi * st.Frequency
	a.l.bb.AddComplex(0, -omega*a.l.l)
	return nil
}
