package device

import (
	"spicecore/internal/config"
	"spicecore/pkg/behavior"
	"spicecore/pkg/entity"
	"spicecore/pkg/integrate"
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
)

// Capacitor stamps the trapezoidal/Gear companion model
// between its two pins: q=C*v, so dqdv is the constant C and
// Contribution collapses to the familiar geq=C/dt, ieq=geq*vOld form
// at order 1. Outside a transient step (st.Dt==0, i.e. OP/DC) it
// stamps Gmin instead, the same open-circuit approximation the
// teacher's OperatingPointAnalysis branch uses.
type Capacitor struct {
	baseEntity
	noDeps
	noUnsetup
	twoTerminal

	posName, negName string
	c                float64

	hist *state.History
	slot state.Slot
	it   *integrate.Integrator

	lastV, lastI float64 // cached for the Accept behaviour
}

// CapacitorSchema returns the ParameterSchema bound to c: "c".
func CapacitorSchema(c *Capacitor) entity.ParameterSchema {
	return entity.ParameterSchema{
		"c": func(v entity.ParameterValue) error {
			if v.Real <= 0 {
				return &simerr.BadParameter{Entity: c.name, Param: "c", Value: v.Real, Reason: "capacitance must be positive"}
			}
			c.c = v.Real
			return nil
		},
	}
}

// NewCapacitor constructs a Capacitor behaviour, allocating its
// private history slot up front (construction happens once per
// circuit build; BindVariables/BindMatrix may re-run on a rebuild).
func NewCapacitor(name, pos, neg string, value float64, cfg *config.Base) *Capacitor {
	hist := state.NewHistory(3)
	return &Capacitor{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos,
		negName:    neg,
		c:          value,
		hist:       hist,
		slot:       hist.Allocate(),
		it:         integrate.New(integrate.Trapezoidal),
	}
}

func (c *Capacitor) Kind() behavior.Kind { return behavior.TimeDerivative }

func (c *Capacitor) Setup(ctx *behavior.Context) error {
	if c.c <= 0 {
		return &simerr.BadParameter{Entity: c.name, Param: "c", Value: c.c, Reason: "capacitance must be positive"}
	}
	return nil
}

func (c *Capacitor) BindVariables(vars *variable.Set) error {
	return c.bindVariables(vars, c.posName, c.negName)
}

func (c *Capacitor) BindMatrix(solver *matrix.Solver) error {
	if err := c.bindMatrix(solver); err != nil {
		return err
	}
	solver.NoteStamp(c.pos.Index, c.name)
	solver.NoteStamp(c.neg.Index, c.name)
	return nil
}

func (c *Capacitor) Load(st *state.Solver) error {
	v := c.voltageAcross(st)

	if st.Dt <= 0 {
		c.stampConductance(c.cfg.Gmin)
		c.lastV, c.lastI = v, 0
		return nil
	}

	q := c.c * v
	geq, ieq := c.it.Contribution(c.hist, c.slot, st.Dt, v, q, c.c)
	c.stampConductance(geq)
	c.stampCurrent(ieq)

	c.lastV = v
	c.lastI = geq*v - ieq
	return nil
}

func (c *Capacitor) IsConvergent(*state.Solver) bool { return true }

// Integrator exposes the capacitor's integration order state to the
// transient driver, which raises/resets order across every reactive
// device in lockstep at step-accept/step-reject boundaries.
func (c *Capacitor) Integrator() *integrate.Integrator { return c.it }

// LocalTruncationError estimates this step's LTE from the charge
// history's divided differences, for the transient driver's step-size
// control.
func (c *Capacitor) LocalTruncationError(dt float64) float64 {
	return integrate.LocalTruncationError(c.hist, c.slot, dt)
}

// SnapshotHistory/RestoreHistory let the transient driver roll back a
// rejected step across every reactive device in lockstep.
func (c *Capacitor) SnapshotHistory() { c.hist.Snapshot() }
func (c *Capacitor) RestoreHistory()  { c.hist.Restore() }

// AcceptBehaviour returns c's Accept-kind Behaviour: committing the
// charge/current this step computed into history, ready for the next
// trial point.
func (c *Capacitor) AcceptBehaviour() behavior.Behaviour { return &capacitorAccept{c: c} }

type capacitorAccept struct {
	c *Capacitor
}

func (a *capacitorAccept) Kind() behavior.Kind { return behavior.Accept }
func (a *capacitorAccept) Name() string        { return a.c.name }
func (a *capacitorAccept) DependsOn() []string { return nil }
func (a *capacitorAccept) Setup(ctx *behavior.Context) error      { return nil }
func (a *capacitorAccept) BindVariables(vars *variable.Set) error { return nil }
func (a *capacitorAccept) BindMatrix(solver *matrix.Solver) error { return nil }
func (a *capacitorAccept) IsConvergent(*state.Solver) bool        { return true }
func (a *capacitorAccept) Unsetup()                               {}

func (a *capacitorAccept) Load(st *state.Solver) error {
	a.c.hist.Accept()
	q := a.c.c * a.c.lastV
	a.c.hist.Set(a.c.slot, q, a.c.lastI)
	return nil
}
