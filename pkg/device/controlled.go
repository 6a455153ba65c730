package device

import (
	"spicecore/internal/config"
	"spicecore/pkg/behavior"
	"spicecore/pkg/entity"
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
)

// branchSource is satisfied by any Behaviour that owns a branch-current
// unknown a CCCS/CCVS can read from: VoltageSource, Inductor, VCVS
// and CCVS.
type branchSource interface {
	BranchIndex() int
}

// VCCS is a voltage-controlled current source (the classic SPICE "G"
// element): i = gain*(V(cpos)-V(cneg)), injected pos->neg. Purely
// linear, so — like Resistor — it needs no separate Frequency
// Behaviour: the four-corner admittance stamp is already correct
// under AC.
type VCCS struct {
	baseEntity
	noDeps
	noUnsetup
	alwaysConvergent

	posName, negName, cposName, cnegName string
	gain                                  float64

	pos, neg, cpos, cneg *variable.Variable
	pcp, pcn, ncp, ncn   *matrix.MatrixElement
}

func VCCSSchema(g *VCCS) entity.ParameterSchema {
	return entity.ParameterSchema{
		"gain": func(v entity.ParameterValue) error { g.gain = v.Real; return nil },
	}
}

func NewVCCS(name, pos, neg, cpos, cneg string, gain float64, cfg *config.Base) *VCCS {
	return &VCCS{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos, negName: neg, cposName: cpos, cnegName: cneg,
		gain: gain,
	}
}

func (g *VCCS) Kind() behavior.Kind             { return behavior.Biasing }
func (g *VCCS) Setup(ctx *behavior.Context) error { return nil }

func (g *VCCS) BindVariables(vars *variable.Set) error {
	resolved, err := pins(vars, []string{g.posName, g.negName, g.cposName, g.cnegName})
	if err != nil {
		return err
	}
	g.pos, g.neg, g.cpos, g.cneg = resolved[0], resolved[1], resolved[2], resolved[3]
	return nil
}

func (g *VCCS) BindMatrix(solver *matrix.Solver) error {
	p, n, cp, cn := g.pos.Index, g.neg.Index, g.cpos.Index, g.cneg.Index
	g.pcp = solver.GetElement(p, cp)
	g.pcn = solver.GetElement(p, cn)
	g.ncp = solver.GetElement(n, cp)
	g.ncn = solver.GetElement(n, cn)
	solver.NoteStamp(p, g.name)
	solver.NoteStamp(n, g.name)
	return nil
}

func (g *VCCS) Load(st *state.Solver) error {
	g.pcp.Add(g.gain)
	g.pcn.Add(-g.gain)
	g.ncp.Add(-g.gain)
	g.ncn.Add(g.gain)
	return nil
}

// VCVS is a voltage-controlled voltage source (the classic SPICE "E"
// element): V(pos)-V(neg) = gain*(V(cpos)-V(cneg)), via a branch
// current unknown exactly like VoltageSource.
type VCVS struct {
	baseEntity
	noDeps
	noUnsetup
	alwaysConvergent
	branchPair

	posName, negName, cposName, cnegName string
	gain                                  float64

	cpos, cneg   *variable.Variable
	bcp, bcn     *matrix.MatrixElement
}

func VCVSSchema(e *VCVS) entity.ParameterSchema {
	return entity.ParameterSchema{
		"gain": func(v entity.ParameterValue) error { e.gain = v.Real; return nil },
	}
}

func NewVCVS(name, pos, neg, cpos, cneg string, gain float64, cfg *config.Base) *VCVS {
	return &VCVS{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos, negName: neg, cposName: cpos, cnegName: cneg,
		gain: gain,
	}
}

func (e *VCVS) Kind() behavior.Kind               { return behavior.Biasing }
func (e *VCVS) Setup(ctx *behavior.Context) error { return nil }

func (e *VCVS) BindVariables(vars *variable.Set) error {
	if err := e.branchPair.bindVariables(vars, e.posName, e.negName, e.name+"#branch"); err != nil {
		return err
	}
	resolved, err := pins(vars, []string{e.cposName, e.cnegName})
	if err != nil {
		return err
	}
	e.cpos, e.cneg = resolved[0], resolved[1]
	return nil
}

func (e *VCVS) BindMatrix(solver *matrix.Solver) error {
	if err := e.branchPair.bindMatrix(solver); err != nil {
		return err
	}
	b := e.branch.Index
	e.bcp = solver.GetElement(b, e.cpos.Index)
	e.bcn = solver.GetElement(b, e.cneg.Index)
	solver.NoteStamp(b, e.name)
	return nil
}

func (e *VCVS) BranchIndex() int { return e.branch.Index }

func (e *VCVS) Load(st *state.Solver) error {
	e.stampStructure()
	e.bcp.Add(-e.gain)
	e.bcn.Add(e.gain)
	return nil
}

// FrequencyBehaviour returns e's Frequency Behaviour, identical in
// structure — the gain is a real constant at every frequency.
func (e *VCVS) FrequencyBehaviour() behavior.Behaviour { return &vcvsAC{e: e} }

type vcvsAC struct{ e *VCVS }

func (a *vcvsAC) Kind() behavior.Kind               { return behavior.Frequency }
func (a *vcvsAC) Name() string                      { return a.e.name }
func (a *vcvsAC) DependsOn() []string                { return nil }
func (a *vcvsAC) Setup(ctx *behavior.Context) error  { return nil }
func (a *vcvsAC) BindVariables(vars *variable.Set) error { return a.e.BindVariables(vars) }
func (a *vcvsAC) BindMatrix(solver *matrix.Solver) error { return a.e.BindMatrix(solver) }
func (a *vcvsAC) IsConvergent(*state.Solver) bool        { return true }
func (a *vcvsAC) Unsetup()                               {}

func (a *vcvsAC) Load(st *state.Solver) error {
	a.e.stampStructureComplex()
	a.e.bcp.AddComplex(-a.e.gain, 0)
	a.e.bcn.AddComplex(a.e.gain, 0)
	return nil
}

// CCCS is a current-controlled current source (the classic SPICE "F"
// element): i = gain*ib(ctrl), reading the controlling voltage
// source's (or inductor's) branch current.
type CCCS struct {
	baseEntity
	noUnsetup
	alwaysConvergent
	twoTerminal

	posName, negName, ctrlName string
	gain                       float64

	ctrlBranch int
	pb, nb     *matrix.MatrixElement
}

func CCCSSchema(f *CCCS) entity.ParameterSchema {
	return entity.ParameterSchema{
		"gain": func(v entity.ParameterValue) error { f.gain = v.Real; return nil },
	}
}

func NewCCCS(name, pos, neg, ctrl string, gain float64, cfg *config.Base) *CCCS {
	return &CCCS{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos, negName: neg, ctrlName: ctrl,
		gain: gain,
	}
}

func (f *CCCS) Kind() behavior.Kind      { return behavior.Biasing }
func (f *CCCS) DependsOn() []string      { return []string{f.ctrlName} }

func (f *CCCS) Setup(ctx *behavior.Context) error {
	ctrl, err := ctx.Sibling(f.ctrlName, behavior.Biasing)
	if err != nil {
		return err
	}
	bs, ok := ctrl.(branchSource)
	if !ok {
		return &simerr.BadParameter{Entity: f.name, Param: "ctrl", Reason: "controlling entity " + f.ctrlName + " has no branch current"}
	}
	f.ctrlBranch = bs.BranchIndex()
	return nil
}

func (f *CCCS) BindVariables(vars *variable.Set) error {
	return f.bindVariables(vars, f.posName, f.negName)
}

func (f *CCCS) BindMatrix(solver *matrix.Solver) error {
	if err := f.bindMatrix(solver); err != nil {
		return err
	}
	f.pb = solver.GetElement(f.pos.Index, f.ctrlBranch)
	f.nb = solver.GetElement(f.neg.Index, f.ctrlBranch)
	solver.NoteStamp(f.pos.Index, f.name)
	solver.NoteStamp(f.neg.Index, f.name)
	return nil
}

func (f *CCCS) Load(st *state.Solver) error {
	f.pb.Add(f.gain)
	f.nb.Add(-f.gain)
	return nil
}

// CCVS is a current-controlled voltage source (the classic SPICE "H"
// element): V(pos)-V(neg) = gain*ib(ctrl), via its own branch unknown.
type CCVS struct {
	baseEntity
	noUnsetup
	alwaysConvergent
	branchPair

	posName, negName, ctrlName string
	gain                       float64

	ctrlBranch int
	bb         *matrix.MatrixElement
}

func CCVSSchema(h *CCVS) entity.ParameterSchema {
	return entity.ParameterSchema{
		"gain": func(v entity.ParameterValue) error { h.gain = v.Real; return nil },
	}
}

func NewCCVS(name, pos, neg, ctrl string, gain float64, cfg *config.Base) *CCVS {
	return &CCVS{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos, negName: neg, ctrlName: ctrl,
		gain: gain,
	}
}

func (h *CCVS) Kind() behavior.Kind { return behavior.Biasing }
func (h *CCVS) DependsOn() []string { return []string{h.ctrlName} }

func (h *CCVS) Setup(ctx *behavior.Context) error {
	ctrl, err := ctx.Sibling(h.ctrlName, behavior.Biasing)
	if err != nil {
		return err
	}
	bs, ok := ctrl.(branchSource)
	if !ok {
		return &simerr.BadParameter{Entity: h.name, Param: "ctrl", Reason: "controlling entity " + h.ctrlName + " has no branch current"}
	}
	h.ctrlBranch = bs.BranchIndex()
	return nil
}

func (h *CCVS) BindVariables(vars *variable.Set) error {
	return h.branchPair.bindVariables(vars, h.posName, h.negName, h.name+"#branch")
}

func (h *CCVS) BindMatrix(solver *matrix.Solver) error {
	if err := h.branchPair.bindMatrix(solver); err != nil {
		return err
	}
	h.bb = solver.GetElement(h.branch.Index, h.ctrlBranch)
	solver.NoteStamp(h.branch.Index, h.name)
	return nil
}

func (h *CCVS) BranchIndex() int { return h.branch.Index }

func (h *CCVS) Load(st *state.Solver) error {
	h.stampStructure()
	h.bb.Add(-h.gain)
	return nil
}
