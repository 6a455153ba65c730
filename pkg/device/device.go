// Package device implements the representative device Behaviours
// built on the generic Device Behaviour Framework (pkg/behavior):
// resistor, independent sources, diode, controlled sources, voltage
// switch, and the reactive capacitor/inductor pair.
package device

import (
	"math"

	"spicecore/internal/config"
	"spicecore/pkg/matrix"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
)

// cosDeg/sinDeg convert an AC phase given in degrees (the universal
// SPICE deck convention) to the radians math.Cos/Sin expect.
func cosDeg(degrees float64) float64 { return math.Cos(degrees * math.Pi / 180) }
func sinDeg(degrees float64) float64 { return math.Sin(degrees * math.Pi / 180) }

// pins resolves an ordered list of pin names against a variable set,
// returning the resolved Variables or the first *simerr.UnknownVariable
// encountered. Ground aliases ("0", "gnd") resolve to variable.Ground.
func pins(vars *variable.Set, names []string) ([]*variable.Variable, error) {
	out := make([]*variable.Variable, len(names))
	for i, name := range names {
		v, err := vars.Map(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// twoTerminal is the shared shape of every two-pin passive/source
// device: a pair of node handles into the matrix and RHS, resolved
// once in BindMatrix and reused on every Load.
type twoTerminal struct {
	pos, neg *variable.Variable

	gpp, gpn, gnp, gnn *matrix.MatrixElement
	rhsP, rhsN         *matrix.RhsElement
}

func (t *twoTerminal) bindVariables(vars *variable.Set, posName, negName string) error {
	resolved, err := pins(vars, []string{posName, negName})
	if err != nil {
		return err
	}
	t.pos, t.neg = resolved[0], resolved[1]
	return nil
}

func (t *twoTerminal) bindMatrix(solver *matrix.Solver) error {
	p, n := t.pos.Index, t.neg.Index
	t.gpp = solver.GetElement(p, p)
	t.gpn = solver.GetElement(p, n)
	t.gnp = solver.GetElement(n, p)
	t.gnn = solver.GetElement(n, n)
	t.rhsP = solver.GetRhsElement(p)
	t.rhsN = solver.GetRhsElement(n)
	return nil
}

// stampConductance adds a real conductance g between pos and neg,
// mirrored into all four corners (the classic resistor-stamp shape
// every linear and linearised two-terminal device shares).
func (t *twoTerminal) stampConductance(g float64) {
	t.gpp.Add(g)
	t.gpn.Add(-g)
	t.gnp.Add(-g)
	t.gnn.Add(g)
}

// stampCurrent injects current i from neg to pos (KCL: entering pos,
// leaving neg) into the RHS — the companion-model or source drive
// term that rides alongside stampConductance.
func (t *twoTerminal) stampCurrent(i float64) {
	t.rhsP.Add(i)
	t.rhsN.Add(-i)
}

// stampAdmittance adds a complex admittance between pos and neg, for
// AC (Frequency) stamping.
func (t *twoTerminal) stampAdmittance(real, imag float64) {
	t.gpp.AddComplex(real, imag)
	t.gpn.AddComplex(-real, -imag)
	t.gnp.AddComplex(-real, -imag)
	t.gnn.AddComplex(real, imag)
}

// voltageAcross returns pos-neg from the driver's current solution.
func (t *twoTerminal) voltageAcross(st *state.Solver) float64 {
	return st.At(t.pos.Index) - st.At(t.neg.Index)
}

// branchPair is the shared shape of every device that augments the
// system with a branch-current unknown tied to a two-terminal port:
// independent voltage sources and the branch-reading controlled
// sources (CCVS, VCVS). The ±1 structural stamp is identical across
// analyses; only the RHS (or a coefficient replacing one of the ±1
// entries) differs per Kind.
type branchPair struct {
	pos, neg, branch *variable.Variable

	bpp, bpn, npb, nnb *matrix.MatrixElement
	rhsB               *matrix.RhsElement
}

func (b *branchPair) bindVariables(vars *variable.Set, posName, negName, branchName string) error {
	resolved, err := pins(vars, []string{posName, negName})
	if err != nil {
		return err
	}
	b.pos, b.neg = resolved[0], resolved[1]
	branch, err := vars.Create(branchName, variable.Current)
	if err != nil {
		return err
	}
	b.branch = branch
	return nil
}

func (b *branchPair) bindMatrix(solver *matrix.Solver) error {
	bi, p, n := b.branch.Index, b.pos.Index, b.neg.Index
	b.bpp = solver.GetElement(bi, p)
	b.npb = solver.GetElement(p, bi)
	b.bpn = solver.GetElement(bi, n)
	b.nnb = solver.GetElement(n, bi)
	b.rhsB = solver.GetRhsElement(bi)
	return nil
}

// stampStructure writes the ±1 branch-equation coefficients shared by
// every voltage-branch device, real and complex alike.
func (b *branchPair) stampStructure() {
	b.bpp.Add(1)
	b.npb.Add(1)
	b.bpn.Add(-1)
	b.nnb.Add(-1)
}

func (b *branchPair) stampStructureComplex() {
	b.bpp.AddComplex(1, 0)
	b.npb.AddComplex(1, 0)
	b.bpn.AddComplex(-1, 0)
	b.nnb.AddComplex(-1, 0)
}

// baseEntity is embedded by every device Behaviour for the Name()
// method and a back-reference to shared numerical configuration.
type baseEntity struct {
	name string
	cfg  *config.Base
}

func (b *baseEntity) Name() string { return b.name }

// noDeps is embedded by Behaviours with no sibling references.
type noDeps struct{}

func (noDeps) DependsOn() []string { return nil }

// noUnsetup is embedded by Behaviours that hold nothing to release.
type noUnsetup struct{}

func (noUnsetup) Unsetup() {}

// alwaysConvergent is embedded by purely linear Behaviours, which
// never limit a nonlinear quantity and so never block convergence.
type alwaysConvergent struct{}

func (alwaysConvergent) IsConvergent(*state.Solver) bool { return true }
