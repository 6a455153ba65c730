package device

import (
	"spicecore/internal/config"
	"spicecore/pkg/behavior"
	"spicecore/pkg/entity"
	"spicecore/pkg/matrix"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
	"spicecore/pkg/waveform"
)

// VoltageSource is an independent source that adds a branch-current
// variable and stamps the branch equation V(pos)-V(neg)=value(t)
//. value(t) is the DC level, or a waveform evaluated at
// transient time when one is attached. A linear device, it is also
// its own Frequency behaviour: the AC excitation replaces the DC/
// waveform value on the same branch equation.
type VoltageSource struct {
	baseEntity
	noDeps
	noUnsetup
	alwaysConvergent
	branchPair

	posName, negName string
	dc               float64
	wave             *waveform.Waveform
	acMag, acPhase   float64
	scale            float64
}

// VoltageSourceSchema returns the ParameterSchema bound to v: "dc",
// "wave" (a *waveform.Waveform parameter), "acmag", "acphase".
func VoltageSourceSchema(v *VoltageSource) entity.ParameterSchema {
	return entity.ParameterSchema{
		"dc":      func(val entity.ParameterValue) error { v.dc = val.Real; return nil },
		"wave":    func(val entity.ParameterValue) error { v.wave = val.Waveform; return nil },
		"acmag":   func(val entity.ParameterValue) error { v.acMag = val.Real; return nil },
		"acphase": func(val entity.ParameterValue) error { v.acPhase = val.Real; return nil },
	}
}

// NewVoltageSource constructs a DC (or later, waveform-driven)
// voltage source behaviour between pos and neg.
func NewVoltageSource(name, pos, neg string, dcValue float64, cfg *config.Base) *VoltageSource {
	return &VoltageSource{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos,
		negName:    neg,
		dc:         dcValue,
		scale:      1,
	}
}

func (v *VoltageSource) Kind() behavior.Kind { return behavior.Biasing }

// SetScale multiplies every subsequent Load's drive value by factor.
// Used by sim.RunDCSweep to set each swept level, and by the
// operating-point recovery sequence's source-stepping
// phase: ramping every independent source from a small
// fraction of its nominal value up to 1.0 gives Newton a sequence of
// easier starting points when a direct solve fails to converge.
func (v *VoltageSource) SetScale(factor float64) { v.scale = factor }

func (v *VoltageSource) Setup(ctx *behavior.Context) error { return nil }

func (v *VoltageSource) BindVariables(vars *variable.Set) error {
	return v.branchPair.bindVariables(vars, v.posName, v.negName, v.name+"#branch")
}

func (v *VoltageSource) BindMatrix(solver *matrix.Solver) error {
	if err := v.branchPair.bindMatrix(solver); err != nil {
		return err
	}
	solver.NoteStamp(v.branch.Index, v.name)
	return nil
}

// BranchIndex exposes the branch-current variable index for sibling
// behaviours (CCCS/CCVS) that read this source's branch current.
func (v *VoltageSource) BranchIndex() int { return v.branch.Index }

// Breakpoints returns the times up to tStop where this source's
// waveform has a slope discontinuity, so the transient driver can
// force a step to land there exactly. A DC-only source
// (no waveform attached) has none.
func (v *VoltageSource) Breakpoints(tStop float64) []float64 {
	if v.wave == nil {
		return nil
	}
	return v.wave.Breakpoints(tStop)
}

func (v *VoltageSource) Load(st *state.Solver) error {
	v.stampStructure()

	value := v.dc
	if v.wave != nil {
		value = v.wave.Value(st.Time)
	}
	v.rhsB.Add(value * v.scale)
	return nil
}

// vsourceAC is the VoltageSource's Frequency Behaviour: the same
// branch-equation structure, driven by acMag/acPhase instead of the
// time-domain value.
type vsourceAC struct {
	v *VoltageSource
}

// FrequencyBehaviour returns v's Frequency Behaviour, only meaningful
// when acMag is non-zero (an independent source with no AC magnitude
// contributes nothing to an AC sweep, same as a real SPICE deck).
func (v *VoltageSource) FrequencyBehaviour() behavior.Behaviour { return &vsourceAC{v: v} }

func (a *vsourceAC) Kind() behavior.Kind { return behavior.Frequency }
func (a *vsourceAC) Name() string        { return a.v.name }
func (a *vsourceAC) DependsOn() []string { return nil }
func (a *vsourceAC) Setup(ctx *behavior.Context) error { return nil }

// BindVariables/BindMatrix delegate to the same branchPair the Biasing
// Behaviour binds: variable.Set.Create and Solver.GetElement are
// idempotent on (name/kind) and (row/col), so re-resolving here is
// safe whether or not the Biasing Behaviour already ran this circuit.
func (a *vsourceAC) BindVariables(vars *variable.Set) error {
	return a.v.branchPair.bindVariables(vars, a.v.posName, a.v.negName, a.v.name+"#branch")
}
func (a *vsourceAC) BindMatrix(solver *matrix.Solver) error {
	return a.v.branchPair.bindMatrix(solver)
}
func (a *vsourceAC) IsConvergent(*state.Solver) bool { return true }
func (a *vsourceAC) Unsetup()                        {}

func (a *vsourceAC) Load(st *state.Solver) error {
	a.v.stampStructureComplex()
	mag, phase := a.v.acMag, a.v.acPhase
	a.v.rhsB.AddComplex(mag*cosDeg(phase), mag*sinDeg(phase))
	return nil
}
