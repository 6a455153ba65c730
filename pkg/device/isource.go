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

// CurrentSource is an independent source that injects current i(t)
// from neg to pos with no added unknown: the RHS-only
// twin of VoltageSource.
type CurrentSource struct {
	baseEntity
	noDeps
	noUnsetup
	alwaysConvergent
	twoTerminal

	posName, negName string
	dc               float64
	wave             *waveform.Waveform
	acMag, acPhase   float64
	scale            float64
}

// CurrentSourceSchema returns the ParameterSchema bound to c: "dc",
// "wave", "acmag", "acphase" (same shape as VoltageSourceSchema).
func CurrentSourceSchema(c *CurrentSource) entity.ParameterSchema {
	return entity.ParameterSchema{
		"dc":      func(v entity.ParameterValue) error { c.dc = v.Real; return nil },
		"wave":    func(v entity.ParameterValue) error { c.wave = v.Waveform; return nil },
		"acmag":   func(v entity.ParameterValue) error { c.acMag = v.Real; return nil },
		"acphase": func(v entity.ParameterValue) error { c.acPhase = v.Real; return nil },
	}
}

func NewCurrentSource(name, pos, neg string, dcValue float64, cfg *config.Base) *CurrentSource {
	return &CurrentSource{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos,
		negName:    neg,
		dc:         dcValue,
		scale:      1,
	}
}

func (c *CurrentSource) Kind() behavior.Kind { return behavior.Biasing }

// SetScale multiplies every subsequent Load's drive value by factor;
// see VoltageSource.SetScale.
func (c *CurrentSource) SetScale(factor float64) { c.scale = factor }

// Breakpoints returns this source's waveform's slope discontinuities;
// see VoltageSource.Breakpoints.
func (c *CurrentSource) Breakpoints(tStop float64) []float64 {
	if c.wave == nil {
		return nil
	}
	return c.wave.Breakpoints(tStop)
}

func (c *CurrentSource) Setup(ctx *behavior.Context) error { return nil }

func (c *CurrentSource) BindVariables(vars *variable.Set) error {
	return c.bindVariables(vars, c.posName, c.negName)
}

func (c *CurrentSource) BindMatrix(solver *matrix.Solver) error {
	if err := c.bindMatrix(solver); err != nil {
		return err
	}
	solver.NoteStamp(c.pos.Index, c.name)
	solver.NoteStamp(c.neg.Index, c.name)
	return nil
}

// Load injects current from neg to pos, by KCL: entering pos (+),
// leaving neg (-) — same sign convention the Norton companion models
// in diode.go/capacitor.go/inductor.go use for stampCurrent.
func (c *CurrentSource) Load(st *state.Solver) error {
	value := c.dc
	if c.wave != nil {
		value = c.wave.Value(st.Time)
	}
	c.stampCurrent(value * c.scale)
	return nil
}

// FrequencyBehaviour returns c's Frequency Behaviour: the AC
// excitation replaces the time-domain value on the same two nodes,
// mirroring VoltageSource.FrequencyBehaviour.
func (c *CurrentSource) FrequencyBehaviour() behavior.Behaviour { return &isourceAC{c: c} }

type isourceAC struct {
	c *CurrentSource
}

func (a *isourceAC) Kind() behavior.Kind               { return behavior.Frequency }
func (a *isourceAC) Name() string                      { return a.c.name }
func (a *isourceAC) DependsOn() []string                { return nil }
func (a *isourceAC) Setup(ctx *behavior.Context) error  { return nil }

func (a *isourceAC) BindVariables(vars *variable.Set) error {
	return a.c.bindVariables(vars, a.c.posName, a.c.negName)
}
func (a *isourceAC) BindMatrix(solver *matrix.Solver) error { return a.c.bindMatrix(solver) }
func (a *isourceAC) IsConvergent(*state.Solver) bool        { return true }
func (a *isourceAC) Unsetup()                               {}

func (a *isourceAC) Load(st *state.Solver) error {
	mag, phase := a.c.acMag, a.c.acPhase
	real, imag := mag*cosDeg(phase), mag*sinDeg(phase)
	a.c.rhsP.AddComplex(real, imag)
	a.c.rhsN.AddComplex(-real, -imag)
	return nil
}
