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

// Resistor stamps g=1/R between its two pins, temperature-adjusted by
// TC1/TC2 the way SPICE3's linear-resistor model does. Zero or
// negative resistance is rejected by the "r" schema setter and again
// at Setup.
type Resistor struct {
	baseEntity
	noDeps
	noUnsetup
	alwaysConvergent
	twoTerminal

	posName, negName string
	r, tc1, tc2      float64
}

// ResistorSchema returns the ParameterSchema a Resistor entity binds:
// "r" (required, >0), "tc1", "tc2" (temperature coefficients).
func ResistorSchema(r *Resistor) entity.ParameterSchema {
	return entity.ParameterSchema{
		"r": func(v entity.ParameterValue) error {
			if v.Real <= 0 {
				return &simerr.BadParameter{Entity: r.name, Param: "r", Value: v.Real, Reason: "resistance must be positive"}
			}
			r.r = v.Real
			return nil
		},
		"tc1": func(v entity.ParameterValue) error { r.tc1 = v.Real; return nil },
		"tc2": func(v entity.ParameterValue) error { r.tc2 = v.Real; return nil },
	}
}

// NewResistor constructs a Resistor behaviour for an entity with pins
// [pos, neg]. cfg supplies TNOM for the temperature adjustment.
func NewResistor(name, pos, neg string, cfg *config.Base) *Resistor {
	return &Resistor{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos,
		negName:    neg,
		tc1:        0,
		tc2:        0,
	}
}

func (r *Resistor) Kind() behavior.Kind { return behavior.Biasing }

// Setup validates the resistance the ParameterSchema already applied;
// the schema setters run at Set(name, value) time, before a simulation
// is ever constructed, so by Setup r.r already holds its final value.
func (r *Resistor) Setup(ctx *behavior.Context) error {
	if r.r <= 0 {
		return &simerr.BadParameter{Entity: r.name, Param: "r", Value: r.r, Reason: "resistance must be positive"}
	}
	return nil
}

func (r *Resistor) BindVariables(vars *variable.Set) error {
	return r.bindVariables(vars, r.posName, r.negName)
}

func (r *Resistor) BindMatrix(solver *matrix.Solver) error {
	if err := r.bindMatrix(solver); err != nil {
		return err
	}
	solver.NoteStamp(r.pos.Index, r.name)
	solver.NoteStamp(r.neg.Index, r.name)
	return nil
}

func (r *Resistor) temperatureAdjusted(temp float64) float64 {
	dt := temp - r.cfg.Tnom
	factor := 1.0 + r.tc1*dt + r.tc2*dt*dt
	return r.r * factor
}

func (r *Resistor) Load(st *state.Solver) error {
	g := 1.0 / r.temperatureAdjusted(st.Temp)
	r.stampConductance(g)
	return nil
}
