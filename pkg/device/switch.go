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

// VoltageSwitch is a voltage-controlled resistive switch with
// hysteresis ("S" element): Ron while on, Roff while off,
// switching on above Von and off below Voff, retaining its prior
// state inside the hysteresis band. The state only updates in the
// Accept-kind Behaviour — once per accepted timestep/operating point,
// never mid-Newton-iteration — so the conductance Load stamps stays
// fixed across an iteration and can't chatter.
type VoltageSwitch struct {
	baseEntity
	noDeps
	noUnsetup
	twoTerminal

	posName, negName, cposName, cnegName string
	von, voff, ron, roff                 float64

	cpos, cneg *variable.Variable
	on         bool
}

// VoltageSwitchSchema returns the ParameterSchema bound to s: "von",
// "voff", "ron", "roff".
func VoltageSwitchSchema(s *VoltageSwitch) entity.ParameterSchema {
	return entity.ParameterSchema{
		"von": func(v entity.ParameterValue) error { s.von = v.Real; return nil },
		"voff": func(v entity.ParameterValue) error { s.voff = v.Real; return nil },
		"ron": func(v entity.ParameterValue) error {
			if v.Real <= 0 {
				return &simerr.BadParameter{Entity: s.name, Param: "ron", Value: v.Real, Reason: "on-resistance must be positive"}
			}
			s.ron = v.Real
			return nil
		},
		"roff": func(v entity.ParameterValue) error {
			if v.Real <= 0 {
				return &simerr.BadParameter{Entity: s.name, Param: "roff", Value: v.Real, Reason: "off-resistance must be positive"}
			}
			s.roff = v.Real
			return nil
		},
	}
}

// NewVoltageSwitch constructs a switch initially off, between pos/neg,
// controlled by the voltage across cpos/cneg.
func NewVoltageSwitch(name, pos, neg, cpos, cneg string, von, voff, ron, roff float64, cfg *config.Base) *VoltageSwitch {
	return &VoltageSwitch{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos, negName: neg, cposName: cpos, cnegName: cneg,
		von: von, voff: voff, ron: ron, roff: roff,
	}
}

func (s *VoltageSwitch) Kind() behavior.Kind { return behavior.Biasing }

func (s *VoltageSwitch) Setup(ctx *behavior.Context) error {
	if s.ron <= 0 || s.roff <= 0 {
		return &simerr.BadParameter{Entity: s.name, Param: "ron/roff", Reason: "switch resistances must be positive"}
	}
	if s.von <= s.voff {
		return &simerr.BadParameter{Entity: s.name, Param: "von", Value: s.von, Reason: "von must exceed voff"}
	}
	return nil
}

func (s *VoltageSwitch) BindVariables(vars *variable.Set) error {
	if err := s.bindVariables(vars, s.posName, s.negName); err != nil {
		return err
	}
	resolved, err := pins(vars, []string{s.cposName, s.cnegName})
	if err != nil {
		return err
	}
	s.cpos, s.cneg = resolved[0], resolved[1]
	return nil
}

func (s *VoltageSwitch) BindMatrix(solver *matrix.Solver) error {
	if err := s.bindMatrix(solver); err != nil {
		return err
	}
	solver.NoteStamp(s.pos.Index, s.name)
	solver.NoteStamp(s.neg.Index, s.name)
	return nil
}

func (s *VoltageSwitch) Load(st *state.Solver) error {
	r := s.roff
	if s.on {
		r = s.ron
	}
	s.stampConductance(1.0 / r)
	return nil
}

func (s *VoltageSwitch) IsConvergent(*state.Solver) bool { return true }

// AcceptBehaviour returns s's Accept-kind Behaviour: the only place
// the hysteretic state transitions.
func (s *VoltageSwitch) AcceptBehaviour() behavior.Behaviour { return &switchAccept{s: s} }

type switchAccept struct {
	s *VoltageSwitch
}

func (a *switchAccept) Kind() behavior.Kind { return behavior.Accept }
func (a *switchAccept) Name() string        { return a.s.name }
func (a *switchAccept) DependsOn() []string { return nil }
func (a *switchAccept) Setup(ctx *behavior.Context) error      { return nil }
func (a *switchAccept) BindVariables(vars *variable.Set) error { return nil }
func (a *switchAccept) BindMatrix(solver *matrix.Solver) error { return nil }
func (a *switchAccept) IsConvergent(*state.Solver) bool        { return true }
func (a *switchAccept) Unsetup()                               {}

func (a *switchAccept) Load(st *state.Solver) error {
	vctrl := st.At(a.s.cpos.Index) - st.At(a.s.cneg.Index)
	switch {
	case vctrl >= a.s.von:
		a.s.on = true
	case vctrl <= a.s.voff:
		a.s.on = false
	}
	return nil
}
