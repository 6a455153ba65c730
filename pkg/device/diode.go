package device

import (
	"math"

	"spicecore/internal/config"
	"spicecore/pkg/behavior"
	"spicecore/pkg/entity"
	"spicecore/pkg/matrix"
	"spicecore/pkg/simerr"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
)

const boltzmannOverCharge = 8.617333e-5 // eV/K; Vt = boltzmannOverCharge*(temp+273.15)

// Diode is the companion-model PN junction: a forward
// exponential region (vd >= -3Vt), a linear reverse region, and a
// breakdown exponential region (vd < -Bv). The regions are not
// seam-matched: both current and conductance step at vd=-3Vt and at
// vd=-Bv. Its iteration-to-iteration Newton update is damped by
// junction limiting (limitJunction below) the way SPICE3's DEVpnjlim
// damps BJT and diode junctions alike.
type Diode struct {
	baseEntity
	noDeps
	noUnsetup

	posName, negName string
	is, n            float64
	rs               float64
	cj0, vj, m       float64
	bv, ibv          float64
	gmin             float64

	// junction is the companion-model port: posPrime<->neg, where
	// posPrime is the external anode when rs==0 or a dedicated
	// internal node when rs>0. series is the optional Rs resistor
	// between the external anode and posPrime; its twoTerminal is left
	// zero-valued and unused when rs==0.
	junction, series twoTerminal

	vd, id, gd float64 // last Load's operating point, read by IsConvergent and the Frequency behaviour
	limited    bool    // true when the last Load's trial voltage was pnjlim-damped
}

// DiodeSchema returns the ParameterSchema bound to d: "is", "n",
// "rs", "cj0", "vj", "m", "bv", "ibv".
func DiodeSchema(d *Diode) entity.ParameterSchema {
	return entity.ParameterSchema{
		"is":  func(v entity.ParameterValue) error { d.is = v.Real; return nil },
		"n":   func(v entity.ParameterValue) error { d.n = v.Real; return nil },
		"rs":  func(v entity.ParameterValue) error { d.rs = v.Real; return nil },
		"cj0": func(v entity.ParameterValue) error { d.cj0 = v.Real; return nil },
		"vj":  func(v entity.ParameterValue) error { d.vj = v.Real; return nil },
		"m":   func(v entity.ParameterValue) error { d.m = v.Real; return nil },
		"bv":  func(v entity.ParameterValue) error { d.bv = v.Real; return nil },
		"ibv": func(v entity.ParameterValue) error { d.ibv = v.Real; return nil },
	}
}

// NewDiode constructs a Diode with SPICE's usual defaults: Is=1e-14,
// N=1, Rs=0 (no series resistance node), Bv=100 (effectively no
// breakdown for the default model).
func NewDiode(name, pos, neg string, cfg *config.Base) *Diode {
	return &Diode{
		baseEntity: baseEntity{name: name, cfg: cfg},
		posName:    pos,
		negName:    neg,
		is:         1e-14,
		n:          1.0,
		vj:         1.0,
		m:          0.5,
		bv:         100.0,
		ibv:        1e-10,
		gmin:       1e-12,
	}
}

func (d *Diode) Kind() behavior.Kind { return behavior.Biasing }

func (d *Diode) Setup(ctx *behavior.Context) error {
	if d.is <= 0 {
		return &simerr.BadParameter{Entity: d.name, Param: "is", Value: d.is, Reason: "saturation current must be positive"}
	}
	if d.n <= 0 {
		return &simerr.BadParameter{Entity: d.name, Param: "n", Value: d.n, Reason: "emission coefficient must be positive"}
	}
	if d.rs < 0 {
		return &simerr.BadParameter{Entity: d.name, Param: "rs", Value: d.rs, Reason: "series resistance must not be negative"}
	}
	return nil
}

// BindVariables resolves the external pins and, only when rs>0,
// allocates the internal posPrime node the series resistance needs.
// rs==0 aliases posPrime straight to the external anode, so no extra
// unknown or row/column is added. Idempotent: vars.Create returns the
// same posPrime Variable on a repeat call, so diodeAC.BindVariables
// can safely re-resolve through this same method.
func (d *Diode) BindVariables(vars *variable.Set) error {
	extPos, err := vars.Map(d.posName)
	if err != nil {
		return err
	}
	neg, err := vars.Map(d.negName)
	if err != nil {
		return err
	}

	posPrime := extPos
	if d.rs > 0 {
		posPrime, err = vars.Create(d.name+"#pos'", variable.Voltage)
		if err != nil {
			return err
		}
		d.series.pos, d.series.neg = extPos, posPrime
	}
	d.junction.pos, d.junction.neg = posPrime, neg
	return nil
}

func (d *Diode) BindMatrix(solver *matrix.Solver) error {
	if err := d.junction.bindMatrix(solver); err != nil {
		return err
	}
	solver.NoteStamp(d.junction.pos.Index, d.name)
	solver.NoteStamp(d.junction.neg.Index, d.name)

	if d.rs > 0 {
		if err := d.series.bindMatrix(solver); err != nil {
			return err
		}
		solver.NoteStamp(d.series.pos.Index, d.name)
	}
	return nil
}

func thermalVoltage(tempC float64) float64 {
	return boltzmannOverCharge * (tempC + 273.15)
}

// vcrit is the junction voltage above which the exponential's slope
// makes an unlimited Newton step diverge; SPICE3 computes the same
// closed form (DIOcrit's N*Vt*ln(N*Vt/(sqrt2*Is))).
func vcrit(n, vt, is float64) float64 {
	return n * vt * math.Log(n*vt/(math.Sqrt2*is))
}

// limitJunction is a pnjlim-style damper: above vcrit, a step is
// compressed logarithmically instead of taken at face value, so
// Newton can't overshoot the exponential into numeric overflow. Below
// vcrit the raw trial value passes through unchanged.
func limitJunction(vnew, vold, vt, crit float64) float64 {
	if vnew > crit && math.Abs(vnew-vold) > 2*vt {
		if vold > 0 {
			arg := 1 + (vnew-vold)/vt
			if arg > 0 {
				return vold + vt*math.Log(arg)
			}
			return crit
		}
		return vt * math.Log(vnew/vt)
	}
	return vnew
}

// current/conductance below follow the three-region model every
// teacher diode in this pack uses: forward exponential, reverse
// linear (Gmin-floored), and breakdown exponential mirrored at -Bv.
func (d *Diode) current(vd, vt float64) float64 {
	switch {
	case vd < -d.bv:
		return -d.ibv * (math.Exp(-(vd+d.bv)/vt) - 1)
	case vd >= -3*vt:
		return d.is*(expClamped(vd/(d.n*vt))-1) + d.gmin*vd
	default:
		return -d.is + d.gmin*vd
	}
}

func (d *Diode) conductance(vd, vt float64) float64 {
	switch {
	case vd < -d.bv:
		return d.ibv/vt*math.Exp(-(vd+d.bv)/vt) + d.gmin
	case vd >= -3*vt:
		return d.is/(d.n*vt)*expClamped(vd/(d.n*vt)) + d.gmin
	default:
		return d.gmin
	}
}

func expClamped(arg float64) float64 {
	const max = 40.0
	if arg > max {
		arg = max
	}
	return math.Exp(arg)
}

func (d *Diode) junctionCap(vd float64) float64 {
	if d.cj0 == 0 {
		return 0
	}
	if vd < 0 {
		arg := 1 - vd/d.vj
		if arg < 0.1 {
			arg = 0.1
		}
		return d.cj0 / math.Pow(arg, d.m)
	}
	return d.cj0 * (1 + d.m*vd/d.vj)
}

// Load computes the Norton-equivalent companion model at the current
// trial voltage, limiting the trial against the previous iteration's
// accepted voltage before evaluating the exponential. When rs>0 the
// linear series resistance between the external anode and posPrime is
// restamped every iteration alongside the junction's companion model.
func (d *Diode) Load(st *state.Solver) error {
	vt := thermalVoltage(st.Temp)
	vdTrial := d.junction.voltageAcross(st)

	d.limited = false
	if st.Mode != state.Junction {
		crit := vcrit(d.n, vt, d.is)
		limited := limitJunction(vdTrial, d.vd, vt, crit)
		if limited != vdTrial {
			d.limited = true
			st.ForceExtra = true
		}
		vdTrial = limited
	}

	d.vd = vdTrial
	d.id = d.current(vdTrial, vt)
	d.gd = d.conductance(vdTrial, vt)

	d.junction.stampConductance(d.gd)
	d.junction.stampCurrent(-(d.id - d.gd*d.vd))

	if d.rs > 0 {
		d.series.stampConductance(1 / d.rs)
	}
	return nil
}

// IsConvergent reports whether this device's junction needed damping
// on its most recent Load — a limited step means the Newton iteration
// has not yet settled near the true operating point.
func (d *Diode) IsConvergent(st *state.Solver) bool {
	return !d.limited
}

// FrequencyBehaviour returns d's Frequency Behaviour: the junction's
// small-signal admittance gd+jωCj about the operating point Load left
// in d.vd/d.gd.
func (d *Diode) FrequencyBehaviour() behavior.Behaviour { return &diodeAC{d: d} }

type diodeAC struct {
	d *Diode
}

func (a *diodeAC) Kind() behavior.Kind               { return behavior.Frequency }
func (a *diodeAC) Name() string                      { return a.d.name }
func (a *diodeAC) DependsOn() []string               { return nil }
func (a *diodeAC) Setup(ctx *behavior.Context) error { return nil }

func (a *diodeAC) BindVariables(vars *variable.Set) error {
	return a.d.BindVariables(vars)
}

func (a *diodeAC) BindMatrix(solver *matrix.Solver) error {
	if err := a.d.junction.bindMatrix(solver); err != nil {
		return err
	}
	if a.d.rs > 0 {
		if err := a.d.series.bindMatrix(solver); err != nil {
			return err
		}
	}
	return nil
}
func (a *diodeAC) IsConvergent(*state.Solver) bool { return true }
func (a *diodeAC) Unsetup()                        {}

// Load stamps the junction's small-signal admittance gd+jωCj about the
// operating point left in d.vd/d.gd, plus the series resistance's
// constant real admittance when rs>0 — Rs doesn't vanish from the
// small-signal model just because it has no frequency dependence.
func (a *diodeAC) Load(st *state.Solver) error {
	omega := 2 * math.Pi * st.Frequency
	cj := a.d.junctionCap(a.d.vd)
	a.d.junction.stampAdmittance(a.d.gd, omega*cj)
	if a.d.rs > 0 {
		a.d.series.stampAdmittance(1/a.d.rs, 0)
	}
	return nil
}
