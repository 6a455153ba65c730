// Package integrate implements the numerical integration layer: given
// a reactive device's instantaneous charge/flux and its
// derivative with respect to the controlling voltage/current, it
// produces the equivalent Norton pair (geq, ieq) a device stamps —
// geq on the matrix diagonal, ieq on the RHS. Coefficient tables are
// adapted from a standard BDF coefficient table.
package integrate

import (
	"math"

	"spicecore/pkg/state"
)

type Method int

const (
	Trapezoidal Method = iota // default, 2nd-order, A-stable for linear problems
	Gear                      // backward differentiation, order up to 2
)

// bdfCoefficients is the standard backward-differentiation coefficient
// table, truncated
// to Gear order 2.
var bdfCoefficients = [2]struct {
	coefficients []float64
	beta         float64
}{
	{[]float64{1.0}, 1.0},
	{[]float64{4.0 / 3.0, -1.0 / 3.0}, 2.0 / 3.0},
}

// Integrator tracks the current integration order for one reactive
// device. Order ramps from 1 at the first accepted point.
type Integrator struct {
	Method Method
	order  int
}

// New returns an Integrator starting at order 1.
func New(method Method) *Integrator {
	return &Integrator{Method: method, order: 1}
}

// Order returns the integrator's current order (1 or 2).
func (it *Integrator) Order() int { return it.order }

// RaiseOrder advances to order 2 once at least one prior accepted
// point exists; called by the transient driver after the first
// successful step.
func (it *Integrator) RaiseOrder() {
	if it.order < 2 {
		it.order = 2
	}
}

// ResetOrder drops back to order 1 — used after a rejected step or a
// discontinuity (a breakpoint), where history before the break is no
// longer a valid basis for a higher-order formula.
func (it *Integrator) ResetOrder() {
	it.order = 1
}

// Contribution computes the Norton-equivalent (geq, ieq) for a charge-
// or flux-storing quantity held in history Slot s of hist, given the
// present trial controlling value v, its instantaneous charge/flux q
// and the derivative dqdv = dq/dv at v.
func (it *Integrator) Contribution(hist *state.History, s state.Slot, dt, v, q, dqdv float64) (geq, ieq float64) {
	if dt <= 0 {
		dt = 1e-12
	}

	// hist.At(s, 0) / RateAt(s, 0) is the last accepted point — this
	// call happens before the current trial point is committed, so
	// "one step back" is still sitting in slot 0.
	switch it.Method {
	case Gear:
		bdf := bdfCoefficients[it.order-1]
		scale := 1.0 / (bdf.beta * dt)
		geq = scale * dqdv
		dqdt := scale * q
		for i, c := range bdf.coefficients {
			dqdt -= c * scale * hist.At(s, i)
		}
		ieq = geq*v - dqdt

	default: // Trapezoidal
		if it.order <= 1 {
			geq = dqdv / dt
			ieq = geq*v - (q-hist.At(s, 0))/dt
		} else {
			geq = 2 * dqdv / dt
			dqdt := 2/dt*(q-hist.At(s, 0)) - hist.RateAt(s, 0)
			ieq = geq*v - dqdt
		}
	}
	return geq, ieq
}

// LocalTruncationError estimates the per-step LTE for a quantity whose
// charge/flux history is stored in Slot s, following SPICE3's
// divided-difference estimate: the curvature of q over the last three
// accepted points, scaled by the step and a safety factor baked into
// trtol by the caller.
func LocalTruncationError(hist *state.History, s state.Slot, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	q0 := hist.At(s, 0)
	q1 := hist.At(s, 1)
	q2 := hist.At(s, 2)
	secondDiff := q0 - 2*q1 + q2
	return math.Abs(secondDiff) / (dt * dt)
}
