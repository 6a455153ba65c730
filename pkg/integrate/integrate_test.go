package integrate

import (
	"math"
	"testing"

	"spicecore/pkg/state"
)

func TestTrapezoidalFirstStepIsBackwardEuler(t *testing.T) {
	hist := state.NewHistory(3)
	s := hist.Allocate()
	// Quiescent history: v=0, q=0 everywhere.
	it := New(Trapezoidal)

	const C = 1e-6
	const dt = 1e-6
	geq, ieq := it.Contribution(hist, s, dt, 0, 0, C)

	if math.Abs(geq-C/dt) > 1e-15 {
		t.Errorf("geq = %g, want %g", geq, C/dt)
	}
	if math.Abs(ieq) > 1e-15 {
		t.Errorf("ieq = %g, want 0", ieq)
	}
}

func TestCapacitorChargesLinearlyUnderConstantCurrent(t *testing.T) {
	// P5: a constant current I charges a linear capacitor C from 0.
	// Simulate by hand: at each step solve geq*v = I + ieq for v,
	// i.e. v = (I+ieq)/geq, then commit to history, and check
	// V(T) = I*T/C within relTol.
	const C = 1e-6
	const I = 1e-3
	const dt = 1e-6
	const steps = 1000 // T = 1ms

	for _, method := range []Method{Trapezoidal, Gear} {
		hist := state.NewHistory(3)
		s := hist.Allocate()
		it := New(method)

		v := 0.0
		for n := 0; n < steps; n++ {
			q := C * v // will be recomputed after solving for v below; first approximate with current v
			geq, ieq := it.Contribution(hist, s, dt, v, q, C)
			// KCL: I (injected) = geq*v - ieq  => v = (I + ieq) / geq
			vNew := (I + ieq) / geq
			// one corrector pass since q depended on the old v
			qNew := C * vNew
			geq, ieq = it.Contribution(hist, s, dt, vNew, qNew, C)
			vNew = (I + ieq) / geq

			v = vNew
			hist.Accept()
			hist.Set(s, C*v, (C*v-hist.At(s, 1))/dt)
			if n == 0 {
				it.RaiseOrder()
			}
		}

		T := float64(steps) * dt
		want := I * T / C
		if math.Abs(v-want)/want > 1e-3 {
			t.Errorf("method %v: V(T) = %g, want %g (relTol 1e-3)", method, v, want)
		}
	}
}
