package sim

import (
	"context"
	"math"
	"sort"

	"spicecore/pkg/integrate"
	"spicecore/pkg/simerr"
	"spicecore/pkg/state"
)

// reactiveDevice is satisfied by every TimeDerivative Behaviour
// (Capacitor, Inductor): the handles the transient driver needs to
// drive step-size control and roll back a rejected trial step in
// lockstep across every reactive device.
type reactiveDevice interface {
	Integrator() *integrate.Integrator
	LocalTruncationError(dt float64) float64
	SnapshotHistory()
	RestoreHistory()
}

// breakpointSource is satisfied by VoltageSource/CurrentSource: the
// times their attached waveform has a slope discontinuity, which the
// step controller must land on exactly rather than step across.
type breakpointSource interface {
	Breakpoints(tStop float64) []float64
}

// TransientPoint is one accepted timepoint's solution, keyed by
// variable name.
type TransientPoint struct {
	Time     float64
	Solution map[string]float64
}

// raiseAfter is the number of consecutive accepted steps at the
// current order before the driver tries the next order up, mirroring
// a three-step settling window before trusting a higher-
// order formula's history basis.
const raiseAfter = 3

// RunTransient drives the circuit from its operating point out to
// tStop, stepping by tStep (the nominal print
// increment, also used as the cap on the internal step size — a
// deliberate simplification of real SPICE's independent TMAX). Each
// trial step's error is judged from the reactive devices' local
// truncation error; steps that land outside cfg.TrTol/cfg.ChgTol are
// rejected and retried at half the step size. The step is forced to
// land exactly on every independent source's waveform breakpoint,
// resetting every reactive device back to first-order integration
// there since the history straddling a discontinuity is not a valid
// basis for a second-order formula.
func (s *Simulation) RunTransient(ctx context.Context, tStop, tStep float64) ([]TransientPoint, error) {
	st, err := s.solveOperatingPoint(ctx)
	if err != nil {
		return nil, err
	}
	st.Time = 0
	st.Dt = 0

	reactives := s.reactiveDevices()
	breaks := s.collectBreakpoints(tStop)

	points := []TransientPoint{{Time: 0, Solution: s.snapshot(st)}}

	minDt := tStep * 1e-9
	maxDt := tStep
	dt := tStep
	accepted := 0

	for st.Time < tStop-minDt {
		select {
		case <-ctx.Done():
			return points, &simerr.Cancelled{At: "timepoint"}
		default:
		}

		nextBreak, atBreak := nextBreakpoint(breaks, st.Time, tStop)
		if atBreak && st.Time+dt > nextBreak-minDt {
			dt = nextBreak - st.Time
		}
		if dt < minDt {
			dt = minDt
		}

		prevTime := st.Time

		acceptedDt, newDt, err := s.tryTimestep(ctx, st, reactives, prevTime, dt, minDt, maxDt)
		if err != nil {
			return points, err
		}

		accepted++
		st.Time = prevTime + acceptedDt
		points = append(points, TransientPoint{Time: st.Time, Solution: s.snapshot(st)})

		landedOnBreak := atBreak && math.Abs(st.Time-nextBreak) <= minDt
		if landedOnBreak {
			for _, r := range reactives {
				r.Integrator().ResetOrder()
			}
			accepted = 0
		} else if accepted >= raiseAfter {
			for _, r := range reactives {
				r.Integrator().RaiseOrder()
			}
		}

		dt = newDt
	}

	return points, nil
}

// tryTimestep attempts one trial step of size dt, halving it and
// resetting every reactive device's integration order on a rejected
// or non-convergent trial, up to a bounded number of retries. On
// success it commits the step (runs the Accept pass, rotating every
// reactive device's history) and returns the suggested next step size.
func (s *Simulation) tryTimestep(ctx context.Context, st *state.Solver, reactives []reactiveDevice, prevTime, dt, minDt, maxDt float64) (acceptedDt, nextDt float64, err error) {
	cfg := s.Config

	for {
		st.Dt = dt
		st.Time = prevTime + dt
		st.Mode = state.Float

		loadErr := s.newtonIterate(ctx, st, 0, cfg.Itl4)
		if loadErr == nil {
			for _, r := range reactives {
				r.SnapshotHistory()
			}
			if err := s.Accept.Load(st); err != nil {
				return 0, 0, err
			}

			curvature := 0.0
			for _, r := range reactives {
				lte := r.LocalTruncationError(dt) * dt * dt
				if lte > curvature {
					curvature = lte
				}
			}
			limit := cfg.TrTol * cfg.ChgTol

			if curvature <= limit || dt <= minDt {
				newDt := dt
				if curvature > 0 {
					newDt = dt * math.Sqrt(limit/curvature)
				} else {
					newDt = dt * 2
				}
				if newDt > maxDt {
					newDt = maxDt
				}
				if newDt < minDt {
					newDt = minDt
				}
				return dt, newDt, nil
			}

			for _, r := range reactives {
				r.RestoreHistory()
				r.Integrator().ResetOrder()
			}
		} else {
			for _, r := range reactives {
				r.Integrator().ResetOrder()
			}
		}

		dt /= 2
		if dt < minDt {
			return 0, 0, &simerr.NoConvergence{Iterations: cfg.Itl4, StepSize: dt}
		}
	}
}

func (s *Simulation) reactiveDevices() []reactiveDevice {
	var out []reactiveDevice
	for _, b := range s.Reactive.All() {
		if r, ok := b.(reactiveDevice); ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *Simulation) collectBreakpoints(tStop float64) []float64 {
	var all []float64
	for _, b := range s.Biasing.All() {
		if src, ok := b.(breakpointSource); ok {
			all = append(all, src.Breakpoints(tStop)...)
		}
	}
	sort.Float64s(all)
	return dedupeSorted(all)
}

func dedupeSorted(xs []float64) []float64 {
	var out []float64
	for i, x := range xs {
		if i == 0 || x != xs[i-1] {
			out = append(out, x)
		}
	}
	return out
}

// nextBreakpoint returns the first recorded breakpoint strictly after
// now, or tStop when none remain closer; ok reports whether a
// breakpoint constraint applies at all this step.
func nextBreakpoint(breaks []float64, now, tStop float64) (float64, bool) {
	for _, b := range breaks {
		if b > now {
			return b, true
		}
	}
	return tStop, false
}
