package sim

import (
	"context"
	"math"

	"spicecore/pkg/simerr"
	"spicecore/pkg/state"
)

// SweepKind selects how FrequencyPoints spaces a frequency sweep.
type SweepKind int

const (
	Linear SweepKind = iota // LIN: n points evenly spaced between start and stop
	Decade                  // DEC: n points per decade
	Octave                  // OCT: n points per octave
)

// FrequencyPoints generates the sweep points a SPICE deck's .AC line
// describes: n points per
// decade/octave for Decade/Octave, or n points total, evenly spaced,
// for Linear. start and stop must both be positive for Decade/Octave.
func FrequencyPoints(kind SweepKind, n int, start, stop float64) ([]float64, error) {
	if n <= 0 {
		return nil, &simerr.BadParameter{Param: "n", Value: float64(n), Reason: "point count must be positive"}
	}
	if stop < start {
		return nil, &simerr.BadParameter{Param: "stop", Value: stop, Reason: "stop must be >= start"}
	}

	switch kind {
	case Linear:
		if n == 1 {
			return []float64{start}, nil
		}
		step := (stop - start) / float64(n-1)
		pts := make([]float64, n)
		for i := range pts {
			pts[i] = start + step*float64(i)
		}
		return pts, nil

	case Decade, Octave:
		if start <= 0 {
			return nil, &simerr.BadParameter{Param: "start", Value: start, Reason: "log sweep requires a positive start frequency"}
		}
		base := 10.0
		if kind == Octave {
			base = 2.0
		}
		decades := math.Log(stop/start) / math.Log(base)
		step := 1.0 / float64(n)
		var pts []float64
		for exp := 0.0; exp <= decades+1e-9; exp += step {
			f := start * math.Pow(base, exp)
			if f > stop*(1+1e-9) {
				break
			}
			pts = append(pts, f)
		}
		if len(pts) == 0 || pts[len(pts)-1] < stop*(1-1e-9) {
			pts = append(pts, stop)
		}
		return pts, nil

	default:
		return nil, &simerr.BadParameter{Param: "kind", Reason: "unknown sweep kind"}
	}
}

// ACPoint is one frequency's complex solution, keyed by variable name.
type ACPoint struct {
	Frequency float64
	Solution  map[string]complex128
}

// RunACSweep solves the small-signal AC response at every frequency in
// freqs. It first runs an operating-point solve so every nonlinear
// device's Frequency stamp linearizes about the actual DC bias instead
// of a zero-valued guess, then binds a fresh complex matrix once and
// restamps the Frequency Behaviour set at each point's own angular
// frequency, solving directly (no Newton iteration — every AC stamp is
// linear by construction around the already-found operating point).
func (s *Simulation) RunACSweep(ctx context.Context, freqs []float64) ([]ACPoint, error) {
	if _, err := s.solveOperatingPoint(ctx); err != nil {
		return nil, err
	}

	solver, err := s.bindComplex()
	if err != nil {
		return nil, err
	}
	defer solver.Destroy()

	points := make([]ACPoint, 0, len(freqs))
	for _, f := range freqs {
		select {
		case <-ctx.Done():
			return points, &simerr.Cancelled{At: "timepoint"}
		default:
		}

		solver.Reset()
		st := state.NewSolver(s.Vars.Size(), s.Config.Tnom)
		st.Frequency = f
		if err := s.Frequency.Load(st); err != nil {
			return points, err
		}
		if err := solver.Solve(); err != nil {
			return points, err
		}

		sol := make(map[string]complex128, s.Vars.Size())
		for _, v := range s.Vars.All() {
			sol[v.Name] = solver.ComplexSolution(v.Index)
		}
		points = append(points, ACPoint{Frequency: f, Solution: sol})
	}
	return points, nil
}
