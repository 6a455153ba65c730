package sim

import (
	"context"

	"spicecore/pkg/state"
)

// OperatingPointResult is the solved DC operating point: every
// variable's value, keyed by name for callers that don't want to walk
// variable.Set themselves.
type OperatingPointResult struct {
	Solution map[string]float64
}

// RunOperatingPoint solves the DC operating point:
// a direct Newton solve at zero Gmin, falling back to the source-
// stepping then Gmin-stepping recovery sequence when the direct
// solve fails to converge. On success it also runs the Accept pass so
// reactive devices' histories and the voltage switch's hysteretic
// state reflect the found operating point, ready to seed a transient
// run or a DC sweep's first point.
func (s *Simulation) RunOperatingPoint(ctx context.Context) (*OperatingPointResult, error) {
	st, err := s.solveOperatingPoint(ctx)
	if err != nil {
		return nil, err
	}
	return &OperatingPointResult{Solution: s.snapshot(st)}, nil
}

// solveOperatingPoint is RunOperatingPoint's internal form, returning
// the live state.Solver instead of a snapshot so RunTransient can carry
// it forward as the t=0 starting state.
func (s *Simulation) solveOperatingPoint(ctx context.Context) (*state.Solver, error) {
	if s.Matrix == nil {
		if err := s.bindReal(); err != nil {
			return nil, err
		}
	}

	st := state.NewSolver(s.Vars.Size(), s.Config.Tnom)
	st.Mode = state.Junction
	st.Dt = 0

	err := s.newtonIterate(ctx, st, 0, s.Config.Itl1)
	if err != nil {
		st.Mode = state.Junction
		if recErr := s.recoverOperatingPoint(ctx, st, err); recErr != nil {
			return nil, recErr
		}
	}

	if err := s.Accept.Load(st); err != nil {
		return nil, err
	}
	return st, nil
}

// snapshot reads every allocated variable's current value into a
// name-keyed map, the shared shape every analysis result exposes.
func (s *Simulation) snapshot(st *state.Solver) map[string]float64 {
	out := make(map[string]float64, s.Vars.Size())
	for _, v := range s.Vars.All() {
		out[v.Name] = st.At(v.Index)
	}
	return out
}
