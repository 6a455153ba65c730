package sim

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"spicecore/internal/config"
	"spicecore/pkg/simerr"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
)

// newtonIterate runs Newton-Raphson against the already-bound Biasing
// (and, when st.Dt>0, Reactive) Behaviour sets until both the classical
// per-unknown convergence test and every Behaviour's own
// IsConvergent predicate are satisfied, or maxIter is exhausted.
//
// The first iteration always runs through uncritically (there is no
// previous solution to compare against) and, when st.Mode started at
// state.Junction, advances it to state.Float before the second
// iteration — giving nonlinear devices one damping-free iteration to
// move off their zero-initialized guess before junction limiting
// engages, the same deferred-limiting trick SPICE3 uses for its
// MODEINITJCT device initialization.
func (s *Simulation) newtonIterate(ctx context.Context, st *state.Solver, gmin float64, maxIter int) error {
	startMode := st.Mode
	var lastResidual float64

	for iter := 0; iter < maxIter; iter++ {
		select {
		case <-ctx.Done():
			return &simerr.Cancelled{At: "iteration"}
		default:
		}

		st.BeginIteration()
		s.Matrix.Reset()
		s.Matrix.LoadGmin(gmin)

		if err := s.Biasing.Load(st); err != nil {
			return err
		}
		if st.Dt > 0 {
			if err := s.Reactive.Load(st); err != nil {
				return err
			}
		}

		if err := s.Matrix.Solve(); err != nil {
			return err
		}
		copy(st.Solution, s.Matrix.Solution())

		if iter == 0 {
			if startMode == state.Junction {
				st.Mode = state.Float
			}
			continue
		}

		converged, residual := s.converged(st)
		lastResidual = residual
		settled := s.Biasing.Convergent(st)
		if st.Dt > 0 {
			settled = settled && s.Reactive.Convergent(st)
		}
		if converged && settled && !st.ForceExtra {
			st.Mode = state.Converged
			st.Converged = true
			return nil
		}
	}
	return &simerr.NoConvergence{Iterations: maxIter, LastResidual: lastResidual, StepSize: st.Dt}
}

// converged applies the classical per-unknown test: |Δx| <= reltol *
// max(|x|, |xOld|) + abstol, using VnTol for voltage unknowns and
// AbsTol for current (branch) unknowns, exactly the distinction
// config.Base documents for the two tolerances.
func (s *Simulation) converged(st *state.Solver) (bool, float64) {
	cfg := s.Config
	vars := s.Vars.All()
	diffs := make([]float64, len(vars))
	ok := true
	for i, v := range vars {
		x, xOld := st.Solution[v.Index], st.Previous[v.Index]
		diffs[i] = math.Abs(x - xOld)
		tol := cfg.RelTol*math.Max(math.Abs(x), math.Abs(xOld)) + absTolFor(cfg, v)
		if diffs[i] > tol {
			ok = false
		}
	}
	if len(diffs) == 0 {
		return ok, 0
	}
	return ok, floats.Max(diffs)
}

func absTolFor(cfg *config.Base, v *variable.Variable) float64 {
	if v.Kind == variable.Current {
		return cfg.AbsTol
	}
	return cfg.VnTol
}

// scalableSource is satisfied by VoltageSource/CurrentSource, the only
// devices source-stepping recovery scales.
type scalableSource interface {
	SetScale(factor float64)
}

// recoverOperatingPoint runs the operating-point recovery sequence after a
// direct Newton solve at st fails to converge: first source stepping
// (ramping every independent source's drive up from a small fraction
// of its nominal value over cfg.SrcSteps), then, if that also fails,
// Gmin stepping (ramping a large shunt conductance linearly down to
// cfg.Gmin over cfg.GminSteps). Both phases reuse newtonIterate at each step,
// carrying the previous step's solution forward as the next step's
// starting guess — the continuation-method idea that makes a stubborn
// operating point tractable.
func (s *Simulation) recoverOperatingPoint(ctx context.Context, st *state.Solver, directErr error) error {
	if err := s.sourceStep(ctx, st); err == nil {
		return nil
	}
	if err := s.gminStep(ctx, st); err != nil {
		return directErr
	}
	return nil
}

func (s *Simulation) gminStep(ctx context.Context, st *state.Solver) error {
	cfg := s.Config
	steps := cfg.GminSteps
	if steps <= 0 {
		steps = 1
	}
	startGmin := 1e-2
	for i := 0; i <= steps; i++ {
		factor := float64(steps-i) / float64(steps)
		gmin := cfg.Gmin + (startGmin-cfg.Gmin)*factor
		st.Mode = state.Float
		if err := s.newtonIterate(ctx, st, gmin, cfg.Itl1); err != nil {
			return err
		}
	}
	return s.newtonIterate(ctx, st, cfg.Gmin, cfg.Itl1)
}

func (s *Simulation) sourceStep(ctx context.Context, st *state.Solver) error {
	cfg := s.Config
	steps := cfg.SrcSteps
	if steps <= 0 {
		steps = 1
	}

	sources := s.scalableSources()
	defer func() {
		for _, src := range sources {
			src.SetScale(1.0)
		}
	}()

	for i := 1; i <= steps; i++ {
		factor := float64(i) / float64(steps)
		for _, src := range sources {
			src.SetScale(factor)
		}
		st.Mode = state.Float
		if err := s.newtonIterate(ctx, st, cfg.Gmin, cfg.Itl1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) scalableSources() []scalableSource {
	var out []scalableSource
	for _, b := range s.Biasing.All() {
		if src, ok := b.(scalableSource); ok {
			out = append(out, src)
		}
	}
	return out
}
