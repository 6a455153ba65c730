package sim

import (
	"context"
	"math"
	"testing"

	"spicecore/internal/config"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
)

func TestConvergedUsesVoltageAndCurrentTolerances(t *testing.T) {
	cfg := testConfig()
	vars := variable.NewSet()
	vn, err := vars.Create("n1", variable.Voltage)
	if err != nil {
		t.Fatal(err)
	}
	ib, err := vars.Create("br", variable.Current)
	if err != nil {
		t.Fatal(err)
	}

	sim := &Simulation{Config: cfg, Vars: vars}
	st := state.NewSolver(vars.Size(), cfg.Tnom)
	st.Solution[vn.Index] = 1.0
	st.Previous[vn.Index] = 1.0 + cfg.VnTol*0.1
	st.Solution[ib.Index] = 1.0
	st.Previous[ib.Index] = 1.0 + cfg.AbsTol*0.1

	ok, _ := sim.converged(st)
	if !ok {
		t.Fatal("expected convergence within tolerance")
	}

	st.Previous[vn.Index] = 1.0 + 10*(cfg.RelTol+cfg.VnTol)
	ok, _ = sim.converged(st)
	if ok {
		t.Fatal("expected a voltage residual beyond RelTol*|x|+VnTol to fail convergence")
	}
}

// TestRecoverOperatingPointSolvesResistorDivider forces the direct
// Newton solve to fail (an undersized Itl1 budget) so the Gmin-
// stepping/source-stepping recovery sequence has to run, and checks it
// still lands on the correct operating point.
func TestRecoverOperatingPointSolvesResistorDivider(t *testing.T) {
	cfg := config.Default()
	cfg.Itl1 = 1

	items := resistorDivider(t, cfg)
	sim, err := Build(items, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := sim.bindReal(); err != nil {
		t.Fatalf("bindReal: %v", err)
	}

	st := state.NewSolver(sim.Vars.Size(), cfg.Tnom)
	st.Mode = state.Junction
	directErr := sim.newtonIterate(context.Background(), st, 0, cfg.Itl1)
	if directErr == nil {
		t.Fatal("expected the undersized Itl1 budget to force a direct-solve failure")
	}

	st.Mode = state.Junction
	if err := sim.recoverOperatingPoint(context.Background(), st, directErr); err != nil {
		t.Fatalf("recoverOperatingPoint: %v", err)
	}

	mid, err := sim.Vars.Map("mid")
	if err != nil {
		t.Fatal(err)
	}
	got := st.At(mid.Index)
	if math.Abs(got-5.0) > 1e-6 {
		t.Fatalf("mid = %g, want 5", got)
	}

	if n := len(sim.scalableSources()); n != 1 {
		t.Fatalf("expected exactly one scalable source (V1), got %d", n)
	}
}
