package device

import (
	"math"
	"testing"

	"spicecore/pkg/matrix"
	"spicecore/pkg/state"
)

func TestCapacitorBackwardEulerStep(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("a")
	c := NewCapacitor("C1", "a", "0", 1e-6, cfg)

	if err := c.BindVariables(vars); err != nil {
		t.Fatal(err)
	}
	solver, err := matrix.New(vars.Size(), false, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer solver.Destroy()
	if err := c.BindMatrix(solver); err != nil {
		t.Fatal(err)
	}

	st := state.NewSolver(vars.Size(), cfg.Tnom)
	st.Dt = 1e-3
	st.Solution[1] = 1.0 // trial voltage across the capacitor

	if err := c.Load(st); err != nil {
		t.Fatal(err)
	}

	wantGeq := 1e-6 / 1e-3
	if math.Abs(c.lastI-wantGeq*1.0) > 1e-12 {
		t.Fatalf("expected first-step current ~C*v/dt=%g, got %g", wantGeq, c.lastI)
	}
}

func TestCapacitorOpStampsGminOnly(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("a")
	c := NewCapacitor("C1", "a", "0", 1e-6, cfg)
	if err := c.BindVariables(vars); err != nil {
		t.Fatal(err)
	}
	solver, err := matrix.New(vars.Size(), false, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer solver.Destroy()
	if err := c.BindMatrix(solver); err != nil {
		t.Fatal(err)
	}

	st := state.NewSolver(vars.Size(), cfg.Tnom)
	st.Dt = 0 // OP/DC: no transient step in progress
	if err := c.Load(st); err != nil {
		t.Fatal(err)
	}
	if c.lastI != 0 {
		t.Fatalf("expected no companion current outside a transient step, got %g", c.lastI)
	}
}

func TestCapacitorAcceptCommitsHistory(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("a")
	c := NewCapacitor("C1", "a", "0", 1e-6, cfg)
	if err := c.BindVariables(vars); err != nil {
		t.Fatal(err)
	}
	solver, err := matrix.New(vars.Size(), false, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer solver.Destroy()
	if err := c.BindMatrix(solver); err != nil {
		t.Fatal(err)
	}

	st := state.NewSolver(vars.Size(), cfg.Tnom)
	st.Dt = 1e-3
	st.Solution[1] = 2.0
	if err := c.Load(st); err != nil {
		t.Fatal(err)
	}

	accept := c.AcceptBehaviour()
	if err := accept.Load(st); err != nil {
		t.Fatal(err)
	}

	wantQ := 1e-6 * 2.0
	if got := c.hist.At(c.slot, 0); math.Abs(got-wantQ) > 1e-15 {
		t.Fatalf("expected committed charge %g, got %g", wantQ, got)
	}
}
