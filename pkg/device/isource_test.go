package device

import (
	"math"
	"testing"

	"spicecore/pkg/matrix"
	"spicecore/pkg/state"
)

func TestCurrentSourceIntoResistor(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("a")
	r := NewResistor("R1", "a", "0", cfg)
	r.r = 1000
	c := NewCurrentSource("I1", "a", "0", 0.01, cfg)

	if err := r.BindVariables(vars); err != nil {
		t.Fatal(err)
	}
	if err := c.BindVariables(vars); err != nil {
		t.Fatal(err)
	}

	solver, err := matrix.New(vars.Size(), false, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer solver.Destroy()

	if err := r.BindMatrix(solver); err != nil {
		t.Fatal(err)
	}
	if err := c.BindMatrix(solver); err != nil {
		t.Fatal(err)
	}

	st := state.NewSolver(vars.Size(), cfg.Tnom)
	if err := r.Load(st); err != nil {
		t.Fatal(err)
	}
	if err := c.Load(st); err != nil {
		t.Fatal(err)
	}
	if err := solver.Solve(); err != nil {
		t.Fatal(err)
	}

	a, _ := vars.Map("a")
	want := 0.01 * 1000 // V=IR
	if got := solver.Solution()[a.Index]; math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected node a at %gV, got %g", want, got)
	}
}
