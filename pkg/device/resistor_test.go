package device

import (
	"math"
	"testing"

	"spicecore/pkg/matrix"
	"spicecore/pkg/state"
)

func TestResistorDividerSolves(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("in", "mid")

	v1 := NewVoltageSource("V1", "in", "0", 10, cfg)
	r1 := NewResistor("R1", "in", "mid", cfg)
	r1.r = 1000
	r2 := NewResistor("R2", "mid", "0", cfg)
	r2.r = 1000

	for _, err := range []error{
		v1.BindVariables(vars),
		r1.BindVariables(vars),
		r2.BindVariables(vars),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}

	solver, err := matrix.New(vars.Size(), false, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer solver.Destroy()

	for _, err := range []error{
		v1.BindMatrix(solver),
		r1.BindMatrix(solver),
		r2.BindMatrix(solver),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}

	st := state.NewSolver(vars.Size(), cfg.Tnom)
	for _, d := range []interface{ Load(*state.Solver) error }{v1, r1, r2} {
		if err := d.Load(st); err != nil {
			t.Fatal(err)
		}
	}

	if err := solver.Solve(); err != nil {
		t.Fatal(err)
	}

	mid, _ := vars.Map("mid")
	got := solver.Solution()[mid.Index]
	if math.Abs(got-5.0) > 1e-9 {
		t.Fatalf("expected mid node at 5V, got %g", got)
	}
}

func TestResistorRejectsNonPositive(t *testing.T) {
	r := NewResistor("R1", "a", "0", testConfig())
	r.r = -1
	if err := r.Setup(nil); err == nil {
		t.Fatalf("expected negative resistance to be rejected")
	}
}

func TestResistorTemperatureCoefficient(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("a")
	r := NewResistor("R1", "a", "0", cfg)
	r.r = 1000
	r.tc1 = 0.01
	if err := r.BindVariables(vars); err != nil {
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

	st := state.NewSolver(vars.Size(), cfg.Tnom)
	st.Temp = cfg.Tnom + 10
	if err := r.Load(st); err != nil {
		t.Fatal(err)
	}

	want := r.temperatureAdjusted(cfg.Tnom + 10)
	if math.Abs(want-1100) > 1e-9 {
		t.Fatalf("expected TC1-adjusted resistance near 1100, got %g", want)
	}
}
