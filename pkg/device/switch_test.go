package device

import (
	"testing"

	"spicecore/pkg/matrix"
	"spicecore/pkg/state"
)

func TestSwitchStartsOff(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("a", "ctrl")
	s := NewVoltageSwitch("S1", "a", "0", "ctrl", "0", 2.0, 1.0, 1.0, 1e6, cfg)
	if err := s.BindVariables(vars); err != nil {
		t.Fatal(err)
	}
	solver, err := matrix.New(vars.Size(), false, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer solver.Destroy()
	if err := s.BindMatrix(solver); err != nil {
		t.Fatal(err)
	}

	st := state.NewSolver(vars.Size(), cfg.Tnom)
	if err := s.Load(st); err != nil {
		t.Fatal(err)
	}
	if s.on {
		t.Fatal("switch should start off")
	}
}

func TestSwitchAcceptTurnsOnAboveVon(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("a", "ctrl")
	s := NewVoltageSwitch("S1", "a", "0", "ctrl", "0", 2.0, 1.0, 1.0, 1e6, cfg)
	if err := s.BindVariables(vars); err != nil {
		t.Fatal(err)
	}
	solver, err := matrix.New(vars.Size(), false, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer solver.Destroy()
	if err := s.BindMatrix(solver); err != nil {
		t.Fatal(err)
	}

	ctrl, _ := vars.Map("ctrl")
	st := state.NewSolver(vars.Size(), cfg.Tnom)
	st.Solution[ctrl.Index] = 3.0 // above von=2.0

	accept := s.AcceptBehaviour()
	if err := accept.Load(st); err != nil {
		t.Fatal(err)
	}
	if !s.on {
		t.Fatal("expected switch to turn on above von")
	}
}

func TestSwitchHoldsStateInsideHysteresisBand(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("a", "ctrl")
	s := NewVoltageSwitch("S1", "a", "0", "ctrl", "0", 2.0, 1.0, 1.0, 1e6, cfg)
	if err := s.BindVariables(vars); err != nil {
		t.Fatal(err)
	}
	solver, err := matrix.New(vars.Size(), false, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer solver.Destroy()
	if err := s.BindMatrix(solver); err != nil {
		t.Fatal(err)
	}
	s.on = true // pretend it already turned on

	ctrl, _ := vars.Map("ctrl")
	st := state.NewSolver(vars.Size(), cfg.Tnom)
	st.Solution[ctrl.Index] = 1.5 // inside [voff, von] band

	accept := s.AcceptBehaviour()
	if err := accept.Load(st); err != nil {
		t.Fatal(err)
	}
	if !s.on {
		t.Fatal("expected switch to retain its on state inside the hysteresis band")
	}

	// Biasing Load must not have mutated state itself; it only reads
	// the frozen flag, so repeated Load calls during Newton iteration
	// never flip it regardless of the solved voltage.
	if err := s.Load(st); err != nil {
		t.Fatal(err)
	}
	if !s.on {
		t.Fatal("Biasing Load must never mutate the hysteretic state")
	}
}

func TestSwitchAcceptTurnsOffBelowVoff(t *testing.T) {
	cfg := testConfig()
	vars := newTestVars("a", "ctrl")
	s := NewVoltageSwitch("S1", "a", "0", "ctrl", "0", 2.0, 1.0, 1.0, 1e6, cfg)
	if err := s.BindVariables(vars); err != nil {
		t.Fatal(err)
	}
	solver, err := matrix.New(vars.Size(), false, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer solver.Destroy()
	if err := s.BindMatrix(solver); err != nil {
		t.Fatal(err)
	}
	s.on = true

	ctrl, _ := vars.Map("ctrl")
	st := state.NewSolver(vars.Size(), cfg.Tnom)
	st.Solution[ctrl.Index] = 0.5 // below voff=1.0

	accept := s.AcceptBehaviour()
	if err := accept.Load(st); err != nil {
		t.Fatal(err)
	}
	if s.on {
		t.Fatal("expected switch to turn off below voff")
	}
}

func TestSwitchRejectsInvertedThreshold(t *testing.T) {
	cfg := testConfig()
	s := NewVoltageSwitch("S1", "a", "0", "ctrl", "0", 1.0, 2.0, 1.0, 1e6, cfg)
	if err := s.Setup(nil); err == nil {
		t.Fatal("expected error when von <= voff")
	}
}
