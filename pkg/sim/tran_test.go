package sim

import (
	"context"
	"math"
	"testing"

	"spicecore/internal/config"
	"spicecore/pkg/behavior"
	"spicecore/pkg/device"
	"spicecore/pkg/entity"
	"spicecore/pkg/waveform"
)

func TestRunTransientHoldsSteadyStateCapacitor(t *testing.T) {
	cfg := config.Default()
	v1 := device.NewVoltageSource("V1", "in", "0", 10, cfg)
	r1 := device.NewResistor("R1", "in", "mid", cfg)
	setReal(t, device.ResistorSchema(r1), "r", 1000)
	c1 := device.NewCapacitor("C1", "mid", "0", 1e-6, cfg)

	sim, err := Build([]behavior.Behaviour{v1, r1, c1}, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	points, err := sim.RunTransient(context.Background(), 1e-3, 1e-4)
	if err != nil {
		t.Fatalf("RunTransient: %v", err)
	}
	if len(points) < 2 {
		t.Fatalf("expected multiple timepoints, got %d", len(points))
	}
	for _, p := range points {
		if got := p.Solution["mid"]; math.Abs(got-10) > 1e-3 {
			t.Fatalf("t=%g: mid = %g, want ~10 (already at DC steady state, no current path to charge C1)", p.Time, got)
		}
	}
}

func TestRunTransientChargesCapacitorTowardStepLevel(t *testing.T) {
	cfg := config.Default()
	v1 := device.NewVoltageSource("V1", "in", "0", 0, cfg)
	setWave(t, device.VoltageSourceSchema(v1), waveform.NewPulse(0, 10, 0, 1e-9, 1e-9, 1, 10))
	r1 := device.NewResistor("R1", "in", "mid", cfg)
	setReal(t, device.ResistorSchema(r1), "r", 1000)
	c1 := device.NewCapacitor("C1", "mid", "0", 1e-6, cfg)

	sim, err := Build([]behavior.Behaviour{v1, r1, c1}, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	points, err := sim.RunTransient(context.Background(), 5e-3, 1e-4)
	if err != nil {
		t.Fatalf("RunTransient: %v", err)
	}

	first := points[0].Solution["mid"]
	if math.Abs(first) > 1e-3 {
		t.Fatalf("t=0: mid = %g, want ~0 before the step", first)
	}

	last := points[len(points)-1].Solution["mid"]
	want := 10 * (1 - math.Exp(-5)) // RC=1ms, tStop=5ms => 5 time constants
	if math.Abs(last-want) > 0.2 {
		t.Fatalf("t=tStop: mid = %g, want ~%g", last, want)
	}

	for i := 1; i < len(points); i++ {
		if points[i].Solution["mid"] < points[i-1].Solution["mid"]-1e-6 {
			t.Fatalf("charging curve must be monotonically non-decreasing: point %d (%g) < point %d (%g)",
				i, points[i].Solution["mid"], i-1, points[i-1].Solution["mid"])
		}
	}
}

func setWave(t *testing.T, schema entity.ParameterSchema, w *waveform.Waveform) {
	t.Helper()
	setter, ok := schema["wave"]
	if !ok {
		t.Fatal("schema has no wave parameter")
	}
	if err := setter(entity.ParameterValue{Kind: entity.Waveform, Waveform: w}); err != nil {
		t.Fatalf("set wave: %v", err)
	}
}
