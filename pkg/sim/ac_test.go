package sim

import (
	"context"
	"math"
	"testing"

	"spicecore/internal/config"
	"spicecore/pkg/behavior"
	"spicecore/pkg/device"
)

func TestFrequencyPointsLinear(t *testing.T) {
	pts, err := FrequencyPoints(Linear, 5, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 3, 4, 5}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d", len(pts), len(want))
	}
	for i, w := range want {
		if math.Abs(pts[i]-w) > 1e-9 {
			t.Fatalf("point %d = %g, want %g", i, pts[i], w)
		}
	}
}

func TestFrequencyPointsDecadeSpansStartToStop(t *testing.T) {
	pts, err := FrequencyPoints(Decade, 10, 1, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if pts[0] != 1 {
		t.Fatalf("first point = %g, want 1", pts[0])
	}
	if last := pts[len(pts)-1]; math.Abs(last-1000) > 1e-6 {
		t.Fatalf("last point = %g, want 1000", last)
	}
	for i := 1; i < len(pts); i++ {
		if pts[i] <= pts[i-1] {
			t.Fatalf("decade sweep must be strictly increasing at %d: %g <= %g", i, pts[i], pts[i-1])
		}
	}
}

func TestFrequencyPointsOctaveRejectsNonPositiveStart(t *testing.T) {
	if _, err := FrequencyPoints(Octave, 4, 0, 100); err == nil {
		t.Fatal("expected an error for a non-positive start frequency")
	}
}

// TestRunACSweepResistiveDividerIsFlat checks that a purely resistive
// divider's AC response matches its DC ratio at every frequency — the
// grounding case for Resistor being reused directly as its own
// Frequency Behaviour when a Biasing device has no frequency-dependent
// stamp of its own.
func TestRunACSweepResistiveDividerIsFlat(t *testing.T) {
	cfg := config.Default()
	v1 := device.NewVoltageSource("V1", "in", "0", 10, cfg)
	setReal(t, device.VoltageSourceSchema(v1), "acmag", 1)
	r1 := device.NewResistor("R1", "in", "mid", cfg)
	setReal(t, device.ResistorSchema(r1), "r", 1000)
	r2 := device.NewResistor("R2", "mid", "0", cfg)
	setReal(t, device.ResistorSchema(r2), "r", 1000)

	sim, err := Build([]behavior.Behaviour{v1, r1, r2}, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	points, err := sim.RunACSweep(context.Background(), []float64{10, 1000, 1e6})
	if err != nil {
		t.Fatalf("RunACSweep: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	for _, p := range points {
		got := p.Solution["mid"]
		if math.Abs(real(got)-0.5) > 1e-6 || math.Abs(imag(got)) > 1e-9 {
			t.Fatalf("frequency %g: mid = %v, want 0.5+0i", p.Frequency, got)
		}
	}
}
