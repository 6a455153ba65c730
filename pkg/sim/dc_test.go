package sim

import (
	"context"
	"math"
	"testing"
)

func TestRunDCSweepTracksSourceScale(t *testing.T) {
	cfg := testConfig()
	items := resistorDivider(t, cfg)

	sim, err := Build(items, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	scales := []float64{0.0, 0.5, 1.0, 1.5}
	points, err := sim.RunDCSweep(context.Background(), "V1", scales)
	if err != nil {
		t.Fatalf("RunDCSweep: %v", err)
	}
	if len(points) != len(scales) {
		t.Fatalf("got %d points, want %d", len(points), len(scales))
	}

	for _, p := range points {
		want := 5.0 * p.SourceValue // V1 is 10V nominal, mid sees half
		if got := p.Solution["mid"]; math.Abs(got-want) > 1e-6 {
			t.Fatalf("scale %g: mid = %g, want %g", p.SourceValue, got, want)
		}
	}
}

func TestRunDCSweepRejectsUnknownSource(t *testing.T) {
	cfg := testConfig()
	items := resistorDivider(t, cfg)
	sim, err := Build(items, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := sim.RunDCSweep(context.Background(), "Vnope", []float64{1}); err == nil {
		t.Fatal("expected an error for an unknown sweep source")
	}
}
