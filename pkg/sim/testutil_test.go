package sim

import (
	"testing"

	"spicecore/internal/config"
	"spicecore/pkg/behavior"
	"spicecore/pkg/device"
	"spicecore/pkg/entity"
)

func testConfig() *config.Base {
	return config.Default()
}

// setReal drives a device's ParameterSchema the way a circuit builder
// applies an Entity's ParameterSet, without needing package-private
// field access from outside pkg/device.
func setReal(t *testing.T, schema entity.ParameterSchema, name string, value float64) {
	t.Helper()
	setter, ok := schema[name]
	if !ok {
		t.Fatalf("schema has no parameter %q", name)
	}
	if err := setter(entity.ParameterValue{Kind: entity.Real, Real: value}); err != nil {
		t.Fatalf("set %q=%g: %v", name, value, err)
	}
}

// resistorDivider builds the classic 10V source into a 1k/1k divider
// (mid node at 5V), returning the flat Behaviour list Build expects.
func resistorDivider(t *testing.T, cfg *config.Base) []behavior.Behaviour {
	t.Helper()
	v1 := device.NewVoltageSource("V1", "in", "0", 10, cfg)
	r1 := device.NewResistor("R1", "in", "mid", cfg)
	setReal(t, device.ResistorSchema(r1), "r", 1000)
	r2 := device.NewResistor("R2", "mid", "0", cfg)
	setReal(t, device.ResistorSchema(r2), "r", 1000)
	return []behavior.Behaviour{v1, r1, r2}
}
