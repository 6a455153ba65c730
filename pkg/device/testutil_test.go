package device

import (
	"spicecore/internal/config"
	"spicecore/pkg/variable"
)

// newTestVars pre-creates a Voltage variable for every non-ground name,
// standing in for the node-discovery pass a circuit builder performs
// before any device's BindVariables runs.
func newTestVars(names ...string) *variable.Set {
	vars := variable.NewSet()
	for _, n := range names {
		if n == "0" {
			continue
		}
		vars.Create(n, variable.Voltage)
	}
	return vars
}

func testConfig() *config.Base {
	return config.Default()
}
