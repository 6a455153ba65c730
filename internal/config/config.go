// Package config holds the immutable numerical defaults every
// behaviour and simulation driver shares.
package config

// Base is passed by pointer to every behaviour and driver. There is no
// package-level mutable state: callers that need a different tolerance
// set construct their own Base and thread it through explicitly.
type Base struct {
	RelTol      float64 // relative tolerance for Newton convergence
	AbsTol      float64 // absolute tolerance, amps
	VnTol       float64 // absolute tolerance, volts
	Gmin        float64 // minimum shunt conductance to ground
	TrTol       float64 // transient truncation-error tolerance factor
	ChgTol      float64 // absolute charge tolerance, coulombs
	PivotRelTol float64 // relative pivot acceptance threshold
	PivotAbsTol float64 // absolute pivot acceptance threshold
	Itl1        int     // max Newton iterations, DC operating point
	Itl2        int     // max Newton iterations, per DC sweep step
	Itl4        int     // max Newton iterations, per transient step
	SrcSteps    int     // source-stepping substeps during OP recovery
	GminSteps   int     // gmin-stepping substeps during OP recovery
	Tnom        float64 // nominal temperature, degrees Celsius
}

// Default returns the SPICE-compatible numerical defaults.
func Default() *Base {
	return &Base{
		RelTol:      1e-3,
		AbsTol:      1e-12,
		VnTol:       1e-6,
		Gmin:        1e-12,
		TrTol:       7,
		ChgTol:      1e-14,
		PivotRelTol: 1e-3,
		PivotAbsTol: 1e-13,
		Itl1:        100,
		Itl2:        50,
		Itl4:        10,
		SrcSteps:    10,
		GminSteps:   10,
		Tnom:        27,
	}
}

// TnomKelvin returns the nominal temperature in Kelvin.
func (b *Base) TnomKelvin() float64 {
	return b.Tnom + 273.15
}
