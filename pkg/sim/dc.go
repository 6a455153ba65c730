package sim

import (
	"context"

	"spicecore/pkg/simerr"
	"spicecore/pkg/state"
)

// DCSweepPoint is one swept source value and the resulting operating
// point, in name-keyed form.
type DCSweepPoint struct {
	SourceValue float64
	Solution    map[string]float64
}

// sweepable is satisfied by any device a DC sweep can drive directly —
// VoltageSource/CurrentSource. The sweep drives them through their
// SetScale multiplier, so each swept value is a scale relative to the
// source's own nominal level, not an absolute level.
type sweepable interface {
	SetScale(factor float64)
}

// RunDCSweep solves the operating point at every value in values for
// the named source, reusing each
// point's solution as the next point's initial guess — continuation
// that keeps a Newton solve fast across a smooth sweep and lets it
// track the correct branch across e.g. a diode's knee.
//
// source must already have been passed to Build as one of the flat
// device list's VoltageSource/CurrentSource entries; the swept
// "value" is expressed as a scale relative to that source's own
// nominal DC level (scale 1.0 reproduces the uninstrumented circuit),
// since source-level devices expose no other public mutator — the
// same SetScale hook source stepping uses during OP recovery.
func (s *Simulation) RunDCSweep(ctx context.Context, sourceName string, scales []float64) ([]DCSweepPoint, error) {
	if s.Matrix == nil {
		if err := s.bindReal(); err != nil {
			return nil, err
		}
	}

	var source sweepable
	for _, b := range s.Biasing.All() {
		if b.Name() == sourceName {
			src, ok := b.(sweepable)
			if !ok {
				return nil, &simerr.BadParameter{Entity: sourceName, Param: "sweep", Reason: "entity is not a sweepable independent source"}
			}
			source = src
			break
		}
	}
	if source == nil {
		return nil, &simerr.UnknownEntity{Name: sourceName}
	}

	st := state.NewSolver(s.Vars.Size(), s.Config.Tnom)
	st.Mode = state.Junction
	st.Dt = 0

	points := make([]DCSweepPoint, 0, len(scales))
	for i, scale := range scales {
		source.SetScale(scale)
		if i > 0 {
			st.Mode = state.Float
		}

		err := s.newtonIterate(ctx, st, 0, s.Config.Itl2)
		if err != nil {
			if recErr := s.recoverOperatingPoint(ctx, st, err); recErr != nil {
				return points, recErr
			}
			// Recovery's own source-stepping phase scales every
			// independent source together as a convergence aid and
			// resets them to 1.0 afterward; restore this sweep's
			// intended scale before recording the point.
			source.SetScale(scale)
		}

		points = append(points, DCSweepPoint{SourceValue: scale, Solution: s.snapshot(st)})
	}
	return points, nil
}
