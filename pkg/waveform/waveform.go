// Package waveform implements the source drive functions referenced
// by independent voltage/current sources: a time-invariant DC level,
// plus the SPICE-compatible PULSE, SIN, EXP, PWL and SFFM shapes.
// Each exposes Value(t) and the breakpoint times a transient driver
// must land a step on exactly.
package waveform

import "math"

// Kind tags which drive function a Waveform evaluates.
type Kind int

const (
	DC Kind = iota
	Sin
	Pulse
	Exp
	PWL
	Sffm
)

// Waveform is a closed set of drive-function parameters; construct
// one with the matching New* function for the shape you need.
type Waveform struct {
	kind Kind

	dc float64 // DC level, and SIN/PULSE/EXP/SFFM offset

	// SIN: offset + amplitude*sin(2*pi*freq*t+phase)*damping(t)
	amplitude, freq, phaseDeg, theta, sinDelay float64

	// PULSE: v1 -> v2 -> v1, with delay/rise/fall/width/period
	v1, v2, delay, rise, fall, width, period float64

	// EXP: v1 until td1, exponential toward v2 with tau1, then
	// exponential back toward v1 with tau2 starting at td2.
	expV1, expV2, td1, tau1, td2, tau2 float64

	// PWL: piecewise-linear (time, value) breakpoints, strictly
	// increasing in time.
	times, values []float64

	// SFFM: vo + va*sin(2*pi*fc*t + mdi*sin(2*pi*fs*t))
	sffmFc, sffmMdi, sffmFs float64
}

// NewDC builds a constant-level waveform.
func NewDC(value float64) *Waveform {
	return &Waveform{kind: DC, dc: value}
}

// NewSin builds a damped sinusoid: offset + amplitude*sin(2*pi*freq*t
// + phaseDeg) for t < delay held at offset, decaying by theta after.
func NewSin(offset, amplitude, freq, phaseDeg, theta, delay float64) *Waveform {
	return &Waveform{kind: Sin, dc: offset, amplitude: amplitude, freq: freq, phaseDeg: phaseDeg, theta: theta, sinDelay: delay}
}

// NewPulse builds a trapezoidal pulse train: v1 until delay, a linear
// ramp to v2 over rise, held at v2 for width, a linear ramp back to
// v1 over fall, then repeating every period (period<=0 means once).
func NewPulse(v1, v2, delay, rise, fall, width, period float64) *Waveform {
	return &Waveform{kind: Pulse, v1: v1, v2: v2, delay: delay, rise: rise, fall: fall, width: width, period: period}
}

// NewExp builds an exponential transition: v1 until td1, exponential
// approach to v2 with time constant tau1, then exponential approach
// back to v1 with time constant tau2 starting at td2 (td2 > td1).
func NewExp(v1, v2, td1, tau1, td2, tau2 float64) *Waveform {
	return &Waveform{kind: Exp, expV1: v1, expV2: v2, td1: td1, tau1: tau1, td2: td2, tau2: tau2}
}

// NewPWL builds a piecewise-linear waveform from parallel time/value
// slices; times must be strictly increasing.
func NewPWL(times, values []float64) *Waveform {
	return &Waveform{kind: PWL, times: append([]float64(nil), times...), values: append([]float64(nil), values...)}
}

// NewSffm builds a single-frequency-FM waveform: vo +
// va*sin(2*pi*fc*t + mdi*sin(2*pi*fs*t)).
func NewSffm(vo, va, fc, mdi, fs float64) *Waveform {
	return &Waveform{kind: Sffm, dc: vo, amplitude: va, sffmFc: fc, sffmMdi: mdi, sffmFs: fs}
}

// Value evaluates the waveform at time t (transient) or returns the
// DC operating point (t==0 for DC/Sin/Exp/Sffm at their quiescent
// value; PULSE and PWL always evaluate their actual t=0 shape since
// SPICE sources have no separate DC value once a transient shape is
// given).
func (w *Waveform) Value(t float64) float64 {
	switch w.kind {
	case DC:
		return w.dc
	case Sin:
		if t < w.sinDelay {
			return w.dc
		}
		tt := t - w.sinDelay
		damp := 1.0
		if w.theta != 0 {
			damp = math.Exp(-tt * w.theta)
		}
		return w.dc + w.amplitude*damp*math.Sin(2*math.Pi*w.freq*tt+w.phaseDeg*math.Pi/180.0)
	case Pulse:
		return w.pulseValue(t)
	case Exp:
		return w.expValue(t)
	case PWL:
		return w.pwlValue(t)
	case Sffm:
		return w.dc + w.amplitude*math.Sin(2*math.Pi*w.sffmFc*t+w.sffmMdi*math.Sin(2*math.Pi*w.sffmFs*t))
	default:
		return 0
	}
}

func (w *Waveform) pulseValue(t float64) float64 {
	if t < w.delay {
		return w.v1
	}
	t -= w.delay
	if w.period > 0 {
		t = math.Mod(t, w.period)
	}
	if t < w.rise {
		if w.rise == 0 {
			return w.v2
		}
		return w.v1 + (w.v2-w.v1)*t/w.rise
	}
	if t < w.rise+w.width {
		return w.v2
	}
	fallStart := w.rise + w.width
	if t < fallStart+w.fall {
		if w.fall == 0 {
			return w.v1
		}
		return w.v2 - (w.v2-w.v1)*(t-fallStart)/w.fall
	}
	return w.v1
}

func (w *Waveform) expValue(t float64) float64 {
	if t < w.td1 {
		return w.expV1
	}
	if t < w.td2 {
		tau := w.tau1
		if tau == 0 {
			tau = 1e-12
		}
		return w.expV1 + (w.expV2-w.expV1)*(1-math.Exp(-(t-w.td1)/tau))
	}
	riseAt := w.expV1 + (w.expV2-w.expV1)*(1-math.Exp(-(w.td2-w.td1)/tau1safe(w.tau1)))
	tau := w.tau2
	if tau == 0 {
		tau = 1e-12
	}
	return riseAt + (w.expV1-riseAt)*(1-math.Exp(-(t-w.td2)/tau))
}

func tau1safe(tau float64) float64 {
	if tau == 0 {
		return 1e-12
	}
	return tau
}

func (w *Waveform) pwlValue(t float64) float64 {
	n := len(w.times)
	if n == 0 {
		return 0
	}
	if t <= w.times[0] {
		return w.values[0]
	}
	if t >= w.times[n-1] {
		return w.values[n-1]
	}
	for i := 1; i < n; i++ {
		if t <= w.times[i] {
			t0, t1 := w.times[i-1], w.times[i]
			v0, v1 := w.values[i-1], w.values[i]
			slope := (v1 - v0) / (t1 - t0)
			return v0 + slope*(t-t0)
		}
	}
	return w.values[n-1]
}

// Breakpoints returns every time up to tStop at which the waveform's
// slope is discontinuous, so a transient driver can force a step to
// land exactly there. DC, SIN and SFFM have no sharp
// edges and return nil.
func (w *Waveform) Breakpoints(tStop float64) []float64 {
	switch w.kind {
	case Pulse:
		return w.pulseBreakpoints(tStop)
	case Exp:
		pts := []float64{w.td1, w.td2}
		return clipSorted(pts, tStop)
	case PWL:
		return clipSorted(append([]float64(nil), w.times...), tStop)
	default:
		return nil
	}
}

func (w *Waveform) pulseBreakpoints(tStop float64) []float64 {
	var pts []float64
	edge := w.delay
	pts = append(pts, edge)
	if w.period <= 0 {
		pts = append(pts, edge+w.rise, edge+w.rise+w.width, edge+w.rise+w.width+w.fall)
		return clipSorted(pts, tStop)
	}
	for edge <= tStop {
		pts = append(pts, edge, edge+w.rise, edge+w.rise+w.width, edge+w.rise+w.width+w.fall)
		edge += w.period
	}
	return clipSorted(pts, tStop)
}

func clipSorted(pts []float64, tStop float64) []float64 {
	out := pts[:0]
	for _, p := range pts {
		if p >= 0 && p <= tStop {
			out = append(out, p)
		}
	}
	return out
}
