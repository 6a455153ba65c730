// Package entity implements the circuit-level data model: a stable,
// named Entity with an ordered pin list and one or more
// ParameterSets, bound into Behaviours at simulation construction
// time rather than via reflection.
package entity

import (
	"strings"

	"spicecore/pkg/simerr"
	"spicecore/pkg/waveform"
)

// ValueKind tags the concrete type held in a ParameterValue.
type ValueKind int

const (
	Real ValueKind = iota
	Int
	Bool
	String
	Waveform
)

// ParameterValue is a tagged-variant scalar parameter, replacing the
// reflection-based binding a netlist-driven design would otherwise
// need: every entity declares its own ParameterSchema of setter
// closures at registration time, and no caller ever inspects a Go
// type via the reflect package to populate one.
type ParameterValue struct {
	Kind     ValueKind
	Real     float64
	Int      int
	Bool     bool
	String   string
	Waveform *waveform.Waveform
	given    bool // true once explicitly set, distinguishing "set to zero" from "defaulted"
}

// Given reports whether this value was ever explicitly assigned,
// as opposed to holding its zero-value default.
func (v ParameterValue) Given() bool { return v.given }

func realValue(f float64) ParameterValue   { return ParameterValue{Kind: Real, Real: f, given: true} }
func intValue(i int) ParameterValue        { return ParameterValue{Kind: Int, Int: i, given: true} }
func boolValue(b bool) ParameterValue      { return ParameterValue{Kind: Bool, Bool: b, given: true} }
func stringValue(s string) ParameterValue  { return ParameterValue{Kind: String, String: s, given: true} }
func waveValue(w *waveform.Waveform) ParameterValue {
	return ParameterValue{Kind: Waveform, Waveform: w, given: true}
}

// Setter applies a single named parameter's raw value onto whatever
// private field a device's schema function closed over. Built once
// per device instance, since each closure captures that instance.
type Setter func(ParameterValue) error

// ParameterSchema maps lowercase parameter names to the setters a
// device type exposes. Each device's schema function (e.g.
// device.ResistorSchema) builds one bound to a single device
// instance; New and NewParameterSet attach it to a ParameterSet.
type ParameterSchema map[string]Setter

// ParameterSet holds the current value of every named parameter an
// entity accepts, together with the schema used to validate and apply
// assignments. Mutated before a simulation is constructed; read-only
// once Behaviours have been bound.
type ParameterSet struct {
	entity string
	schema ParameterSchema
	values map[string]ParameterValue
}

// NewParameterSet creates an empty set bound to schema; entity names
// the owning Entity, used in error messages.
func NewParameterSet(entity string, schema ParameterSchema) *ParameterSet {
	return &ParameterSet{entity: entity, schema: schema, values: make(map[string]ParameterValue)}
}

func (p *ParameterSet) lookup(name string) (string, Setter, bool) {
	key := strings.ToLower(name)
	setter, ok := p.schema[key]
	return key, setter, ok
}

// SetReal assigns a float64-valued parameter, running it through the
// entity's setter (which may further validate and return a
// *simerr.BadParameter).
func (p *ParameterSet) SetReal(name string, f float64) error {
	return p.set(name, realValue(f))
}

// SetInt assigns an int-valued parameter.
func (p *ParameterSet) SetInt(name string, i int) error {
	return p.set(name, intValue(i))
}

// SetBool assigns a bool-valued parameter.
func (p *ParameterSet) SetBool(name string, b bool) error {
	return p.set(name, boolValue(b))
}

// SetString assigns a string-valued parameter.
func (p *ParameterSet) SetString(name string, s string) error {
	return p.set(name, stringValue(s))
}

// SetWaveform assigns a waveform-valued parameter (an independent
// source's time-varying drive).
func (p *ParameterSet) SetWaveform(name string, w *waveform.Waveform) error {
	return p.set(name, waveValue(w))
}

func (p *ParameterSet) set(name string, v ParameterValue) error {
	key, setter, ok := p.lookup(name)
	if !ok {
		return &simerr.BadParameter{Entity: p.entity, Param: name, Reason: "unknown parameter"}
	}
	if err := setter(v); err != nil {
		return err
	}
	p.values[key] = v
	return nil
}

// Float returns a previously-set Real parameter.
func (p *ParameterSet) Float(name string) (float64, bool) {
	v, ok := p.values[strings.ToLower(name)]
	if !ok || v.Kind != Real {
		return 0, false
	}
	return v.Real, true
}

// Int returns a previously-set Int parameter.
func (p *ParameterSet) Int(name string) (int, bool) {
	v, ok := p.values[strings.ToLower(name)]
	if !ok || v.Kind != Int {
		return 0, false
	}
	return v.Int, true
}

// Bool returns a previously-set Bool parameter.
func (p *ParameterSet) Bool(name string) (bool, bool) {
	v, ok := p.values[strings.ToLower(name)]
	if !ok || v.Kind != Bool {
		return false, false
	}
	return v.Bool, true
}

// String returns a previously-set String parameter.
func (p *ParameterSet) String(name string) (string, bool) {
	v, ok := p.values[strings.ToLower(name)]
	if !ok || v.Kind != String {
		return "", false
	}
	return v.String, true
}

// WaveformValue returns a previously-set Waveform parameter.
func (p *ParameterSet) WaveformValue(name string) (*waveform.Waveform, bool) {
	v, ok := p.values[strings.ToLower(name)]
	if !ok || v.Kind != Waveform {
		return nil, false
	}
	return v.Waveform, true
}

// Given reports whether a parameter was ever explicitly set.
func (p *ParameterSet) Given(name string) bool {
	v, ok := p.values[strings.ToLower(name)]
	return ok && v.given
}

// Entity is a stable, named circuit element: an ordered list of pin
// names and the parameter set(s) a device built from it will bind.
// Its structure is immutable once a simulation has been constructed
// from it (see below).
type Entity struct {
	Name   string
	Kind   string // device type tag, e.g. "R", "D", "V", "G"
	Pins   []string
	Params *ParameterSet
}

// New creates an Entity with an empty, schema-bound parameter set.
func New(name, kind string, pins []string, schema ParameterSchema) *Entity {
	return &Entity{
		Name:   name,
		Kind:   kind,
		Pins:   pins,
		Params: NewParameterSet(name, schema),
	}
}
