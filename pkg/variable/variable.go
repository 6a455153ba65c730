// Package variable allocates integer node/branch indices:
// it allocates integer indices to circuit nodes and internal
// branch/auxiliary variables. Node 0 is ground and is never allocated.
package variable

import (
	"strings"

	"spicecore/pkg/simerr"
)

// Kind distinguishes what a Variable's solved value represents.
type Kind int

const (
	Voltage Kind = iota
	Current
	Temperature
)

func (k Kind) String() string {
	switch k {
	case Voltage:
		return "voltage"
	case Current:
		return "current"
	case Temperature:
		return "temperature"
	default:
		return "unknown"
	}
}

// Variable is a single unknown in the solution vector.
type Variable struct {
	Index int
	Name  string
	Kind  Kind
}

// Ground is the fixed, never-allocated reference variable (index 0).
var Ground = Variable{Index: 0, Name: "0", Kind: Voltage}

// Set allocates Variables in creation order. The zero value is ready
// to use. Lookups are case-insensitive.
type Set struct {
	byName map[string]*Variable
	order  []*Variable
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{byName: make(map[string]*Variable)}
}

// Create allocates a new Variable with the given name and kind.
// Ground ("0") is always index 0 and must not be created explicitly.
// Creating the same name under two different kinds fails with
// DuplicateVariable; re-requesting the same (name, kind) pair returns
// the existing Variable instead of allocating a new one, since a
// behaviour's BindVariables may run more than once across a rebuild.
func (s *Set) Create(name string, kind Kind) (*Variable, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "0" || key == "gnd" || key == "ground" {
		return &Ground, nil
	}

	if existing, ok := s.byName[key]; ok {
		if existing.Kind != kind {
			return nil, &simerr.DuplicateVariable{Name: name}
		}
		return existing, nil
	}

	v := &Variable{
		Index: len(s.order) + 1,
		Name:  name,
		Kind:  kind,
	}
	if s.byName == nil {
		s.byName = make(map[string]*Variable)
	}
	s.byName[key] = v
	s.order = append(s.order, v)
	return v, nil
}

// Map looks up a previously created Variable by name, case-insensitively.
func (s *Set) Map(name string) (*Variable, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "0" || key == "gnd" || key == "ground" {
		return &Ground, nil
	}
	v, ok := s.byName[key]
	if !ok {
		return nil, &simerr.UnknownVariable{Name: name}
	}
	return v, nil
}

// Size returns the number of non-ground variables allocated so far;
// the solver sees the index set {0..Size}.
func (s *Set) Size() int {
	return len(s.order)
}

// All returns the allocated variables in creation order.
func (s *Set) All() []*Variable {
	out := make([]*Variable, len(s.order))
	copy(out, s.order)
	return out
}
