// Package circuit collects entities into one simulation-ready unit: an
// ordered, name-addressed set of entities, built up before a
// simulation binds Behaviours against it. Circuit carries no solved
// state of its own — Simulations are pure functions of (circuit,
// configuration, optional initial condition vector).
package circuit

import (
	"spicecore/pkg/entity"
	"spicecore/pkg/simerr"
)

// Circuit is a mutable collection of entities, addressed by name.
// Entity order is preserved for deterministic behaviour construction.
type Circuit struct {
	order   []string
	entries map[string]*entity.Entity
}

// New creates an empty Circuit.
func New() *Circuit {
	return &Circuit{entries: make(map[string]*entity.Entity)}
}

// Add registers e under its own name. Adding two entities with the
// same name fails with *simerr.DuplicateEntity.
func (c *Circuit) Add(e *entity.Entity) error {
	if _, exists := c.entries[e.Name]; exists {
		return &simerr.DuplicateEntity{Name: e.Name}
	}
	c.entries[e.Name] = e
	c.order = append(c.order, e.Name)
	return nil
}

// Remove deletes the named entity. Removing a name that was never
// added fails with *simerr.UnknownEntity.
func (c *Circuit) Remove(name string) error {
	if _, exists := c.entries[name]; !exists {
		return &simerr.UnknownEntity{Name: name}
	}
	delete(c.entries, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Lookup returns the named entity, or *simerr.UnknownEntity if no
// such entity was ever added (or it has since been removed).
func (c *Circuit) Lookup(name string) (*entity.Entity, error) {
	e, exists := c.entries[name]
	if !exists {
		return nil, &simerr.UnknownEntity{Name: name}
	}
	return e, nil
}

// All returns every entity in insertion order. The returned slice is
// owned by the caller; mutating it does not affect the Circuit.
func (c *Circuit) All() []*entity.Entity {
	out := make([]*entity.Entity, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name])
	}
	return out
}

// Len returns the number of entities currently registered.
func (c *Circuit) Len() int {
	return len(c.order)
}
