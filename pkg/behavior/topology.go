package behavior

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"

	"spicecore/pkg/simerr"
)

// Order topologically sorts a collection of same-kind Behaviours by
// their declared DependsOn edges ("load order is a
// topological order such that behaviours a behaviour depends on are
// constructed first"), and returns the sorted Set ready for
// BindVariables/BindMatrix/Load.
//
// A DependsOn name absent from items fails with *simerr.UnknownEntity.
// A dependency cycle (two behaviours each depending on the other,
// directly or transitively) fails with the wrapped cycle error from
// the underlying graph sort.
func Order(kind Kind, items []Behaviour) (*Set, error) {
	index := byName(items)
	g := core.NewGraph(core.WithDirected(true))

	for _, b := range items {
		if err := ensureVertex(g, b.Name()); err != nil {
			return nil, fmt.Errorf("behavior: %s: %w", b.Name(), err)
		}
	}
	for _, b := range items {
		for _, dep := range b.DependsOn() {
			if _, ok := index[dep]; !ok {
				return nil, &simerr.UnknownEntity{Name: dep}
			}
			if err := ensureVertex(g, dep); err != nil {
				return nil, fmt.Errorf("behavior: %s: %w", dep, err)
			}
			// Edge dep -> b.Name(): dep must be visited (and thus
			// loaded) before b in the reversed post-order below.
			if !g.HasEdge(dep, b.Name()) {
				if _, err := g.AddEdge(dep, b.Name(), 1); err != nil {
					return nil, fmt.Errorf("behavior: linking %s -> %s: %w", dep, b.Name(), err)
				}
			}
		}
	}

	sorted, err := dfs.TopologicalSort(g)
	if err != nil {
		if errors.Is(err, dfs.ErrCycleDetected) {
			return nil, fmt.Errorf("behavior: cyclic dependency among %s behaviours: %w", kind, err)
		}
		return nil, fmt.Errorf("behavior: ordering %s behaviours: %w", kind, err)
	}

	ordered := make([]Behaviour, 0, len(sorted))
	for _, name := range sorted {
		if b, ok := index[name]; ok {
			ordered = append(ordered, b)
		}
	}
	return &Set{kind: kind, items: ordered}, nil
}

func ensureVertex(g *core.Graph, id string) error {
	if g.HasVertex(id) {
		return nil
	}
	return g.AddVertex(id)
}
