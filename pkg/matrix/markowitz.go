package matrix

import (
	"fmt"

	"github.com/katalvlaran/lvlath/core"
)

// patternGraph tracks the bipartite nonzero structure of the matrix
// (row vertices "r{n}" connected to column vertices "c{n}" for every
// stamped coordinate) using lvlath's adjacency-list graph. The
// underlying sparse package performs the actual Markowitz pivot
// search during Factor; this graph is the tie-break and diagnostic
// layer Markowitz-style reordering needs when the
// factorization itself fails and we need to report which row is most
// likely the structurally singular one.
type patternGraph struct {
	g *core.Graph
}

func newPatternGraph() *patternGraph {
	return &patternGraph{g: core.NewGraph(core.WithDirected(false))}
}

func rowVertex(row int) string { return fmt.Sprintf("r%d", row) }
func colVertex(col int) string { return fmt.Sprintf("c%d", col) }

func (p *patternGraph) addEdge(row, col int) {
	rv, cv := rowVertex(row), colVertex(col)
	if !p.g.HasVertex(rv) {
		_ = p.g.AddVertex(rv)
	}
	if !p.g.HasVertex(cv) {
		_ = p.g.AddVertex(cv)
	}
	if !p.g.HasEdge(rv, cv) {
		_, _ = p.g.AddEdge(rv, cv, 1)
	}
}

// degree returns the number of distinct columns stamped into a row —
// the row's Markowitz count proxy (fewer stamped columns means less
// fill-in potential and a higher chance the row is the genuinely
// singular one rather than just numerically small).
func (p *patternGraph) degree(row int) int {
	ids, err := p.g.NeighborIDs(rowVertex(row))
	if err != nil {
		return 0
	}
	return len(ids)
}

// leastConnected picks, among a set of candidate rows that all failed
// the pivot floor, the one with the fewest stamped columns — the one
// a Markowitz-style reordering would have tried pivoting on last,
// making it the most likely root cause rather than a victim of fill-in
// from an earlier pivot choice.
func (p *patternGraph) leastConnected(candidates []int) int {
	best := candidates[0]
	bestDegree := p.degree(best)
	for _, row := range candidates[1:] {
		d := p.degree(row)
		if d < bestDegree {
			best, bestDegree = row, d
		}
	}
	return best
}
