// Package matrix wraps github.com/edp1096/sparse — a Go port of the
// Berkeley/SPICE3 sparse-LU package — behind the handle-based contract
// device stamping needs: GetElement/GetRhsElement return stable handles
// that behaviours accumulate into, rather than taking an Add(r,c,v)
// call every time. That keeps device stamping branch-free inside the
// Newton inner loop, which is the dominant cost.
package matrix

import (
	"fmt"
	"math"

	"github.com/edp1096/sparse"

	"spicecore/internal/config"
	"spicecore/pkg/simerr"
)

// MatrixElement is an accumulating handle into one (row, col) slot of
// the system matrix. A handle targeting ground (row or col == 0) is a
// sink: writes are silently discarded, so ground-isolation
// invariant.
type MatrixElement struct {
	Row, Col int
	elem     *sparse.Element // nil for the ground sink
}

// Add accumulates a real contribution (DC/transient stamping).
func (e *MatrixElement) Add(value float64) {
	if e == nil || e.elem == nil {
		return
	}
	e.elem.Real += value
}

// AddComplex accumulates a complex contribution (AC stamping).
func (e *MatrixElement) AddComplex(real, imag float64) {
	if e == nil || e.elem == nil {
		return
	}
	e.elem.Real += real
	e.elem.Imag += imag
}

// RhsElement is an accumulating handle into one row of the
// right-hand-side vector.
type RhsElement struct {
	Row    int
	solver *Solver
}

func (e *RhsElement) Add(value float64) {
	if e == nil || e.Row == 0 {
		return
	}
	e.solver.rhs[e.Row] += value
}

func (e *RhsElement) AddComplex(real, imag float64) {
	if e == nil || e.Row == 0 {
		return
	}
	e.solver.rhs[2*e.Row] += real
	e.solver.rhs[2*e.Row+1] += imag
}

// Solver is the sparse matrix assembly + factorization layer used by
// every simulation driver. One Solver backs one simulation; Reset
// clears accumulated values between Newton iterations, Factor/Solve
// perform LU factorization and forward/back substitution.
type Solver struct {
	Size      int
	isComplex bool

	mat    *sparse.Matrix
	config *sparse.Configuration

	rhs          []float64
	rhsImag      []float64
	solution     []float64
	solutionImag []float64

	elements    map[[2]int]*MatrixElement
	rhsElements map[int]*RhsElement
	groundRow   *MatrixElement // shared discard slot

	pattern    *patternGraph
	lastStamp  map[int]string // row -> name of entity most recently stamping it (diagnostic builds)
	cfg        *config.Base
	factored   bool
}

// New creates a Solver for a system of the given unknown count.
// isComplex enables the second (imaginary) set of matrix/RHS storage
// needed for AC analysis.
func New(size int, isComplex bool, cfg *config.Base) (*Solver, error) {
	sparseConfig := &sparse.Configuration{
		Real:           true,
		Complex:        isComplex,
		Expandable:     true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}

	mat, err := sparse.Create(int64(size), sparseConfig)
	if err != nil {
		return nil, fmt.Errorf("matrix: create: %w", err)
	}

	vecSize := size + 1
	if isComplex {
		vecSize *= 2
	}

	s := &Solver{
		Size:        size,
		isComplex:   isComplex,
		mat:         mat,
		config:      sparseConfig,
		rhs:         make([]float64, vecSize),
		rhsImag:     make([]float64, 1),
		elements:    make(map[[2]int]*MatrixElement),
		rhsElements: make(map[int]*RhsElement),
		pattern:     newPatternGraph(),
		lastStamp:   make(map[int]string),
		cfg:         cfg,
	}
	s.groundRow = &MatrixElement{Row: 0, Col: 0, elem: nil}
	return s, nil
}

// GetElement returns the stable handle for (row, col). Repeated calls
// with the same coordinates return the same handle (see below
// invariant). Either coordinate equal to ground (0) returns the
// shared discard sink.
func (s *Solver) GetElement(row, col int) *MatrixElement {
	if row <= 0 || col <= 0 {
		return s.groundRow
	}
	key := [2]int{row, col}
	if h, ok := s.elements[key]; ok {
		return h
	}
	h := &MatrixElement{Row: row, Col: col, elem: s.mat.GetElement(int64(row), int64(col))}
	s.elements[key] = h
	s.pattern.addEdge(row, col)
	return h
}

// GetRhsElement returns the stable handle for RHS row i. Row 0 (ground)
// returns a handle whose writes are discarded.
func (s *Solver) GetRhsElement(row int) *RhsElement {
	if row <= 0 {
		return &RhsElement{Row: 0, solver: s}
	}
	if h, ok := s.rhsElements[row]; ok {
		return h
	}
	h := &RhsElement{Row: row, solver: s}
	s.rhsElements[row] = h
	return h
}

// NoteStamp records, for diagnostic builds, which entity most recently
// wrote into a row — surfaced in SingularMatrix errors.
func (s *Solver) NoteStamp(row int, entity string) {
	if row > 0 {
		s.lastStamp[row] = entity
	}
}

// Reset zeroes every live element and the RHS vector, ready for the
// next Newton iteration's stamp pass.
func (s *Solver) Reset() {
	s.mat.Clear()
	for i := range s.rhs {
		s.rhs[i] = 0
	}
	s.factored = false
}

// LoadGmin adds a shunt conductance to every allocated diagonal —
// used by the operating-point recovery sequence.
func (s *Solver) LoadGmin(gmin float64) {
	for row := 1; row <= s.Size; row++ {
		if diag := s.mat.Diags[row]; diag != nil {
			diag.Real += gmin
		}
	}
}

// Factor performs LU factorization. The underlying sparse package
// performs Markowitz pivot selection with partial pivoting on the
// first call and reuses the pivot order on subsequent calls,
// redoing only the numerical factorization. If no
// acceptable pivot exists in the remaining submatrix, Factor returns
// a *simerr.SingularMatrix naming the offending row, using the stamp
// graph (pkg/matrix/markowitz.go) to pick the most probable row when
// the underlying library's error carries no row of its own.
func (s *Solver) Factor() error {
	if err := s.mat.Factor(); err != nil {
		row := s.diagnoseSingularRow()
		return &simerr.SingularMatrix{Row: row, Entity: s.lastStamp[row]}
	}
	s.factored = true
	return nil
}

// diagnoseSingularRow scans for a row whose diagonal (and every
// stamped neighbor) is below the pivot floor, breaking ties between
// equally-degenerate rows using the minimum-fill-degree heuristic in
// markowitz.go.
func (s *Solver) diagnoseSingularRow() int {
	var candidates []int
	floor := s.cfg.PivotAbsTol
	for row := 1; row <= s.Size; row++ {
		diag := s.mat.Diags[row]
		if diag == nil || math.Abs(diag.Real) < floor {
			candidates = append(candidates, row)
		}
	}
	if len(candidates) == 0 {
		return 1
	}
	return s.pattern.leastConnected(candidates)
}

// Solve performs forward/back substitution against the current
// factorization and stores the result.
func (s *Solver) Solve() error {
	if !s.factored {
		if err := s.Factor(); err != nil {
			return err
		}
	}
	var err error
	if s.isComplex {
		s.solution, s.solutionImag, err = s.mat.SolveComplex(s.rhs, s.rhsImag)
	} else {
		s.solution, err = s.mat.Solve(s.rhs)
	}
	if err != nil {
		return fmt.Errorf("matrix: solve: %w", err)
	}
	return nil
}

// Solution returns the real (or real part of the) solved vector,
// 1-indexed to match variable indices.
func (s *Solver) Solution() []float64 {
	return s.solution
}

// ComplexSolution returns the complex value at a given variable
// index; valid only after an AC Solve.
func (s *Solver) ComplexSolution(i int) complex128 {
	if !s.isComplex || i <= 0 || i > s.Size || s.solution == nil {
		return 0
	}
	return complex(s.solution[i], s.solution[i+s.Size])
}

// Destroy releases the underlying sparse matrix.
func (s *Solver) Destroy() {
	if s.mat != nil {
		s.mat.Destroy()
	}
}
