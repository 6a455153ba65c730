// Package state implements the state vector and history layer:
// per-simulation vectors for the current solution, the
// previous Newton iteration, and the time-step history an integrator
// needs.
package state

// InitMode distinguishes the Newton driver's damping phase.
type InitMode int

const (
	Junction InitMode = iota // initial guess: devices pick an "off"/critical voltage
	Fix                      // devices flagged off are held at zero
	Float                    // normal operation
	Converged
)

// Solver is the mutable per-iteration state every behaviour's Load
// reads from and the Newton driver mutates: the current solution, the
// previous iteration's solution (for Δx), and the damping mode.
type Solver struct {
	Solution   []float64
	Previous   []float64
	Mode       InitMode
	Converged  bool
	ForceExtra bool    // set by a behaviour's limiting to force another iteration
	Temp       float64 // ambient circuit temperature (°C), read by temperature-adjusted devices
	Time       float64 // transient simulation time; zero for OP/DC
	Dt         float64 // current transient step size; zero outside TimeDerivative behaviours
	Frequency  float64 // AC sweep point in Hz (not angular); zero outside Frequency behaviours
}

// NewSolver allocates a state for a system with the given number of
// unknowns (1-indexed; index 0 is ground and always reads 0), at the
// nominal temperature tnom (°C).
func NewSolver(size int, tnom float64) *Solver {
	return &Solver{
		Solution: make([]float64, size+1),
		Previous: make([]float64, size+1),
		Mode:     Junction,
		Temp:     tnom,
	}
}

// BeginIteration copies Solution into Previous and clears the
// force-extra-iteration flag, ready for behaviours to Load the next
// system and the driver to Solve it.
func (s *Solver) BeginIteration() {
	copy(s.Previous, s.Solution)
	s.ForceExtra = false
}

// At returns the solved value at a variable index; ground (<=0)
// always reads zero.
func (s *Solver) At(index int) float64 {
	if index <= 0 || index >= len(s.Solution) {
		return 0
	}
	return s.Solution[index]
}

// PrevAt returns the previous iteration's value at a variable index.
func (s *Solver) PrevAt(index int) float64 {
	if index <= 0 || index >= len(s.Previous) {
		return 0
	}
	return s.Previous[index]
}

// Slot is an offset into a device's private history ring buffer,
// allocated once when the owning device is constructed and valid
// through the simulation.
type Slot int

// History stores, per allocated Slot, two parallel series across the
// current and prior accepted time points: a primary reactive quantity
// (charge or flux) and its instantaneous rate (the branch current or
// voltage that quantity's derivative produces). Both are needed by
// the Trapezoidal companion model; Gear needs only the primary series
// but two points back. A device calls Allocate once per
// reactive quantity it owns, in its constructor.
type History struct {
	depth int // number of retained accepted points, including current
	q     [][]float64
	rate  [][]float64
	savedQ, savedR [][]float64 // snapshot taken before a tentative step, restored on reject
}

// NewHistory creates a History retaining `depth` accepted points
// (depth=3 is enough for Gear-2: t, t-h, t-2h).
func NewHistory(depth int) *History {
	if depth < 3 {
		depth = 3
	}
	return &History{depth: depth, q: make([][]float64, depth), rate: make([][]float64, depth)}
}

// Allocate reserves a new Slot and returns it, pre-filled with zeros
// across every history point.
func (h *History) Allocate() Slot {
	idx := Slot(len(h.q[0]))
	for i := range h.q {
		h.q[i] = append(h.q[i], 0)
		h.rate[i] = append(h.rate[i], 0)
	}
	return idx
}

// Set writes the primary-quantity and rate values at history point 0
// (the point currently being computed) for a slot.
func (h *History) Set(slot Slot, primary, rate float64) {
	h.q[0][slot] = primary
	h.rate[0][slot] = rate
}

// At returns the primary quantity (charge/flux) `pointsBack` points
// before the pending one, counting the most recently accepted point
// (the last one written by Set) as 0. A device's Load calls this
// before Accept/Set run for the step being solved, so pointsBack=0 is
// always the prior accepted step, never the trial value being solved
// for.
func (h *History) At(slot Slot, pointsBack int) float64 {
	if pointsBack < 0 || pointsBack >= h.depth {
		return 0
	}
	return h.q[pointsBack][slot]
}

// RateAt returns the instantaneous rate (current/voltage) `pointsBack`
// points before the pending one, under the same indexing as At.
func (h *History) RateAt(slot Slot, pointsBack int) float64 {
	if pointsBack < 0 || pointsBack >= h.depth {
		return 0
	}
	return h.rate[pointsBack][slot]
}

// Snapshot saves the current history state so a rejected tentative
// step can be rolled back to it.
func (h *History) Snapshot() {
	h.savedQ = cloneRows(h.q)
	h.savedR = cloneRows(h.rate)
}

// Restore undoes a rejected step, reverting to the last Snapshot.
func (h *History) Restore() {
	if h.savedQ == nil {
		return
	}
	for i, row := range h.savedQ {
		copy(h.q[i], row)
	}
	for i, row := range h.savedR {
		copy(h.rate[i], row)
	}
}

// Accept shifts every slot's history by one point: point 0 becomes
// point 1, etc., making room for the next tentative step's point 0
// (state rotation).
func (h *History) Accept() {
	shiftRows(h.q)
	shiftRows(h.rate)
}

func cloneRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func shiftRows(rows [][]float64) {
	for i := len(rows) - 1; i > 0; i-- {
		copy(rows[i], rows[i-1])
	}
}
