package matrix

import (
	"errors"
	"math"
	"testing"

	"spicecore/internal/config"
	"spicecore/pkg/simerr"
)

func TestGroundIsolation(t *testing.T) {
	s, err := New(2, false, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	// Stamping against ground must be a no-op, never a panic, and the
	// handle returned must be the shared sink (spec P1).
	h := s.GetElement(0, 1)
	h.Add(5)
	h2 := s.GetElement(1, 0)
	h2.Add(7)
	rh := s.GetRhsElement(0)
	rh.Add(3)

	if h != h2 {
		t.Fatalf("expected ground stamps to share the same sink handle")
	}
}

func TestSameCoordinateSameHandle(t *testing.T) {
	s, err := New(3, false, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	a := s.GetElement(1, 1)
	b := s.GetElement(1, 1)
	if a != b {
		t.Fatalf("expected repeated GetElement(1,1) to return the same handle")
	}
	a.Add(2)
	b.Add(3)
	if a.elem.Real != 5 {
		t.Fatalf("expected additive stamping into shared handle, got %g", a.elem.Real)
	}
}

func TestResistorDividerExact(t *testing.T) {
	// Two 1k resistors between a 10V source and ground via node "mid":
	// node1=10 (forced by voltage source branch eq), node2=mid.
	// Variables: 1=in, 2=mid, 3=branch(V1)
	s, err := New(3, false, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	g := 1.0 / 1000.0

	// R1: in - mid
	s.GetElement(1, 1).Add(g)
	s.GetElement(1, 2).Add(-g)
	s.GetElement(2, 1).Add(-g)
	s.GetElement(2, 2).Add(g)

	// R2: mid - gnd
	s.GetElement(2, 2).Add(g)

	// V1: branch eq, in - 0 = 10
	s.GetElement(3, 1).Add(1)
	s.GetElement(1, 3).Add(1)
	s.GetRhsElement(3).Add(10)

	if err := s.Factor(); err != nil {
		t.Fatal(err)
	}
	if err := s.Solve(); err != nil {
		t.Fatal(err)
	}

	sol := s.Solution()
	if math.Abs(sol[1]-10) > 1e-9 {
		t.Errorf("V(in) = %g, want 10", sol[1])
	}
	if math.Abs(sol[2]-5) > 1e-9 {
		t.Errorf("V(mid) = %g, want 5", sol[2])
	}
}

func TestSingularMatrixReportsRow(t *testing.T) {
	s, err := New(2, false, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	// Row 1 has a real stamp, row 2 is left entirely empty (floating node).
	s.GetElement(1, 1).Add(1)
	s.NoteStamp(1, "R1")

	err = s.Factor()
	if err == nil {
		t.Fatalf("expected singular matrix error for a floating node")
	}
	var sing *simerr.SingularMatrix
	if !errors.As(err, &sing) {
		t.Fatalf("expected *simerr.SingularMatrix, got %v", err)
	}
	if sing.Row != 2 {
		t.Fatalf("expected the empty row 2 to be reported, got row %d", sing.Row)
	}
}
