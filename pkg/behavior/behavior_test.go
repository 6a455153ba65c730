package behavior

import (
	"testing"

	"spicecore/pkg/matrix"
	"spicecore/pkg/state"
	"spicecore/pkg/variable"
)

// stubBehaviour records Load calls in a shared trace, letting tests
// assert on observed order without any real device math.
type stubBehaviour struct {
	name    string
	deps    []string
	trace   *[]string
	convOK  bool
}

func (s *stubBehaviour) Kind() Kind                        { return Biasing }
func (s *stubBehaviour) Name() string                      { return s.name }
func (s *stubBehaviour) DependsOn() []string                { return s.deps }
func (s *stubBehaviour) Setup(ctx *Context) error            { return nil }
func (s *stubBehaviour) BindVariables(v *variable.Set) error { return nil }
func (s *stubBehaviour) BindMatrix(m *matrix.Solver) error   { return nil }
func (s *stubBehaviour) Load(st *state.Solver) error {
	*s.trace = append(*s.trace, s.name)
	return nil
}
func (s *stubBehaviour) IsConvergent(st *state.Solver) bool { return s.convOK }
func (s *stubBehaviour) Unsetup()                           {}

func indexOf(trace []string, name string) int {
	for i, n := range trace {
		if n == name {
			return i
		}
	}
	return -1
}

func TestOrderLoadsDependenciesFirst(t *testing.T) {
	var trace []string
	v1 := &stubBehaviour{name: "V1", trace: &trace, convOK: true}
	f1 := &stubBehaviour{name: "F1", deps: []string{"V1"}, trace: &trace, convOK: true}
	r1 := &stubBehaviour{name: "R1", trace: &trace, convOK: true}

	set, err := Order(Biasing, []Behaviour{f1, r1, v1})
	if err != nil {
		t.Fatal(err)
	}

	st := state.NewSolver(0, 27)
	if err := set.Load(st); err != nil {
		t.Fatal(err)
	}

	if idx := indexOf(trace, "V1"); idx < 0 || idx >= indexOf(trace, "F1") {
		t.Fatalf("expected V1 to load before F1, trace=%v", trace)
	}
	if !set.Convergent(st) {
		t.Fatalf("expected set to report convergent")
	}
}

func TestOrderUnknownDependencyFails(t *testing.T) {
	var trace []string
	f1 := &stubBehaviour{name: "F1", deps: []string{"VGHOST"}, trace: &trace}

	_, err := Order(Biasing, []Behaviour{f1})
	if err == nil {
		t.Fatalf("expected unknown-entity error for unresolved dependency")
	}
}

func TestOrderCyclicDependencyFails(t *testing.T) {
	var trace []string
	a := &stubBehaviour{name: "A", deps: []string{"B"}, trace: &trace}
	b := &stubBehaviour{name: "B", deps: []string{"A"}, trace: &trace}

	_, err := Order(Biasing, []Behaviour{a, b})
	if err == nil {
		t.Fatalf("expected cycle error")
	}
}
