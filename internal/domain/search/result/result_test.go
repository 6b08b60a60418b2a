package result

import (
	"testing"

	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
)

func TestNew(t *testing.T) {
	f := factor.Reconstruct("ef-1", "2.B", "CO2", "desc", 1.5, "kg CO2e/kg", []float32{1}, factor.Provenance{})
	r := New([]Hit{NewHit(f, 0.9)}, []float32{0.6, 0.8})

	if r.Len() != 1 {
		t.Fatalf("Len() = %d", r.Len())
	}
	top, ok := r.Top()
	if !ok {
		t.Fatal("Top() = false")
	}
	if top.Factor().ID() != "ef-1" || top.Score() != 0.9 {
		t.Errorf("Top() = %s/%f", top.Factor().ID(), top.Score())
	}
	if len(r.QueryVector()) != 2 {
		t.Errorf("QueryVector() len = %d", len(r.QueryVector()))
	}
}

func TestTop_Empty(t *testing.T) {
	r := New(nil, nil)
	if _, ok := r.Top(); ok {
		t.Error("Top() on empty result = true")
	}
	if r.Hits() != nil {
		t.Errorf("Hits() = %v, want nil", r.Hits())
	}
}
