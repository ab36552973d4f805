package remainder

import (
	"testing"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
)

func TestEvaluateAndProcessChargesShortOffcutAsWaste(t *testing.T) {
	m := New("g1", 200, nil)
	r := m.EvaluateAndProcess(150, nil, 1)
	if r.Type != engine.RemainderWaste {
		t.Fatalf("Type = %v, want Waste", r.Type)
	}
	if m.PoolSize() != 0 {
		t.Fatalf("PoolSize() = %d, want 0", m.PoolSize())
	}
}

func TestEvaluateAndProcessRetainsLongOffcutAsPending(t *testing.T) {
	m := New("g1", 200, nil)
	r := m.EvaluateAndProcess(500, nil, 1)
	if r.Type != engine.RemainderPending {
		t.Fatalf("Type = %v, want Pending", r.Type)
	}
	if m.PoolSize() != 1 {
		t.Fatalf("PoolSize() = %d, want 1", m.PoolSize())
	}
}

func TestFindBestCombinationFindsSingleExactMatch(t *testing.T) {
	m := New("g1", 200, nil)
	m.EvaluateAndProcess(1000, nil, 1)
	m.EvaluateAndProcess(2000, nil, 1)

	combo, ok := m.FindBestCombination(1000, 4)
	if !ok {
		t.Fatal("FindBestCombination() = false, want true")
	}
	if combo.TotalLength != 1000 {
		t.Fatalf("TotalLength = %v, want 1000", combo.TotalLength)
	}
}

func TestFindBestCombinationWeldsMultipleRemainders(t *testing.T) {
	m := New("g1", 200, nil)
	m.EvaluateAndProcess(400, nil, 1)
	m.EvaluateAndProcess(400, nil, 1)
	m.EvaluateAndProcess(400, nil, 1)

	combo, ok := m.FindBestCombination(1000, 4)
	if !ok {
		t.Fatal("FindBestCombination() = false, want true")
	}
	if combo.TotalLength < 1000 {
		t.Fatalf("TotalLength = %v, want >= 1000", combo.TotalLength)
	}
	if len(combo.Remainders) > 4 {
		t.Fatalf("len(Remainders) = %d, want <= 4", len(combo.Remainders))
	}
}

func TestFindBestCombinationFailsWhenPoolCannotCover(t *testing.T) {
	m := New("g1", 200, nil)
	m.EvaluateAndProcess(300, nil, 1)

	if _, ok := m.FindBestCombination(5000, 4); ok {
		t.Fatal("FindBestCombination() = true, want false (pool can't cover target)")
	}
}

func TestUseRemainderRemovesFromPoolAndChargesLeftover(t *testing.T) {
	m := New("g1", 200, nil)
	m.EvaluateAndProcess(1000, nil, 1)

	combo, ok := m.FindBestCombination(700, 4)
	if !ok {
		t.Fatal("FindBestCombination() = false")
	}
	result := m.UseRemainder(combo, 700, 2)

	if m.PoolSize() != 1 {
		t.Fatalf("PoolSize() after use = %d, want 1 (the 300mm child)", m.PoolSize())
	}
	if len(result.NewChildren) != 1 {
		t.Fatalf("len(NewChildren) = %d, want 1", len(result.NewChildren))
	}
	if result.NewChildren[0].Length != 300 {
		t.Fatalf("child length = %v, want 300", result.NewChildren[0].Length)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	m := New("g1", 200, nil)
	m.EvaluateAndProcess(500, nil, 1)

	first := m.Finalize()
	second := m.Finalize()
	if first != second {
		t.Fatalf("Finalize() not idempotent: first=%+v second=%+v", first, second)
	}
	if typ, ok := m.TypeByID("g1_a1"); !ok || typ != engine.RemainderReal {
		t.Fatalf("TypeByID(g1_a1) = (%v, %v), want (Real, true)", typ, ok)
	}
}

func TestNextIDRollsOverLetters(t *testing.T) {
	m := New("g1", 0, nil)
	var lastID string
	for i := 0; i < 51; i++ {
		lastID = m.nextID()
	}
	if lastID != "g1_b1" {
		t.Fatalf("51st id = %q, want g1_b1", lastID)
	}
}
