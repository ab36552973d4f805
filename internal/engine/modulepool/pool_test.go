package modulepool

import (
	"testing"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
)

func TestAcquirePrefersShortestSufficientLength(t *testing.T) {
	p := New("g1", []engine.ModuleBar{
		{Length: 6000, Specification: "HRB400", CrossSection: 25},
		{Length: 9000, Specification: "HRB400", CrossSection: 25},
		{Length: 12000, Specification: "HRB400", CrossSection: 25},
	})

	m, err := p.Acquire(7000)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if m.Length != 9000 {
		t.Fatalf("Length = %v, want 9000", m.Length)
	}
}

func TestAcquireFallsBackToLongestWhenNoneSufficient(t *testing.T) {
	p := New("g1", []engine.ModuleBar{{Length: 6000}, {Length: 9000}})

	m, err := p.Acquire(15000)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if m.Length != 9000 {
		t.Fatalf("Length = %v, want 9000 (longest available)", m.Length)
	}
}

func TestAcquireErrorsWithEmptyCatalog(t *testing.T) {
	p := New("g1", nil)
	if _, err := p.Acquire(1000); err == nil {
		t.Fatal("Acquire() = nil error, want error for empty catalog")
	}
}

func TestRollupAggregatesByLength(t *testing.T) {
	p := New("g1", []engine.ModuleBar{{Length: 6000}})
	if _, err := p.Acquire(1000); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := p.Acquire(5000); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	rollup := p.Rollup()
	line := rollup[6000]
	if line.Count != 2 {
		t.Fatalf("Count = %d, want 2", line.Count)
	}
	if line.TotalLength != 12000 {
		t.Fatalf("TotalLength = %v, want 12000", line.TotalLength)
	}
}
