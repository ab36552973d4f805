package stats

import (
	"testing"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
)

func TestReduceComputesGroupAndGlobalLossRate(t *testing.T) {
	solutions := map[string]engine.Solution{
		"g1": {
			GroupKey: "g1",
			Plans: []engine.CuttingPlan{
				{
					SourceType: engine.SourceModule,
					SourceLength: 1000,
					Cuts:       []engine.Cut{{DesignID: "d1", Length: 900, Count: 1}},
					Waste:      100,
				},
			},
		},
	}

	result := Reduce(nil, solutions)
	if result.TotalMaterial != 1000 {
		t.Fatalf("TotalMaterial = %v, want 1000", result.TotalMaterial)
	}
	if result.TotalWaste != 100 {
		t.Fatalf("TotalWaste = %v, want 100", result.TotalWaste)
	}
	if result.TotalLossRate != 10 {
		t.Fatalf("TotalLossRate = %v, want 10", result.TotalLossRate)
	}
	if len(result.ConsistencyIssues) != 0 {
		t.Fatalf("ConsistencyIssues = %+v, want none", result.ConsistencyIssues)
	}
}

func TestReduceFlagsConservationViolation(t *testing.T) {
	solutions := map[string]engine.Solution{
		"g1": {
			GroupKey: "g1",
			Plans: []engine.CuttingPlan{
				{
					SourceType:   engine.SourceModule,
					SourceLength: 1000,
					Cuts:         []engine.Cut{{DesignID: "d1", Length: 100, Count: 1}},
					Waste:        100, // leaves 800mm unaccounted for
				},
			},
		},
	}

	result := Reduce(nil, solutions)
	if len(result.ConsistencyIssues) == 0 {
		t.Fatal("ConsistencyIssues is empty, want a conservation violation")
	}
}

func TestReduceSumsAcrossMultipleGroups(t *testing.T) {
	solutions := map[string]engine.Solution{
		"g1": {Plans: []engine.CuttingPlan{{SourceType: engine.SourceModule, SourceLength: 1000, Cuts: []engine.Cut{{Length: 1000, Count: 1}}}}},
		"g2": {Plans: []engine.CuttingPlan{{SourceType: engine.SourceModule, SourceLength: 2000, Cuts: []engine.Cut{{Length: 2000, Count: 1}}}}},
	}

	result := Reduce(nil, solutions)
	if result.TotalMaterial != 3000 {
		t.Fatalf("TotalMaterial = %v, want 3000", result.TotalMaterial)
	}
	if result.TotalLossRate != 0 {
		t.Fatalf("TotalLossRate = %v, want 0 (no waste anywhere)", result.TotalLossRate)
	}
}
