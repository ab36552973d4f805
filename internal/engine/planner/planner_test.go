package planner

import (
	"testing"
	"time"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/modulepool"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/remainder"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestPlanSatisfiesDemandFromModulesWhenPoolEmpty(t *testing.T) {
	designs := []engine.DesignBar{{ID: "d1", Length: 3000, Required: 2}}
	mgr := remainder.New("g1", 200, nil)
	pool := modulepool.New("g1", []engine.ModuleBar{{Length: 12000}})
	c := engine.Constraints{WasteThreshold: 200, MaxWeldingSegments: 4, TimeLimit: 30}

	plans, unmet := Plan(nil, "g1", designs, mgr, pool, c, fixedClock(time.Unix(0, 0)))
	if len(unmet) != 0 {
		t.Fatalf("unmet = %+v, want none", unmet)
	}
	if len(plans) == 0 {
		t.Fatal("plans is empty, want at least one plan")
	}

	total := 0
	for _, p := range plans {
		for _, cut := range p.Cuts {
			if cut.DesignID == "d1" {
				total += cut.Count
			}
		}
	}
	if total != 2 {
		t.Fatalf("total cuts for d1 = %d, want 2", total)
	}
}

func TestPlanReportsUnmetDemandWhenModulePoolIsEmpty(t *testing.T) {
	designs := []engine.DesignBar{{ID: "d1", Length: 3000, Required: 1}}
	mgr := remainder.New("g1", 200, nil)
	pool := modulepool.New("g1", nil)
	c := engine.Constraints{WasteThreshold: 200, MaxWeldingSegments: 4, TimeLimit: 30}

	_, unmet := Plan(nil, "g1", designs, mgr, pool, c, fixedClock(time.Unix(0, 0)))
	if len(unmet) != 1 {
		t.Fatalf("unmet = %+v, want one entry", unmet)
	}
	if unmet[0].Missing != 1 {
		t.Fatalf("Missing = %d, want 1", unmet[0].Missing)
	}
}

func TestPlanUsesExistingRemainderBeforeAcquiringModule(t *testing.T) {
	designs := []engine.DesignBar{{ID: "d1", Length: 1000, Required: 1}}
	mgr := remainder.New("g1", 200, nil)
	mgr.EvaluateAndProcess(1000, nil, 1)
	pool := modulepool.New("g1", []engine.ModuleBar{{Length: 12000}})
	c := engine.Constraints{WasteThreshold: 200, MaxWeldingSegments: 4, TimeLimit: 30}

	plans, unmet := Plan(nil, "g1", designs, mgr, pool, c, fixedClock(time.Unix(0, 0)))
	if len(unmet) != 0 {
		t.Fatalf("unmet = %+v, want none", unmet)
	}
	if len(plans) != 1 {
		t.Fatalf("len(plans) = %d, want 1", len(plans))
	}
	if plans[0].SourceType != engine.SourceRemainder {
		t.Fatalf("SourceType = %v, want SourceRemainder", plans[0].SourceType)
	}
}

func TestPlanWeldsFreshModulesWhenDemandExceedsLongestModule(t *testing.T) {
	designs := []engine.DesignBar{{ID: "d1", Length: 15000, Required: 1}}
	mgr := remainder.New("g1", 500, nil)
	pool := modulepool.New("g1", []engine.ModuleBar{{Length: 6000}, {Length: 9000}, {Length: 12000}})
	c := engine.Constraints{WasteThreshold: 500, MaxWeldingSegments: 2, TimeLimit: 30}

	plans, unmet := Plan(nil, "g1", designs, mgr, pool, c, fixedClock(time.Unix(0, 0)))
	if len(unmet) != 0 {
		t.Fatalf("unmet = %+v, want none", unmet)
	}

	var wove bool
	for _, p := range plans {
		var cutTotal float64
		for _, cut := range p.Cuts {
			cutTotal += cut.Length * float64(cut.Count)
		}
		if cutTotal > p.SourceLength+1e-6 {
			t.Fatalf("plan cuts %v mm from a %v mm source: physically impossible", cutTotal, p.SourceLength)
		}
		if p.SourceType == engine.SourceRemainder && p.WeldingCount >= 2 {
			wove = true
		}
	}
	if !wove {
		t.Fatal("no plan welded >= 2 segments together to cover the over-length demand")
	}
}

func TestPlanStopsWhenTimeLimitAlreadyExpired(t *testing.T) {
	designs := []engine.DesignBar{{ID: "d1", Length: 1000, Required: 5}}
	mgr := remainder.New("g1", 200, nil)
	pool := modulepool.New("g1", []engine.ModuleBar{{Length: 12000}})
	c := engine.Constraints{WasteThreshold: 200, MaxWeldingSegments: 4, TimeLimit: 30}

	now := time.Unix(0, 0)
	clockCalls := 0
	clock := func() time.Time {
		clockCalls++
		if clockCalls == 1 {
			return now
		}
		return now.Add(time.Hour) // every subsequent read looks past the deadline
	}

	_, unmet := Plan(nil, "g1", designs, mgr, pool, c, clock)
	if len(unmet) == 0 {
		t.Fatal("unmet is empty, want entries reported once the deadline passes")
	}
}
