// Package stats implements the statistics reducer of spec section 4.8: it
// recomputes each group's material totals from its finalized plans, cross-
// checks them for conservation, and reduces every group into the job's
// global loss rate and material totals.
package stats

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-hclog"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
)

const conservationTolerance = 1.0 // mm
const lossRateCrossCheckTolerance = 0.01 // percentage points

// Reduce recomputes every group's totals from its plans, checks material
// conservation per group, and reduces the per-group totals into the job's
// global OptimizationResult. It fills Solutions with the recomputed per-group
// sums; ProcessingStatus and ModuleSteelUsage are left for the caller.
func Reduce(log hclog.Logger, solutions map[string]engine.Solution) engine.OptimizationResult {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("stats")

	out := make(map[string]engine.Solution, len(solutions))
	var issues []engine.ConsistencyIssue

	var totalMaterial, totalWaste, totalReal, totalPseudo, totalDesign float64
	var totalModules int
	var lossNumerator, lossDenominator float64
	var weightedLossSum, weightedLossWeight float64

	for key, sol := range solutions {
		summed := summarize(sol.Plans)
		sol.ModuleCount = summed.moduleCount
		sol.TotalMaterial = summed.totalMaterial
		sol.Waste = summed.waste
		sol.RealRemainder = summed.realRemainder
		sol.PseudoRemainder = summed.pseudoRemainder
		sol.DesignLength = summed.designLength

		if issue := checkConservation(key, summed); issue != nil {
			issues = append(issues, *issue)
			log.Warn("material conservation check failed", "group", key, "message", issue.Message)
		}

		groupLossRate := 0.0
		if summed.totalMaterial > 0 {
			groupLossRate = round4(((summed.waste + summed.realRemainder) / summed.totalMaterial) * 100)
		}

		out[key] = sol

		totalMaterial += summed.totalMaterial
		totalWaste += summed.waste
		totalReal += summed.realRemainder
		totalPseudo += summed.pseudoRemainder
		totalDesign += summed.designLength
		totalModules += summed.moduleCount

		lossNumerator += summed.waste + summed.realRemainder
		lossDenominator += summed.totalMaterial
		weightedLossSum += groupLossRate * summed.totalMaterial
		weightedLossWeight += summed.totalMaterial
	}

	totalLossRate := 0.0
	if lossDenominator > 0 {
		totalLossRate = round4((lossNumerator / lossDenominator) * 100)
	}

	if weightedLossWeight > 0 {
		weighted := weightedLossSum / weightedLossWeight
		if math.Abs(weighted-totalLossRate) > lossRateCrossCheckTolerance {
			issues = append(issues, engine.ConsistencyIssue{
				GroupKey: "",
				Message:  fmt.Sprintf("global loss rate %.4f disagrees with weighted-average cross-check %.4f by more than %.2fpp", totalLossRate, weighted, lossRateCrossCheckTolerance),
			})
			log.Warn("global loss rate cross-check failed", "summed", totalLossRate, "weightedAverage", weighted)
		}
	}

	return engine.OptimizationResult{
		Solutions:            out,
		TotalLossRate:        totalLossRate,
		TotalModuleUsed:      totalModules,
		TotalMaterial:        totalMaterial,
		TotalWaste:           totalWaste,
		TotalRealRemainder:   totalReal,
		TotalPseudoRemainder: totalPseudo,
		TotalDesignLength:    totalDesign,
		ConsistencyIssues:    issues,
	}
}

type groupTotals struct {
	moduleCount     int
	totalMaterial   float64
	waste           float64
	realRemainder   float64
	pseudoRemainder float64
	designLength    float64
}

func summarize(plans []engine.CuttingPlan) groupTotals {
	var t groupTotals
	for _, p := range plans {
		switch p.SourceType {
		case engine.SourceModule:
			t.moduleCount++
			t.totalMaterial += p.SourceLength
		case engine.SourceRemainder:
			// Reused material: already counted once as the module material
			// that originally introduced it, so it is tracked separately
			// rather than folded into totalMaterial again.
			t.pseudoRemainder += p.SourceLength
		}
		t.waste += p.Waste
		for _, r := range p.NewRemainders {
			switch r.Type {
			case engine.RemainderReal:
				t.realRemainder += r.Length
			case engine.RemainderPending:
				// Should not survive to the reducer: finalization runs before
				// Reduce is called. Counted as real to keep conservation exact
				// rather than silently dropping the length.
				t.realRemainder += r.Length
			}
		}
		for _, c := range p.Cuts {
			t.designLength += c.Length * float64(c.Count)
		}
	}
	return t
}

// checkConservation verifies spec section 4.8's invariant: total material
// entering a group equals design length consumed plus waste plus retained
// (real) remainder, within conservationTolerance. Pseudo remainder is
// excluded: it is reused material that was already counted once as the
// module material that originally introduced it, not new supply.
func checkConservation(groupKey string, t groupTotals) *engine.ConsistencyIssue {
	lhs := t.totalMaterial
	rhs := t.designLength + t.waste + t.realRemainder
	if math.Abs(lhs-rhs) > conservationTolerance {
		return &engine.ConsistencyIssue{
			GroupKey: groupKey,
			Message:  fmt.Sprintf("material conservation violated: supplied %.2f vs consumed+waste+remainder %.2f", lhs, rhs),
		}
	}
	return nil
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
