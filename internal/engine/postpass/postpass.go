// Package postpass implements the MW-CD local-improvement pass of spec
// section 4.5: after a group's plans are built, it looks for REMAINDER
// plans whose welded combination could be replaced by a single larger
// retained remainder (a "merge-waste candidate-disposal" swap) whenever
// doing so is worth more than the configured benefit floor.
package postpass

import (
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/remainder"
)

// mwCandidate is a retained child remainder long enough to be considered as
// a one-piece replacement for a welded combination.
type mwCandidate struct {
	remainder engine.Remainder
}

// cdCandidate is a REMAINDER plan whose combination welded two or more
// source remainders together — the thing an MW candidate might replace.
type cdCandidate struct {
	planIdx int
}

// Run repeatedly scans plans for a profitable MW-for-CD swap, applies the
// single best one found, and re-scans, up to maxIterations times or until no
// swap clears the benefit floor. It mutates plans in place and returns the
// count of swaps applied.
func Run(
	log hclog.Logger,
	groupKey string,
	plans []engine.CuttingPlan,
	mgr *remainder.Manager,
	c engine.Constraints,
) int {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("postpass").With("group", groupKey)

	applied := 0
	for iter := 0; iter < c.PostPassMaxIterations; iter++ {
		mw := collectMWCandidates(mgr, plans, c.WasteThreshold)
		cd := collectCDCandidates(plans)
		if len(mw) == 0 || len(cd) == 0 {
			break
		}

		bestBenefit := c.PostPassBenefitFloor
		bestMW := -1
		bestCD := -1
		for mi, m := range mw {
			for _, cand := range cd {
				benefit := swapBenefit(m.remainder, plans[cand.planIdx], c.WeldCostPerSegment, c.WasteThreshold)
				if benefit > bestBenefit {
					bestBenefit = benefit
					bestMW = mi
					bestCD = cand.planIdx
				}
			}
		}

		if bestMW == -1 {
			break
		}

		applySwap(mgr, plans, bestCD, mw[bestMW].remainder)
		log.Info("applied MW-CD swap", "mwRemainder", mw[bestMW].remainder.ID, "planIdx", bestCD, "benefit", bestBenefit)
		applied++
	}

	return applied
}

// swapBenefit is spec section 4.5's formula: (segments-1)*weldCost minus the
// length mismatch between the MW candidate and what the combination used. A
// swap is infeasible, and scored 0, when the candidate is too short to cover
// the plan's cut at all, or when replacing the combination would strand
// wasteThreshold or more material.
func swapBenefit(mw engine.Remainder, plan engine.CuttingPlan, weldCost, wasteThreshold float64) float64 {
	segments := len(plan.UsedRemainders)
	if segments < 2 || len(plan.Cuts) == 0 {
		return 0
	}

	target := plan.Cuts[0].Length
	if mw.Length < target {
		return 0
	}

	var cutTotal float64
	for _, cut := range plan.Cuts {
		cutTotal += cut.Length * float64(cut.Count)
	}
	if mw.Length-cutTotal >= wasteThreshold {
		return 0
	}

	used := 0.0
	for _, r := range plan.UsedRemainders {
		used += r.Length
	}
	mismatch := mw.Length - used
	if mismatch < 0 {
		mismatch = -mismatch
	}
	return float64(segments-1)*weldCost - mismatch
}

// collectMWCandidates gathers child remainders long enough to be considered
// for a swap. A plan's NewRemainders is a snapshot taken at construction
// time, so a remainder recorded there may already have been consumed by a
// later demand within this same group; the manager's current record is the
// only authoritative source of "still retained" (spec section 4.5 says
// candidates must be "currently retained").
func collectMWCandidates(mgr *remainder.Manager, plans []engine.CuttingPlan, wasteThreshold float64) []mwCandidate {
	seen := make(map[string]bool)
	var out []mwCandidate
	for _, p := range plans {
		for _, r := range p.NewRemainders {
			if seen[r.ID] || r.Length < wasteThreshold {
				continue
			}
			if t, ok := mgr.TypeByID(r.ID); !ok || t != engine.RemainderPending {
				continue
			}
			seen[r.ID] = true
			out = append(out, mwCandidate{remainder: r})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].remainder.Length > out[j].remainder.Length })
	return out
}

func collectCDCandidates(plans []engine.CuttingPlan) []cdCandidate {
	var out []cdCandidate
	for i, p := range plans {
		if p.SourceType == engine.SourceRemainder && len(p.UsedRemainders) >= 2 {
			out = append(out, cdCandidate{planIdx: i})
		}
	}
	return out
}

// applySwap retires the MW candidate from the pool (it is now spent on this
// plan) and returns the combination's used remainders back to the pool as
// PENDING, since the plan no longer consumes them.
func applySwap(mgr *remainder.Manager, plans []engine.CuttingPlan, planIdx int, mw engine.Remainder) {
	p := &plans[planIdx]

	mgr.ReturnToPool(p.UsedRemainders)
	mgr.MarkPseudoAndRemove(mw.ID)

	p.SourceType = engine.SourceRemainder
	p.SourceID = mw.ID
	p.SourceLength = mw.Length
	p.UsedRemainders = []engine.Remainder{mw}
	p.WeldingCount = 1

	var cutTotal float64
	for _, cut := range p.Cuts {
		cutTotal += cut.Length * float64(cut.Count)
	}
	leftover := mw.Length - cutTotal
	if leftover > 1e-6 {
		p.Waste = leftover
		p.NewRemainders = nil
	} else {
		p.Waste = 0
		p.NewRemainders = nil
	}
	p.EnforceExclusivity()
}
