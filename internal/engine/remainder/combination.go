package remainder

import (
	"math"
	"sort"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
)

// Combination is a candidate way to cover a target length from one or more
// pool remainders. PoolIndices refer to the pool snapshot the search ran
// against and must be consumed via UseRemainder before the pool changes
// again.
type Combination struct {
	Kind        string // "single" or "combination"
	PoolIndices []int
	Remainders  []engine.Remainder
	TotalLength float64
	Efficiency  float64
}

const (
	nearPerfectEfficiency = 1.01
	maxPruneEfficiency    = 2.0
	dpFrontierLimit       = 1000
	dpFrontierKeep        = 100
)

func makeCombination(pool []engine.Remainder, indices []int, target float64) Combination {
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	remainders := make([]engine.Remainder, len(sorted))
	var total float64
	for i, idx := range sorted {
		remainders[i] = pool[idx]
		total += pool[idx].Length
	}

	kind := "single"
	if len(sorted) > 1 {
		kind = "combination"
	}

	return Combination{
		Kind:        kind,
		PoolIndices: sorted,
		Remainders:  remainders,
		TotalLength: total,
		Efficiency:  total / target,
	}
}

// dpState is one frontier entry of the exact search: the smallest-segment
// (tie-broken by lowest total) way found so far to reach this running total.
type dpState struct {
	indices []int
	total   float64
}

// dpBestCombination implements the exact DP search of spec section 4.3: it
// builds successive length-indexed states by adding one distinct remainder
// at a time, prunes states that already overshoot badly, and returns the
// smallest-efficiency state whose length covers target.
func dpBestCombination(pool []engine.Remainder, target float64, maxSegments int) (Combination, bool) {
	states := map[float64]dpState{0: {nil, 0}}

	for idx, r := range pool {
		snapshot := make(map[float64]dpState, len(states))
		for k, v := range states {
			snapshot[k] = v
		}

		for total, st := range snapshot {
			if len(st.indices) >= maxSegments {
				continue
			}
			newTotal := total + r.Length
			if newTotal >= target && newTotal/target > maxPruneEfficiency {
				continue
			}
			newIndices := append(append([]int(nil), st.indices...), idx)

			if existing, ok := states[newTotal]; !ok || len(newIndices) < len(existing.indices) {
				states[newTotal] = dpState{indices: newIndices, total: newTotal}
			}
		}

		if len(states) > dpFrontierLimit {
			states = pruneFrontier(states, target, dpFrontierKeep)
		}

		// Short-circuit: a near-perfect single/partial match already exists.
		if best, ok := bestCoveringState(states, target); ok && best.total/target <= nearPerfectEfficiency {
			break
		}
	}

	st, ok := bestCoveringState(states, target)
	if !ok {
		return Combination{}, false
	}
	return makeCombination(pool, st.indices, target), true
}

func bestCoveringState(states map[float64]dpState, target float64) (dpState, bool) {
	var best dpState
	bestEff := math.Inf(1)
	found := false
	for total, st := range states {
		if total+1e-9 < target {
			continue
		}
		eff := total / target
		if eff < bestEff {
			bestEff = eff
			best = st
			found = true
		}
	}
	return best, found
}

// pruneFrontier keeps the best `keep` states by efficiency (states that
// already cover target, closest to 1.0 first) plus the below-target states
// needed to keep building toward a cover, up to the same budget.
func pruneFrontier(states map[float64]dpState, target float64, keep int) map[float64]dpState {
	type scored struct {
		total float64
		st    dpState
		score float64
	}
	entries := make([]scored, 0, len(states))
	for total, st := range states {
		var score float64
		if total >= target {
			score = total / target
		} else {
			// Below-target states are scored by how close they are to
			// target, so the search keeps building from its most promising
			// partial sums.
			score = 1 + (target-total)/target
		}
		entries = append(entries, scored{total: total, st: st, score: score})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].score < entries[j].score })
	if len(entries) > keep {
		entries = entries[:keep]
	}
	out := make(map[float64]dpState, len(entries))
	for _, e := range entries {
		out[e.total] = e.st
	}
	return out
}

// greedyBestCombination implements the approximate search of spec section
// 4.3 for large pools: for each candidate segment count, descend by length
// preferring a near-fit for every segment but the last, which must cover
// whatever remains.
func greedyBestCombination(pool []engine.Remainder, target float64, maxSegments int) (Combination, bool) {
	var best *Combination
	for s := 1; s <= maxSegments; s++ {
		combo, ok := tryGreedyForSegments(pool, target, s)
		if !ok {
			continue
		}
		if best == nil || combo.Efficiency < best.Efficiency {
			c := combo
			best = &c
		}
		if best.Efficiency <= nearPerfectEfficiency {
			break
		}
	}
	if best == nil {
		return Combination{}, false
	}
	return *best, true
}

func tryGreedyForSegments(pool []engine.Remainder, target float64, segments int) (Combination, bool) {
	used := make([]bool, len(pool))
	var indices []int
	remaining := target

	for seg := 1; seg < segments; seg++ {
		pick := -1
		for i := len(pool) - 1; i >= 0; i-- {
			if used[i] {
				continue
			}
			if pool[i].Length <= 1.5*remaining {
				pick = i
				break
			}
		}
		if pick == -1 {
			return Combination{}, false
		}
		used[pick] = true
		indices = append(indices, pick)
		remaining -= pool[pick].Length
	}

	last := -1
	for i := 0; i < len(pool); i++ {
		if used[i] {
			continue
		}
		if pool[i].Length >= remaining {
			last = i
			break
		}
	}
	if last == -1 {
		return Combination{}, false
	}
	indices = append(indices, last)

	combo := makeCombination(pool, indices, target)
	if combo.TotalLength < target {
		return Combination{}, false
	}
	return combo, true
}
