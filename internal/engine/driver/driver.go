// Package driver runs the full optimization pipeline of spec section 4.6:
// it groups a job's design bars by (specification, cross section), gives
// every group the same module catalog, plans and post-passes each group
// concurrently with its own remainder pool and module pool, then merges the
// per-group solutions into one OptimizationResult.
package driver

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/groupkey"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/modulepool"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/planner"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/postpass"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/remainder"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/stats"
)

// groupWork is one group's input: its own demand and the module catalog it
// draws from. Run gives each group a private remainder manager and module
// pool, so groups are planned independently (spec section 4.6's "group
// isolation" invariant).
type groupWork struct {
	key     string
	designs []engine.DesignBar
	modules []engine.ModuleBar
}

// Run executes the whole pipeline for one job and returns the merged result.
// now defaults to time.Now and exists so tests can pin the clock.
func Run(
	log hclog.Logger,
	designs []engine.DesignBar,
	modules []engine.ModuleBar,
	c engine.Constraints,
	now func() time.Time,
) engine.OptimizationResult {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if now == nil {
		now = time.Now
	}
	log = log.Named("driver")

	groups := groupByKey(designs, modules)

	type groupOutcome struct {
		key      string
		solution engine.Solution
		mgr      *remainder.Manager
		pool     *modulepool.Pool
	}

	outcomes := make([]groupOutcome, len(groups))
	var wg sync.WaitGroup
	for i, g := range groups {
		wg.Add(1)
		go func(i int, g groupWork) {
			defer wg.Done()
			mgr := remainder.New(g.key, c.WasteThreshold, log)
			pool := modulepool.New(g.key, g.modules)

			outcomes[i] = groupOutcome{
				key:      g.key,
				solution: runGroup(log, g, mgr, pool, c, now),
				mgr:      mgr,
				pool:     pool,
			}
		}(i, g)
	}
	wg.Wait()

	// Finalize every group's remainder pool once planning and post-passing are
	// complete everywhere, then rewrite every plan's remainder copies to their
	// finalized type so the statistics reducer sees REAL, never PENDING.
	summaries := make(map[string]remainder.FinalizeSummary, len(outcomes))
	for _, o := range outcomes {
		summaries[o.key] = o.mgr.Finalize()
	}
	for i := range outcomes {
		rewritePlanTypes(outcomes[i].solution.Plans, outcomes[i].mgr)
	}

	solutions := make(map[string]engine.Solution, len(outcomes))
	rollup := engine.ProcurementRollup{ByGroup: make(map[string]map[float64]engine.ProcurementLine)}
	for _, o := range outcomes {
		solutions[o.key] = o.solution
		groupRollup := o.pool.Rollup()
		rollup.ByGroup[o.key] = groupRollup
		for length, line := range groupRollup {
			rollup.Global.Count += line.Count
			rollup.Global.TotalLength += length * float64(line.Count)
		}
	}

	result := stats.Reduce(log, solutions)
	result.ModuleSteelUsage = rollup
	result.ProcessingStatus = engine.ProcessingStatus{
		IsCompleted:         true,
		RemaindersFinalized: true,
		ReadyForRendering:   true,
	}
	return result
}

// runGroup plans and post-passes one group, recovering from any panic inside
// the engine so a single group's failure yields an empty solution plus a
// recorded error rather than taking down its sibling groups (spec section
// 4.6's error-isolation rule).
func runGroup(
	log hclog.Logger,
	g groupWork,
	mgr *remainder.Manager,
	pool *modulepool.Pool,
	c engine.Constraints,
	now func() time.Time,
) (solution engine.Solution) {
	solution.GroupKey = g.key
	defer func() {
		if r := recover(); r != nil {
			log.Error("group worker panicked", "group", g.key, "recovered", r)
			solution = engine.Solution{GroupKey: g.key, Err: fmt.Sprintf("%v", r)}
		}
	}()

	plans, unmet := planner.Plan(log, g.key, g.designs, mgr, pool, c, planner.Clock(now))
	postpass.Run(log, g.key, plans, mgr, c)

	solution.Plans = plans
	solution.UnmetDemand = unmet
	return solution
}

// groupByKey partitions designs by (specification, cross section) per spec
// section 6's group key format. Module bars carry no specification/
// cross-section of their own (spec section 6's moduleSteels wire shape is
// just {id, name, length}), so every group draws from the same shared module
// catalog rather than a per-group slice.
func groupByKey(designs []engine.DesignBar, modules []engine.ModuleBar) []groupWork {
	byKey := make(map[string]*groupWork)
	var order []string

	for _, d := range designs {
		key := groupkey.Make(d.Specification, d.CrossSection)
		gw, ok := byKey[key]
		if !ok {
			gw = &groupWork{key: key, modules: modules}
			byKey[key] = gw
			order = append(order, key)
		}
		gw.designs = append(gw.designs, d)
	}

	out := make([]groupWork, len(order))
	for i, key := range order {
		out[i] = *byKey[key]
	}
	return out
}

// rewritePlanTypes walks every plan's remainder copies and replaces their
// recorded type with the manager's finalized type, so a plan built mid-run
// (when a remainder was still PENDING) reports REAL once finalization runs.
func rewritePlanTypes(plans []engine.CuttingPlan, mgr *remainder.Manager) {
	fix := func(r *engine.Remainder) {
		if t, ok := mgr.TypeByID(r.ID); ok {
			r.Type = t
		}
	}
	for i := range plans {
		for j := range plans[i].UsedRemainders {
			fix(&plans[i].UsedRemainders[j])
		}
		for j := range plans[i].NewRemainders {
			fix(&plans[i].NewRemainders[j])
		}
	}
}
