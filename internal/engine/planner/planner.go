// Package planner implements the per-group cutting planner of spec section
// 4.4: it satisfies one group's demand by first trying the group's
// remainder pool, falling back to a fresh module bar, and forcing module
// acquisition as a last resort so that every iteration makes forward
// progress.
package planner

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/modulepool"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/remainder"
)

// demand is one design bar's working copy during planning.
type demand struct {
	id       string
	length   float64
	required int
	remaining int
}

// Clock abstracts wall-clock reads so the planner's time-budget check is
// testable without sleeping; a nil Clock passed to Plan defaults to time.Now.
type Clock func() time.Time

// Plan runs spec section 4.4 to exhaustion for one group: every design bar
// in designs is attempted in descending-length order until satisfied, the
// time budget expires, or the iteration cap is hit. It returns the group's
// plans in construction order and any demand left unmet.
func Plan(
	log hclog.Logger,
	groupKey string,
	designs []engine.DesignBar,
	mgr *remainder.Manager,
	pool *modulepool.Pool,
	c engine.Constraints,
	now Clock,
) ([]engine.CuttingPlan, []engine.UnmetDemand) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if now == nil {
		now = time.Now
	}
	log = log.Named("planner").With("group", groupKey)

	demands := buildDemands(designs)

	effectiveCap := c.IterationCap
	perDemandCap := effectiveCap > 0
	if !perDemandCap {
		effectiveCap = 100 * len(demands)
	}

	var plans []engine.CuttingPlan
	var unmet []engine.UnmetDemand
	deadline := now().Add(durationFromSeconds(c.TimeLimit))

	globalIterations := 0
	for i := range demands {
		d := &demands[i]
		demandIterations := 0

		for d.remaining > 0 {
			if now().After(deadline) {
				log.Warn("time budget exhausted, stopping planning", "designId", d.id)
				unmet = append(unmet, engine.UnmetDemand{DesignID: d.id, Missing: d.remaining})
				d.remaining = 0
				break
			}
			if perDemandCap && demandIterations >= effectiveCap {
				log.Warn("per-demand iteration cap reached", "designId", d.id)
				unmet = append(unmet, engine.UnmetDemand{DesignID: d.id, Missing: d.remaining})
				break
			}
			if !perDemandCap && globalIterations >= effectiveCap {
				log.Warn("group iteration cap reached", "designId", d.id)
				unmet = append(unmet, engine.UnmetDemand{DesignID: d.id, Missing: d.remaining})
				break
			}
			demandIterations++
			globalIterations++

			progressed := false

			if plan, ok := tryRemainder(mgr, d, c.MaxWeldingSegments, now); ok {
				plans = append(plans, plan)
				progressed = true
			} else if plan, ok := tryModule(pool, mgr, d, now); ok {
				plans = append(plans, plan)
				progressed = true
			}

			if !progressed {
				if plan, ok := forceModule(pool, mgr, d, now); ok {
					plans = append(plans, plan)
					progressed = true
				}
			}

			if !progressed {
				log.Error("unable to make forward progress on demand", "designId", d.id, "remaining", d.remaining)
				unmet = append(unmet, engine.UnmetDemand{DesignID: d.id, Missing: d.remaining})
				break
			}
		}
	}

	return plans, unmet
}

func buildDemands(designs []engine.DesignBar) []demand {
	out := make([]demand, len(designs))
	for i, d := range designs {
		out[i] = demand{id: d.ID, length: d.Length, required: d.Required, remaining: d.Required}
	}
	sortDemandsDescending(out)
	return out
}

func sortDemandsDescending(demands []demand) {
	for i := 1; i < len(demands); i++ {
		for j := i; j > 0 && demands[j].length > demands[j-1].length; j-- {
			demands[j], demands[j-1] = demands[j-1], demands[j]
		}
	}
}

func durationFromSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// tryRemainder attempts step 1 of spec section 4.4: satisfy one copy of d
// from the group's remainder pool.
func tryRemainder(mgr *remainder.Manager, d *demand, maxSegments int, now Clock) (engine.CuttingPlan, bool) {
	combo, ok := mgr.FindBestCombination(d.length, maxSegments)
	if !ok {
		return engine.CuttingPlan{}, false
	}

	result := mgr.UseRemainder(combo, d.length, now().UnixNano())

	plan := engine.CuttingPlan{
		SourceType:     engine.SourceRemainder,
		SourceID:       combinationSourceID(result.UsedRemainders),
		SourceLength:   combo.TotalLength,
		Cuts:           []engine.Cut{{DesignID: d.id, Length: d.length, Count: 1}},
		UsedRemainders: result.UsedRemainders,
		NewRemainders:  result.NewChildren,
		Waste:          result.Waste,
		WeldingCount:   len(result.UsedRemainders),
	}
	plan.EnforceExclusivity()

	d.remaining--
	return plan, true
}

// tryModule attempts step 2 of spec section 4.4: acquire one module bar and
// either cut copies of d from it, or, when the module alone is shorter than
// d, stage it whole into the remainder pool so a later iteration can weld it
// with other modules/remainders to cover an over-length demand (spec section
// 1, scenario S3).
func tryModule(pool *modulepool.Pool, mgr *remainder.Manager, d *demand, now Clock) (engine.CuttingPlan, bool) {
	module, err := pool.Acquire(d.length)
	if err != nil {
		return engine.CuttingPlan{}, false
	}
	return buildModulePlan(mgr, d, module, now), true
}

// forceModule is step 3: an unconditional module acquisition used only when
// neither remainder reuse nor a normal module cut progressed the demand.
func forceModule(pool *modulepool.Pool, mgr *remainder.Manager, d *demand, now Clock) (engine.CuttingPlan, bool) {
	module, err := pool.Acquire(d.length)
	if err != nil {
		return engine.CuttingPlan{}, false
	}
	return buildModulePlan(mgr, d, module, now), true
}

func buildModulePlan(mgr *remainder.Manager, d *demand, module engine.ModuleBar, now Clock) engine.CuttingPlan {
	if module.Length < d.length {
		return stageModule(mgr, module, now)
	}
	return cutModule(mgr, d, module, now)
}

// stageModule stages a freshly acquired module that is too short to yield
// even one copy of the current demand. It is never cut directly; instead its
// whole length is routed into the remainder pool so that a later call to
// tryRemainder can weld it together with other staged modules or existing
// remainders to reach a demand longer than any single catalog module.
func stageModule(mgr *remainder.Manager, module engine.ModuleBar, now Clock) engine.CuttingPlan {
	var newRemainders []engine.Remainder
	waste := 0.0
	r := mgr.EvaluateAndProcess(module.Length, nil, now().UnixNano())
	if r.Type == engine.RemainderWaste {
		waste = r.Length
	} else {
		newRemainders = append(newRemainders, r)
	}

	plan := engine.CuttingPlan{
		SourceType:    engine.SourceModule,
		SourceID:      module.ID,
		SourceLength:  module.Length,
		NewRemainders: newRemainders,
		Waste:         waste,
		WeldingCount:  1,
	}
	plan.EnforceExclusivity()
	return plan
}

func cutModule(mgr *remainder.Manager, d *demand, module engine.ModuleBar, now Clock) engine.CuttingPlan {
	count := int(module.Length / d.length)
	if count > d.remaining {
		count = d.remaining
	}

	offcut := module.Length - float64(count)*d.length
	var newRemainders []engine.Remainder
	waste := 0.0
	if offcut > 1e-6 {
		r := mgr.EvaluateAndProcess(offcut, nil, now().UnixNano())
		if r.Type == engine.RemainderWaste {
			waste = r.Length
		} else {
			newRemainders = append(newRemainders, r)
		}
	}

	plan := engine.CuttingPlan{
		SourceType:    engine.SourceModule,
		SourceID:      module.ID,
		SourceLength:  module.Length,
		Cuts:          []engine.Cut{{DesignID: d.id, Length: d.length, Count: count}},
		NewRemainders: newRemainders,
		Waste:         waste,
		WeldingCount:  1,
	}
	plan.EnforceExclusivity()

	d.remaining -= count
	return plan
}

func combinationSourceID(used []engine.Remainder) string {
	id := ""
	for i, r := range used {
		if i > 0 {
			id += "+"
		}
		id += r.ID
	}
	return id
}
