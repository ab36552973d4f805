// Package modulepool implements the per-group module-bar supply of spec
// section 4.2: an on-demand source of fresh stock bars drawn from the
// catalog of distinct lengths available to a group, tracked for the final
// procurement roll-up.
package modulepool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/groupkey"
)

// acquisition is one recorded use, kept for the procurement roll-up.
type acquisition struct {
	id            string
	specification string
	crossSection  float64
	length        float64
}

// Pool is a per-group supply of module bars. It is safe for concurrent use,
// matching the single-producer-per-group discipline of spec section 5: in
// practice only the owning planner's goroutine ever calls Acquire, but the
// mutex keeps the type honest under future multi-caller use.
type Pool struct {
	mu            sync.Mutex
	groupKey      string
	specification string
	crossSection  float64
	catalog       []float64 // ascending, distinct
	nextID        int
	acquisitions  []acquisition
}

// New builds a module pool for one group from its raw module bar list. The
// catalog is the distinct set of lengths available to the group, ascending.
// Module bars have no specification/cross-section of their own on the wire,
// so acquisitions are labeled with the group key's own specification/
// cross-section instead of anything carried on the input bars.
func New(groupKey string, modules []engine.ModuleBar) *Pool {
	specification, crossSection, _ := groupkey.Parse(groupKey)

	seen := make(map[float64]struct{})
	for _, m := range modules {
		seen[m.Length] = struct{}{}
	}
	catalog := make([]float64, 0, len(seen))
	for l := range seen {
		catalog = append(catalog, l)
	}
	sort.Float64s(catalog)

	return &Pool{
		groupKey:      groupKey,
		specification: specification,
		crossSection:  crossSection,
		catalog:       catalog,
	}
}

// Acquire returns a fresh module of the shortest catalog length >=
// requiredLength; if none is long enough, it returns the longest available
// length (the caller may still welding-combine it).
func (p *Pool) Acquire(requiredLength float64) (engine.ModuleBar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.catalog) == 0 {
		return engine.ModuleBar{}, fmt.Errorf("modulepool[%s]: no module lengths available", p.groupKey)
	}

	length := p.catalog[len(p.catalog)-1] // default: longest
	for _, l := range p.catalog {
		if l >= requiredLength {
			length = l
			break
		}
	}

	p.nextID++
	id := fmt.Sprintf("%s_M%d", p.groupKey, p.nextID)
	p.acquisitions = append(p.acquisitions, acquisition{
		id:            id,
		specification: p.specification,
		crossSection:  p.crossSection,
		length:        length,
	})

	return engine.ModuleBar{
		ID:            id,
		Length:        length,
		Specification: p.specification,
		CrossSection:  p.crossSection,
	}, nil
}

// Rollup aggregates this group's acquisitions by length, for the
// procurement report of spec section 4.7.
func (p *Pool) Rollup() map[float64]engine.ProcurementLine {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[float64]engine.ProcurementLine)
	for _, a := range p.acquisitions {
		line := out[a.length]
		line.Count++
		line.TotalLength += a.length
		out[a.length] = line
	}
	return out
}
