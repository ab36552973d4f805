// Package remainder implements the per-group remainder pool and lifecycle
// manager of spec section 4.3: the single sink for newly produced offcuts,
// the combination search used to satisfy demand from existing remainders,
// and the once-only finalization that promotes surviving remainders to
// their terminal state.
package remainder

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
)

// Manager owns one group's remainder pool. Every remainder the group ever
// produces is kept in records, addressable by id, even after it leaves the
// pool (consumed or finalized) — this is what lets the plan-level status
// rewrite (the driver's rewritePlanTypes) look up a remainder's terminal type after
// the fact without disagreeing with the manager's own bookkeeping.
type Manager struct {
	mu             sync.Mutex
	groupKey       string
	wasteThreshold float64
	log            hclog.Logger

	records   map[string]*engine.Remainder
	poolOrder []string // ids currently PENDING, kept ascending by length

	letterIdx     int
	letterCounter int

	wasteTotal float64
	finalized  bool
	summary    FinalizeSummary
}

// FinalizeSummary is the sweep Finalize returns: per-group totals
// for the statistics reducer.
type FinalizeSummary struct {
	RealTotal  float64
	WasteTotal float64
	RealCount  int
}

// New creates an empty remainder manager for one group.
func New(groupKey string, wasteThreshold float64, log hclog.Logger) *Manager {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Manager{
		groupKey:       groupKey,
		wasteThreshold: wasteThreshold,
		log:            log.Named("remainder").With("group", groupKey),
		records:        make(map[string]*engine.Remainder),
	}
}

// nextID implements the letter/number id scheme of spec section 4.3: ids run
// a1..a50, then b1..b50, and so on, embedding the group key as a prefix.
func (m *Manager) nextID() string {
	m.letterCounter++
	if m.letterCounter > 50 {
		m.letterIdx++
		m.letterCounter = 1
	}
	letter := rune('a' + m.letterIdx)
	return fmt.Sprintf("%s_%c%d", m.groupKey, letter, m.letterCounter)
}

// EvaluateAndProcess is the single sink for any newly produced offcut: if
// its length is below the waste threshold it is recorded as WASTE and never
// enters the pool; otherwise it becomes PENDING and is inserted into the
// pool in ascending order of length, which the combination search depends
// on.
func (m *Manager) EvaluateAndProcess(length float64, parentIDs []string, createdAt int64) engine.Remainder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluateAndProcessLocked(length, parentIDs, createdAt)
}

func (m *Manager) evaluateAndProcessLocked(length float64, parentIDs []string, createdAt int64) engine.Remainder {
	id := m.nextID()
	r := engine.Remainder{
		ID:        id,
		Length:    length,
		GroupKey:  m.groupKey,
		ParentIDs: parentIDs,
		CreatedAt: createdAt,
	}

	if length < m.wasteThreshold {
		r.Type = engine.RemainderWaste
		m.wasteTotal += length
		m.records[id] = &r
		m.log.Debug("offcut charged as waste", "id", id, "length", length)
		return r
	}

	r.Type = engine.RemainderPending
	m.records[id] = &r
	m.insertAscending(id, length)
	m.log.Debug("offcut retained as pending remainder", "id", id, "length", length)
	return r
}

func (m *Manager) insertAscending(id string, length float64) {
	i := sort.Search(len(m.poolOrder), func(i int) bool {
		return m.records[m.poolOrder[i]].Length >= length
	})
	m.poolOrder = append(m.poolOrder, "")
	copy(m.poolOrder[i+1:], m.poolOrder[i:])
	m.poolOrder[i] = id
}

// poolSnapshot returns the pool's remainders in ascending-length order; it
// does not mutate the manager and is safe to call while holding the lock.
func (m *Manager) poolSnapshot() []engine.Remainder {
	out := make([]engine.Remainder, len(m.poolOrder))
	for i, id := range m.poolOrder {
		out[i] = *m.records[id]
	}
	return out
}

// PoolSize reports how many remainders are currently pending, for the
// algorithm-selection rule of FindBestCombination.
func (m *Manager) PoolSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.poolOrder)
}

// FindBestCombination searches the pool (without mutating it) for a
// combination of at most maxSegments remainders whose total length covers
// targetLength with the smallest overshoot. It returns false if no
// combination covers the target.
func (m *Manager) FindBestCombination(targetLength float64, maxSegments int) (Combination, bool) {
	m.mu.Lock()
	pool := m.poolSnapshot()
	m.mu.Unlock()

	if len(pool) == 0 || targetLength <= 0 {
		return Combination{}, false
	}

	if len(pool) <= 20 || maxSegments <= 2 {
		return dpBestCombination(pool, targetLength, maxSegments)
	}
	return greedyBestCombination(pool, targetLength, maxSegments)
}

// UseResult is what UseRemainder returns after atomically consuming a
// combination.
type UseResult struct {
	UsedRemainders []engine.Remainder
	PseudoCopies   []engine.Remainder
	NewChildren    []engine.Remainder
	Waste          float64
}

// UseRemainder atomically removes combo's remainders from the pool, marks
// audit copies of them PSEUDO, and routes the leftover
// (combination total - targetLength) through EvaluateAndProcess to produce
// the combination's child remainder (or charge it as waste).
func (m *Manager) UseRemainder(combo Combination, targetLength float64, createdAt int64) UseResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Remove by descending index so earlier indices stay valid as we go.
	idxs := append([]int(nil), combo.PoolIndices...)
	sort.Sort(sort.Reverse(sort.IntSlice(idxs)))

	usedByIndex := make(map[int]engine.Remainder, len(idxs))
	for _, idx := range idxs {
		id := m.poolOrder[idx]
		usedByIndex[idx] = *m.records[id]
		m.poolOrder = append(m.poolOrder[:idx], m.poolOrder[idx+1:]...)
	}

	// Restore original ascending order for reporting.
	sortedIdxs := append([]int(nil), combo.PoolIndices...)
	sort.Ints(sortedIdxs)
	used := make([]engine.Remainder, 0, len(sortedIdxs))
	var parentIDs []string
	pseudoCopies := make([]engine.Remainder, 0, len(sortedIdxs))
	for _, idx := range sortedIdxs {
		r := usedByIndex[idx]
		used = append(used, r)
		parentIDs = append(parentIDs, r.ID)

		cp := r
		cp.Type = engine.RemainderPseudo
		cp.Consumed = true
		m.records[r.ID] = &cp
		pseudoCopies = append(pseudoCopies, cp)
	}

	leftover := combo.TotalLength - targetLength
	var children []engine.Remainder
	waste := 0.0
	if leftover > 1e-6 {
		child := m.evaluateAndProcessLocked(leftover, []string{strings.Join(parentIDs, "+")}, createdAt)
		if child.Type == engine.RemainderWaste {
			waste = child.Length
		} else {
			children = append(children, child)
		}
	}

	m.log.Debug("consumed combination", "count", len(used), "leftover", leftover)
	return UseResult{UsedRemainders: used, PseudoCopies: pseudoCopies, NewChildren: children, Waste: waste}
}

// ReturnToPool reinserts remainders the MW-CD post-pass released back as
// PENDING (spec section 4.5), re-sorting the pool ascending.
func (m *Manager) ReturnToPool(remainders []engine.Remainder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range remainders {
		r.Type = engine.RemainderPending
		r.Consumed = false
		m.records[r.ID] = &r
		m.insertAscending(r.ID, r.Length)
	}
}

// MarkPseudoAndRemove is used by the MW-CD post-pass to retire an MW
// candidate that was swapped in: it is removed from the pool and marked
// PSEUDO, like any other consumed remainder.
func (m *Manager) MarkPseudoAndRemove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, pid := range m.poolOrder {
		if pid == id {
			m.poolOrder = append(m.poolOrder[:i], m.poolOrder[i+1:]...)
			break
		}
	}
	if r, ok := m.records[id]; ok {
		cp := *r
		cp.Type = engine.RemainderPseudo
		cp.Consumed = true
		m.records[id] = &cp
	}
}

// Finalize transitions every still-PENDING remainder to REAL. It is safe to
// call more than once: the second and subsequent calls are a no-op that
// returns the cached summary (testable property 11).
func (m *Manager) Finalize() FinalizeSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return m.summary
	}

	var realTotal float64
	realCount := len(m.poolOrder)
	for _, id := range m.poolOrder {
		r := m.records[id]
		cp := *r
		cp.Type = engine.RemainderReal
		m.records[id] = &cp
		realTotal += cp.Length
	}
	m.poolOrder = nil

	m.summary = FinalizeSummary{
		RealTotal:  realTotal,
		WasteTotal: m.wasteTotal,
		RealCount:  realCount,
	}
	m.finalized = true
	m.log.Info("finalized remainders", "realTotal", realTotal, "wasteTotal", m.wasteTotal)
	return m.summary
}

// TypeByID reports the current finalized-or-not type of any remainder this
// manager has ever produced, for the plan-level status rewrite of spec
// section 4.3.
func (m *Manager) TypeByID(id string) (engine.RemainderType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return 0, false
	}
	return r.Type, true
}

// GroupKey reports the group this manager owns.
func (m *Manager) GroupKey() string { return m.groupKey }
