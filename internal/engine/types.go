// Package engine implements the cutting-stock optimizer: it plans how to cut
// a catalog of module (stock) bars into the design bars a job demands while
// minimizing material loss.
package engine

import "fmt"

// DesignBar is one line of demand: a finished piece a job needs produced,
// optionally several times over. DesignBar is immutable after admission.
type DesignBar struct {
	ID             string
	Length         float64
	Required       int
	CrossSection   float64
	Specification  string
	ComponentNo    string
	PartNo         string
	DisplayID      string
}

// ModuleBar is one element of stock supply, recorded after a module pool
// acquisition for the procurement roll-up. Module bars carry no
// specification/cross-section of their own (spec section 6's moduleSteels
// wire shape is just {id, name, length}); a bar is labeled with the
// specification/cross-section of whichever group's pool draws it, not with
// anything the client submits.
type ModuleBar struct {
	ID            string
	Name          string
	Length        float64
	Specification string
	CrossSection  float64
}

// Constraints holds the per-job tunables. NewConstraints fails closed on a
// non-positive WasteThreshold or TimeLimit and on MaxWeldingSegments < 1;
// TargetLossRate is not checked.
type Constraints struct {
	WasteThreshold      float64
	MaxWeldingSegments  int
	TargetLossRate      float64
	TimeLimit           float64 // seconds
	IterationCap        int     // 0 means "use 100 * demandCount"
	WeldCostPerSegment  float64 // mm, the MW-CD heuristic's per-weld surrogate
	PostPassBenefitFloor float64 // mm
	PostPassMaxIterations int
}

// NewConstraints validates and returns Constraints, or an error naming the
// first structural violation encountered.
func NewConstraints(wasteThreshold float64, maxWeldingSegments int, targetLossRate, timeLimit float64) (Constraints, error) {
	c := Constraints{
		WasteThreshold:        wasteThreshold,
		MaxWeldingSegments:    maxWeldingSegments,
		TargetLossRate:        targetLossRate,
		TimeLimit:             timeLimit,
		WeldCostPerSegment:    50,
		PostPassBenefitFloor:  50,
		PostPassMaxIterations: 10,
	}
	if err := c.Validate(); err != nil {
		return Constraints{}, err
	}
	return c, nil
}

// Validate reports the first structural violation found, or nil.
func (c Constraints) Validate() error {
	if c.WasteThreshold <= 0 {
		return fmt.Errorf("constraints: wasteThreshold must be positive, got %v", c.WasteThreshold)
	}
	if c.MaxWeldingSegments < 1 {
		return fmt.Errorf("constraints: maxWeldingSegments must be >= 1, got %d", c.MaxWeldingSegments)
	}
	if c.TimeLimit <= 0 {
		return fmt.Errorf("constraints: timeLimit must be positive, got %v", c.TimeLimit)
	}
	return nil
}

// RemainderType is the terminal-state tag of a Remainder's lifecycle.
// The zero value is intentionally invalid so a Remainder can never be
// constructed without an explicit type.
type RemainderType int

const (
	_ RemainderType = iota
	RemainderPending
	RemainderReal
	RemainderPseudo
	RemainderWaste
)

func (t RemainderType) String() string {
	switch t {
	case RemainderPending:
		return "pending"
	case RemainderReal:
		return "real"
	case RemainderPseudo:
		return "pseudo"
	case RemainderWaste:
		return "waste"
	default:
		return "unknown"
	}
}

// Remainder is an offcut retained in a per-group pool. Length never changes
// after creation: consuming a remainder produces a fresh child record for
// the new offcut rather than mutating this one.
type Remainder struct {
	ID           string
	Length       float64
	GroupKey     string
	ParentIDs    []string
	CreatedAt    int64 // unix nanos, supplied by the caller
	Type         RemainderType
	Consumed     bool
}

// SourceKind distinguishes where a CuttingPlan's material came from.
type SourceKind int

const (
	SourceModule SourceKind = iota
	SourceRemainder
)

func (k SourceKind) String() string {
	if k == SourceModule {
		return "MODULE"
	}
	return "REMAINDER"
}

// Cut is one line of a CuttingPlan: count design pieces of Length produced
// from the plan's source.
type Cut struct {
	DesignID string
	Length   float64
	Count    int
}

// CuttingPlan is one consumption event: a single source (a module bar or a
// combination of remainders) cut into some Cuts, charging Waste or producing
// NewRemainders, never both (see EnforceExclusivity).
type CuttingPlan struct {
	SourceType      SourceKind
	SourceID        string
	SourceLength    float64
	Cuts            []Cut
	UsedRemainders  []Remainder // non-empty only for SourceRemainder plans
	NewRemainders   []Remainder
	Waste           float64
	WeldingCount    int
}

// EnforceExclusivity is the plan-construction-time corrector of §3's
// invariant: waste > 0 XOR a retained child remainder is produced. When both
// are positive it keeps whichever is larger and zeroes the other.
func (p *CuttingPlan) EnforceExclusivity() {
	childTotal := 0.0
	for _, r := range p.NewRemainders {
		childTotal += r.Length
	}
	if p.Waste > 0 && childTotal > 0 {
		if p.Waste >= childTotal {
			p.NewRemainders = nil
		} else {
			p.Waste = 0
		}
	}
}

// Solution is one group's ordered list of cutting plans, plus sums
// recomputed by the statistics reducer (see engine/stats).
type Solution struct {
	GroupKey          string
	Plans             []CuttingPlan
	ModuleCount       int
	TotalMaterial     float64
	Waste             float64
	RealRemainder     float64
	PseudoRemainder   float64
	DesignLength      float64
	UnmetDemand       []UnmetDemand
	Err               string
}

// UnmetDemand records a design bar that could not be fully satisfied even by
// forced module acquisition (the InfeasibleDemand error kind).
type UnmetDemand struct {
	DesignID string
	Missing  int
}

// ProcessingStatus stamps an OptimizationResult as safe to present.
type ProcessingStatus struct {
	IsCompleted         bool
	RemaindersFinalized bool
	ReadyForRendering   bool
}

// ConsistencyIssue records a statistics-reducer cross-check that failed
// beyond tolerance (the DataInconsistency error kind).
type ConsistencyIssue struct {
	GroupKey string
	Message  string
}

// OptimizationResult is the top-level output of a run: one Solution per
// group plus global reductions.
type OptimizationResult struct {
	Solutions             map[string]Solution
	TotalLossRate         float64
	TotalModuleUsed       int
	TotalMaterial         float64
	TotalWaste            float64
	TotalRealRemainder    float64
	TotalPseudoRemainder  float64
	TotalDesignLength     float64
	ExecutionTimeMS       int64
	ProcessingStatus      ProcessingStatus
	ConsistencyIssues     []ConsistencyIssue
	ModuleSteelUsage      ProcurementRollup
}

// ProcurementRollup aggregates module acquisitions for the final report
// (§4.7): per group key, per length, count and total length, plus a global
// sum.
type ProcurementRollup struct {
	ByGroup map[string]map[float64]ProcurementLine
	Global  ProcurementLine
}

// ProcurementLine is one (count, totalLength) pair for a given module length.
type ProcurementLine struct {
	Count      int
	TotalLength float64
}
