// Package validate implements the pre-flight constraint validator of spec
// section 4.1: it checks a job's design bars, module bars, and constraints
// for structural validity and welding feasibility before any planning work
// starts.
package validate

import (
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
)

// Result is the validator's output. POST /validate-constraints returns it
// verbatim; the task path (task.Supervisor.Submit) does not store it, and
// records only the violation count in the failed task's Error.
type Result struct {
	IsValid     bool         `json:"isValid"`
	Violations  []Violation  `json:"violations"`
	Suggestions []Suggestion `json:"suggestions"`
	Warnings    []string     `json:"warnings"`
}

// Violation is a single blocking problem with the request.
type Violation struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Suggestion is an actionable resolution offered for a Violation.
type Suggestion struct {
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	StandardLengths []float64 `json:"standardLengths,omitempty"`
	SuggestedMaxSegments int `json:"suggestedMaxSegments,omitempty"`
}

var standardModuleLengths = []float64{6000, 9000, 12000, 15000, 18000}

// Validate runs the checks of spec section 4.1, in order: structural
// soundness, welding-limit feasibility against the longest module bar, then
// advisory (non-blocking) warnings.
func Validate(log hclog.Logger, designs []engine.DesignBar, modules []engine.ModuleBar, c engine.Constraints) Result {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	var merr *multierror.Error
	var violations []Violation
	var suggestions []Suggestion
	var warnings []string

	addViolation := func(kind, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		merr = multierror.Append(merr, fmt.Errorf("%s: %s", kind, msg))
		violations = append(violations, Violation{Kind: kind, Message: msg})
	}

	// 1. Structural checks.
	if len(designs) == 0 {
		addViolation("noDesignBars", "at least one design bar is required")
	}
	if len(modules) == 0 {
		addViolation("noModuleBars", "at least one module bar is required")
	}
	for _, d := range designs {
		if d.Length <= 0 {
			addViolation("invalidLength", "design bar %s has non-positive length %v", d.ID, d.Length)
		}
		if d.Required <= 0 {
			addViolation("invalidCount", "design bar %s has non-positive required count %d", d.ID, d.Required)
		}
		if d.CrossSection <= 0 {
			addViolation("invalidCrossSection", "design bar %s has non-positive cross-section %v", d.ID, d.CrossSection)
		}
	}
	for _, m := range modules {
		if m.Length <= 0 {
			addViolation("invalidModuleLength", "module bar %s has non-positive length %v", m.ID, m.Length)
		}
	}
	if c.WasteThreshold <= 0 {
		addViolation("invalidWasteThreshold", "wasteThreshold must be positive, got %v", c.WasteThreshold)
	}
	if c.MaxWeldingSegments < 1 {
		addViolation("invalidWeldingSegments", "maxWeldingSegments must be >= 1, got %d", c.MaxWeldingSegments)
	}
	if c.TimeLimit <= 0 {
		addViolation("invalidTimeLimit", "timeLimit must be positive, got %v", c.TimeLimit)
	}

	if len(violations) > 0 {
		// Structural failures make the welding-feasibility check meaningless
		// (e.g. no modules to find L* from); short-circuit here too.
		log.Warn("constraint validation failed structurally", "violationCount", len(violations))
		return Result{IsValid: false, Violations: violations, Suggestions: suggestions, Warnings: warnings}
	}

	// 2. Welding-limit feasibility.
	lStar := longestModule(modules)
	var conflictLengths []float64
	for _, d := range designs {
		if d.Length > lStar {
			conflictLengths = append(conflictLengths, d.Length)
		}
	}
	if len(conflictLengths) > 0 && c.MaxWeldingSegments == 1 {
		maxConflict := conflictLengths[0]
		for _, l := range conflictLengths {
			if l > maxConflict {
				maxConflict = l
			}
		}

		addViolation("weldingConstraintViolation",
			"%d design bar(s) exceed the longest module (%v) and welding is disabled", len(conflictLengths), lStar)

		recommended := recommendedStandardLengths(maxConflict, 3)
		suggestions = append(suggestions, Suggestion{
			Kind:            "addLongerModule",
			Description:     fmt.Sprintf("add a module of length >= %v", maxConflict),
			StandardLengths: recommended,
		})
		suggestions = append(suggestions, Suggestion{
			Kind:                 "raiseWeldingSegments",
			Description:          "raise maxWeldingSegments to cover the longest conflicting design bar",
			SuggestedMaxSegments: int(math.Ceil(maxConflict / lStar)),
		})
	}

	if len(violations) > 0 {
		return Result{IsValid: false, Violations: violations, Suggestions: suggestions, Warnings: warnings}
	}

	// 3. Advisory warnings (never block).
	avgDesign := average(lengths(designs))
	avgModule := averageModuleLengths(modules)
	if avgModule > 0 && avgDesign < 0.30*avgModule {
		warnings = append(warnings, "high loss risk: average design length is less than 30% of average module length")
	}
	if c.MaxWeldingSegments == 1 && distinctModuleLengths(modules) > 1 {
		warnings = append(warnings, "inefficiency: multiple module sizes available but welding is disabled")
	}
	totalDemand := totalCount(designs)
	if totalDemand > 1000 && float64(totalDemand) > c.TimeLimit {
		warnings = append(warnings, "time-limit warning: total demand count exceeds the configured time limit in seconds")
	}

	log.Debug("constraint validation passed", "warningCount", len(warnings))
	return Result{IsValid: true, Violations: nil, Suggestions: nil, Warnings: warnings}
}

func longestModule(modules []engine.ModuleBar) float64 {
	var max float64
	for _, m := range modules {
		if m.Length > max {
			max = m.Length
		}
	}
	return max
}

// recommendedStandardLengths returns up to n standard lengths (ascending)
// that are >= required, drawn from the {6000,9000,12000,15000,18000} table.
func recommendedStandardLengths(required float64, n int) []float64 {
	candidates := make([]float64, 0, len(standardModuleLengths))
	for _, l := range standardModuleLengths {
		if l >= required {
			candidates = append(candidates, l)
		}
	}
	sort.Float64s(candidates)
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

func lengths(designs []engine.DesignBar) []float64 {
	out := make([]float64, len(designs))
	for i, d := range designs {
		out[i] = d.Length
	}
	return out
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func averageModuleLengths(modules []engine.ModuleBar) float64 {
	return average(lengthsModule(modules))
}

func lengthsModule(modules []engine.ModuleBar) []float64 {
	out := make([]float64, len(modules))
	for i, m := range modules {
		out[i] = m.Length
	}
	return out
}

func distinctModuleLengths(modules []engine.ModuleBar) int {
	seen := make(map[float64]struct{})
	for _, m := range modules {
		seen[m.Length] = struct{}{}
	}
	return len(seen)
}

func totalCount(designs []engine.DesignBar) int {
	total := 0
	for _, d := range designs {
		total += d.Required
	}
	return total
}
