// Package httpapi implements the HTTP surface of spec section 6: request
// submission, task polling, cancellation, health, stats, and standalone
// constraint validation, routed with gorilla/mux.
package httpapi

import (
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/task"
)

// designBarWire is the wire shape of one demand line in an /optimize request,
// named per spec section 6's designSteels contract.
type designBarWire struct {
	ID              string  `json:"id"`
	Length          float64 `json:"length"`
	Quantity        int     `json:"quantity"`
	CrossSection    float64 `json:"crossSection"`
	Specification   string  `json:"specification,omitempty"`
	ComponentNumber string  `json:"componentNumber,omitempty"`
	PartNumber      string  `json:"partNumber,omitempty"`
	DisplayID       string  `json:"displayId,omitempty"`
}

// moduleBarWire is the wire shape of one stock line in an /optimize request,
// named per spec section 6's moduleSteels contract. Module steels carry no
// specification/cross-section of their own: every module line is available
// to every group, and the group it is drawn into at plan time supplies the
// labeling specification/cross-section (see modulepool.New).
type moduleBarWire struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name,omitempty"`
	Length float64 `json:"length"`
}

// constraintsWire is the wire shape of the optional constraints override.
// TimeLimit arrives in milliseconds per spec section 6; every other
// constraint's unit matches its engine.Constraints counterpart.
type constraintsWire struct {
	WasteThreshold     *float64 `json:"wasteThreshold,omitempty"`
	MaxWeldingSegments *int     `json:"maxWeldingSegments,omitempty"`
	TargetLossRate     *float64 `json:"targetLossRate,omitempty"`
	TimeLimit          *float64 `json:"timeLimit,omitempty"`
}

// optimizeRequest is the body of POST /optimize and POST /validate-constraints.
type optimizeRequest struct {
	DesignBars  []designBarWire `json:"designSteels"`
	ModuleBars  []moduleBarWire `json:"moduleSteels"`
	Constraints constraintsWire `json:"constraints"`
}

func toDesignBars(in []designBarWire) []engine.DesignBar {
	out := make([]engine.DesignBar, len(in))
	for i, d := range in {
		out[i] = engine.DesignBar{
			ID:            d.ID,
			Length:        d.Length,
			Required:      d.Quantity,
			CrossSection:  d.CrossSection,
			Specification: d.Specification,
			ComponentNo:   d.ComponentNumber,
			PartNo:        d.PartNumber,
			DisplayID:     d.DisplayID,
		}
	}
	return out
}

func toModuleBars(in []moduleBarWire) []engine.ModuleBar {
	out := make([]engine.ModuleBar, len(in))
	for i, m := range in {
		out[i] = engine.ModuleBar{
			ID:     m.ID,
			Name:   m.Name,
			Length: m.Length,
		}
	}
	return out
}

// resolveConstraints overlays a request's optional overrides onto the
// server's configured defaults.
func resolveConstraints(defaults engine.Constraints, w constraintsWire) engine.Constraints {
	c := defaults
	if w.WasteThreshold != nil {
		c.WasteThreshold = *w.WasteThreshold
	}
	if w.MaxWeldingSegments != nil {
		c.MaxWeldingSegments = *w.MaxWeldingSegments
	}
	if w.TargetLossRate != nil {
		c.TargetLossRate = *w.TargetLossRate
	}
	if w.TimeLimit != nil {
		// Wire time limit is milliseconds (spec section 6); the engine works
		// in seconds throughout (planner.durationFromSeconds).
		c.TimeLimit = *w.TimeLimit / 1000
	}
	return c
}

// taskWire is the wire shape of a task returned by every task-facing endpoint.
type taskWire struct {
	ID              string                     `json:"id"`
	Status          task.Status                `json:"status"`
	Progress        int                        `json:"progress"`
	CreatedAt       string                     `json:"createdAt"`
	UpdatedAt       string                     `json:"updatedAt"`
	ExecutionTimeMS int64                      `json:"executionTimeMs,omitempty"`
	Error           string                     `json:"error,omitempty"`
	Result          *engine.OptimizationResult `json:"result,omitempty"`
}

func toTaskWire(t task.Task) taskWire {
	return taskWire{
		ID:              t.ID,
		Status:          t.Status,
		Progress:        t.Progress,
		CreatedAt:       t.CreatedAt.Format(timeLayout),
		UpdatedAt:       t.UpdatedAt.Format(timeLayout),
		ExecutionTimeMS: t.ExecutionTimeMS,
		Error:           t.Error,
		Result:          t.Result,
	}
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
