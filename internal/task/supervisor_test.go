package task

import (
	"testing"
	"time"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
)

func TestSubmitRejectsInvalidRequestAsFailedTask(t *testing.T) {
	sup, err := NewSupervisor(nil)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}

	c := engine.Constraints{} // all zero: fails structural validation
	got, err := sup.Submit(nil, nil, c)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("Status = %v, want failed", got.Status)
	}
}

func TestSubmitRunsValidRequestToCompletion(t *testing.T) {
	sup, err := NewSupervisor(nil)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}

	designs := []engine.DesignBar{{ID: "d1", Length: 3000, Required: 1, Specification: "HRB400", CrossSection: 25}}
	modules := []engine.ModuleBar{{Length: 12000, Specification: "HRB400", CrossSection: 25}}
	c := engine.Constraints{WasteThreshold: 200, MaxWeldingSegments: 4, TargetLossRate: 5, TimeLimit: 5, PostPassMaxIterations: 10}

	got, err := sup.Submit(designs, modules, c)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Status != StatusRunning {
		t.Fatalf("Status immediately after Submit = %v, want running", got.Status)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		current, ok := sup.Store().Get(got.ID)
		if ok && current.Status == StatusCompleted {
			if current.Result == nil {
				t.Fatal("completed task has nil Result")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task did not complete within 2s")
}

func TestCancelReturnsFalseForUnknownTask(t *testing.T) {
	sup, _ := NewSupervisor(nil)
	if sup.Cancel("nonexistent") {
		t.Fatal("Cancel() = true, want false for a task never submitted")
	}
}
