package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/driver"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/validate"
)

// runDeps are the supervisor's overridable collaborators, following the
// teacher daemon's runtimeDeps pattern: every external effect goes through a
// function field so tests can substitute fakes without a real clock or a
// real optimization run.
type runDeps struct {
	runDriver func(log hclog.Logger, designs []engine.DesignBar, modules []engine.ModuleBar, c engine.Constraints, now func() time.Time) engine.OptimizationResult
	now       func() time.Time
}

func defaultRunDeps() runDeps {
	return runDeps{
		runDriver: driver.Run,
		now:       time.Now,
	}
}

func (d runDeps) withDefaults() runDeps {
	def := defaultRunDeps()
	if d.runDriver == nil {
		d.runDriver = def.runDriver
	}
	if d.now == nil {
		d.now = def.now
	}
	return d
}

// Supervisor owns the task store and the in-flight cancellation handles for
// every running task.
type Supervisor struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	store *Store
	log   hclog.Logger
	deps  runDeps
}

// NewSupervisor builds a supervisor over a fresh store.
func NewSupervisor(log hclog.Logger) (*Supervisor, error) {
	store, err := NewStore()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Supervisor{
		cancels: make(map[string]context.CancelFunc),
		store:   store,
		log:     log.Named("task"),
		deps:    defaultRunDeps(),
	}, nil
}

// Store exposes the underlying store for read-only query endpoints.
func (s *Supervisor) Store() *Store { return s.store }

// Submit validates the request, creates a pending task, and — if validation
// passes — launches the optimization run in the background. It returns the
// new task immediately regardless of validation outcome (a validation
// failure is reported as a failed task, not an error here), decoupling the
// HTTP request path from the run itself per spec section 4.9.
func (s *Supervisor) Submit(designs []engine.DesignBar, modules []engine.ModuleBar, c engine.Constraints) (*Task, error) {
	t, err := s.store.CreatePending()
	if err != nil {
		return nil, err
	}

	result := validate.Validate(s.log, designs, modules, c)
	if !result.IsValid {
		t.Status = StatusFailed
		t.Progress = 0
		t.Error = fmt.Sprintf("constraint validation failed: %d violation(s)", len(result.Violations))
		t.ExecutionTimeMS = 0
		if err := s.store.Save(t); err != nil {
			return nil, err
		}
		s.log.Warn("task rejected at validation", "taskId", t.ID)
		return t, nil
	}

	t.Progress = 10
	t.Status = StatusRunning
	if err := s.store.Save(t); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[t.ID] = cancel
	s.mu.Unlock()

	s.log.Info("task accepted, running in background", "taskId", t.ID)
	go s.runInBackground(ctx, t.ID, designs, modules, c)

	return t, nil
}

// runInBackground executes the optimization pipeline and records the
// terminal state; it is the supervisor's sole writer for a running task, so
// it never races Submit's own status transition.
func (s *Supervisor) runInBackground(ctx context.Context, id string, designs []engine.DesignBar, modules []engine.ModuleBar, c engine.Constraints) {
	defer func() {
		s.mu.Lock()
		delete(s.cancels, id)
		s.mu.Unlock()
	}()

	start := s.deps.now()

	done := make(chan engine.OptimizationResult, 1)
	go func() {
		done <- s.deps.runDriver(s.log, designs, modules, c, s.deps.now)
	}()

	select {
	case <-ctx.Done():
		t, ok := s.store.Get(id)
		if !ok {
			return
		}
		t.Status = StatusCancelled
		t.Error = "cancelled by user"
		t.ExecutionTimeMS = s.deps.now().Sub(start).Milliseconds()
		if err := s.store.Save(&t); err != nil {
			s.log.Error("saving cancelled task", "taskId", id, "error", err)
		}
		s.log.Info("task cancelled", "taskId", id)
	case result := <-done:
		t, ok := s.store.Get(id)
		if !ok {
			return
		}
		t.Status = StatusCompleted
		t.Progress = 100
		t.ExecutionTimeMS = s.deps.now().Sub(start).Milliseconds()
		result.ExecutionTimeMS = t.ExecutionTimeMS
		t.Result = &result
		if err := s.store.Save(&t); err != nil {
			s.log.Error("saving completed task", "taskId", id, "error", err)
			return
		}
		s.log.Info("task completed", "taskId", id, "executionTimeMS", t.ExecutionTimeMS)
	}
}

// Cancel marks a running task for cancellation. It is a no-op (false) if the
// task is not currently running.
func (s *Supervisor) Cancel(id string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// CleanupExpired delegates to the store; kept on Supervisor so callers (the
// HTTP server's background janitor) depend on one type.
func (s *Supervisor) CleanupExpired() int {
	return s.store.CleanupExpired(s.deps.now())
}
