package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine/validate"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/task"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Kind: kind, Message: message})
}

// handleOptimize is POST /optimize: decode the request, submit it to the
// supervisor, and return the new task's id. The submission itself always
// succeeds with 202; an immediate validation failure still shows up as a
// failed task, polled via GET /task/{id}, not as a different HTTP status.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	s.optimizeTotal.Add(1)

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformedRequest", err.Error())
		return
	}

	c := resolveConstraints(s.defaults, req.Constraints)
	t, err := s.supervisor.Submit(toDesignBars(req.DesignBars), toModuleBars(req.ModuleBars), c)
	if err != nil {
		s.log.Error("submitting task", "requestId", requestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internalError", "failed to submit optimization task")
		return
	}

	// Per spec section 7, engine-level outcomes (including an immediate
	// validation failure) are reported on the task row, not as an HTTP
	// error; 400 is reserved for request-shape errors caught above.
	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"taskId":  t.ID,
		"status":  t.Status,
	})
}

// handleGetTask is GET /task/{id}.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	t, ok := s.supervisor.Store().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "taskNotFound", "no task with that id")
		return
	}
	writeJSON(w, http.StatusOK, toTaskWire(t))
}

// handleCancelTask is DELETE /task/{id}: cancellation is permitted only from
// pending or running (spec section 4.9); a task already in a terminal state
// reports 400, not a silent no-op.
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.supervisor.Store().Get(id); !ok {
		writeError(w, http.StatusNotFound, "taskNotFound", "no task with that id")
		return
	}
	if !s.supervisor.Cancel(id) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "task is not running or pending",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "cancelled by user",
	})
}

// handleListTasks is GET /tasks?limit=&status=: most-recent-first, optionally
// filtered by status and capped at limit (default 20, per spec section 4.9).
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	status := r.URL.Query().Get("status")

	tasks := s.supervisor.Store().List()
	filtered := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if status != "" && string(t.Status) != status {
			continue
		}
		filtered = append(filtered, t)
	}
	total := len(filtered)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	out := make([]taskWire, len(filtered))
	for i, t := range filtered {
		out[i] = toTaskWire(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tasks":   out,
		"total":   total,
	})
}

// handleHealth is GET /health: a liveness probe, never dependent on the
// supervisor's state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"timestamp": time.Now().UTC().Format(timeLayout),
	})
}

// handleStats is GET /stats: aggregate task counters, per spec section 6.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	tasks := s.supervisor.Store().List()
	var active, completed, failed int
	for _, t := range tasks {
		switch t.Status {
		case task.StatusPending, task.StatusRunning:
			active++
		case task.StatusCompleted:
			completed++
		case task.StatusFailed:
			failed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalOptimizations": s.optimizeTotal.Load(),
		"activeTasks":        active,
		"completedTasks":     completed,
		"failedTasks":        failed,
	})
}

// handleValidate is POST /validate-constraints: runs the same pre-flight
// check /optimize runs internally, synchronously, without creating a task.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.validateTotal.Add(1)

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformedRequest", err.Error())
		return
	}

	c := resolveConstraints(s.defaults, req.Constraints)
	result := validate.Validate(s.log, toDesignBars(req.DesignBars), toModuleBars(req.ModuleBars), c)
	writeJSON(w, http.StatusOK, result)
}

// CleanupLoop runs the supervisor's opportunistic task-expiry sweep every
// interval until ctx is cancelled. It is started as a background goroutine
// by main, separate from any per-request path.
func (s *Server) CleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.supervisor.CleanupExpired(); n > 0 {
				s.log.Debug("cleaned up expired tasks", "count", n)
			}
		}
	}
}
