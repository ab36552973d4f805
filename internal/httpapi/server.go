package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/task"
)

// version is the health endpoint's reported build version.
const version = "3.0.0"

// Server wires the task supervisor to an HTTP mux. Counters are plain
// atomics rather than a metrics library: /stats only ever needs point-in-
// time totals for this process, not the export/aggregation machinery a
// metrics client brings in.
type Server struct {
	log        hclog.Logger
	supervisor *task.Supervisor
	defaults   engine.Constraints
	startedAt  time.Time
	version    string

	requestsTotal atomic.Int64
	optimizeTotal atomic.Int64
	validateTotal atomic.Int64
}

// New builds a Server and its routes. defaults seeds every /optimize
// request's constraints unless overridden in the request body.
func New(log hclog.Logger, supervisor *task.Supervisor, defaults engine.Constraints) *Server {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Server{
		log:        log.Named("httpapi"),
		supervisor: supervisor,
		defaults:   defaults,
		startedAt:  time.Now(),
		version:    version,
	}
}

// Router builds the gorilla/mux router for spec section 6's seven endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.countingMiddleware)

	r.HandleFunc("/optimize", s.handleOptimize).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/task/{id}", s.handleGetTask).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/task/{id}", s.handleCancelTask).Methods(http.MethodDelete, http.MethodOptions)
	r.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/validate-constraints", s.handleValidate).Methods(http.MethodPost, http.MethodOptions)

	return r
}

type requestIDKey struct{}

// requestIDMiddleware stamps every request with a UUID via go-uuid, mirroring
// the teacher's nonce-generation use of the same library for correlating log
// lines across a request's lifetime.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.GenerateUUID()
		if err != nil {
			id = "unknown"
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) countingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestsTotal.Add(1)
		next.ServeHTTP(w, r)
	})
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return "unknown"
}
