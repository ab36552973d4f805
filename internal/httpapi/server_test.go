package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/engine"
	"github.com/hgj313/hgj-steel-system.v3-sub000/internal/task"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sup, err := task.NewSupervisor(nil)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	defaults := engine.Constraints{WasteThreshold: 200, MaxWeldingSegments: 4, TargetLossRate: 5, TimeLimit: 5, PostPassMaxIterations: 10}
	return New(nil, sup, defaults)
}

func TestHandleOptimizeAcceptsValidRequest(t *testing.T) {
	s := newTestServer(t)
	body := `{
		"designSteels":[{"id":"d1","length":3000,"quantity":1,"crossSection":25,"specification":"HRB400"}],
		"moduleSteels":[{"name":"stock-12m","length":12000}]
	}`

	req := httptest.NewRequest(http.MethodPost, "/optimize", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var got taskWire
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Status != task.StatusRunning {
		t.Fatalf("Status = %v, want running", got.Status)
	}
}

func TestHandleOptimizeRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/optimize", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleGetTaskReturnsNotFoundForUnknownID(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/task/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleHealthReportsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleValidateReportsViolationsWithoutCreatingATask(t *testing.T) {
	s := newTestServer(t)
	body := `{"designSteels":[],"moduleSteels":[]}`
	req := httptest.NewRequest(http.MethodPost, "/validate-constraints", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if valid, _ := got["isValid"].(bool); valid {
		t.Fatal("isValid = true, want false for empty design/module bars")
	}

	listReq := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	listRec := httptest.NewRecorder()
	s.Router().ServeHTTP(listRec, listReq)
	var listBody struct {
		Success bool       `json:"success"`
		Tasks   []taskWire `json:"tasks"`
		Total   int        `json:"total"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &listBody); err != nil {
		t.Fatalf("decoding tasks: %v", err)
	}
	if len(listBody.Tasks) != 0 {
		t.Fatalf("len(tasks) = %d, want 0 (validate must not create a task)", len(listBody.Tasks))
	}
}

func TestCORSPreflightReturnsNoContent(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/optimize", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want *", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
