package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"audit-backend/internal/analyses"
	"audit-backend/internal/llm"
	"audit-backend/internal/token"
)

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc, f.analyses)
	r := gin.New()
	r.POST("/api/v1/run-analysis", h.RunAnalysis)
	r.GET("/api/v1/analyses/:id", h.GetAnalysis)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRunAnalysisEndpointSuccess(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	f.seedUpload("doc.txt", "uploads/u1/doc.txt", []byte("content"), time.Minute)
	f.llm.report = llm.Report{Text: "# Report", Usage: llm.Usage{InputTokens: 100, OutputTokens: 200}}
	r := newTestRouter(f)

	w := doJSON(r, http.MethodPost, "/api/v1/run-analysis", `{"userId":"user-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		Result  Result `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Result.AnalysisID == "" {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
}

func TestRunAnalysisEndpointUserNotFound(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	w := doJSON(r, http.MethodPost, "/api/v1/run-analysis", `{"userId":"ghost"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRunAnalysisEndpointNoUploads(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	r := newTestRouter(f)

	w := doJSON(r, http.MethodPost, "/api/v1/run-analysis", `{"userId":"user-1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRunAnalysisEndpointMissingBody(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	w := doJSON(r, http.MethodPost, "/api/v1/run-analysis", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRunAnalysisEndpointFailedRunReturnsAnalysisID(t *testing.T) {
	f := newFixture(t)
	f.seedUser()
	f.seedUpload("junk.pdf", "uploads/u1/junk.pdf", []byte("not a pdf"), time.Minute)
	r := newTestRouter(f)

	w := doJSON(r, http.MethodPost, "/api/v1/run-analysis", `{"userId":"user-1"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "analysisId") {
		t.Fatalf("failed run response should carry the analysis id: %s", w.Body.String())
	}
}

func TestGetAnalysisRequiresMatchingToken(t *testing.T) {
	f := newFixture(t)
	rec := analyses.Analysis{
		ID:        "an-1",
		UserID:    "user-1",
		Type:      analyses.TypeFullReport,
		Status:    analyses.StatusCompleted,
		Content:   map[string]any{"reportUrl": "https://files.test/reports/an-1.html"},
		CreatedAt: time.Now().UTC(),
	}
	if err := f.analyses.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed analysis: %v", err)
	}
	r := newTestRouter(f)

	// No token.
	w := doJSON(r, http.MethodGet, "/api/v1/analyses/an-1", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	// Token for a different analysis.
	other, err := token.Issue(token.Claims{Sub: "user-1", AnalysisID: "an-2"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	w = doJSON(r, http.MethodGet, "/api/v1/analyses/an-1?token="+other, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for mismatched token, got %d", w.Code)
	}

	// Valid token.
	tok, err := token.Issue(token.Claims{Sub: "user-1", AnalysisID: "an-1"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	w = doJSON(r, http.MethodGet, "/api/v1/analyses/an-1?token="+tok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got analyses.Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if got.ID != "an-1" || got.Status != analyses.StatusCompleted {
		t.Fatalf("unexpected analysis payload: %s", w.Body.String())
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	tok, err := token.Issue(token.Claims{Sub: "user-1", AnalysisID: "missing"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	w := doJSON(r, http.MethodGet, "/api/v1/analyses/missing?token="+tok, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}
