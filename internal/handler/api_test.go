package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatlens/internal/config"
	"chatlens/internal/explain"
	"chatlens/internal/models"
	"chatlens/internal/repository"
	"chatlens/internal/service"
)

const scenarioChat = `8/15/24, 10:30 PM - Alice: Good morning everyone
8/15/24, 10:31 PM - Bob: hey Alice, how did the demo go
8/15/24, 10:32 PM - Alice: I love this!!! 😊`

func newTestRouter(t *testing.T) (*gin.Engine, *service.Analyzer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Analysis.Workers = 2
	cfg.Analysis.QueueSize = 8

	store, err := repository.NewSQLite(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLite() = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	analyzer := service.NewAnalyzer(cfg, store, service.NewMemoryJobStore(), zap.NewNop())
	analyzer.Start()
	t.Cleanup(analyzer.Shutdown)

	h := NewHandler(analyzer, explain.NewService(store, zap.NewNop()), store, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r)
	return r, analyzer
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	fields := map[string]json.RawMessage{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &fields); err != nil {
			t.Fatalf("%s %s: invalid JSON body %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, fields
}

// submitAndWait drives a transcript through the async pipeline and
// returns the completed job id.
func submitAndWait(t *testing.T, r *gin.Engine, text string) string {
	t.Helper()

	w, fields := doJSON(t, r, http.MethodPost, "/api/v1/analyze", `{"text": `+mustJSON(t, text)+`}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("POST /analyze = %d, body %s", w.Code, w.Body.String())
	}
	var jobID string
	if err := json.Unmarshal(fields["job_id"], &jobID); err != nil || jobID == "" {
		t.Fatalf("POST /analyze returned no job_id: %s", w.Body.String())
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		w, fields := doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+jobID, "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET /jobs/%s = %d", jobID, w.Code)
		}
		var status string
		json.Unmarshal(fields["status"], &status)
		if status == string(models.StatusComplete) {
			return jobID
		}
		if status == string(models.StatusFailed) {
			t.Fatalf("job %s failed: %s", jobID, w.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never completed", jobID)
	return ""
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %v: %v", v, err)
	}
	return string(b)
}

func TestAnalyzeLifecycle(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	jobID := submitAndWait(t, r, scenarioChat)

	w, fields := doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+jobID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /jobs = %d", w.Code)
	}
	var result struct {
		TotalMessages int `json:"total_messages"`
	}
	if err := json.Unmarshal(fields["result"], &result); err != nil {
		t.Fatalf("complete job has no result: %s", w.Body.String())
	}
	if result.TotalMessages != 3 {
		t.Errorf("total_messages = %d, want 3", result.TotalMessages)
	}
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/analyze", `{"text": "   "}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST /analyze empty = %d, want 400", w.Code)
	}
}

func TestGetJobUnknown(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/jobs/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /jobs/nope = %d, want 404", w.Code)
	}
}

func TestListMessagesFilterAndPagination(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	jobID := submitAndWait(t, r, scenarioChat)

	w, fields := doJSON(t, r, http.MethodGet, "/api/v1/messages?job_id="+jobID+"&sender=Alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /messages = %d, body %s", w.Code, w.Body.String())
	}
	var total, page, pageSize int
	json.Unmarshal(fields["total"], &total)
	json.Unmarshal(fields["page"], &page)
	json.Unmarshal(fields["page_size"], &pageSize)
	if total != 2 {
		t.Errorf("total = %d, want 2 Alice messages", total)
	}
	if page != 1 || pageSize != models.DefaultPageSize {
		t.Errorf("pagination defaults = page %d size %d, want 1/%d", page, pageSize, models.DefaultPageSize)
	}

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/messages?page=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("GET /messages?page=abc = %d, want 400", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/messages?date_from=not-a-date", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("GET /messages?date_from=not-a-date = %d, want 400", w.Code)
	}
}

func TestGetMessageUnknown(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/messages/never-stored", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /messages/never-stored = %d, want 404", w.Code)
	}
}

func TestStatsReflectFilter(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	jobID := submitAndWait(t, r, scenarioChat)

	w, fields := doJSON(t, r, http.MethodGet, "/api/v1/stats?job_id="+jobID+"&sender=Bob", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /stats = %d", w.Code)
	}
	var total int
	json.Unmarshal(fields["total_messages"], &total)
	if total != 1 {
		t.Errorf("filtered total_messages = %d, want 1", total)
	}
}

func TestExplainEndpoint(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	jobID := submitAndWait(t, r, scenarioChat)

	w, fields := doJSON(t, r, http.MethodGet, "/api/v1/explain/"+jobID+"_000000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /explain = %d, body %s", w.Code, w.Body.String())
	}
	if _, ok := fields["per_model_analysis"]; !ok {
		t.Errorf("explanation missing per_model_analysis: %s", w.Body.String())
	}

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/explain/never-analyzed", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /explain unknown = %d, want 404", w.Code)
	}
}

func TestDisagreementsConflictWhileQueued(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Analysis.Workers = 1
	cfg.Analysis.QueueSize = 4

	store, err := repository.NewSQLite(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLite() = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	// Workers never started, so the job stays queued.
	analyzer := service.NewAnalyzer(cfg, store, service.NewMemoryJobStore(), zap.NewNop())
	h := NewHandler(analyzer, explain.NewService(store, zap.NewNop()), store, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r)

	jobID, err := analyzer.Submit(scenarioChat, "")
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+jobID+"/disagreements", "")
	if w.Code != http.StatusConflict {
		t.Errorf("disagreements on queued job = %d, want 409", w.Code)
	}
}

func TestDisagreementsCompleteJob(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	jobID := submitAndWait(t, r, scenarioChat)

	w, fields := doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+jobID+"/disagreements", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /disagreements = %d, body %s", w.Code, w.Body.String())
	}
	var total int
	json.Unmarshal(fields["total_messages"], &total)
	if total != 3 {
		t.Errorf("total_messages = %d, want 3", total)
	}

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/jobs/never-ran/disagreements", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("disagreements on unknown job = %d, want 404", w.Code)
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	jobID := submitAndWait(t, r, scenarioChat)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export/csv?job_id="+jobID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /export/csv = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 4 {
		t.Errorf("CSV has %d lines, want header + 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,job_id,timestamp") {
		t.Errorf("CSV header = %q", lines[0])
	}
}

func TestExportJSON(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	jobID := submitAndWait(t, r, scenarioChat)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export/json?job_id="+jobID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /export/json = %d", w.Code)
	}
	var msgs []models.Message
	if err := json.Unmarshal(w.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("export body is not a message array: %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("exported %d messages, want 3", len(msgs))
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	w, fields := doJSON(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	var status string
	json.Unmarshal(fields["status"], &status)
	if status != "ok" {
		t.Errorf("health status = %q, want ok", status)
	}
}
