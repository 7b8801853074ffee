package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RishiKendai/provenance/internal/config"
	"github.com/RishiKendai/provenance/internal/corpus"
	"github.com/RishiKendai/provenance/internal/models"
	"github.com/RishiKendai/provenance/internal/plagiarism"
	"github.com/RishiKendai/provenance/internal/preprocess"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeAnalyzer struct {
	err        error
	references []string
}

func (f *fakeAnalyzer) AnalyzeText(_ context.Context, id, text string) (*models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Report{
		AssignmentID:            id,
		AnalysisType:            plagiarism.AnalysisTypeText,
		GeneratedAt:             time.Now(),
		OverallOriginalityScore: 100,
		TotalSentences:          len(plagiarism.SegmentText(text)),
		RiskLevel:               "clean",
		Items:                   []models.ReportItem{},
	}, nil
}

func (f *fakeAnalyzer) AnalyzeCode(_ context.Context, id, _ string, references []string) (*models.CodeReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(references) == 0 {
		return nil, fmt.Errorf("%w: no reference solution", plagiarism.ErrInput)
	}
	f.references = references
	return &models.CodeReport{AssignmentID: id, AnalysisType: plagiarism.AnalysisTypeCode, GeneratedAt: time.Now()}, nil
}

type fakeSubmitter struct {
	filename string
	data     []byte
	kind     models.DocumentKind
}

func (f *fakeSubmitter) Submit(_ context.Context, filename string, data []byte, kind models.DocumentKind) (string, error) {
	if !strings.HasSuffix(filename, ".txt") {
		return "", fmt.Errorf("%w: %q", preprocess.ErrUnsupportedFormat, filename)
	}
	f.filename, f.data, f.kind = filename, data, kind
	return "doc-1", nil
}

type memoryStore struct {
	mu          sync.Mutex
	reports     map[string]*models.Report
	codeReports map[string]*models.CodeReport
	references  map[string][]models.ReferenceSolution
	failReads   bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		reports:     make(map[string]*models.Report),
		codeReports: make(map[string]*models.CodeReport),
		references:  make(map[string][]models.ReferenceSolution),
	}
}

func (m *memoryStore) SaveReport(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.AssignmentID] = r
	return nil
}

func (m *memoryStore) SaveCodeReport(_ context.Context, r *models.CodeReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codeReports[r.AssignmentID] = r
	return nil
}

func (m *memoryStore) GetLatestReport(_ context.Context, id string) (*models.Report, error) {
	if m.failReads {
		return nil, errors.New("mongo: connection reset")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[id], nil
}

func (m *memoryStore) GetLatestCodeReport(_ context.Context, id string) (*models.CodeReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codeReports[id], nil
}

func (m *memoryStore) AddReference(_ context.Context, ref *models.ReferenceSolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.references[ref.AssignmentID] = append(m.references[ref.AssignmentID], *ref)
	return nil
}

func (m *memoryStore) GetReferences(_ context.Context, id string) ([]models.ReferenceSolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.references[id], nil
}

type fakeStatus struct{}

func (fakeStatus) GetStatus(_ context.Context, id string) (models.Step, error) {
	if id == "doc-1" {
		return models.StepAnalyzing, nil
	}
	return models.StepIdle, nil
}

type fakeCorpus struct{}

func (fakeCorpus) IngestText(_ context.Context, source, text, _ string) (*corpus.Result, error) {
	n := len(plagiarism.SegmentText(text))
	if n == 0 {
		return nil, corpus.ErrEmptySource
	}
	return &corpus.Result{Source: source, Entries: n, ExactInserted: n}, nil
}

func (fakeCorpus) Stats(context.Context) (map[string]int, error) {
	return map[string]int{plagiarism.EntryTypeCorpus: 4, plagiarism.EntryTypeAIGenerated: 1}, nil
}

type testServer struct {
	router    *gin.Engine
	analyzer  *fakeAnalyzer
	submitter *fakeSubmitter
	store     *memoryStore
	token     string
}

func newTestServer(t *testing.T, rps float64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		analyzer:  &fakeAnalyzer{},
		submitter: &fakeSubmitter{},
		store:     newMemoryStore(),
	}
	handler := NewHandler(Dependencies{
		Analyzer:   ts.analyzer,
		Documents:  ts.submitter,
		Reports:    ts.store,
		References: ts.store,
		Status:     fakeStatus{},
		Corpus:     fakeCorpus{},
	}, 2, time.Minute)

	cfg := &config.Config{JWTSecret: testSecret, JWTIssuer: "provenance", RateLimitRPS: rps, LogLevel: "info"}
	ts.router = SetupRoutes(cfg, handler)
	ts.token = signToken(t, testSecret, jwt.MapClaims{"api_key": "key-1", "iss": "provenance"})
	return ts
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) postJSON(path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	return ts.do(http.MethodPost, path, ts.token, data, "application/json")
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth_NoAuth(t *testing.T) {
	ts := newTestServer(t, 100)
	w := ts.do(http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, 100)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong secret", signToken(t, "other", jwt.MapClaims{"iss": "provenance"})},
		{"wrong issuer", signToken(t, testSecret, jwt.MapClaims{"iss": "someone-else"})},
		{"expired", signToken(t, testSecret, jwt.MapClaims{"iss": "provenance", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"garbage", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodGet, "/api/v1/corpus/stats", tt.token, nil, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Code)
		})
	}
}

func TestAnalyzeText(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.postJSON("/api/v1/analyze/text", models.AnalyzeTextRequest{AssignmentID: "essay-1", Text: "One. Two."})
	require.Equal(t, http.StatusOK, w.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "essay-1", report.AssignmentID)
	assert.Equal(t, 2, report.TotalSentences)
	assert.Contains(t, ts.store.reports, "essay-1")
}

func TestAnalyzeText_GeneratesAssignmentID(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.postJSON("/api/v1/analyze/text", map[string]string{"text": "Hello there."})
	require.Equal(t, http.StatusOK, w.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.NotEmpty(t, report.AssignmentID)
}

func TestAnalyzeText_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"corpus unavailable", fmt.Errorf("%w: empty", plagiarism.ErrCorpusUnavailable), http.StatusServiceUnavailable, "CORPUS_UNAVAILABLE"},
		{"input", plagiarism.ErrInput, http.StatusBadRequest, "INVALID_INPUT"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "COMPUTATION_TIMEOUT"},
		{"external", fmt.Errorf("%w: embed", plagiarism.ErrExternalService), http.StatusInternalServerError, "EXTERNAL_SERVICE_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, 100)
			ts.analyzer.err = tt.err

			w := ts.postJSON("/api/v1/analyze/text", models.AnalyzeTextRequest{Text: "Some text."})
			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", resp.Error)
			}
		})
	}
}

func TestAnalyzeText_MissingText(t *testing.T) {
	ts := newTestServer(t, 100)
	w := ts.postJSON("/api/v1/analyze/text", map[string]string{"assignment_id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
}

func TestAnalyzeCode_InlineReference(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.postJSON("/api/v1/analyze/code", models.AnalyzeCodeRequest{
		AssignmentID:  "code-1",
		Code:          "print(1)",
		ReferenceCode: "print(2)",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"print(2)"}, ts.analyzer.references)
	assert.Contains(t, ts.store.codeReports, "code-1")
}

func TestAnalyzeCode_StoredReferences(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.postJSON("/api/v1/references", models.ReferenceRequest{AssignmentID: "code-2", Code: "x = 1"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = ts.postJSON("/api/v1/references", models.ReferenceRequest{AssignmentID: "code-2", Language: "Python", Code: "x = 2"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.postJSON("/api/v1/analyze/code", models.AnalyzeCodeRequest{AssignmentID: "code-2", Code: "x = 3"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"x = 1", "x = 2"}, ts.analyzer.references)
	assert.Equal(t, "python", ts.store.references["code-2"][1].Language)
}

func TestAnalyzeCode_NoReferences(t *testing.T) {
	ts := newTestServer(t, 100)
	w := ts.postJSON("/api/v1/analyze/code", models.AnalyzeCodeRequest{AssignmentID: "code-3", Code: "x = 3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartBody(t *testing.T, filename, content, kind string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if kind != "" {
		require.NoError(t, mw.WriteField("kind", kind))
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestSubmitDocument(t *testing.T) {
	ts := newTestServer(t, 100)

	body, contentType := multipartBody(t, "essay.txt", "An essay.", "TEXT")
	w := ts.do(http.MethodPost, "/api/v1/documents", ts.token, body, contentType)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp models.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.SubmitResponse{Step: models.StepQueued, AssignmentID: "doc-1"}, resp)
	assert.Equal(t, "essay.txt", ts.submitter.filename)
	assert.Equal(t, models.KindText, ts.submitter.kind)
	assert.Equal(t, []byte("An essay."), ts.submitter.data)
}

func TestSubmitDocument_Errors(t *testing.T) {
	ts := newTestServer(t, 100)

	body, contentType := multipartBody(t, "photo.png", "binary", "")
	w := ts.do(http.MethodPost, "/api/v1/documents", ts.token, body, contentType)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", decodeError(t, w).Code)

	w = ts.do(http.MethodPost, "/api/v1/documents", ts.token, []byte("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReport(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.do(http.MethodGet, "/api/v1/reports/missing", ts.token, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, ts.postJSON("/api/v1/analyze/text", models.AnalyzeTextRequest{AssignmentID: "r-1", Text: "Text."}).Code)
	w = ts.do(http.MethodGet, "/api/v1/reports/r-1", ts.token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"analysis_type":"text"`)

	ts.store.failReads = true
	w = ts.do(http.MethodGet, "/api/v1/reports/r-1", ts.token, nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetStatus(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.do(http.MethodGet, "/api/v1/status/doc-1", ts.token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"assignment_id":"doc-1","step":"analyzing"}`, w.Body.String())
}

func TestCorpusEndpoints(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.postJSON("/api/v1/corpus", models.CorpusIngestRequest{Source: "bio.txt", Text: "Cells divide. Cells grow."})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"source":"bio.txt","entries":2,"exact_inserted":2}`, w.Body.String())

	w = ts.postJSON("/api/v1/corpus", models.CorpusIngestRequest{Source: "blank.txt", Text: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/corpus/stats", ts.token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries":{"corpus":4,"ai_generated":1}}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, 1)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do(http.MethodGet, "/api/v1/corpus/stats", ts.token, nil, "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_DropsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.GetLimiter("a")
	rl.GetLimiter("b")
	assert.Equal(t, 2, rl.size())

	now = now.Add(2 * limiterIdleTTL)
	rl.GetLimiter("c")
	assert.Equal(t, 1, rl.size())
}
