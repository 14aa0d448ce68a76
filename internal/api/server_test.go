package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medication-net-benefit/internal/cache"
	"github.com/medication-net-benefit/internal/catalog"
	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/engine"
	"github.com/medication-net-benefit/internal/feedback"
	"github.com/medication-net-benefit/internal/middleware"
	"github.com/medication-net-benefit/internal/service"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func testConfig() *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			Mode:           gin.TestMode,
			RequestTimeout: 5 * time.Second,
		},
	}
}

func newTestServer(t *testing.T, withFeedback bool) *Server {
	t.Helper()
	logger := quietLogger()

	c, err := catalog.Load(catalog.BundledPath)
	require.NoError(t, err)
	resultCache := cache.New(domain.CacheConfig{Enabled: true, MemoryMaxItems: 100}, logger)

	var store feedback.Store
	if withFeedback {
		sqlite, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
		require.NoError(t, err)
		store = sqlite
	}
	fb := service.NewFeedbackService(store, c, engine.TablesVersion, logger)
	t.Cleanup(func() { fb.Close() })

	eval := service.NewEvaluationService(engine.New(engine.DefaultTables(), logger), c, resultCache,
		domain.EvaluationConfig{MaxConcurrency: 4}, time.Minute, logger)

	return NewServer(testConfig(), Dependencies{Evaluation: eval, Feedback: fb, Cache: resultCache}, logger)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const hfPatient = `{
	"age": 72, "sex": "male", "heart_failure": true, "ejection_fraction": 30,
	"atrial_fibrillation": true, "hypertension": true, "creatinine": 1.2
}`

func TestHealth(t *testing.T) {
	s := newTestServer(t, true)

	w := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "sample-2025.1", body["catalog_version"])
	assert.Equal(t, engine.TablesVersion, body["tables_version"])
	assert.Equal(t, true, body["feedback"])
	assert.Contains(t, body, "cache")
	assert.NotEmpty(t, w.Header().Get(middleware.CorrelationIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestMedications(t *testing.T) {
	s := newTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/v1/medications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Count       int                         `json:"count"`
		Medications []service.MedicationSummary `json:"medications"`
	}](t, w)
	assert.Equal(t, len(list.Medications), list.Count)
	assert.NotEmpty(t, list.Medications)

	w = do(t, s, http.MethodGet, "/api/v1/medications/Warfarin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	med := decode[domain.MedicationRecord](t, w)
	assert.Equal(t, "warfarin", med.ID)

	w = do(t, s, http.MethodGet, "/api/v1/medications/unobtainium", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	errResp := decode[ErrorResponse](t, w)
	assert.Equal(t, domain.CodeUnknownMedication, errResp.Code)
	assert.Equal(t, "unobtainium", errResp.Details)
	assert.NotEmpty(t, errResp.CorrelationID)
}

func TestRisks(t *testing.T) {
	s := newTestServer(t, false)

	w := do(t, s, http.MethodPost, "/api/v1/risks", hfPatient)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[service.RisksResult](t, w)
	assert.True(t, result.Risks.Has(domain.RiskStroke))
	assert.Contains(t, result.Skipped, domain.RiskASCVD)
}

func TestRisksRejectsBadInput(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"empty body", "", domain.CodeValidation},
		{"malformed", "{", domain.CodeInvalidInput},
		{"unknown field", `{"agee": 70}`, domain.CodeInvalidInput},
		{"out of range", `{"age": 150}`, domain.CodeValidation},
		{"oversized", `{"sex": "` + strings.Repeat("x", maxBodyBytes) + `"}`, domain.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/risks", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t, false)

	body := `{"patient": ` + hfPatient + `, "preferences": {"goals_of_care": 2}, "medication_ids": ["apixaban", "metoprolol-succinate"]}`
	w := do(t, s, http.MethodPost, "/api/v1/evaluate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decode[service.EvaluateResult](t, w)
	require.Len(t, result.Results, 2)
	assert.NotEmpty(t, result.EvaluationID)
	assert.GreaterOrEqual(t, result.Results[0].NetScore, result.Results[1].NetScore)
	assert.Equal(t, 2, result.Preferences.GoalsOfCare)
	assert.Equal(t, 1.0, result.Results[0].Threshold)

	w = do(t, s, http.MethodPost, "/api/v1/evaluate", `{"patient": {}, "medication_ids": ["nope"]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/evaluate", `{"patient": {}, "preferences": {"goals_of_care": 9}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "goals_of_care", decode[ErrorResponse](t, w).Field)
}

func TestFeedbackRoundTrip(t *testing.T) {
	s := newTestServer(t, true)

	w := do(t, s, http.MethodPost, "/api/v1/feedback", service.FeedbackParams{
		EvaluationID:            "eval-1",
		MedicationID:            "apixaban",
		SuggestedRecommendation: domain.RECOMMENDED,
		ClinicianRecommendation: domain.CONSIDER,
		Notes:                   "High fall risk",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[feedback.Feedback](t, w)
	assert.NotZero(t, created.ID)
	assert.False(t, created.Agreed)

	w = do(t, s, http.MethodGet, "/api/v1/feedback/eval-1/apixaban", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "High fall risk", decode[feedback.Feedback](t, w).Notes)

	w = do(t, s, http.MethodGet, "/api/v1/feedback?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[service.FeedbackPage](t, w)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 10, page.Limit)
	require.NotNil(t, page.Stats)
	assert.Equal(t, int64(1), page.Stats.Overrides[domain.RECOMMENDED])

	w = do(t, s, http.MethodGet, "/api/v1/feedback/eval-2/apixaban", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.CodeNotFound, decode[ErrorResponse](t, w).Code)

	w = do(t, s, http.MethodGet, "/api/v1/feedback?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/feedback", `{"evaluation_id": "e", "medication_id": "apixaban", "suggested_recommendation": "MAYBE", "agreed": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedbackExportImport(t *testing.T) {
	source := newTestServer(t, true)
	w := do(t, source, http.MethodPost, "/api/v1/feedback", service.FeedbackParams{
		EvaluationID:            "eval-1",
		MedicationID:            "warfarin",
		SuggestedRecommendation: domain.CONSIDER,
		ClinicianRecommendation: domain.CONSIDER,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, source, http.MethodGet, "/api/v1/feedback/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	export := decode[feedback.FeedbackExport](t, w)
	require.Len(t, export.Feedback, 1)

	target := newTestServer(t, true)
	w = do(t, target, http.MethodPost, "/api/v1/feedback/import", export)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	counts := decode[map[string]int](t, w)
	assert.Equal(t, 1, counts["imported"])
	assert.Equal(t, 0, counts["skipped"])

	w = do(t, target, http.MethodPost, "/api/v1/feedback/import", export)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[map[string]int](t, w)["skipped"])

	w = do(t, target, http.MethodPost, "/api/v1/feedback/import", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedbackDisabled(t *testing.T) {
	s := newTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/v1/feedback", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, domain.CodeFeedbackDisabled, decode[ErrorResponse](t, w).Code)
}

func TestRateLimitApplied(t *testing.T) {
	s := newTestServer(t, false)
	cfg := testConfig()
	cfg.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	limited := NewServer(cfg, s.deps, quietLogger())

	assert.Equal(t, http.StatusOK, do(t, limited, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, limited, http.MethodGet, "/health", nil).Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidInput))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrFeedbackNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestStartAndShutdown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	s := newTestServer(t, false)
	s.config.Server.Port = port
	s.config.Server.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	url := "http://127.0.0.1:" + strconv.Itoa(port) + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
