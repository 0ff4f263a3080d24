package apihandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"veracity/internal/app"
	"veracity/internal/config"
	"veracity/internal/engine"
	"veracity/internal/metadata"
	"veracity/internal/providers"
	"veracity/internal/store"
	"veracity/internal/tasks"
	"veracity/pkg/classifier"
)

type mockJobClient struct {
	mock.Mock
}

func (m *mockJobClient) EnqueueAnalysis(ctx context.Context, p tasks.AnalysisPayload) (*store.JobStatus, error) {
	args := m.Called(ctx, p)
	st, _ := args.Get(0).(*store.JobStatus)
	return st, args.Error(1)
}

func (m *mockJobClient) GetJob(ctx context.Context, id string) (*store.JobStatus, error) {
	args := m.Called(ctx, id)
	st, _ := args.Get(0).(*store.JobStatus)
	return st, args.Error(1)
}

func (m *mockJobClient) Ping(ctx context.Context) error { return nil }

func (m *mockJobClient) Close() error { return nil }

func setupRouter(t *testing.T, set *providers.Set) (*gin.Engine, *app.App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Log.Level = "error"
	a, err := app.NewApp(context.Background(), nil, cfg, app.WithEngineOptions(
		engine.WithProviders(set),
		engine.WithFetcher(metadata.Static{Accessible: true, Title: "t", SiteName: "s", Author: "a"}),
	))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return NewRouter(NewAPIHandler(a)), a
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := setupRouter(t, providers.NewSet())

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = doJSON(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClassifyHandler(t *testing.T) {
	r, _ := setupRouter(t, providers.NewSet())

	w := doJSON(t, r, http.MethodPost, "/api/v1/classify", gin.H{"text": "This game is okay, nothing special."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Category string `json:"category"`
		Source   string `json:"source"`
		Mode     string `json:"mode"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, "other", res.Category)
	assert.Equal(t, "local", res.Source)
	assert.Equal(t, "local_only", res.Mode)
}

func TestClassifyHandler_BadRequests(t *testing.T) {
	r, _ := setupRouter(t, providers.NewSet())

	tests := []struct {
		name string
		body any
	}{
		{"empty text", gin.H{"text": "  "}},
		{"bad mode", gin.H{"text": "hello", "mode": "single_provider"}},
		{"wrong type", gin.H{"text": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/classify", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, "bad_request", env.Error.Code)
			assert.NotEmpty(t, env.RequestID)
		})
	}
}

func TestClassifyHandler_AllProvidersFailed(t *testing.T) {
	failing := &providers.Static{ProviderName: config.ProviderGemini, Err: errors.New("quota exceeded")}
	r, _ := setupRouter(t, providers.NewSet(failing))

	w := doJSON(t, r, http.MethodPost, "/api/v1/classify", gin.H{"text": "you are an idiot", "mode": "combined"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "providers_unavailable", env.Error.Code)

	var fallback struct {
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fallback))
	assert.Equal(t, "local_fallback", fallback.Source)
}

func TestClassifyHandler_SingleProvider(t *testing.T) {
	stub := &providers.Static{ProviderName: config.ProviderPerspective, Result: classifier.Result{
		Category: classifier.CategoryHarassment, Confidence: 0.8, Toxicity: classifier.Toxicity{Score: 0.85},
	}}
	r, _ := setupRouter(t, providers.NewSet(stub))

	w := doJSON(t, r, http.MethodPost, "/api/v1/classify", gin.H{"text": "you are an idiot", "mode": "perspective"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Source              string   `json:"source"`
		ContributingSources []string `json:"contributing_sources"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, "hybrid", res.Source)
	assert.Contains(t, res.ContributingSources, "perspective")
}

func TestClassifyBatchHandler(t *testing.T) {
	r, _ := setupRouter(t, providers.NewSet())

	w := doJSON(t, r, http.MethodPost, "/api/v1/classify/batch", gin.H{"texts": []string{"hello friend", ""}})
	require.Equal(t, http.StatusOK, w.Code)

	var items []classifier.BatchItem
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &items))
	require.Len(t, items, 2)
	assert.NotNil(t, items[0].Result)
	assert.NotEmpty(t, items[1].Error)

	w = doJSON(t, r, http.MethodPost, "/api/v1/classify/batch", gin.H{"texts": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyHandler(t *testing.T) {
	r, _ := setupRouter(t, providers.NewSet())

	body := gin.H{
		"submission": gin.H{
			"content":      "Short one.",
			"platform":     "twitter",
			"original_url": "https://twitter.com/someone/status/1",
			"author":       gin.H{"username": "someone", "verified": true},
		},
		"fetch_metadata": true,
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/verify", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var a engine.Assessment
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &a))
	assert.NotEmpty(t, a.ID)
	require.NotNil(t, a.Metadata)
	// url 20 + verified 15 + short content 5 + metadata 3 fields 15
	assert.Equal(t, 55, a.Verification.Total)
	assert.Equal(t, a.Verification.Total, a.Risk.VerificationTotal)

	w = doJSON(t, r, http.MethodPost, "/api/v1/verify", gin.H{"submission": gin.H{"platform": "twitter"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScoreHandler(t *testing.T) {
	r, _ := setupRouter(t, providers.NewSet())

	body := gin.H{
		"submission": gin.H{"content": "This is a thirty char message.", "platform": "twitter"},
		"toxicity":   0.75,
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/score", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Verification struct {
			Total int    `json:"score"`
			Level string `json:"level"`
		} `json:"verification"`
		Risk struct {
			RiskLevel string  `json:"risk_level"`
			Toxicity  float64 `json:"toxicity_percent"`
		} `json:"risk"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out))
	assert.Equal(t, 5, out.Verification.Total)
	assert.Equal(t, "very_low", out.Verification.Level)
	assert.Equal(t, "critical", out.Risk.RiskLevel)
	assert.InDelta(t, 75.0, out.Risk.Toxicity, 1e-9)

	body["toxicity"] = 1.5
	w = doJSON(t, r, http.MethodPost, "/api/v1/score", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProvidersHandler(t *testing.T) {
	r, _ := setupRouter(t, providers.NewSet(&providers.Static{ProviderName: config.ProviderGemini}))

	w := doJSON(t, r, http.MethodGet, "/api/v1/providers", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Mode      string             `json:"mode"`
		Active    []string           `json:"active"`
		Providers []providers.Status `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out))
	assert.Equal(t, "local_only", out.Mode)
	assert.Equal(t, []string{"gemini"}, out.Active)
	assert.Len(t, out.Providers, len(config.KnownProviders()))
}

func TestJobHandlers(t *testing.T) {
	r, a := setupRouter(t, providers.NewSet())

	w := doJSON(t, r, http.MethodGet, "/api/v1/jobs/abc", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	jobs := &mockJobClient{}
	a.JobClient = jobs
	jobs.On("EnqueueAnalysis", mock.Anything, mock.MatchedBy(func(p tasks.AnalysisPayload) bool {
		return p.Submission.Content == "queued post" && p.RequestID != ""
	})).Return(&store.JobStatus{ID: "job-1", State: "pending"}, nil).Once()
	jobs.On("GetJob", mock.Anything, "job-1").Return(&store.JobStatus{ID: "job-1", State: "completed"}, nil).Once()
	jobs.On("GetJob", mock.Anything, "nope").Return(nil, store.ErrNotFound).Once()

	w = doJSON(t, r, http.MethodPost, "/api/v1/jobs", gin.H{"submission": gin.H{"content": "queued post"}})
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs/job-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var st store.JobStatus
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &st))
	assert.Equal(t, "completed", st.State)

	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/jobs", gin.H{"submission": gin.H{"content": ""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	jobs.On("EnqueueAnalysis", mock.Anything, mock.MatchedBy(func(p tasks.AnalysisPayload) bool {
		return p.Submission.Content == "resent post"
	})).Return(nil, store.ErrDuplicateJob).Once()
	w = doJSON(t, r, http.MethodPost, "/api/v1/jobs", gin.H{"submission": gin.H{"content": "resent post"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	jobs.AssertExpectations(t)
}

func TestRequestIDIsEchoed(t *testing.T) {
	r, _ := setupRouter(t, providers.NewSet())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "6f1c2e1e-4f5b-4d5e-9d7a-2b6b7f3a9c10")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "6f1c2e1e-4f5b-4d5e-9d7a-2b6b7f3a9c10", w.Header().Get(requestIDHeader))
}
