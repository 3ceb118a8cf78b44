package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petfoodverifai/internal/analyzeform"
	"petfoodverifai/internal/backend"
	"petfoodverifai/internal/config"
	"petfoodverifai/internal/llm"
	"petfoodverifai/internal/metrics"
	"petfoodverifai/internal/shared"
	"petfoodverifai/internal/telegram"
)

type mockTextGen struct {
	res string
}

func (m *mockTextGen) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	return llm.ContentResponse{
		Content: m.res,
		Usage:   shared.TokenUsage{Model: "test-model", PromptTokens: 50, CompletionTokens: 10},
	}, nil
}

type staticFetcher string

func (f staticFetcher) FetchIngredients(ctx context.Context, url string) (string, error) {
	return string(f), nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		Port:         "0",
		DatabasePath: filepath.Join(t.TempDir(), "app.db"),
		JWTSecret:    "secret",
		TokenTTL:     time.Hour,
		SessionTTL:   time.Minute,
	}
	a, err := New(cfg, nil,
		WithTextGenerator(&mockTextGen{res: `{"recommendation":"Recommended","justification":"Balanced.","concerns":[]}`}),
		WithFetcher(staticFetcher("Chicken, brown rice, fish oil")),
		WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAPIServer_CreateAnalysis(t *testing.T) {
	a := newTestApp(t)
	srv, err := a.APIServer(context.Background())
	require.NoError(t, err)

	token, err := a.IssueToken("user-1")
	require.NoError(t, err)

	body := `{"productName":"Orijen","productUrl":"https://shop.test/orijen","species":1,"breed":"Beagle","age":4}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result backend.AnalysisResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.NotEmpty(t, result.AnalysisID)
	assert.Equal(t, "Recommended", result.Recommendation)

	usage, err := a.metricsStore.GetDailyUsage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 50, usage[0].TotalPrompt)
	assert.Equal(t, 1, usage[0].TotalExecution)
}

func TestHousekeep(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.metricsStore.Record(ctx, metrics.ExecutionMetric{
		AgentName: "Recommender",
		Timestamp: time.Now().AddDate(0, 0, -40),
	}))
	require.NoError(t, a.metricsStore.Record(ctx, metrics.ExecutionMetric{AgentName: "Recommender"}))
	require.NoError(t, a.sessions.Save(ctx, 1, &telegram.Draft{Step: telegram.StepBreed, Values: analyzeform.DefaultValues()}))
	require.NoError(t, a.analyses.RecordScrapeFailure(ctx, "user-1", "https://shop.test/old", time.Now().Add(-2*time.Hour)))
	require.NoError(t, a.analyses.RecordScrapeFailure(ctx, "user-1", "https://shop.test/new", time.Now()))

	report, err := a.Housekeep(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, HousekeepingReport{Metrics: 1, Drafts: 0, ScrapeFailures: 1}, report)
}

func TestRunHousekeeping_StopsOnCancel(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.RunHousekeeping(ctx, 10*time.Millisecond, 30) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("housekeeping did not stop")
	}
}
