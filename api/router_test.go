package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscout/config"
	"github.com/use-agent/shelfscout/extract"
	"github.com/use-agent/shelfscout/metrics"
	"github.com/use-agent/shelfscout/models"
	"github.com/use-agent/shelfscout/scraper"
	"github.com/use-agent/shelfscout/site"
)

type idleRetriever struct{}

func (idleRetriever) Run(context.Context, site.Config) (*scraper.Result, error) {
	return &scraper.Result{}, nil
}

type idleExtractor struct{}

func (idleExtractor) Run(context.Context, string, string) (*extract.Output, error) {
	return &extract.Output{Report: &extract.Report{}}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret"}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRouter(ctx, cfg, Deps{
		Retriever: idleRetriever{},
		Extractor: idleExtractor{},
		StartTime: time.Now(),
	})
}

func TestRouter_HealthIsPublic(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var h models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, "healthy", h.Status)
	assert.False(t, h.Busy)
}

func TestRouter_MetricsExposed(t *testing.T) {
	metrics.CardsCollected.Add(0)
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shelfscout_cards_collected_total")
}

func TestRouter_ProtectedRoutesNeedKey(t *testing.T) {
	r := newTestRouter(t)

	body := `{"artifact":"a.html","card_class":"card"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(body))
	req.Header.Set("X-API-Key", "secret")
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
