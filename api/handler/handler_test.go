package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscout/extract"
	"github.com/use-agent/shelfscout/models"
	"github.com/use-agent/shelfscout/scraper"
	"github.com/use-agent/shelfscout/site"
	"github.com/use-agent/shelfscout/webhook"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeRetriever blocks until release is closed, then returns res, err.
type fakeRetriever struct {
	release chan struct{}
	res     *scraper.Result
	err     error

	mu    sync.Mutex
	sites []site.Config
}

func (f *fakeRetriever) Run(ctx context.Context, sc site.Config) (*scraper.Result, error) {
	f.mu.Lock()
	f.sites = append(f.sites, sc)
	f.mu.Unlock()
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return f.res, f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*webhook.Event
	urls   []string
}

func (n *fakeNotifier) SendAsync(url, _ string, ev *webhook.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	n.events = append(n.events, ev)
}

func newService(t *testing.T, r Retriever, n Notifier) (*RetrieveService, *gin.Engine, chan string) {
	t.Helper()
	rs := NewRetrieveService(context.Background(), r, NewJobStore(time.Hour), n)
	done := make(chan string, 4)
	rs.done = func(id string) { done <- id }

	e := gin.New()
	e.POST("/retrieve", rs.PostRetrieve())
	e.GET("/retrieve/:id", rs.GetRetrieve())
	return rs, e, done
}

func postJSON(e http.Handler, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func getJob(t *testing.T, e http.Handler, id string) models.RetrieveJob {
	t.Helper()
	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/retrieve/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var job models.RetrieveJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	return job
}

func TestPostRetrieve_CompletesJob(t *testing.T) {
	fr := &fakeRetriever{
		release: make(chan struct{}),
		res: &scraper.Result{
			Path:     "response_HTML/raw_cards_yerba_1.html",
			Cards:    12,
			Strategy: "internal-search",
			Attempts: []scraper.Attempt{{Strategy: "internal-search", Outcome: scraper.OutcomeSuccess, Cards: 12}},
		},
	}
	fn := &fakeNotifier{}
	rs, e, done := newService(t, fr, fn)

	w := postJSON(e, "/retrieve", models.RetrieveRequest{
		BaseURL:    "https://www.mercadolibre.com.ar",
		SearchTerm: "yerba",
		WebhookURL: "https://hooks.example/done",
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var job models.RetrieveJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, models.JobRunning, job.Status)
	assert.Equal(t, "mercadolibre", job.Site)
	assert.True(t, rs.Busy())

	close(fr.release)
	assert.Equal(t, job.ID, <-done)

	got := getJob(t, e, job.ID)
	assert.Equal(t, models.JobCompleted, got.Status)
	assert.Equal(t, "raw_cards_yerba_1.html", got.Artifact)
	assert.Equal(t, 12, got.Cards)
	require.Len(t, got.Attempts, 1)
	assert.Equal(t, "success", got.Attempts[0].Outcome)
	assert.Eventually(t, func() bool { return !rs.Busy() }, time.Second, 10*time.Millisecond)

	fn.mu.Lock()
	defer fn.mu.Unlock()
	require.Len(t, fn.events, 1)
	assert.Equal(t, webhook.EventRetrievalCompleted, fn.events[0].Type)
	assert.Equal(t, "https://hooks.example/done", fn.urls[0])
}

func TestPostRetrieve_FailedJob(t *testing.T) {
	fr := &fakeRetriever{
		release: make(chan struct{}),
		res: &scraper.Result{Attempts: []scraper.Attempt{
			{Strategy: "internal-search", Outcome: scraper.OutcomeExhausted,
				Err: models.NewScrapeError(models.ErrCodeBlocked, "blocked", nil)},
		}},
		err: models.NewScrapeError(models.ErrCodeExhausted, "all strategies failed", nil),
	}
	close(fr.release)
	fn := &fakeNotifier{}
	_, e, done := newService(t, fr, fn)

	w := postJSON(e, "/retrieve", models.RetrieveRequest{BaseURL: "https://shop.example", SearchTerm: "zapatos", WebhookURL: "https://hooks.example/x"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var job models.RetrieveJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	<-done

	got := getJob(t, e, job.ID)
	assert.Equal(t, models.JobFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, models.ErrCodeExhausted, got.Error.Code)
	require.Len(t, got.Attempts, 1)
	assert.Equal(t, models.ErrCodeBlocked, got.Attempts[0].Error.Code)
	assert.Empty(t, got.Artifact)

	fn.mu.Lock()
	defer fn.mu.Unlock()
	require.Len(t, fn.events, 1)
	assert.Equal(t, webhook.EventRetrievalFailed, fn.events[0].Type)
}

func TestPostRetrieve_BusyWhileRunning(t *testing.T) {
	fr := &fakeRetriever{release: make(chan struct{}), res: &scraper.Result{Path: "a.html", Cards: 1}}
	_, e, done := newService(t, fr, nil)

	req := models.RetrieveRequest{BaseURL: "https://shop.example", SearchTerm: "mate"}
	require.Equal(t, http.StatusAccepted, postJSON(e, "/retrieve", req).Code)

	w := postJSON(e, "/retrieve", req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeBusy)

	close(fr.release)
	<-done
}

func TestPostRetrieve_InvalidInput(t *testing.T) {
	_, e, _ := newService(t, &fakeRetriever{}, nil)

	assert.Equal(t, http.StatusBadRequest, postJSON(e, "/retrieve", map[string]string{"base_url": "https://shop.example"}).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(e, "/retrieve", map[string]string{"base_url": "not a url", "search_term": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(e, "/retrieve", map[string]string{"base_url": "https://shop.example", "search_term": "   "}).Code)
}

func TestGetRetrieve_NotFound(t *testing.T) {
	_, e, _ := newService(t, &fakeRetriever{}, nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/retrieve/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeExtractor struct {
	out *extract.Output
	err error
}

func (f fakeExtractor) Run(context.Context, string, string) (*extract.Output, error) {
	return f.out, f.err
}

func TestExtract(t *testing.T) {
	out := &extract.Output{
		Path:  "data/raw_cards_yerba_1.json",
		Cards: 2,
		Report: &extract.Report{
			Records:  []models.Record{{Title: models.NewText("Yerba")}},
			Failures: []extract.Failure{{Index: 1}},
		},
	}
	e := gin.New()
	e.POST("/extract", Extract(fakeExtractor{out: out}))

	w := postJSON(e, "/extract", models.ExtractRequest{Artifact: "raw_cards_yerba_1.html", CardClass: "card"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ExtractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Cards)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Yerba", resp.Records[0].Title.Value)
	assert.False(t, resp.Records[0].ID.Valid)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewScrapeError(models.ErrCodeNoCards, "none", nil), http.StatusUnprocessableEntity},
		{models.NewScrapeError(models.ErrCodeInvalidInput, "bad name", nil), http.StatusBadRequest},
		{models.NewScrapeError(models.ErrCodeLLMAuthFailure, "key", nil), http.StatusUnauthorized},
		{models.NewScrapeError(models.ErrCodeStorage, "disk", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		e := gin.New()
		e.POST("/extract", Extract(fakeExtractor{err: tt.err}))
		w := postJSON(e, "/extract", models.ExtractRequest{Artifact: "a.html", CardClass: "card"})
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
	}

	e := gin.New()
	e.POST("/extract", Extract(fakeExtractor{}))
	assert.Equal(t, http.StatusBadRequest, postJSON(e, "/extract", map[string]string{"artifact": "a.html"}).Code)
}

func TestJobStore_Sweep(t *testing.T) {
	s := NewJobStore(time.Hour)
	now := time.Unix(10_000, 0)
	s.now = func() time.Time { return now }

	s.Put(models.RetrieveJob{ID: "old", CreatedAt: now.Add(-2 * time.Hour).Unix()})
	s.Put(models.RetrieveJob{ID: "new", CreatedAt: now.Unix()})

	assert.Equal(t, 1, s.Sweep())
	_, ok := s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get("new")
	assert.True(t, ok)
}
