package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEngine_FetchPlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "identity", r.Header.Get("Accept-Encoding"))
		assert.Equal(t, "probe-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "1", r.Header.Get("DNT"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<html><head><title> Access Denied </title></head><body>nope</body></html>`))
	}))
	defer srv.Close()

	res, err := NewHTTPEngine().Fetch(context.Background(), &FetchRequest{
		URL:       srv.URL,
		UserAgent: "probe-agent",
		Headers:   map[string]string{"DNT": "1", "Accept-Encoding": "gzip, deflate, br"},
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "Access Denied", res.Title)
	assert.Equal(t, "http", res.EngineName)
	assert.Contains(t, res.HTML, "nope")
}

func TestHTTPEngine_NonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewHTTPEngine().Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	assert.Error(t, err)
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Gafas de sol", extractTitle(`<html><head><title>Gafas de sol</title></head></html>`))
	assert.Equal(t, "", extractTitle(`<html><body>no title</body></html>`))
}
