package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/use-agent/shelfscout/config"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(e *gin.Engine, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w.Code
}

func TestAuth(t *testing.T) {
	e := gin.New()
	e.Use(Auth([]string{"k1", "k2"}))
	e.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyAPIKey))
	})

	assert.Equal(t, http.StatusUnauthorized, serve(e, nil))
	assert.Equal(t, http.StatusUnauthorized, serve(e, map[string]string{"X-API-Key": "nope"}))
	assert.Equal(t, http.StatusOK, serve(e, map[string]string{"X-API-Key": "k1"}))
	assert.Equal(t, http.StatusOK, serve(e, map[string]string{"Authorization": "Bearer k2"}))
	assert.Equal(t, http.StatusUnauthorized, serve(e, map[string]string{"Authorization": "Basic k2"}))
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	e := gin.New()
	e.Use(Auth([]string{""}))
	e.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(e, nil))
}

func TestRateLimit_PerIdentity(t *testing.T) {
	l := NewLimiters(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})
	e := gin.New()
	e.Use(Auth([]string{"a", "b"}), RateLimit(l))
	e.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	a := map[string]string{"X-API-Key": "a"}
	assert.Equal(t, http.StatusOK, serve(e, a))
	assert.Equal(t, http.StatusOK, serve(e, a))
	assert.Equal(t, http.StatusTooManyRequests, serve(e, a))

	assert.Equal(t, http.StatusOK, serve(e, map[string]string{"X-API-Key": "b"}))
}

func TestLimiters_Evict(t *testing.T) {
	l := NewLimiters(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(2 * time.Hour)
	l.Allow("fresh")

	l.Evict(now.Add(-time.Hour))
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "fresh")
}
