// Package api wires the HTTP service exposing the retrieval and extraction
// stages.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/use-agent/shelfscout/api/handler"
	"github.com/use-agent/shelfscout/api/middleware"
	"github.com/use-agent/shelfscout/config"
)

// Deps are the collaborators behind the routes.
type Deps struct {
	Retriever handler.Retriever
	Extractor handler.Extractor
	Notifier  handler.Notifier
	Jobs      *handler.JobStore
	StartTime time.Time
}

// NewRouter creates the gin engine. Background housekeeping and retrieval
// runs stop when ctx ends.
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so probes always work.
func NewRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	jobs := deps.Jobs
	if jobs == nil {
		jobs = handler.NewJobStore(time.Hour)
	}
	go jobs.RunSweeper(ctx, 5*time.Minute)

	limiters := middleware.NewLimiters(cfg.RateLimit)
	go limiters.RunEviction(ctx)

	rs := handler.NewRetrieveService(ctx, deps.Retriever, jobs, deps.Notifier)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(rs, deps.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(limiters))

	protected.POST("/retrieve", rs.PostRetrieve())
	protected.GET("/retrieve/:id", rs.GetRetrieve())
	protected.POST("/extract", handler.Extract(deps.Extractor))

	return r
}
