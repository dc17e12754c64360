package handler

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/shelfscout/models"
	"github.com/use-agent/shelfscout/scraper"
	"github.com/use-agent/shelfscout/site"
	"github.com/use-agent/shelfscout/webhook"
)

// Retriever runs the strategy sequence for one site. *scraper.Scraper
// satisfies it.
type Retriever interface {
	Run(ctx context.Context, sc site.Config) (*scraper.Result, error)
}

// Notifier delivers job webhooks. *webhook.Notifier satisfies it.
type Notifier interface {
	SendAsync(url, secret string, event *webhook.Event)
}

// RetrieveService runs retrieval jobs one at a time in the background.
type RetrieveService struct {
	retriever Retriever
	jobs      *JobStore
	notifier  Notifier
	baseCtx   context.Context
	slot      chan struct{}
	done      func(id string)
}

// NewRetrieveService returns a service whose runs are canceled when
// baseCtx ends.
func NewRetrieveService(baseCtx context.Context, r Retriever, jobs *JobStore, n Notifier) *RetrieveService {
	return &RetrieveService{
		retriever: r,
		jobs:      jobs,
		notifier:  n,
		baseCtx:   baseCtx,
		slot:      make(chan struct{}, 1),
	}
}

// Busy reports whether a run currently holds the browser slot.
func (rs *RetrieveService) Busy() bool {
	return len(rs.slot) > 0
}

// PostRetrieve returns a handler for POST /api/v1/retrieve. It answers
// 202 with the new job, or 409 RETRIEVAL_BUSY while another run is active.
func (rs *RetrieveService) PostRetrieve() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RetrieveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sc, err := site.Resolve(req.BaseURL, req.SearchTerm)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		select {
		case rs.slot <- struct{}{}:
		default:
			abortWithError(c, models.NewScrapeError(models.ErrCodeBusy, "a retrieval run is already in progress", nil))
			return
		}

		job := models.RetrieveJob{
			ID:         uuid.NewString(),
			Status:     models.JobRunning,
			BaseURL:    req.BaseURL,
			SearchTerm: req.SearchTerm,
			Site:       sc.Name,
			CreatedAt:  time.Now().Unix(),
		}
		rs.jobs.Put(job)

		go rs.run(job.ID, sc, req)

		c.JSON(http.StatusAccepted, job)
	}
}

// GetRetrieve returns a handler for GET /api/v1/retrieve/:id.
func (rs *RetrieveService) GetRetrieve() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := rs.jobs.Get(c.Param("id"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{
				Error: &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: "retrieval job not found"},
			})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func (rs *RetrieveService) run(id string, sc site.Config, req models.RetrieveRequest) {
	defer func() { <-rs.slot }()
	if rs.done != nil {
		defer rs.done(id)
	}

	log := slog.With("job_id", id, "site", sc.Name, "term", sc.SearchTerm)
	log.Info("retrieval job started")

	res, err := rs.retriever.Run(rs.baseCtx, sc)

	rs.jobs.Update(id, func(job *models.RetrieveJob) {
		job.FinishedAt = time.Now().Unix()
		if res != nil {
			job.Attempts = attemptInfos(res.Attempts)
		}
		if err != nil {
			job.Status = models.JobFailed
			job.Error = models.DetailOf(err)
			return
		}
		job.Status = models.JobCompleted
		job.Artifact = filepath.Base(res.Path)
		job.Cards = res.Cards
		job.Strategy = res.Strategy
	})

	final, _ := rs.jobs.Get(id)
	if err != nil {
		log.Warn("retrieval job failed", "error", err)
	} else {
		log.Info("retrieval job completed", "artifact", final.Artifact, "cards", final.Cards)
	}

	if req.WebhookURL == "" || rs.notifier == nil {
		return
	}
	eventType := webhook.EventRetrievalCompleted
	if err != nil {
		eventType = webhook.EventRetrievalFailed
	}
	rs.notifier.SendAsync(req.WebhookURL, req.WebhookSecret, webhook.NewEvent(eventType, id, final))
}

func attemptInfos(attempts []scraper.Attempt) []models.AttemptInfo {
	out := make([]models.AttemptInfo, 0, len(attempts))
	for _, a := range attempts {
		info := models.AttemptInfo{
			Strategy: a.Strategy,
			DelayMs:  a.Delay.Milliseconds(),
			Outcome:  string(a.Outcome),
			Cards:    a.Cards,
		}
		if a.Err != nil {
			info.Error = models.DetailOf(a.Err)
		}
		out = append(out, info)
	}
	return out
}
