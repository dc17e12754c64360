package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/shelfscout/config"
	"github.com/use-agent/shelfscout/detect"
	"github.com/use-agent/shelfscout/engine"
	"github.com/use-agent/shelfscout/evasion"
	"github.com/use-agent/shelfscout/metrics"
	"github.com/use-agent/shelfscout/models"
	"github.com/use-agent/shelfscout/retry"
	"github.com/use-agent/shelfscout/site"
)

// Strategy is one named retrieval attempt configuration.
type Strategy struct {
	Name  string
	Delay time.Duration // wait before the attempt starts
	Class evasion.Class // identity kind the session presents
}

// StrategiesFrom converts configured strategies.
func StrategiesFrom(cfgs []config.StrategyConfig) ([]Strategy, error) {
	out := make([]Strategy, 0, len(cfgs))
	for _, c := range cfgs {
		class, err := evasion.ParseClass(c.Viewport)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", c.Name, err)
		}
		if c.Delay < 0 {
			return nil, fmt.Errorf("strategy %q: negative delay", c.Name)
		}
		out = append(out, Strategy{Name: c.Name, Delay: c.Delay, Class: class})
	}
	return out, nil
}

// Outcome is the terminal state of one Attempt.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeExhausted Outcome = "exhausted" // failed, and no strategy remains
)

// Attempt records one strategy execution.
type Attempt struct {
	Strategy string        `json:"strategy"`
	Delay    time.Duration `json:"delay"`
	Outcome  Outcome       `json:"outcome"`
	Cards    int           `json:"cards,omitempty"`
	Err      error         `json:"-"`
}

// Result summarises a run.
type Result struct {
	Path     string    `json:"path,omitempty"`
	Cards    int       `json:"cards"`
	Strategy string    `json:"strategy,omitempty"`
	Attempts []Attempt `json:"attempts"`
}

// Run tries each strategy in order until one persists at least one card.
// Strategies never overlap. When every strategy fails the error has code
// STRATEGIES_EXHAUSTED and wraps the last attempt's error; the Result still
// lists the attempts made.
func (s *Scraper) Run(ctx context.Context, sc site.Config) (*Result, error) {
	start := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()

	if s.preflight != nil {
		s.runPreflight(ctx, sc.HomeURL)
	}

	res := &Result{}
	var lastErr error
	for i, st := range s.strategies {
		log := slog.With("strategy", st.Name, "index", i+1, "of", len(s.strategies))

		if st.Delay > 0 {
			wait := retry.Range(st.Delay, st.Delay+s.cfg.StrategyJitter).Pick()
			log.Info("waiting before strategy", "wait", wait)
			if err := retry.Sleep(ctx, wait); err != nil {
				return res, categorizeError(err, "retrieval canceled")
			}
		}

		log.Info("starting strategy")
		path, n, err := s.attempt(ctx, st, sc)
		a := Attempt{Strategy: st.Name, Delay: st.Delay, Err: err}

		if err == nil {
			a.Outcome = OutcomeSuccess
			a.Cards = n
			res.Attempts = append(res.Attempts, a)
			res.Path, res.Cards, res.Strategy = path, n, st.Name
			metrics.StrategyAttempts.WithLabelValues(st.Name, string(a.Outcome)).Inc()
			log.Info("strategy succeeded", "cards", n, "path", path)
			return res, nil
		}

		a.Outcome = OutcomeFailure
		if i == len(s.strategies)-1 {
			a.Outcome = OutcomeExhausted
		}
		res.Attempts = append(res.Attempts, a)
		metrics.StrategyAttempts.WithLabelValues(st.Name, string(a.Outcome)).Inc()
		lastErr = err

		if ctx.Err() != nil {
			return res, categorizeError(ctx.Err(), "retrieval canceled")
		}
		log.Warn("strategy failed", "code", models.CodeOf(err), "error", err)
	}

	return res, models.NewScrapeError(models.ErrCodeExhausted,
		fmt.Sprintf("all %d strategies failed", len(s.strategies)), lastErr)
}

// runPreflight fetches the home page without a browser and reports whether
// it looks like a block page. The result is advisory only.
func (s *Scraper) runPreflight(ctx context.Context, homeURL string) {
	res, err := s.preflight.Fetch(ctx, &engine.FetchRequest{
		URL:       homeURL,
		UserAgent: evasion.DefaultUserAgents[0],
		Headers:   evasion.DefaultHeaders(),
		Timeout:   s.cfg.PreflightTimeout,
	})
	if err != nil {
		slog.Warn("preflight probe failed", "engine", s.preflight.Name(), "url", homeURL, "error", err)
		return
	}
	if phrase, blocked := detect.IsBlocked(res.HTML); blocked {
		slog.Warn("preflight probe served a block page",
			"url", homeURL, "status", res.StatusCode, "phrase", phrase)
		return
	}
	slog.Info("preflight probe ok", "url", homeURL, "status", res.StatusCode, "title", res.Title)
}
