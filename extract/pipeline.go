package extract

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/use-agent/shelfscout/cache"
	"github.com/use-agent/shelfscout/llm"
	"github.com/use-agent/shelfscout/metrics"
	"github.com/use-agent/shelfscout/models"
)

// Completer is the extraction service. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, user string) (*llm.Completion, error)
	Model() string
}

// Failure records why one card produced no record.
type Failure struct {
	Index int
	Err   error
}

// Report is the outcome of one pipeline run.
type Report struct {
	Records  []models.Record
	Failures []Failure
	Cached   int

	// PromptTokens estimates the tokens sent, excluding cache hits.
	PromptTokens int
}

// Pipeline sends each card to the completer in order and keeps the replies
// that parse.
type Pipeline struct {
	completer Completer
	prompter  *Prompter
	format    Format
	trim      bool
	limiter   *rate.Limiter
	cache     *cache.Cache
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache serves repeated prompts from c.
func WithCache(c *cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithRate paces completer calls to rps requests per second. Zero or less
// disables pacing.
func WithRate(rps float64) Option {
	return func(p *Pipeline) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			p.limiter = nil
		}
	}
}

// WithFormat selects how cards are embedded in prompts.
func WithFormat(f Format) Option {
	return func(p *Pipeline) { p.format = f }
}

// WithTrim strips non-content markup from cards before prompting.
func WithTrim(trim bool) Option {
	return func(p *Pipeline) { p.trim = trim }
}

// NewPipeline returns a Pipeline around completer.
func NewPipeline(completer Completer, opts ...Option) *Pipeline {
	p := &Pipeline{completer: completer, format: FormatHTML}
	for _, opt := range opts {
		opt(p)
	}
	p.prompter = NewPrompter(p.format, p.trim)
	return p
}

// Run extracts one record per card. A card whose call or reply fails is
// logged and skipped, so the result may be shorter than cards. Context
// cancellation and rejected credentials abort the run; the records
// gathered so far are returned with the error.
func (p *Pipeline) Run(ctx context.Context, cards []string) (*Report, error) {
	report := &Report{Records: make([]models.Record, 0, len(cards))}

	for i, card := range cards {
		if err := ctx.Err(); err != nil {
			return report, models.NewScrapeError(models.ErrCodeTimeout, "extraction canceled", err)
		}

		rec, cached, err := p.one(ctx, card, report)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, models.NewScrapeError(models.ErrCodeTimeout, "extraction canceled", ctxErr)
			}
			if models.HasCode(err, models.ErrCodeLLMAuthFailure) {
				return report, err
			}
			slog.Warn("card extraction failed", "index", i, "error", err)
			metrics.Records.WithLabelValues("failed").Inc()
			report.Failures = append(report.Failures, Failure{Index: i, Err: err})
			continue
		}

		if cached {
			report.Cached++
			metrics.Records.WithLabelValues("cached").Inc()
		} else {
			metrics.Records.WithLabelValues("ok").Inc()
		}
		report.Records = append(report.Records, rec)
	}

	slog.Info("extraction finished",
		"cards", len(cards),
		"records", len(report.Records),
		"failed", len(report.Failures),
		"cached", report.Cached,
		"prompt_tokens_est", report.PromptTokens,
	)
	return report, nil
}

func (p *Pipeline) one(ctx context.Context, card string, report *Report) (models.Record, bool, error) {
	prompt, err := p.prompter.Build(card)
	if err != nil {
		return models.Record{}, false, models.NewScrapeError(models.ErrCodeInvalidInput, "failed to build prompt", err)
	}

	key := cache.Key(p.completer.Model(), SystemPrompt, prompt)
	if p.cache != nil {
		if text, ok := p.cache.Get(key); ok {
			rec, err := ParseRecord(text)
			return rec, err == nil, err
		}
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return models.Record{}, false, err
		}
	}

	report.PromptTokens += EstimateTokens(SystemPrompt) + EstimateTokens(prompt)
	completion, err := p.completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		var se *models.ScrapeError
		if !errors.As(err, &se) {
			err = models.NewScrapeError(models.ErrCodeLLMFailure, "completion failed", err)
		}
		return models.Record{}, false, err
	}

	rec, err := ParseRecord(completion.Text)
	if err != nil {
		return models.Record{}, false, err
	}
	if p.cache != nil {
		p.cache.Set(key, completion.Text)
	}
	return rec, false, nil
}
