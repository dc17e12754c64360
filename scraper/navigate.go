package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/shelfscout/browser"
	"github.com/use-agent/shelfscout/detect"
	"github.com/use-agent/shelfscout/metrics"
	"github.com/use-agent/shelfscout/models"
	"github.com/use-agent/shelfscout/retry"
)

// DefaultCloseControls dismiss cookie banners, promos and similar overlays.
// Every present control is clicked, in order.
var DefaultCloseControls = []browser.Probe{
	browser.Sel(`button[class*="close"]`),
	browser.Sel(".modal-close"),
	browser.Sel(`[aria-label="close"]`),
	browser.Sel(`[aria-label="cerrar"]`),
	browser.TextProbe("button", "×"),
	browser.TextProbe("button", "✕"),
	browser.Sel(".sui-modal-close"),
}

// Navigator loads a URL with bounded retries, checking each load for an
// anti-bot interstitial before declaring success.
type Navigator struct {
	Timeout  time.Duration
	Policy   retry.Policy // attempt limit and wait after a transport error
	Detector *detect.Detector

	Settle       retry.DelayRange
	BlockedDelay retry.DelayRange
	ModalPause   retry.DelayRange

	CloseControls []browser.Probe
}

// Navigate loads url on page. It returns nil once a load completes without
// an anti-bot indicator. A blocked load and a transport error both use up
// an attempt. When attempts run out the error is BLOCKED_PAGE if the last
// attempt was blocked, otherwise the categorised last transport error.
func (n *Navigator) Navigate(ctx context.Context, page browser.Page, url string) error {
	attempts := n.Policy.Attempts()

	var lastErr error
	for i := 1; i <= attempts; i++ {
		final := i == attempts
		log := slog.With("url", url, "attempt", i, "maxAttempts", attempts)
		log.Info("navigating")

		if err := page.Navigate(ctx, url, n.Timeout); err != nil {
			if ctx.Err() != nil {
				return categorizeError(ctx.Err(), "navigation canceled")
			}
			metrics.Navigations.WithLabelValues("error").Inc()
			log.Warn("navigation failed", "error", err)
			lastErr = err
			if final {
				break
			}
			if err := n.Policy.Delay.Wait(ctx); err != nil {
				return categorizeError(err, "navigation canceled")
			}
			continue
		}

		if err := n.Settle.Wait(ctx); err != nil {
			return categorizeError(err, "navigation canceled")
		}

		if m, blocked := n.Detector.Detect(ctx, page); blocked {
			metrics.Navigations.WithLabelValues("blocked").Inc()
			log.Warn("anti-bot page detected", "indicator", m.String())
			if final {
				return models.NewScrapeError(models.ErrCodeBlocked,
					fmt.Sprintf("%s still blocked by %s after %d attempts", url, m, attempts), nil)
			}
			if err := n.BlockedDelay.Wait(ctx); err != nil {
				return categorizeError(err, "navigation canceled")
			}
			continue
		}

		metrics.Navigations.WithLabelValues("ok").Inc()
		if err := n.dismissOverlays(ctx, page); err != nil {
			return categorizeError(err, "navigation canceled")
		}
		return nil
	}

	return categorizeError(lastErr, fmt.Sprintf("navigation to %s failed after %d attempts", url, attempts))
}

// dismissOverlays clicks every close control present on the page, pausing
// after each click. Missing controls and failed clicks are skipped; only
// cancellation is returned.
func (n *Navigator) dismissOverlays(ctx context.Context, page browser.Page) error {
	for _, probe := range n.CloseControls {
		el, found, err := page.Find(ctx, probe)
		if err != nil || !found {
			continue
		}
		if err := el.Click(ctx); err != nil {
			slog.Debug("overlay close control not clickable", "control", probe.String(), "error", err)
			continue
		}
		slog.Info("overlay closed", "control", probe.String())
		if err := n.ModalPause.Wait(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// map them to exit codes and HTTP statuses.
func categorizeError(err error, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	case errors.As(err, &se):
		return se
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
