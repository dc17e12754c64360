package scraper

import (
	"context"
	"log/slog"

	"github.com/use-agent/shelfscout/browser"
	"github.com/use-agent/shelfscout/detect"
	"github.com/use-agent/shelfscout/metrics"
	"github.com/use-agent/shelfscout/models"
	"github.com/use-agent/shelfscout/retry"
	"github.com/use-agent/shelfscout/site"
	"github.com/use-agent/shelfscout/storage"
)

// attempt runs one strategy end to end in a fresh browser session and
// returns the path of the persisted card batch. The session is closed on
// every return path.
func (s *Scraper) attempt(ctx context.Context, st Strategy, sc site.Config) (string, int, error) {
	log := slog.With("strategy", st.Name)

	profile := s.profiles.GenerateClass(st.Class)
	log.Info("launching browser session",
		"userAgent", profile.UserAgent,
		"width", profile.Viewport.Width,
		"height", profile.Viewport.Height,
		"mobile", profile.Viewport.Mobile,
	)

	session, err := s.launcher.Launch(ctx, profile)
	if err != nil {
		return "", 0, categorizeError(err, "failed to start browser session")
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("browser session close failed", "error", err)
		}
	}()
	page := session.Page()

	if err := s.nav.Navigate(ctx, page, sc.HomeURL); err != nil {
		return "", 0, err
	}
	if err := s.cfg.HomeDelay.Wait(ctx); err != nil {
		return "", 0, categorizeError(err, "attempt canceled")
	}

	if err := s.interact.Search(ctx, page, sc); err != nil {
		return "", 0, categorizeError(err, "attempt canceled")
	}

	if m, blocked := s.detector.Detect(ctx, page); blocked {
		log.Warn("anti-bot page persists after search", "indicator", m.String())
		if err := s.recoverFromBlock(ctx, page); err != nil {
			return "", 0, categorizeError(err, "attempt canceled")
		}
	}

	if err := s.interact.Scroll(ctx, page); err != nil {
		return "", 0, categorizeError(err, "attempt canceled")
	}

	cards, err := CollectCards(ctx, page, sc.CardSelector)
	if err != nil {
		if models.HasCode(err, models.ErrCodeNoCards) {
			s.diagnose(ctx, page, log)
		}
		return "", 0, err
	}

	path, err := s.store.WriteCards(sc.SearchTerm, s.now(), cards)
	if err != nil {
		return "", 0, err
	}
	metrics.CardsCollected.Add(float64(len(cards)))
	log.Info("cards saved", "path", path, "cards", len(cards))
	return path, len(cards), nil
}

// recoverFromBlock saves a screenshot for offline inspection, waits out
// the interstitial and reloads. It does not check again whether the page
// is still blocked; card collection decides whether the attempt worked.
func (s *Scraper) recoverFromBlock(ctx context.Context, page browser.Page) error {
	if png, err := page.Screenshot(ctx); err != nil {
		slog.Warn("diagnostic screenshot failed", "error", err)
	} else if err := storage.WriteSnapshot(s.snapshotPath, png); err != nil {
		slog.Warn("diagnostic screenshot not saved", "path", s.snapshotPath, "error", err)
	} else {
		slog.Info("diagnostic screenshot saved", "path", s.snapshotPath)
	}

	wait := s.cfg.CaptchaCooldown.Pick()
	slog.Info("waiting before reload", "wait", wait)
	if err := retry.Sleep(ctx, wait); err != nil {
		return err
	}

	if err := page.Reload(ctx, s.cfg.NavigationTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("reload failed", "error", err)
	}
	return s.cfg.ReloadSettle.Wait(ctx)
}

// diagnose runs the markup heuristic over a page that produced no cards so
// the log says whether an interstitial was served.
func (s *Scraper) diagnose(ctx context.Context, page browser.Page, log *slog.Logger) {
	body, err := page.HTML(ctx)
	if err != nil {
		log.Debug("page markup unavailable for diagnosis", "error", err)
		return
	}
	if phrase, blocked := detect.IsBlocked(body); blocked {
		log.Warn("no cards: page looks like a block page", "phrase", phrase)
		return
	}
	log.Info("no cards: page not recognised as a block page")
}
