package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/shelfscout/browser"
	"github.com/use-agent/shelfscout/retry"
	"github.com/use-agent/shelfscout/site"
)

// Interactor drives the page the way a visitor would: typing a search one
// key at a time and scrolling in steps.
type Interactor struct {
	Navigator *Navigator

	FocusDelay   retry.DelayRange
	KeyDelay     retry.DelayRange
	ResultsDelay retry.DelayRange
	ScrollDelay  retry.DelayRange

	ScrollStep int
	ScrollMax  int
}

// FirstMatch returns the element for the first probe present on page.
// Later probes are only consulted when earlier ones find nothing; a probe
// that cannot be evaluated counts as absent.
func FirstMatch(ctx context.Context, page browser.Page, probes []browser.Probe) (browser.Element, browser.Probe, bool) {
	for _, p := range probes {
		el, found, err := page.Find(ctx, p)
		if err != nil {
			slog.Debug("probe failed", "probe", p.String(), "error", err)
			continue
		}
		if found {
			return el, p, true
		}
	}
	return nil, browser.Probe{}, false
}

// Search submits sc.SearchTerm through the site's search box. When no box
// is found or typing fails, it navigates to sc.DirectSearchURL instead.
// A failed fallback is logged; only cancellation is returned.
func (in *Interactor) Search(ctx context.Context, page browser.Page, sc site.Config) error {
	el, probe, ok := FirstMatch(ctx, page, sc.SearchInputs)
	if ok {
		slog.Info("search input found", "input", probe.String())
		err := in.typeQuery(ctx, el, sc.SearchTerm)
		if err == nil {
			slog.Info("search submitted", "term", sc.SearchTerm)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("search interaction failed, using direct search url", "input", probe.String(), "error", err)
	} else {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Info("no search input found, using direct search url")
	}

	if err := in.Navigator.Navigate(ctx, page, sc.DirectSearchURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("direct search navigation failed", "url", sc.DirectSearchURL, "error", err)
	}
	return nil
}

func (in *Interactor) typeQuery(ctx context.Context, el browser.Element, term string) error {
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("focus search input: %w", err)
	}
	if err := in.FocusDelay.Wait(ctx); err != nil {
		return err
	}
	for _, r := range term {
		if err := el.TypeRune(ctx, r); err != nil {
			return fmt.Errorf("type %q: %w", r, err)
		}
		if err := in.KeyDelay.Wait(ctx); err != nil {
			return err
		}
	}
	if err := el.PressEnter(ctx); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	return in.ResultsDelay.Wait(ctx)
}

// Scroll moves the viewport from the top to ScrollMax in ScrollStep
// increments so lazily loaded cards render. A failed step stops scrolling
// early; only cancellation is returned.
func (in *Interactor) Scroll(ctx context.Context, page browser.Page) error {
	step := in.ScrollStep
	if step < 1 {
		step = 1
	}
	for y := 0; y <= in.ScrollMax; y += step {
		if err := page.ScrollTo(ctx, y); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("scroll step failed", "y", y, "error", err)
			return nil
		}
		if err := in.ScrollDelay.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
