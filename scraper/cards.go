package scraper

import (
	"context"
	"fmt"

	"github.com/use-agent/shelfscout/browser"
	"github.com/use-agent/shelfscout/models"
)

// CollectCards returns the outer markup of every element matching selector,
// in document order. No match is a NO_CARDS error, which the orchestrator
// treats as a reason to try the next strategy.
func CollectCards(ctx context.Context, page browser.Page, selector string) ([]string, error) {
	cards, err := page.OuterHTMLAll(ctx, selector)
	if err != nil {
		return nil, categorizeError(err, "failed to read card markup")
	}
	if len(cards) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeNoCards,
			fmt.Sprintf("no elements match %q", selector), nil)
	}
	return cards, nil
}
