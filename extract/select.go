// Package extract turns persisted card fragments into structured records
// through an external completion service.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/shelfscout/models"
)

// ClassSelector builds a CSS selector from a class name. A leading dot is
// tolerated, and whitespace-separated names must all be present.
func ClassSelector(class string) (string, error) {
	names := strings.Fields(strings.ReplaceAll(class, ".", " "))
	if len(names) == 0 {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "card class is required", nil)
	}
	sel := "." + strings.Join(names, ".")
	if _, err := cascadia.Parse(sel); err != nil {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("invalid card class %q", class), err)
	}
	return sel, nil
}

// SelectCards returns the outer HTML of every element in rawHTML carrying
// class, in document order. No match is a NO_CARDS error.
func SelectCards(rawHTML, class string) ([]string, error) {
	sel, err := ClassSelector(class)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "failed to parse card artifact", err)
	}

	var cards []string
	var renderErr error
	doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, err := goquery.OuterHtml(s)
		if err != nil {
			renderErr = err
			return false
		}
		cards = append(cards, h)
		return true
	})
	if renderErr != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to render card", renderErr)
	}
	if len(cards) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeNoCards,
			fmt.Sprintf("no element has class %q", strings.TrimPrefix(sel, ".")), nil)
	}
	return cards, nil
}
