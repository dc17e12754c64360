package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are removed from cards before prompting when trimming is on.
var noiseSelectors = []string{"script", "style", "noscript", "svg", "iframe", "link", "meta", "template"}

// keptAttrs survive trimming; everything else is dropped.
var keptAttrs = map[string]bool{
	"href": true, "src": true, "srcset": true, "alt": true, "title": true,
	"class": true, "id": true, "content": true, "datetime": true,
	"data-src": true, "data-id": true, "data-item-id": true, "data-sku": true,
}

// TrimCard strips non-content elements and presentational attributes from
// a card fragment. On parse failure the fragment is returned unchanged.
func TrimCard(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	doc.Find(strings.Join(noiseSelectors, ", ")).Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if keptAttrs[strings.ToLower(a.Key)] {
				kept = append(kept, a)
			}
		}
		n.Attr = kept
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(body)
}

// EstimateTokens approximates a prompt's token count as runes / 3.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	if n < 3 {
		return 1
	}
	return n / 3
}
