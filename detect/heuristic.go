package detect

import (
	"strings"

	"golang.org/x/net/html"
)

// blockPhrases are lower-case fragments of interstitial pages served in
// place of content.
var blockPhrases = []string{
	"verificación de seguridad",
	"access denied",
	"robot check",
	"temporarily unavailable",
	"please enable cookies",
}

// IsBlocked reports whether raw markup contains a blocked-page phrase,
// case-insensitively, and returns the phrase. Script and style contents
// are ignored when the markup parses; otherwise the raw string is searched.
func IsBlocked(rawHTML string) (string, bool) {
	haystack := strings.ToLower(visibleText(rawHTML))
	for _, phrase := range blockPhrases {
		if strings.Contains(haystack, phrase) {
			return phrase, true
		}
	}
	return "", false
}

func visibleText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}
