// Package browser is the narrow surface the retrieval core drives: a page
// that can navigate, probe for elements and report its markup, inside a
// session that is released exactly once.
package browser

import (
	"context"
	"time"

	"github.com/use-agent/shelfscout/evasion"
)

// Probe locates an element by CSS selector, optionally narrowed to elements
// whose text contains Text. A probe with only Text searches the page body.
type Probe struct {
	Selector string
	Text     string
}

// Sel is a selector-only probe.
func Sel(selector string) Probe { return Probe{Selector: selector} }

// TextProbe matches elements under selector whose text contains text.
func TextProbe(selector, text string) Probe { return Probe{Selector: selector, Text: text} }

func (p Probe) String() string {
	switch {
	case p.Text == "":
		return p.Selector
	case p.Selector == "":
		return "text=" + p.Text
	default:
		return p.Selector + ":has-text(" + p.Text + ")"
	}
}

// Element is a located DOM node.
type Element interface {
	Click(ctx context.Context) error
	// TypeRune sends a single character as a keystroke.
	TypeRune(ctx context.Context, r rune) error
	PressEnter(ctx context.Context) error
}

// Page is one browser tab.
type Page interface {
	// Navigate loads url and waits for DOMContentLoaded, failing after timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Reload(ctx context.Context, timeout time.Duration) error

	// Find returns the first element matching p without waiting for it to
	// appear. found is false when nothing matches; err reports a probe that
	// could not be evaluated.
	Find(ctx context.Context, p Probe) (el Element, found bool, err error)

	// OuterHTMLAll returns the outer markup of every element matching
	// selector, in document order.
	OuterHTMLAll(ctx context.Context, selector string) ([]string, error)

	ScrollTo(ctx context.Context, y int) error
	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
}

// Session owns one browser process and its page.
type Session interface {
	Page() Page
	Close() error
}

// Launcher starts a fresh session presenting profile.
type Launcher interface {
	Launch(ctx context.Context, profile evasion.Profile) (Session, error)
}
