// Package engine fetches pages without a browser. The retrieval core uses
// it to probe a site's home page before spending a browser session on it.
package engine

import (
	"context"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL       string
	UserAgent string
	Headers   map[string]string
	Timeout   time.Duration
}

// FetchResult is the output of a fetch. Error statuses with an HTML body
// are results, not errors: block pages are usually served as 403 or 503.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}
