// Package site resolves the per-site selectors and URLs a retrieval run
// uses. A Config is built once from the command line and never changed.
package site

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/shelfscout/browser"
)

// Config is the resolved site configuration for one run.
type Config struct {
	Name            string
	HomeURL         string
	SearchTerm      string
	CardSelector    string
	DirectSearchURL string
	SearchInputs    []browser.Probe
}

// Resolve picks the site configuration for baseURL by hostname and binds
// it to term.
func Resolve(baseURL, term string) (Config, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Config{}, fmt.Errorf("search term is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return Config{}, fmt.Errorf("invalid base url %q", baseURL)
	}
	host := strings.ToLower(u.Hostname())

	var cfg Config
	if strings.Contains(host, "mercadolibre") {
		cfg = mercadoLibre(u, host, term)
	} else {
		cfg = catalog(u, term)
	}
	cfg.HomeURL = baseURL
	cfg.SearchTerm = term

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mercadoLibre serves every MercadoLibre country site; listings live on
// the "listado." subdomain of the same registrable domain.
func mercadoLibre(u *url.URL, host, term string) Config {
	domain := host[strings.Index(host, "mercadolibre"):]
	return Config{
		Name:            "mercadolibre",
		CardSelector:    "li.ui-search-layout__item",
		DirectSearchURL: u.Scheme + "://listado." + domain + "/" + url.PathEscape(term),
		SearchInputs: []browser.Probe{
			browser.Sel("input#cb1-edit"),
			browser.Sel(`input[placeholder="Buscar"]`),
		},
	}
}

// catalog is the default layout: product-card grids with a /pdsearch path.
func catalog(u *url.URL, term string) Config {
	base := strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/")
	return Config{
		Name:         "catalog",
		CardSelector: "div.product-card",
		DirectSearchURL: fmt.Sprintf(
			"%s/pdsearch/%s/?ici=s1%%60EditSearch%%60%s%%60_fb%%60d0%%60PageHome&search_source=1&search_type=all&source=search",
			base, url.PathEscape(term), url.QueryEscape(term),
		),
		SearchInputs: []browser.Probe{
			browser.Sel(`input[placeholder*="Search"]`),
			browser.Sel(`input[placeholder*="Buscar"]`),
			browser.Sel(`input[type="search"]`),
			browser.Sel(".search-input"),
			browser.Sel(`[data-testid="search-input"]`),
		},
	}
}

// Validate checks that every selector parses.
func (c Config) Validate() error {
	if _, err := cascadia.Parse(c.CardSelector); err != nil {
		return fmt.Errorf("card selector %q: %w", c.CardSelector, err)
	}
	for _, p := range c.SearchInputs {
		if _, err := cascadia.Parse(p.Selector); err != nil {
			return fmt.Errorf("search input selector %q: %w", p.Selector, err)
		}
	}
	return nil
}
