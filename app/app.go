// Package app assembles the retrieval and extraction stages from
// configuration. The binaries under cmd/ share it.
package app

import (
	"github.com/use-agent/shelfscout/browser"
	"github.com/use-agent/shelfscout/cache"
	"github.com/use-agent/shelfscout/config"
	"github.com/use-agent/shelfscout/engine"
	"github.com/use-agent/shelfscout/evasion"
	"github.com/use-agent/shelfscout/extract"
	"github.com/use-agent/shelfscout/llm"
	"github.com/use-agent/shelfscout/scraper"
	"github.com/use-agent/shelfscout/storage"
)

// NewStore returns the artifact store for cfg.
func NewStore(cfg *config.Config) *storage.Store {
	return storage.New(cfg.Output.HTMLDir, cfg.Output.DataDir)
}

// NewScraper wires a Scraper driving Rod-launched browsers. With
// preflight enabled the home page is probed over Chrome-like TLS first.
func NewScraper(cfg *config.Config) (*scraper.Scraper, error) {
	sc, err := scraper.New(
		browser.NewRodLauncher(cfg.Browser),
		evasion.NewGenerator(cfg.Browser.UserAgents),
		NewStore(cfg),
		cfg.Retrieval,
		cfg.Output.SnapshotPath,
	)
	if err != nil {
		return nil, err
	}
	if cfg.Retrieval.Preflight {
		sc.SetPreflight(engine.NewHTTPEngine())
	}
	return sc, nil
}

// NewStage wires the extraction stage. The returned func releases the
// completion cache.
func NewStage(cfg *config.Config) (*extract.Stage, func()) {
	opts := []extract.Option{
		extract.WithRate(cfg.LLM.RequestsPerSecond),
		extract.WithFormat(extract.Format(cfg.LLM.PromptFormat)),
		extract.WithTrim(cfg.LLM.TrimCards),
	}

	release := func() {}
	if cfg.Cache.MaxEntries > 0 {
		c := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		opts = append(opts, extract.WithCache(c))
		release = c.Close
	}

	stage := &extract.Stage{
		Store:    NewStore(cfg),
		Pipeline: extract.NewPipeline(llm.NewClient(cfg.LLM, nil), opts...),
	}
	return stage, release
}
