// Package scraper is the retrieval core: it sequences strategies, each in
// its own browser session, until one collects product cards.
package scraper

import (
	"fmt"
	"time"

	"github.com/use-agent/shelfscout/browser"
	"github.com/use-agent/shelfscout/config"
	"github.com/use-agent/shelfscout/detect"
	"github.com/use-agent/shelfscout/engine"
	"github.com/use-agent/shelfscout/evasion"
	"github.com/use-agent/shelfscout/storage"
)

// Scraper runs retrieval attempts. Attempts never overlap: Run drives one
// browser session at a time.
type Scraper struct {
	launcher     browser.Launcher
	profiles     *evasion.Generator
	store        *storage.Store
	detector     *detect.Detector
	nav          *Navigator
	interact     *Interactor
	strategies   []Strategy
	cfg          config.RetrievalConfig
	snapshotPath string

	preflight engine.Engine
	now       func() time.Time
}

// New wires a Scraper from the retrieval configuration.
func New(
	launcher browser.Launcher,
	profiles *evasion.Generator,
	store *storage.Store,
	cfg config.RetrievalConfig,
	snapshotPath string,
) (*Scraper, error) {
	strategies, err := StrategiesFrom(cfg.Strategies)
	if err != nil {
		return nil, err
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("at least one retrieval strategy is required")
	}

	detector := detect.New()
	nav := &Navigator{
		Timeout:       cfg.NavigationTimeout,
		Policy:        cfg.Navigation,
		Detector:      detector,
		Settle:        cfg.Settle,
		BlockedDelay:  cfg.BlockedDelay,
		ModalPause:    cfg.ModalPause,
		CloseControls: DefaultCloseControls,
	}

	return &Scraper{
		launcher: launcher,
		profiles: profiles,
		store:    store,
		detector: detector,
		nav:      nav,
		interact: &Interactor{
			Navigator:    nav,
			FocusDelay:   cfg.FocusDelay,
			KeyDelay:     cfg.KeyDelay,
			ResultsDelay: cfg.ResultsDelay,
			ScrollDelay:  cfg.ScrollDelay,
			ScrollStep:   cfg.ScrollStep,
			ScrollMax:    cfg.ScrollMax,
		},
		strategies:   strategies,
		cfg:          cfg,
		snapshotPath: snapshotPath,
		now:          time.Now,
	}, nil
}

// SetPreflight sets the engine used to probe the home page over plain HTTP
// before the first strategy. Nil disables the probe.
func (s *Scraper) SetPreflight(e engine.Engine) {
	s.preflight = e
}

// Strategies returns the configured strategy sequence.
func (s *Scraper) Strategies() []Strategy {
	return append([]Strategy(nil), s.strategies...)
}
