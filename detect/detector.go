// Package detect recognises anti-bot interstitials: a DOM probe over the
// rendered page and a text heuristic over raw markup.
package detect

import (
	"context"
	"log/slog"

	"github.com/use-agent/shelfscout/browser"
	"github.com/use-agent/shelfscout/metrics"
)

// DefaultIndicators are probed in order; the first present one wins.
var DefaultIndicators = []browser.Probe{
	browser.Sel(`div[id*="captcha"]`),
	browser.Sel(`div[class*="captcha"]`),
	browser.Sel(`div[class*="verification"]`),
	browser.Sel(`div[class*="challenge"]`),
	browser.Sel(".sui-modal"),
	browser.Sel(`[class*="anti-robot"]`),
	browser.TextProbe("", "Por favor, selecciona los siguientes gráficos"),
	browser.TextProbe("button", "CONFIRMAR"),
}

// Match names the indicator that fired.
type Match struct {
	Indicator browser.Probe
}

func (m Match) String() string { return m.Indicator.String() }

// Detector probes a page for CAPTCHA and verification markers.
type Detector struct {
	Indicators []browser.Probe
}

// New returns a Detector over DefaultIndicators.
func New() *Detector {
	return &Detector{Indicators: DefaultIndicators}
}

// Detect reports the first indicator present on page. A probe that cannot
// be evaluated counts as absent and probing moves on.
func (d *Detector) Detect(ctx context.Context, page browser.Page) (Match, bool) {
	for _, probe := range d.Indicators {
		if ctx.Err() != nil {
			return Match{}, false
		}
		_, found, err := page.Find(ctx, probe)
		if err != nil {
			slog.Debug("indicator probe failed", "indicator", probe.String(), "error", err)
			continue
		}
		if found {
			metrics.Detections.WithLabelValues(probe.String()).Inc()
			return Match{Indicator: probe}, true
		}
	}
	return Match{}, false
}
