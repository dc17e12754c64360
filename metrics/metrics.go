// Package metrics registers the Prometheus collectors shared by the
// retrieval core, the extraction pipeline and the HTTP service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlockedRequests counts outbound browser requests refused by the
	// request policy, by reason.
	BlockedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shelfscout",
		Name:      "blocked_requests_total",
		Help:      "Browser requests blocked by the request filter.",
	}, []string{"reason"})

	// Navigations counts navigation attempts by result
	// (ok, blocked, error).
	Navigations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shelfscout",
		Name:      "navigation_attempts_total",
		Help:      "Navigation attempts by result.",
	}, []string{"result"})

	// Detections counts anti-bot indicators found, by matching probe.
	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shelfscout",
		Name:      "antibot_detections_total",
		Help:      "Anti-bot indicators found on rendered pages.",
	}, []string{"indicator"})

	// StrategyAttempts counts strategy attempts by strategy and outcome.
	StrategyAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shelfscout",
		Name:      "strategy_attempts_total",
		Help:      "Retrieval strategy attempts by outcome.",
	}, []string{"strategy", "outcome"})

	// CardsCollected counts card fragments persisted.
	CardsCollected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shelfscout",
		Name:      "cards_collected_total",
		Help:      "Card fragments written to retrieval artifacts.",
	})

	// Records counts extraction results by outcome (ok, failed, cached).
	Records = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shelfscout",
		Name:      "extraction_records_total",
		Help:      "Field extraction results by outcome.",
	}, []string{"outcome"})

	// RetrievalDuration observes whole retrieval runs.
	RetrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shelfscout",
		Name:      "retrieval_duration_seconds",
		Help:      "Wall time of retrieval runs.",
		Buckets:   []float64{10, 30, 60, 120, 180, 300, 600},
	})
)
