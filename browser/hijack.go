package browser

import (
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/shelfscout/evasion"
	"github.com/use-agent/shelfscout/metrics"
)

// installFilter intercepts every request the page issues and resolves it
// through evasion.Decide. Each request is either failed or continued.
//
// The caller must Stop the returned router when the session ends.
func installFilter(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	// "*" with an empty resource type intercepts everything.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		reqURL := ctx.Request.URL().String()
		d := evasion.Decide(string(ctx.Request.Type()), reqURL)
		if d.Block {
			metrics.BlockedRequests.WithLabelValues(d.Reason).Inc()
			slog.Debug("request blocked", "reason", d.Reason, "url", reqURL)
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()

	return router
}
