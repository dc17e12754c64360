package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfscout/extract"
	"github.com/use-agent/shelfscout/models"
)

// Extractor runs the extraction stage over one artifact. *extract.Stage
// satisfies it.
type Extractor interface {
	Run(ctx context.Context, artifact, class string) (*extract.Output, error)
}

// Extract returns a handler for POST /api/v1/extract. The run is
// synchronous and bound to the request context.
func Extract(ex Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		out, err := ex.Run(c.Request.Context(), req.Artifact, req.CardClass)
		if err != nil {
			detail := models.DetailOf(err)
			resp := models.ExtractResponse{
				Records: []models.Record{},
				TookMs:  time.Since(start).Milliseconds(),
				Error:   detail,
			}
			if out != nil {
				resp.Cards = out.Cards
			}
			c.JSON(statusFor(detail.Code), resp)
			return
		}

		c.JSON(http.StatusOK, models.ExtractResponse{
			Success: true,
			Output:  out.Path,
			Cards:   out.Cards,
			Failed:  len(out.Report.Failures),
			Cached:  out.Report.Cached,
			Records: out.Report.Records,
			TookMs:  time.Since(start).Milliseconds(),
		})
	}
}
