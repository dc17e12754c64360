package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfscout/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health. Status is "busy" while
// a retrieval run holds the browser slot.
func Health(rs *RetrieveService, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		busy := rs.Busy()
		status := "healthy"
		if busy {
			status = "busy"
		}
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Busy:    busy,
			Version: Version,
		})
	}
}
