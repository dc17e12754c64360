package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfscout/models"
)

// statusFor translates error codes to HTTP status codes.
func statusFor(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeUnauthorized, models.ErrCodeLLMAuthFailure:
		return http.StatusUnauthorized
	case models.ErrCodeNoCards:
		return http.StatusUnprocessableEntity
	case models.ErrCodeBusy:
		return http.StatusConflict
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case models.ErrCodeNavigation, models.ErrCodeBlocked, models.ErrCodeExhausted, models.ErrCodeLLMFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	detail := models.DetailOf(err)
	c.AbortWithStatusJSON(statusFor(detail.Code), models.ErrorResponse{Error: detail})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
		Error: &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: msg},
	})
}
