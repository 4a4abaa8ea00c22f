package http

import (
	"errors"
	"net/http"

	"estate_crm/internal/entities"
	"estate_crm/internal/infrastructure"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrInvalidInput), errors.Is(err, entities.ErrEmptyAnswer),
		errors.Is(err, entities.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, entities.ErrForbidden), errors.Is(err, entities.ErrAccountBlocked),
		errors.Is(err, entities.ErrAccountInactive), errors.Is(err, entities.ErrAccountPending):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrConflict), errors.Is(err, entities.ErrInvalidTransition),
		errors.Is(err, entities.ErrInterviewComplete), errors.Is(err, entities.ErrApplicationDecided):
		return http.StatusConflict
	case errors.Is(err, entities.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Internal errors are logged by
// RequestTracing and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		infrastructure.SpanError(c.Request.Context(), err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
