package handlers

import (
	"context"
	"errors"
	"net/http"

	"mito-gallery-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrEntityNotFound):
		return http.StatusNotFound

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidNeuronID),
		errors.Is(err, domain.ErrInvalidEntityID),
		errors.Is(err, domain.ErrInvalidPageParam):
		return http.StatusBadRequest

	// Client went away
	case errors.Is(err, context.Canceled):
		return 499

	// Upstream errors
	case errors.Is(err, domain.ErrRenderTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides the details of unexpected errors.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError && !errors.Is(err, domain.ErrCacheIO) {
		return "internal server error"
	}
	return err.Error()
}

func mapDomainError(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, gin.H{"error": publicMessage(err, status)})
}
