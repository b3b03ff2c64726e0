package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyhaven/keyhaven/internal/domain"
)

// respondError maps domain errors onto HTTP status codes and writes the
// JSON error body.
// Parameters:
//   - c: Gin request context.
//   - err: error to surface.
// Returns: none (writes JSON response).
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrJobNotPendingReview),
		errors.Is(err, domain.ErrPendingDecisionsRemain),
		errors.Is(err, domain.ErrJobProcessing),
		errors.Is(err, domain.ErrRowNotAwaitingReview):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidDecision),
		errors.Is(err, domain.ErrOverwriteNotSubset):
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
