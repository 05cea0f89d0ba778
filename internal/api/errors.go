package api

import (
	"errors"
	"net/http"

	"library-rental/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// respondError translates lifecycle errors into HTTP responses. Conflicts
// carry a retryable hint so clients know to resubmit.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)

	body := gin.H{"error": err.Error()}
	if apperrors.IsRetryable(err) {
		body["retryable"] = true
	}

	c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrInvalidTransition), errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
