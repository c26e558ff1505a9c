package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
)

var messages = map[string]string{
	"unauthenticated": "You must be signed in",
	"forbidden":       "You don't have permission to do that",
	"not_found":       "Not found",
	"conflict":        "Someone else changed this at the same time, please retry",
	"not_open":        "Grant is not accepting applications",
	"deadline_passed": "Grant deadline has passed",
	"already_applied": "You have already applied to this grant with this project",
	"invalid_input":   "Invalid request",
	"internal":        "Something went wrong. Please try again.",
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyApplied):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotOpen), errors.Is(err, apperr.ErrDeadlinePassed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError renders err as a short message keyed to its failure kind.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	kind := apperr.Kind(err)
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	body := gin.H{"error": messages[kind], "code": kind}
	if apperr.Retryable(err) {
		body["retryable"] = true
	}
	c.JSON(status, body)
}
