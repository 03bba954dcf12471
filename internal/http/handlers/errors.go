package handlers

import (
	"errors"
	"net/http"

	"flightbook/internal/domain"
	"flightbook/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
		Details:   details,
	})
}

// RespondDomainError maps domain errors to HTTP responses and returns the
// status written. Conflicts are 400.
func RespondDomainError(c *gin.Context, err error) int {
	var (
		ve domain.ValidationError
		ce domain.ConflictError
		ae domain.AuthError
		fe domain.ForbiddenError
	)
	switch {
	case errors.As(err, &ve):
		var details any
		if issues := ve.AllIssues(); len(issues) > 0 {
			details = issues
		}
		respondError(c, http.StatusBadRequest, "validation_error", ve.Error(), details)
		return http.StatusBadRequest
	case errors.As(err, &ce):
		respondError(c, http.StatusBadRequest, "conflict", ce.Msg, nil)
		return http.StatusBadRequest
	case errors.As(err, &ae):
		respondError(c, http.StatusUnauthorized, "unauthorized", ae.Error(), nil)
		return http.StatusUnauthorized
	case errors.As(err, &fe):
		respondError(c, http.StatusForbidden, "forbidden", fe.Error(), nil)
		return http.StatusForbidden
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
		return http.StatusNotFound
	case domain.IsGateway(err):
		respondError(c, http.StatusBadGateway, "gateway_error", "payment gateway unavailable", nil)
		return http.StatusBadGateway
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return http.StatusInternalServerError
	}
}
