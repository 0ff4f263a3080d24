package apihandlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"veracity/internal/consensus"
	"veracity/internal/store"
	"veracity/internal/verification"
	"veracity/pkg/classifier"
)

// APIError defines standard error response
// Example: { "error": { "code": "bad_request", "message": "text is required" } }
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
	// Data carries the degraded result when one exists (local fallback).
	Data any `json:"data,omitempty"`
}

// JSONError sends a structured error response
func JSONError(ctx *gin.Context, status int, code, msg string) {
	ctx.JSON(status, errorResponse{Error: APIError{Code: code, Message: msg}, RequestID: requestID(ctx)})
}

// Convenience wrappers
func BadRequest(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusBadRequest, "bad_request", msg)
}

func NotFound(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusNotFound, "not_found", msg)
}

func Internal(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusInternalServerError, "internal_error", msg)
}

func Conflict(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusConflict, "conflict", msg)
}

func Unavailable(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusServiceUnavailable, "unavailable", msg)
}

// ProvidersUnavailable reports that no external provider answered. The
// local fallback result goes along in data.
func ProvidersUnavailable(ctx *gin.Context, msg string, fallback any) {
	ctx.JSON(http.StatusBadGateway, errorResponse{
		Error:     APIError{Code: "providers_unavailable", Message: msg},
		RequestID: requestID(ctx),
		Data:      fallback,
	})
}

// respondError maps engine errors onto HTTP statuses.
func respondError(ctx *gin.Context, err error, fallback any) {
	switch {
	case errors.Is(err, classifier.ErrInvalidInput), errors.Is(err, verification.ErrInvalidSubmission):
		BadRequest(ctx, err.Error())
	case errors.Is(err, consensus.ErrAllProvidersFailed):
		ProvidersUnavailable(ctx, err.Error(), fallback)
	case errors.Is(err, store.ErrNotFound):
		NotFound(ctx, err.Error())
	case errors.Is(err, store.ErrDuplicateJob):
		Conflict(ctx, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		Unavailable(ctx, err.Error())
	default:
		log.WithField("request_id", requestID(ctx)).Errorf("Request failed: %v", err)
		Internal(ctx, "internal error")
	}
}
