package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest       ErrorCode = "bad_request"
	errCodeNotFound         ErrorCode = "not_found"
	errCodeValidationFailed ErrorCode = "validation_failed"
	errCodeForbidden        ErrorCode = "forbidden"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
	errCodeStoreError    ErrorCode = "store_error"
	errCodeUnavailable   ErrorCode = "unavailable"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}

	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusNotFound, errCodeNotFound, message, details...)
}

// respondValidationError sends a 422 Unprocessable Entity response
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusUnprocessableEntity, errCodeValidationFailed, "Validation failed", details)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}

// respondDomainError maps a domain error to its HTTP shape
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrComplianceDenied), errors.Is(err, domain.ErrSecurityViolation):
		respondWithError(c, http.StatusForbidden, errCodeForbidden, "Action not permitted", err.Error())
	case errors.Is(err, domain.ErrPoolNotFound):
		respondNotFound(c, "Pool not found")
	case errors.Is(err, domain.ErrInvalidEventType), errors.Is(err, domain.ErrEmptyActor),
		errors.Is(err, domain.ErrUnbalancedJournal):
		respondValidationError(c, err.Error())
	case errors.Is(err, domain.ErrStoreWriteFailed):
		logger.Error(err)
		respondWithError(c, http.StatusServiceUnavailable, errCodeUnavailable, "Write temporarily unavailable")
	case errors.Is(err, domain.ErrStoreReadFailed):
		logger.Error(err)
		respondWithError(c, http.StatusServiceUnavailable, errCodeStoreError, "Read temporarily unavailable")
	default:
		respondInternalError(c, err, "Unexpected error")
	}
}
