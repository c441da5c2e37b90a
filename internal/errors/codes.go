// Package errors builds gofulmen error envelopes for kundli and renders them
// as JSON error bodies.
package errors

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
)

const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeValidation       = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeConflict         = "CONFLICT"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeDatabase         = "DATABASE_ERROR"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeConfigInvalid    = "CONFIG_INVALID"
)

// Codes missing here answer 500.
var codeStatus = map[string]int{
	CodeInvalidInput:     http.StatusBadRequest,
	CodeValidation:       http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeUnauthorized:     http.StatusUnauthorized,
	CodeForbidden:        http.StatusForbidden,
	CodeMethodNotAllowed: http.StatusMethodNotAllowed,
	CodeConflict:         http.StatusConflict,
	CodePayloadTooLarge:  http.StatusRequestEntityTooLarge,
	CodeUnsupportedMedia: http.StatusUnsupportedMediaType,
	CodeRateLimited:      http.StatusTooManyRequests,
	CodeTimeout:          http.StatusGatewayTimeout,
	CodeExternalService:  http.StatusBadGateway,
	CodeUnavailable:      http.StatusServiceUnavailable,
}

func HTTPStatusFromCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewValidationError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeValidation, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewUnauthorizedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeUnauthorized, message)
}

func NewForbiddenError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeForbidden, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewConflictError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConflict, message)
}

func NewPayloadTooLargeError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodePayloadTooLarge, message)
}

func NewUnsupportedMediaError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeUnsupportedMedia, message)
}

// NewRateLimitedError is for admin login throttling. Guidance rate limiting
// answers with a localized GuidanceResult instead.
func NewRateLimitedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeRateLimited, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewExternalServiceError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeExternalService, message)
}

func NewUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeUnavailable, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}
