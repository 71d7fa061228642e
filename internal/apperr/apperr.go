// Package apperr provides standardized error handling for the catalog service.
package apperr

import (
	"fmt"
	"net/http"
)

// Code classifies an error for clients and for HTTP status mapping.
type Code string

const (
	// Validation errors
	Validation Code = "VALIDATION" // Required field missing or malformed input
	MediaSize  Code = "MEDIA_SIZE" // Upload exceeds the per-kind size cap
	MediaType  Code = "MEDIA_TYPE" // Upload MIME type not allowed

	// Authentication/authorization failures
	Authn Code = "AUTHN" // Not authenticated or bad credentials
	Authz Code = "AUTHZ" // Authenticated but not permitted

	// Resource errors
	NotFound Code = "NOT_FOUND"
	Conflict Code = "CONFLICT"

	// Rate limiting
	RateLimit Code = "RATE_LIMIT"

	// Server errors
	Unavailable Code = "UNAVAILABLE" // Upstream dependency (store) unreachable
	Internal    Code = "INTERNAL"
)

// Error is a classified service error carrying the HTTP status it maps to.
type Error struct {
	Code          Code   `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
	HTTPStatus    int    `json:"-"`
}

// New creates an Error with the status derived from its code.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: statusForCode(code),
	}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// statusForCode maps error codes to HTTP status codes.
func statusForCode(code Code) int {
	switch code {
	case Validation, MediaSize, MediaType:
		return http.StatusBadRequest
	case Authn:
		return http.StatusUnauthorized
	case Authz:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case RateLimit:
		return http.StatusTooManyRequests
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
