package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// IsServiceError checks if an error is a service error
func IsServiceError(err error) bool {
	var serviceErr ServiceError
	return errors.As(err, &serviceErr)
}

// GetServiceError extracts a ServiceError from an error
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// Error code constants
const (
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeProvider       = "PROVIDER_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeDatabase       = "DATABASE_ERROR"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeNotImplemented = "NOT_IMPLEMENTED"
)

// NewConfigurationError signals that a channel was requested while disabled or
// missing its provider credentials. Fails fast, before any record is written.
func NewConfigurationError(message string) error {
	return ServiceError{
		Code:       ErrCodeConfiguration,
		Message:    message,
		StatusCode: http.StatusPreconditionFailed,
	}
}

// NewValidationError rejects malformed input before any dispatch attempt.
func NewValidationError(message string) error {
	return ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewProviderError wraps a failed provider call. The delivery record has
// already been marked failed by the time this reaches the caller.
func NewProviderError(provider string, cause error) error {
	return ServiceError{
		Code:       ErrCodeProvider,
		Message:    fmt.Sprintf("%s request failed", provider),
		Cause:      cause,
		StatusCode: http.StatusBadGateway,
	}
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewRateLimitError(channel string) error {
	return ServiceError{
		Code:       ErrCodeRateLimit,
		Message:    fmt.Sprintf("rate limit exceeded for %s channel", channel),
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewNotImplementedError covers declared-but-unbuilt behavior, like scheduled
// sends.
func NewNotImplementedError(feature string) error {
	return ServiceError{
		Code:       ErrCodeNotImplemented,
		Message:    fmt.Sprintf("%s is not implemented", feature),
		StatusCode: http.StatusNotImplemented,
	}
}

func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string) error {
	return ServiceError{
		Code:       ErrCodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string) error {
	return ServiceError{
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDatabase,
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// IsConfigurationError reports whether err is a channel/provider configuration
// failure.
func IsConfigurationError(err error) bool {
	serviceErr, ok := GetServiceError(err)
	return ok && serviceErr.Code == ErrCodeConfiguration
}

func IsNotFoundError(err error) bool {
	serviceErr, ok := GetServiceError(err)
	return ok && serviceErr.Code == ErrCodeNotFound
}

func IsValidationError(err error) bool {
	serviceErr, ok := GetServiceError(err)
	return ok && serviceErr.Code == ErrCodeValidation
}

// Error handling helpers
func WrapError(err error, code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StatusCode: http.StatusInternalServerError,
	}
}
