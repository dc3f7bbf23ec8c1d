// Package errors defines custom error types and error handling utilities for the CrediFace service.
// This package provides structured error types that map to HTTP status codes.
package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"

	"github.com/credicefi/crediface/pkg/constants"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// AppError represents a structured error with additional metadata
type AppError interface {
	error

	// Code returns the machine-readable error code
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a human-readable description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) AppError

	// WithMetadata adds additional context metadata
	WithMetadata(key string, value interface{}) AppError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	code        constants.ErrorCode
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

func (e *baseError) Error() string {
	msg := e.message
	if msg == "" {
		msg = e.description
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *baseError) Code() constants.ErrorCode { return e.code }

func (e *baseError) HTTPStatus() int { return e.httpStatus }

func (e *baseError) Description() string { return e.description }

func (e *baseError) Unwrap() error { return e.cause }

// WithCause adds a cause error to the error chain
func (e *baseError) WithCause(cause error) AppError {
	e.cause = cause
	return e
}

// WithMetadata adds additional context metadata
func (e *baseError) WithMetadata(key string, value interface{}) AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

func (e *baseError) Metadata() map[string]interface{} { return e.metadata }

// ================================================================================
// Error Constructor
// ================================================================================

// NewError creates a new AppError with the specified parameters
func NewError(code constants.ErrorCode, httpStatus int, description string, message string) AppError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Predefined Error Constructors
// ================================================================================

// ErrInvalidRequest creates an invalid_request error
func ErrInvalidRequest(message string) AppError {
	return NewError(
		constants.ErrCodeInvalidRequest,
		http.StatusBadRequest,
		"The request is missing a required parameter or includes an invalid parameter value.",
		message,
	)
}

// ErrConfigurationNotFound is returned when no configuration exists for a tenant.
func ErrConfigurationNotFound(tenantID string) AppError {
	return NewError(
		constants.ErrCodeConfigurationNotFound,
		http.StatusNotFound,
		"No configuration exists for the requested institution.",
		fmt.Sprintf("configuration not found for tenant %q", tenantID),
	).WithMetadata("tenant_id", tenantID)
}

// ErrDataUnavailable is returned when a tenant's historical dataset cannot be read
// or the tenant configuration is unusable.
func ErrDataUnavailable(tenantID string, reason string) AppError {
	return NewError(
		constants.ErrCodeDataUnavailable,
		http.StatusServiceUnavailable,
		"The institution's historical data is unavailable or the institution is misconfigured.",
		fmt.Sprintf("data unavailable for tenant %q: %s", tenantID, reason),
	).WithMetadata("tenant_id", tenantID).
		WithMetadata("reason", reason)
}

// ErrRecordConversion is returned by the field mapping for a record that holds an
// unparseable value. It is recovered locally by the scanner.
func ErrRecordConversion(field string, value string) AppError {
	return NewError(
		constants.ErrCodeRecordConversion,
		http.StatusUnprocessableEntity,
		"A historical record could not be converted to a profile.",
		fmt.Sprintf("field %q has unparseable value %q", field, value),
	).WithMetadata("field", field)
}

// ErrComputation wraps an unexpected failure inside normalization or scoring.
func ErrComputation(stage string, cause interface{}) AppError {
	return NewError(
		constants.ErrCodeComputation,
		http.StatusInternalServerError,
		"An unexpected failure occurred while computing the assessment.",
		fmt.Sprintf("%s failed: %v", stage, cause),
	).WithMetadata("stage", stage)
}

// ErrAuditWrite wraps a failure reported by an audit sink.
func ErrAuditWrite(sink string, cause error) AppError {
	return NewError(
		constants.ErrCodeAuditWrite,
		http.StatusInternalServerError,
		"The audit entry could not be written.",
		fmt.Sprintf("audit sink %s rejected entry", sink),
	).WithCause(cause).WithMetadata("sink", sink)
}

// ErrRateLimitExceeded creates a rate limit exceeded error
func ErrRateLimitExceeded(tenantID string) AppError {
	return NewError(
		constants.ErrCodeRateLimitExceeded,
		http.StatusTooManyRequests,
		"Rate limit exceeded. Please try again later.",
		fmt.Sprintf("rate limit exceeded for tenant %q", tenantID),
	).WithMetadata("tenant_id", tenantID)
}

// ErrServerError creates a server_error error
func ErrServerError(message string) AppError {
	return NewError(
		constants.ErrCodeServerError,
		http.StatusInternalServerError,
		"The server encountered an unexpected condition that prevented it from fulfilling the request.",
		message,
	)
}

// ErrMissingRequiredParameter creates a missing required parameter error
func ErrMissingRequiredParameter(paramName string) AppError {
	return ErrInvalidRequest(fmt.Sprintf("Missing required parameter: %s", paramName)).
		WithMetadata("parameter", paramName)
}

// ================================================================================
// Error Inspection Utilities
// ================================================================================

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if goerrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain contains an AppError with the given code.
func HasCode(err error, code constants.ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code() == code
	}
	return false
}

// IsNotFoundError checks if an error is a configuration-not-found error.
func IsNotFoundError(err error) bool {
	return HasCode(err, constants.ErrCodeConfigurationNotFound)
}

// IsDataUnavailable checks if an error is a data-unavailable error.
func IsDataUnavailable(err error) bool {
	return HasCode(err, constants.ErrCodeDataUnavailable)
}

// IsRecordConversion checks if an error is a record conversion error.
func IsRecordConversion(err error) bool {
	return HasCode(err, constants.ErrCodeRecordConversion)
}

// ShouldLogError determines if an error should be logged based on severity
func ShouldLogError(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		status := appErr.HTTPStatus()
		return status >= 500 || status == http.StatusTooManyRequests
	}
	return true
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorBody is the JSON structure for the error part of a response.
type ErrorBody struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Description string                 `json:"description,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// ToErrorBody converts any error to an ErrorBody and its HTTP status.
func ToErrorBody(err error) (int, *ErrorBody) {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus(), &ErrorBody{
			Code:        string(appErr.Code()),
			Message:     appErr.Error(),
			Description: appErr.Description(),
			Details:     appErr.Metadata(),
		}
	}

	return http.StatusInternalServerError, &ErrorBody{
		Code:        string(constants.ErrCodeServerError),
		Message:     "An unexpected error occurred",
		Description: "The server encountered an unexpected condition that prevented it from fulfilling the request.",
	}
}
