package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound             = errors.New("resource not found")
	ErrBadRequest           = errors.New("bad request")
	ErrConflict             = errors.New("resource conflict")
	ErrInternal             = errors.New("internal server error")
	ErrValidation           = errors.New("validation error")
	ErrNetworkFailure       = errors.New("feed fetch failed")
	ErrAssistantUnavailable = errors.New("assistant unavailable")
	ErrActionInFlight       = errors.New("action already in flight")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NetworkFailure reports a primary feed that was rejected or timed out.
// The cause is kept for errors.Is checks against ErrNetworkFailure.
func NetworkFailure(feed string, cause error) *AppError {
	return (&AppError{
		Err:        fmt.Errorf("%w: %v", ErrNetworkFailure, cause),
		Code:       "NETWORK_FAILURE",
		Message:    fmt.Sprintf("%s feed unavailable", feed),
		StatusCode: http.StatusBadGateway,
	}).WithDetails(map[string]string{"feed": feed})
}

// AssistantUnavailable reports a failed assistant query dispatch.
func AssistantUnavailable(cause error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %v", ErrAssistantUnavailable, cause),
		Code:       "ASSISTANT_UNAVAILABLE",
		Message:    "AI service temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
}

// ActionInFlight reports a second reorder/alternative action for a medicine
// whose previous action has not completed.
func ActionInFlight(medicine string) *AppError {
	return (&AppError{
		Err:        ErrActionInFlight,
		Code:       "ACTION_IN_FLIGHT",
		Message:    fmt.Sprintf("an action for %s is already pending", medicine),
		StatusCode: http.StatusConflict,
	}).WithDetails(map[string]string{"medicine": medicine})
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
