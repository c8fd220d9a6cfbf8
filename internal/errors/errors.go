package errors

import (
	"net/http"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized = "UNAUTHORIZED"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a typed error carrying the HTTP status it maps to.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Validation builds a 400 error, optionally carrying field errors.
func Validation(message string, fields ...FieldError) *APIError {
	if message == "" {
		message = "Invalid request"
	}
	err := NewAPIError(http.StatusBadRequest, ErrCodeInvalidInput, message)
	if len(fields) > 0 {
		err.Details = fields
	}
	return err
}

// Unauthorized builds a 401 error
func Unauthorized(message string) *APIError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAPIError(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden builds a 403 error
func Forbidden(message string) *APIError {
	if message == "" {
		message = "Access denied"
	}
	return NewAPIError(http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound builds a 404 error
func NotFound(message string) *APIError {
	if message == "" {
		message = "Resource not found"
	}
	return NewAPIError(http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict builds a 409 error
func Conflict(message string) *APIError {
	if message == "" {
		message = "Resource conflict"
	}
	return NewAPIError(http.StatusConflict, ErrCodeConflict, message)
}

func TooManyRequests(message string) *APIError {
	if message == "" {
		message = "Too many requests"
	}
	return NewAPIError(http.StatusTooManyRequests, ErrCodeTooManyRequests, message)
}

// Internal builds a 500 error
func Internal(message string) *APIError {
	if message == "" {
		message = "Internal server error"
	}
	return NewAPIError(http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable builds a 503 error
func ServiceUnavailable(message string) *APIError {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return NewAPIError(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// Predefined errors
var (
	ErrUnauthorized   = Unauthorized("")
	ErrForbidden      = Forbidden("")
	ErrNotFound       = NotFound("")
	ErrInvalidInput   = Validation("Invalid request body")
	ErrInvalidID      = Validation("Invalid ID format")
	ErrInternalError  = Internal("")
	ErrRouteNotFound  = NotFound("Route not found")
	ErrAlreadyExists  = Conflict("Resource already exists")
	ErrTokenExpired   = Unauthorized("Token expired")
	ErrTokenInvalid   = Unauthorized("Invalid token")
)
