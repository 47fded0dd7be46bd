// Package errors provides centralized error handling and HTTP error responses.
// It defines standard error codes, error types, and the mapping of form,
// record and database failures onto them.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/constants"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/database"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/formbuilder"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/logging"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

// ErrorCode represents a standard error code
type ErrorCode string

const (
	// Validation errors
	CodeValidationFailed ErrorCode = "VALIDATION_ERROR"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeInvalidFormat    ErrorCode = "INVALID_FORMAT"

	// Authentication errors
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	CodeMissingToken ErrorCode = "MISSING_TOKEN"

	// Authorization errors
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Resource errors
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeTableNotFound  ErrorCode = "TABLE_NOT_FOUND"
	CodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	CodeConflict       ErrorCode = "CONFLICT"

	// Server errors
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	CodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Request errors
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error     string         `json:"error"`
	Code      int            `json:"code"`
	ErrorCode ErrorCode      `json:"error_code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// APIError represents an application error
type APIError struct {
	Message    string
	StatusCode int
	ErrorCode  ErrorCode
	Details    map[string]any
	Err        error // Wrapped error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *APIError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details map[string]any) *APIError {
	e.Details = details
	return e
}

// Wrap wraps an error with additional context
func (e *APIError) Wrap(err error) *APIError {
	e.Err = err
	return e
}

// NewAPIError creates a new API error
func NewAPIError(statusCode int, errorCode ErrorCode, message string) *APIError {
	return &APIError{
		Message:    message,
		StatusCode: statusCode,
		ErrorCode:  errorCode,
	}
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, CodeBadRequest, message)
}

// NewValidationError creates a 422 error carrying the failing fields
func NewValidationError(message string, fields map[string]string) *APIError {
	details := make(map[string]any, len(fields))
	for field, msg := range fields {
		details[field] = msg
	}
	return NewAPIError(http.StatusUnprocessableEntity, CodeValidationFailed, message).WithDetails(details)
}

// NewUnauthorizedError creates a 401 Unauthorized error
func NewUnauthorizedError(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, CodeUnauthorized, message)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// NewMethodNotAllowedError creates a 405 error
func NewMethodNotAllowedError(method string) *APIError {
	return NewAPIError(http.StatusMethodNotAllowed, CodeMethodNotAllowed, fmt.Sprintf("method %s not allowed", method))
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return NewAPIError(http.StatusConflict, CodeConflict, message)
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, CodeInternalError, message)
}

// NewDatabaseError creates a 500 Database Error
func NewDatabaseError(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, CodeDatabaseError, "Database error").Wrap(err)
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return NewAPIError(http.StatusServiceUnavailable, CodeServiceUnavailable, message)
}

// ErrorHandlerConfig holds configuration for error handling
type ErrorHandlerConfig struct {
	// ShowInternalErrors shows detailed error information in responses
	// Should be false in production
	ShowInternalErrors bool

	// LogStackTrace logs stack traces for panics
	LogStackTrace bool

	Logger *logging.Logger
}

// ErrorHandler provides error handling middleware and utilities
type ErrorHandler struct {
	config ErrorHandlerConfig
	logger *logging.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(config ErrorHandlerConfig) *ErrorHandler {
	logger := config.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &ErrorHandler{
		config: config,
		logger: logger.WithComponent("errors"),
	}
}

// RecoveryMiddleware catches panics and converts them to 500 errors
func (h *ErrorHandler) RecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger := h.logger.WithContext(r.Context())
				if h.config.LogStackTrace {
					logger.Errorf("panic: %v\n%s", rec, debug.Stack())
				} else {
					logger.Errorf("panic: %v", rec)
				}

				message := "Internal server error"
				if h.config.ShowInternalErrors {
					message = fmt.Sprintf("Internal server error: %v", rec)
				}
				h.WriteError(w, r, NewInternalError(message))
			}
		}()

		next(w, r)
	}
}

// WriteError writes an error response
func (h *ErrorHandler) WriteError(w http.ResponseWriter, r *http.Request, err *APIError) {
	requestID := logging.GetRequestID(r.Context())

	response := ErrorResponse{
		Error:     err.Message,
		Code:      err.StatusCode,
		ErrorCode: err.ErrorCode,
		Details:   err.Details,
		RequestID: requestID,
	}

	if h.config.ShowInternalErrors && err.Err != nil {
		if response.Details == nil {
			response.Details = make(map[string]any)
		}
		response.Details["internal_error"] = err.Err.Error()
	}

	logger := h.logger.WithContext(r.Context())
	if err.StatusCode >= 500 {
		if err.Err != nil {
			logger.ErrorWithErr(fmt.Sprintf("%d %s: %s", err.StatusCode, err.ErrorCode, err.Message), err.Err)
		} else {
			logger.Errorf("%d %s: %s", err.StatusCode, err.ErrorCode, err.Message)
		}
	} else {
		logger.Warnf("%d %s: %s", err.StatusCode, err.ErrorCode, err.Message)
	}

	w.Header().Set(constants.HeaderContentType, constants.MIMEApplicationJSON)
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(response)
}

// WriteErrorFromError converts a standard error to an API error response
func (h *ErrorHandler) WriteErrorFromError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := Map(err)
	if apiErr.StatusCode >= 500 && apiErr.ErrorCode == CodeInternalError && h.config.ShowInternalErrors {
		apiErr.Message = err.Error()
	}
	h.WriteError(w, r, apiErr)
}

// Map converts an error from the form, record or database layers into an
// API error
func Map(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case stderrors.Is(err, database.ErrTableNotFound):
		return NewAPIError(http.StatusNotFound, CodeTableNotFound, "Table not found").Wrap(err)
	case stderrors.Is(err, record.ErrNotFound):
		return NewAPIError(http.StatusNotFound, CodeRecordNotFound, "Record not found").Wrap(err)
	case stderrors.Is(err, record.ErrUnknownColumn):
		return NewBadRequestError("Unknown column").Wrap(err)
	case stderrors.Is(err, widget.ErrUnknownToolkit):
		return NewAPIError(http.StatusBadRequest, CodeInvalidFormat, "Unknown output format").Wrap(err)
	case stderrors.Is(err, formbuilder.ErrNoPrimaryKey),
		stderrors.Is(err, formbuilder.ErrInvalidRelationship),
		stderrors.Is(err, formbuilder.ErrUnsupportedJunction),
		stderrors.Is(err, formbuilder.ErrNoRecord):
		return NewAPIError(http.StatusInternalServerError, CodeConfiguration, "Form configuration error").Wrap(err)
	}

	return MapDatabaseError(err)
}

// MapDatabaseError maps database errors to appropriate API errors
func MapDatabaseError(err error) *APIError {
	errStr := err.Error()

	if containsAny(errStr, constants.DuplicateKeyPatterns) {
		return NewConflictError("Record already exists").Wrap(err)
	}

	// a submitted link value with no row behind it
	if containsAny(errStr, constants.ForeignKeyPatterns) {
		return NewBadRequestError("Referenced record does not exist").Wrap(err)
	}

	if contains(errStr, "not null", "NOT NULL") {
		return NewBadRequestError("Required field is missing").Wrap(err)
	}

	if containsAny(errStr, constants.ConnectionErrorPatterns) {
		return NewServiceUnavailableError("Database unavailable").Wrap(err)
	}

	return NewDatabaseError(err)
}

// contains checks if any of the substrings are in the string
func contains(s string, substrs ...string) bool {
	return containsAny(s, substrs)
}

// containsAny checks if any of the patterns in the slice are in the string
func containsAny(s string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
