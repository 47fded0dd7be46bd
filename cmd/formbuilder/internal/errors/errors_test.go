package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/database"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/formbuilder"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/logging"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

func newTestHandler(show bool) (*ErrorHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.LoggerConfig{Format: "json", Output: &buf})
	return NewErrorHandler(ErrorHandlerConfig{ShowInternalErrors: show, Logger: logger}), &buf
}

func TestAPIError(t *testing.T) {
	err := NewAPIError(http.StatusBadRequest, CodeBadRequest, "Test error")
	if err.Error() != "Test error" {
		t.Errorf("Expected 'Test error', got '%s'", err.Error())
	}

	wrapped := errors.New("underlying error")
	err = err.Wrap(wrapped)
	if err.Error() != "Test error: underlying error" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !errors.Is(err, wrapped) {
		t.Error("Expected errors.Is to find the wrapped error")
	}
}

func TestPredefinedErrors(t *testing.T) {
	testCases := []struct {
		name           string
		err            *APIError
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{"bad request", NewBadRequestError("x"), http.StatusBadRequest, CodeBadRequest},
		{"validation", NewValidationError("x", nil), http.StatusUnprocessableEntity, CodeValidationFailed},
		{"unauthorized", NewUnauthorizedError("x"), http.StatusUnauthorized, CodeUnauthorized},
		{"not found", NewNotFoundError("table"), http.StatusNotFound, CodeNotFound},
		{"method", NewMethodNotAllowedError("PUT"), http.StatusMethodNotAllowed, CodeMethodNotAllowed},
		{"conflict", NewConflictError("x"), http.StatusConflict, CodeConflict},
		{"internal", NewInternalError("x"), http.StatusInternalServerError, CodeInternalError},
		{"database", NewDatabaseError(errors.New("x")), http.StatusInternalServerError, CodeDatabaseError},
		{"unavailable", NewServiceUnavailableError("x"), http.StatusServiceUnavailable, CodeServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.StatusCode != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, tc.err.StatusCode)
			}
			if tc.err.ErrorCode != tc.expectedCode {
				t.Errorf("Expected code %s, got %s", tc.expectedCode, tc.err.ErrorCode)
			}
		})
	}
}

func TestMap(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"api error", NewConflictError("x"), http.StatusConflict, CodeConflict},
		{"missing table", fmt.Errorf("load: %w", database.ErrTableNotFound), http.StatusNotFound, CodeTableNotFound},
		{"missing record", fmt.Errorf("person 9: %w", record.ErrNotFound), http.StatusNotFound, CodeRecordNotFound},
		{"unknown column", record.ErrUnknownColumn, http.StatusBadRequest, CodeBadRequest},
		{"unknown toolkit", fmt.Errorf("%w: qt", widget.ErrUnknownToolkit), http.StatusBadRequest, CodeInvalidFormat},
		{"bad relationship", fmt.Errorf("user_group: %w", formbuilder.ErrInvalidRelationship), http.StatusInternalServerError, CodeConfiguration},
		{"junction", formbuilder.ErrUnsupportedJunction, http.StatusInternalServerError, CodeConfiguration},
		{"duplicate", errors.New("UNIQUE constraint failed: person.name"), http.StatusConflict, CodeConflict},
		{"foreign key", errors.New("FOREIGN KEY constraint failed"), http.StatusBadRequest, CodeBadRequest},
		{"not null", errors.New("NOT NULL constraint failed: person.name"), http.StatusBadRequest, CodeBadRequest},
		{"connection", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Map(tt.err)
			if got.StatusCode != tt.wantStatus || got.ErrorCode != tt.wantCode {
				t.Errorf("Map() = %d %s, want %d %s", got.StatusCode, got.ErrorCode, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	h, logs := newTestHandler(false)

	req := httptest.NewRequest(http.MethodPost, "/person:submit", nil)
	req = req.WithContext(logging.SetRequestID(req.Context(), "req-7"))
	rec := httptest.NewRecorder()

	h.WriteError(rec, req, NewValidationError("Validation failed", map[string]string{"name": "The field Name is required."}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.RequestID != "req-7" {
		t.Errorf("Expected request id req-7, got %s", resp.RequestID)
	}
	if resp.Details["name"] != "The field Name is required." {
		t.Errorf("Unexpected details %v", resp.Details)
	}
	if !strings.Contains(logs.String(), `"level":"warn"`) {
		t.Errorf("Expected a warning log line, got %s", logs.String())
	}
}

func TestWriteErrorFromError(t *testing.T) {
	tests := []struct {
		name         string
		show         bool
		wantInternal bool
	}{
		{name: "hidden", show: false},
		{name: "shown", show: true, wantInternal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(tt.show)
			rec := httptest.NewRecorder()
			h.WriteErrorFromError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("Expected 500, got %d", rec.Code)
			}
			if _, ok := resp.Details["internal_error"]; ok != tt.wantInternal {
				t.Errorf("internal_error present = %v, want %v", ok, tt.wantInternal)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h, logs := newTestHandler(false)
	handler := h.RecoveryMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "kaboom") {
		t.Error("Expected panic value to stay out of the response")
	}
	if !strings.Contains(logs.String(), "kaboom") {
		t.Error("Expected panic value in the log")
	}
}
