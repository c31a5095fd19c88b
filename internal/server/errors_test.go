package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/localrivet/tinysummary/internal/errortypes"
)

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		code        string
		message     string
		err         error
		wantDetails bool
	}{
		{
			name:        "with cause",
			status:      http.StatusBadRequest,
			code:        ErrorCodeInvalidRequest,
			message:     "Invalid input",
			err:         errortypes.ValidationError(errors.New("bad"), "validation failed").WithField("field", "text"),
			wantDetails: true,
		},
		{
			name:    "nil error",
			status:  http.StatusInternalServerError,
			code:    ErrorCodeInternalError,
			message: "Something went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeErrorResponse(w, nil, tt.status, tt.code, tt.message, tt.err)

			if w.Code != tt.status {
				t.Errorf("writeErrorResponse() status = %v, want %v", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if resp.Status != "error" || resp.Code != tt.code || resp.Message != tt.message {
				t.Errorf("Unexpected response: %+v", resp)
			}
			if (resp.Details != nil) != tt.wantDetails {
				t.Errorf("Details = %v, wantDetails %v", resp.Details, tt.wantDetails)
			}
			if tt.wantDetails {
				if resp.Details["type"] != "validation" || resp.Details["field"] != "text" {
					t.Errorf("AppError fields not copied into details: %v", resp.Details)
				}
			}
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation error",
			err:        errortypes.ValidationError(errors.New("invalid input"), "validation failed"),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeInvalidRequest,
		},
		{
			name:       "database error",
			err:        errortypes.DatabaseError(errors.New("db connection failed"), "database error"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrorCodeUnavailable,
		},
		{
			name:       "network error",
			err:        errortypes.NetworkError(errors.New("timeout"), "network error"),
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrorCodeBadGateway,
		},
		{
			name:       "config error",
			err:        errortypes.ConfigError(errors.New("unknown provider"), "config error"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrorCodeInternalError,
		},
		{
			name:       "wrapped api error",
			err:        fmt.Errorf("summarize: %w", errortypes.APIError(errors.New("502"), "provider")),
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrorCodeBadGateway,
		},
		{
			name:       "unknown error",
			err:        errors.New("generic error"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrorCodeInternalError,
		},
		{
			name:       "error with status",
			err:        NewErrorWithStatus(errors.New("gone"), http.StatusGone, "GONE", "Resource gone"),
			wantStatus: http.StatusGone,
			wantCode:   "GONE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleError() status = %v, want %v", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("HandleError() code = %v, want %v", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestErrorWithStatus(t *testing.T) {
	baseErr := errors.New("base error")
	statusErr := NewErrorWithStatus(baseErr, http.StatusBadRequest, "TEST_ERROR", "Test error message")

	if statusErr.Error() != "Test error message: base error" {
		t.Errorf("Unexpected error message %q", statusErr.Error())
	}
	if statusErr.StatusCode() != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, statusErr.StatusCode())
	}
	if statusErr.ErrorCode() != "TEST_ERROR" {
		t.Errorf("Expected error code TEST_ERROR, got %s", statusErr.ErrorCode())
	}
	if !errors.Is(statusErr, baseErr) {
		t.Error("Unwrap should return the base error")
	}

	bare := NewErrorWithStatus(baseErr, http.StatusTeapot, "TEAPOT", "")
	if bare.Error() != "base error" {
		t.Errorf("Expected bare error message, got %q", bare.Error())
	}
}
