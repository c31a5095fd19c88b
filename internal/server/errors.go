package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/localrivet/tinysummary/internal/errortypes"
)

// ErrorResponse is the body of every HTTP error response.
type ErrorResponse struct {
	Status    string                 `json:"status"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Common error codes
const (
	// ErrorCodeInvalidRequest indicates the client sent an invalid request
	ErrorCodeInvalidRequest = "INVALID_REQUEST"

	// ErrorCodeRequestTooLarge indicates a body over MaxRequestBytes
	ErrorCodeRequestTooLarge = "REQUEST_TOO_LARGE"

	// ErrorCodeMethodNotAllowed indicates the route exists but not for this method
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"

	// ErrorCodeResourceNotFound indicates a requested resource was not found
	ErrorCodeResourceNotFound = "RESOURCE_NOT_FOUND"

	// ErrorCodeInternalError indicates an internal server error
	ErrorCodeInternalError = "INTERNAL_ERROR"

	// ErrorCodeBadGateway indicates a failure in an upstream provider
	ErrorCodeBadGateway = "BAD_GATEWAY"

	// ErrorCodeUnavailable indicates a dependency such as the cache is down
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"
)

// writeErrorResponse writes a structured error response. The request ID set by
// chi's RequestID middleware is echoed back when present.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	errResp := ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	}
	if r != nil {
		errResp.RequestID = middleware.GetReqID(r.Context())
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
		var appErr *errortypes.AppError
		if errors.As(err, &appErr) {
			errResp.Details["type"] = string(appErr.Type)
			for k, v := range appErr.Fields {
				errResp.Details[k] = v
			}
		}

		logErr := errortypes.APIError(err, fmt.Sprintf("HTTP error (%s)", code)).
			WithField("status_code", status).
			WithField("error_code", code).
			WithField("client_message", message)
		if errResp.RequestID != "" {
			logErr = logErr.WithField("request_id", errResp.RequestID)
		}
		errortypes.LogError(nil, logErr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		// Headers are already out; nothing left but to log.
		slog.Error("Failed to encode error response", "error", err)
	}
}

// HandleBadRequest handles 400 Bad Request errors
func HandleBadRequest(w http.ResponseWriter, r *http.Request, message string, err error) {
	writeErrorResponse(w, r, http.StatusBadRequest, ErrorCodeInvalidRequest, message, err)
}

// HandleNotFound handles 404 Not Found errors
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeErrorResponse(w, r, http.StatusNotFound, ErrorCodeResourceNotFound, "Not found", nil)
}

// HandleMethodNotAllowed handles 405 Method Not Allowed errors
func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeErrorResponse(w, r, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "Method not allowed", nil)
}

// HandleInternalError handles 500 Internal Server Error errors
func HandleInternalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	writeErrorResponse(w, r, http.StatusInternalServerError, ErrorCodeInternalError, message, err)
}

// HandleBadGateway handles 502 Bad Gateway errors
func HandleBadGateway(w http.ResponseWriter, r *http.Request, message string, err error) {
	writeErrorResponse(w, r, http.StatusBadGateway, ErrorCodeBadGateway, message, err)
}

// HandleUnavailable handles 503 Service Unavailable errors
func HandleUnavailable(w http.ResponseWriter, r *http.Request, message string, err error) {
	writeErrorResponse(w, r, http.StatusServiceUnavailable, ErrorCodeUnavailable, message, err)
}

// ErrorWithStatus pins an error to a specific HTTP status and error code.
type ErrorWithStatus struct {
	err        error
	statusCode int
	errorCode  string
	message    string
}

// NewErrorWithStatus creates a new error with HTTP status code
func NewErrorWithStatus(err error, status int, code, message string) *ErrorWithStatus {
	return &ErrorWithStatus{
		err:        err,
		statusCode: status,
		errorCode:  code,
		message:    message,
	}
}

// Error returns the error message
func (e *ErrorWithStatus) Error() string {
	if e.message != "" {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.err.Error()
}

// Unwrap returns the underlying error
func (e *ErrorWithStatus) Unwrap() error {
	return e.err
}

// StatusCode returns the HTTP status code
func (e *ErrorWithStatus) StatusCode() int {
	return e.statusCode
}

// ErrorCode returns the application error code
func (e *ErrorWithStatus) ErrorCode() string {
	return e.errorCode
}

// Message returns the client-friendly message
func (e *ErrorWithStatus) Message() string {
	return e.message
}

// HandleError inspects err to pick the status code and writes the response.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *ErrorWithStatus
	if errors.As(err, &statusErr) {
		writeErrorResponse(w, r, statusErr.StatusCode(), statusErr.ErrorCode(),
			statusErr.Message(), statusErr.Unwrap())
		return
	}

	switch errortypes.HTTPStatus(err) {
	case http.StatusBadRequest:
		HandleBadRequest(w, r, "Invalid request parameters", err)
	case http.StatusBadGateway:
		HandleBadGateway(w, r, "Downstream service error", err)
	case http.StatusServiceUnavailable:
		HandleUnavailable(w, r, "Summary store unavailable", err)
	default:
		HandleInternalError(w, r, "An unexpected error occurred", err)
	}
}
