// Package errortypes classifies tinysummary failures so transports can map
// them to status codes and logs can carry structured context.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType is the failure class of an AppError.
type ErrorType string

const (
	// ErrorTypeValidation is bad caller input, such as a request without text.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig is an invalid or incomplete configuration.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeDatabase is a summary store failure.
	ErrorTypeDatabase ErrorType = "database"
	// ErrorTypeNetwork is a transport failure talking to a provider or store.
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeAPI is a provider that answered with an error.
	ErrorTypeAPI ErrorType = "api"
	// ErrorTypeInternal is a bug or an unexpected state, such as a panic.
	ErrorTypeInternal ErrorType = "internal"
)

const maxStackFrames = 16

// AppError wraps a cause with its class, a human message and log fields.
type AppError struct {
	Err     error
	Type    ErrorType
	Message string
	Stack   []string
	Fields  map[string]any
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// WithField attaches a log field and returns e for chaining.
func (e *AppError) WithField(key string, value any) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// New builds an AppError of type t. A nil cause becomes the message itself.
func New(t ErrorType, err error, message string) *AppError {
	return newAt(1, t, err, message)
}

func ValidationError(err error, message string) *AppError {
	return newAt(1, ErrorTypeValidation, err, message)
}

func ConfigError(err error, message string) *AppError {
	return newAt(1, ErrorTypeConfig, err, message)
}

func DatabaseError(err error, message string) *AppError {
	return newAt(1, ErrorTypeDatabase, err, message)
}

func NetworkError(err error, message string) *AppError {
	return newAt(1, ErrorTypeNetwork, err, message)
}

func APIError(err error, message string) *AppError {
	return newAt(1, ErrorTypeAPI, err, message)
}

func InternalError(err error, message string) *AppError {
	return newAt(1, ErrorTypeInternal, err, message)
}

// newAt builds the error with a stack starting skip frames above its caller.
func newAt(skip int, t ErrorType, err error, message string) *AppError {
	if err == nil {
		err = errors.New(message)
		message = ""
	}
	// Past runtime.Callers, callers and newAt itself.
	return &AppError{
		Err:     err,
		Type:    t,
		Message: message,
		Stack:   callers(3 + skip),
	}
}

// callers records up to maxStackFrames frames, dropping the runtime and
// testing harness.
func callers(skip int) []string {
	var pcs [maxStackFrames]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") && !strings.HasPrefix(frame.Function, "testing.") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return stack
}

// TypeOf returns the type of the outermost AppError in err's chain, or ""
// when err carries none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Is reports whether err carries an AppError of type t.
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

func IsValidationError(err error) bool { return Is(err, ErrorTypeValidation) }

func IsConfigError(err error) bool { return Is(err, ErrorTypeConfig) }

// HTTPStatus maps err's type to the status an HTTP handler should answer with.
// Provider failures are 502, store failures 503.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNetwork, ErrorTypeAPI:
		return http.StatusBadGateway
	case ErrorTypeDatabase:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// LogError writes err at error level on logger, or slog.Default when nil.
// AppErrors contribute their type, cause and fields; internal errors also
// carry the captured stack.
func LogError(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		logger.Error(err.Error(), "error", err)
		return
	}

	msg := appErr.Message
	if msg == "" {
		msg = appErr.Err.Error()
	}
	args := []any{"type", string(appErr.Type), "cause", appErr.Err.Error()}
	if appErr.Type == ErrorTypeInternal && len(appErr.Stack) > 0 {
		args = append(args, "stack", strings.Join(appErr.Stack, "\n"))
	}
	for k, v := range appErr.Fields {
		args = append(args, k, v)
	}
	logger.Error(msg, args...)
}
