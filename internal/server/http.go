package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/localrivet/tinysummary/internal/summarizer"
	"github.com/localrivet/tinysummary/internal/telemetry"
	"github.com/localrivet/tinysummary/internal/tools"
)

// MaxRequestBytes bounds the body of POST /api/summarize.
const MaxRequestBytes = 4 << 20

// HTTPAPI serves the summarizer over HTTP.
type HTTPAPI struct {
	service  SummaryService
	registry *prometheus.Registry
	logger   *slog.Logger
}

// NewHTTPAPI creates the HTTP API. HTTP metrics are registered on registry,
// which is also the one served on /metrics, so a registry backs at most one
// router.
func NewHTTPAPI(service SummaryService, registry *prometheus.Registry, logger *slog.Logger) *HTTPAPI {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &HTTPAPI{
		service:  service,
		registry: registry,
		logger:   logger,
	}
}

// Router builds the chi router with its middleware stack.
func (a *HTTPAPI) Router() http.Handler {
	httpMetrics := telemetry.NewHTTPMetrics(a.registry)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.recoverer)
	r.Use(a.requestLogger)
	r.Use(httpMetrics.Middleware)

	r.NotFound(HandleNotFound)
	r.MethodNotAllowed(HandleMethodNotAllowed)

	r.Post("/api/summarize", a.handleSummarize)
	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	return r
}

func (a *HTTPAPI) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req tools.SummarizeRequest
	body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleError(w, r, NewErrorWithStatus(err, http.StatusRequestEntityTooLarge,
				ErrorCodeRequestTooLarge, "Request body too large"))
			return
		}
		HandleBadRequest(w, r, "Invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		HandleBadRequest(w, r, "Missing text", nil)
		return
	}

	result, err := a.service.SummarizeDetailed(r.Context(), req.Text, req.MaxSentences)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tools.SummaryBody{
		Summary: result.Summary,
		Source:  result.Source,
		Cached:  result.Cached,
	})
}

func (a *HTTPAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.HealthReport(r.Context())
	if err != nil {
		HandleInternalError(w, r, "Failed to build health report", err)
		return
	}

	status := http.StatusOK
	if report.Status == summarizer.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// recoverer turns a panic into a JSON 500 instead of chi's plain text one.
func (a *HTTPAPI) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				a.logger.Error("panic recovered", "panic", rvr, "request_id", middleware.GetReqID(r.Context()))
				HandleInternalError(w, r, "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one log line per request and echoes X-Request-ID.
func (a *HTTPAPI) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := middleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		a.logger.Info("http_request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"latency", time.Since(start),
			"response_bytes", ww.BytesWritten(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
