// Package tinysummary summarizes text by picking its most representative
// sentences, optionally asking an LLM provider first.
package tinysummary

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/localrivet/tinysummary/internal/config"
	"github.com/localrivet/tinysummary/internal/errortypes"
	"github.com/localrivet/tinysummary/internal/server"
	"github.com/localrivet/tinysummary/internal/summarizer"
	"github.com/localrivet/tinysummary/internal/summarizer/providers"
	"github.com/localrivet/tinysummary/internal/summarystore"
	"github.com/localrivet/tinysummary/internal/telemetry"
)

// Config represents the configuration for the tinysummary service.
type Config = config.Config

// Result is a summary together with the strategy that produced it.
type Result = summarizer.Result

// HealthReport describes provider, cache and fallback health.
type HealthReport = summarizer.HealthReport

// Service wires the summarizer, its cache and the transports together.
type Service struct {
	config     *config.Config
	store      summarystore.Store
	summarizer *summarizer.AISummarizer
	toolServer *server.MCPSummaryToolServer
	logger     *slog.Logger

	httpOnce    sync.Once
	httpHandler http.Handler
}

// ServiceOptions defines the options for creating a new Service.
type ServiceOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.
}

// NewService creates a Service with the given options.
func NewService(opts ServiceOptions) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	switch {
	case opts.Config != nil:
		cfg = opts.Config
		logger.Debug("Using provided Config object for service initialization")
	case opts.ConfigPath != "":
		logger.Info("Loading configuration", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			return nil, errortypes.ConfigError(err, "Failed to load configuration from path: "+opts.ConfigPath)
		}
	default:
		logger.Debug("No Config object or ConfigPath provided, using default configuration")
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, summ, err := CreateComponents(cfg, logger)
	if err != nil {
		logger.Error("Failed to create components", "error", err)
		return nil, err
	}

	toolServer := server.NewSummaryToolServer(summ, logger)
	if err := toolServer.Initialize(); err != nil {
		store.Close()
		return nil, errortypes.ConfigError(err, "Failed to initialize MCP summary tool server")
	}

	logger.Info("tinysummary service initialized",
		"cache_backend", cfg.Cache.Backend,
		"primary_provider", summ.PrimaryProvider())

	return &Service{
		config:     cfg,
		store:      store,
		summarizer: summ,
		toolServer: toolServer,
		logger:     logger,
	}, nil
}

// DefaultConfig returns the default configuration for the tinysummary service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// CreateComponents opens the summary store and builds an initialized
// summarizer from cfg, without any transport.
func CreateComponents(cfg *Config, logger *slog.Logger) (summarystore.Store, *summarizer.AISummarizer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Opening summary store", "backend", cfg.Cache.Backend)
	store, err := summarystore.Open(summarystore.Config{
		Backend:       cfg.Cache.Backend,
		Capacity:      cfg.Cache.Capacity,
		SQLitePath:    cfg.Cache.SQLitePath,
		RedisAddrs:    cfg.RedisAddrList(),
		RedisPassword: cfg.Cache.RedisPassword,
		RedisPrefix:   cfg.Cache.RedisPrefix,
	})
	if err != nil {
		return nil, nil, errortypes.DatabaseError(err, "Failed to open summary store").
			WithField("backend", cfg.Cache.Backend)
	}

	summ := summarizer.NewAISummarizer(&summarizer.AISummarizerConfig{
		PrimaryProvider:     cfg.Summarizer.Provider,
		Providers:           providerConfigs(cfg),
		FallbackOrder:       cfg.FallbackProviders(),
		DefaultMaxSentences: cfg.Summarizer.MaxSentences,
		Timeout:             cfg.SummarizerTimeout(),
		MaxRetries:          cfg.Summarizer.MaxRetries,
		RetryDelay:          cfg.RetryDelay(),
		Store:               store,
		CacheTTL:            cfg.CacheTTL(),
		Metrics:             telemetry.NewMetricsCollector(),
		Logger:              logger,
	})
	if err := summ.Initialize(); err != nil {
		store.Close()
		return nil, nil, errortypes.ConfigError(err, "Failed to initialize summarizer").
			WithField("provider", cfg.Summarizer.Provider)
	}

	return store, summ, nil
}

// providerConfigs gives every known provider the shared generation settings;
// the model, key and base URL go to the primary provider only.
func providerConfigs(cfg *Config) map[string]providers.Config {
	configs := make(map[string]providers.Config)
	for _, name := range providers.KnownProviders() {
		pc := providers.Config{
			MaxTokens:   cfg.Summarizer.MaxTokens,
			Temperature: cfg.Summarizer.Temperature,
			Timeout:     cfg.SummarizerTimeout(),
		}
		if name == cfg.Summarizer.Provider {
			pc.APIKey = cfg.Summarizer.ApiKey
			pc.ModelID = cfg.Summarizer.ModelID
			pc.BaseURL = cfg.Summarizer.BaseURL
		}
		configs[name] = pc
	}
	return configs
}

// Summarize returns a summary of at most maxSentences sentences. A
// non-positive maxSentences selects the configured default.
func (s *Service) Summarize(ctx context.Context, text string, maxSentences int) (string, error) {
	return s.summarizer.Summarize(ctx, text, maxSentences)
}

// SummarizeDetailed is Summarize but also reports the source of the summary.
func (s *Service) SummarizeDetailed(ctx context.Context, text string, maxSentences int) (Result, error) {
	return s.summarizer.SummarizeDetailed(ctx, text, maxSentences)
}

// HealthReport checks providers and the summary store.
func (s *Service) HealthReport(ctx context.Context) (*HealthReport, error) {
	return s.summarizer.HealthReport(ctx)
}

// ClearCache removes every cached summary and returns how many were removed.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return 0, errortypes.DatabaseError(err, "Failed to clear summary cache")
	}
	s.summarizer.GetMetrics().SetGauge(telemetry.MetricCacheSize, 0)
	s.logger.Info("Summary cache cleared", "removed", n)
	return n, nil
}

// CacheLen returns the number of cached summaries.
func (s *Service) CacheLen(ctx context.Context) (int, error) {
	return s.store.Len(ctx)
}

// HTTPHandler returns the HTTP API. The router is built once.
func (s *Service) HTTPHandler() http.Handler {
	s.httpOnce.Do(func() {
		api := server.NewHTTPAPI(s.summarizer, s.summarizer.GetMetrics().Registry(), s.logger)
		s.httpHandler = api.Router()
	})
	return s.httpHandler
}

// HTTPServer returns an http.Server for the API using the configured
// address and timeouts.
func (s *Service) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.config.Server.Addr,
		Handler:      s.HTTPHandler(),
		ReadTimeout:  s.config.ReadTimeout(),
		WriteTimeout: s.config.WriteTimeout(),
	}
}

// StartMCP serves the MCP tools over stdio. It blocks until stdin closes.
func (s *Service) StartMCP() error {
	s.logger.Info("Starting tinysummary MCP server")
	return s.toolServer.Start()
}

// ToolServer returns the MCP tool server, e.g. to embed its tools into a
// host server with RegisterTools.
func (s *Service) ToolServer() *server.MCPSummaryToolServer {
	return s.toolServer
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *Config {
	return s.config
}

// MetricsReport renders the summarizer's counters, gauges, timers and
// timestamps as text.
func (s *Service) MetricsReport() string {
	return s.summarizer.GetMetrics().GetReport()
}

// Close stops the MCP server and closes the summary store. The metrics
// report is logged at debug level first.
func (s *Service) Close() error {
	s.logger.Info("Stopping tinysummary service")
	s.logger.Debug("Summarizer metrics", "report", s.MetricsReport())
	var errs []error
	if err := s.toolServer.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close summary store", "error", err)
		errs = append(errs, errortypes.DatabaseError(err, "Failed to close summary store"))
	}
	return errors.Join(errs...)
}

// Extract is the local extractive summarizer: the maxSentences highest
// scoring sentences of text, in their original order.
func Extract(text string, maxSentences int) string {
	return summarizer.Extract(text, maxSentences)
}
