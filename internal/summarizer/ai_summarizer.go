package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/tinysummary/internal/summarizer/providers"
	"github.com/localrivet/tinysummary/internal/summarystore"
	"github.com/localrivet/tinysummary/internal/telemetry"
	"github.com/localrivet/tinysummary/internal/util"
)

const (
	// Default settings
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 2
	DefaultRetryDelay    = 2 * time.Second
	DefaultCacheCapacity = summarystore.DefaultCapacity
	DefaultCacheTTL      = 24 * time.Hour

	// ProviderExtractive disables remote providers entirely.
	ProviderExtractive = SourceExtractive

	healthCheckTimeout = 5 * time.Second
	healthCheckText    = "This is a brief health check for the LLM provider."
)

// Errors
var (
	ErrProviderNotSupported = errors.New("provider not supported")
	ErrSummarizationFailed  = errors.New("summarization failed")
	ErrContextCanceled      = errors.New("context canceled")
)

// Result is a summary along with where it came from.
type Result struct {
	Summary string `json:"summary"`
	Source  string `json:"source"`
	Cached  bool   `json:"cached"`
}

// AISummarizer is an implementation of the Summarizer interface that asks
// LLM providers for a summary and falls back to local extraction when every
// provider fails.
type AISummarizer struct {
	provider            providers.LLMProvider
	fallbackProviders   []providers.LLMProvider
	local               *ExtractiveSummarizer
	defaultMaxSentences int
	timeout             time.Duration
	maxRetries          int
	retryDelay          time.Duration
	store               summarystore.Store
	cacheTTL            time.Duration
	providerConfigs     map[string]providers.Config
	primaryName         string
	fallbackOrder       []string
	providerInitialized bool
	providerFactory     *providers.ProviderFactory
	metrics             *telemetry.MetricsCollector
	logger              *slog.Logger
	mu                  sync.RWMutex
}

// AISummarizerConfig holds configuration for the AISummarizer
type AISummarizerConfig struct {
	// PrimaryProvider names the provider tried first. Empty means the first
	// provider of the fallback chain; "extractive" disables remote providers.
	PrimaryProvider string
	// Providers holds the per-provider settings, keyed by provider name.
	Providers           map[string]providers.Config
	FallbackOrder       []string
	DefaultMaxSentences int
	Timeout             time.Duration
	// MaxRetries and RetryDelay use their defaults only when negative.
	MaxRetries          int
	RetryDelay          time.Duration
	Store               summarystore.Store
	CacheTTL            time.Duration
	Metrics             *telemetry.MetricsCollector
	Logger              *slog.Logger
}

// NewAISummarizer creates a new AISummarizer with the specified settings.
// config is not modified. A nil config uses every default; otherwise zero
// MaxRetries and RetryDelay are honoured and only negative values fall back
// to the defaults.
func NewAISummarizer(config *AISummarizerConfig) *AISummarizer {
	var cfg AISummarizerConfig
	if config == nil {
		cfg = AISummarizerConfig{MaxRetries: -1, RetryDelay: -1}
	} else {
		cfg = *config
	}

	if cfg.DefaultMaxSentences <= 0 {
		cfg.DefaultMaxSentences = DefaultMaxSentences
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Store == nil {
		cfg.Store = summarystore.NewMemoryStore(DefaultCacheCapacity)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NewMetricsCollector()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &AISummarizer{
		local:               NewExtractiveSummarizer(cfg.DefaultMaxSentences),
		defaultMaxSentences: cfg.DefaultMaxSentences,
		timeout:             cfg.Timeout,
		maxRetries:          cfg.MaxRetries,
		retryDelay:          cfg.RetryDelay,
		store:               cfg.Store,
		cacheTTL:            cfg.CacheTTL,
		providerConfigs:     cfg.Providers,
		primaryName:         cfg.PrimaryProvider,
		fallbackOrder:       cfg.FallbackOrder,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger,
	}
}

// Initialize builds the provider chain. Providers without an API key are
// skipped; with none left the summarizer runs in extractive-only mode.
func (s *AISummarizer) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// If already initialized, do nothing
	if s.providerInitialized {
		return nil
	}

	if s.provider == nil && s.primaryName != ProviderExtractive {
		// Every known provider is eligible once its key is found in the
		// config or the environment.
		configs := make(map[string]providers.Config)
		for _, name := range providers.KnownProviders() {
			cfg, ok := s.providerConfigs[name]
			if !ok {
				cfg = providers.DefaultConfig()
			}
			cfg.APIKey = providers.ResolveAPIKey(name, cfg.APIKey)
			configs[name] = cfg
		}
		s.providerFactory = providers.NewProviderFactory(configs)

		order := s.fallbackOrder
		if s.primaryName != "" {
			if !providers.IsKnownProvider(s.primaryName) {
				return fmt.Errorf("%w: %s", ErrProviderNotSupported, s.primaryName)
			}
			order = append([]string{s.primaryName}, s.fallbackOrder...)
		}

		chain := s.providerFactory.GetProviderChain(order)
		if len(chain) > 0 {
			s.provider = chain[0]
			s.fallbackProviders = chain[1:]
		}
	}

	if s.provider == nil {
		s.logger.Info("No LLM provider configured, using extractive summaries only")
	} else {
		s.logger.Info("Summarizer initialized",
			"primary", s.provider.Name(),
			"fallbacks", len(s.fallbackProviders))
	}

	s.providerInitialized = true
	return nil
}

func (s *AISummarizer) ensureInitialized() error {
	s.mu.RLock()
	initialized := s.providerInitialized
	s.mu.RUnlock()
	if initialized {
		return nil
	}
	return s.Initialize()
}

// providerChain returns the primary provider followed by the fallbacks,
// without duplicates.
func (s *AISummarizer) providerChain() []providers.LLMProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chain []providers.LLMProvider
	seen := make(map[string]bool)
	for _, p := range append([]providers.LLMProvider{s.provider}, s.fallbackProviders...) {
		if p == nil || seen[p.Name()] {
			continue
		}
		seen[p.Name()] = true
		chain = append(chain, p)
	}
	return chain
}

// Summarize takes a text input and returns a summary of at most maxSentences
// sentences. Remote failures never surface: the extractive summary is
// returned instead.
func (s *AISummarizer) Summarize(ctx context.Context, text string, maxSentences int) (string, error) {
	result, err := s.SummarizeDetailed(ctx, text, maxSentences)
	if err != nil {
		return "", err
	}
	return result.Summary, nil
}

// SummarizeDetailed is Summarize but also reports which strategy produced the
// summary and whether it came from the cache.
func (s *AISummarizer) SummarizeDetailed(ctx context.Context, text string, maxSentences int) (Result, error) {
	startTime := time.Now()
	s.metrics.RecordTimestamp(telemetry.MetricLastRequest)
	defer func() {
		s.metrics.RecordTimer(telemetry.MetricTotalTime, time.Since(startTime))
	}()

	if err := s.ensureInitialized(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSummarizationFailed, err)
	}
	if maxSentences <= 0 {
		maxSentences = s.defaultMaxSentences
	}

	chain := s.providerChain()
	if len(chain) == 0 || strings.TrimSpace(text) == "" {
		return s.extractive(ctx, text, maxSentences), nil
	}

	// Only the primary's summaries are cached so a recovered primary is
	// never hidden behind a fallback's answer.
	primary := chain[0].Name()
	if summary, found := s.checkCache(ctx, primary, maxSentences, text); found {
		s.metrics.IncrementCounter(telemetry.MetricCacheHits, 1)
		return Result{Summary: summary, Source: primary, Cached: true}, nil
	}
	s.metrics.IncrementCounter(telemetry.MetricCacheMisses, 1)

	var lastErr error
	for i, provider := range chain {
		if i > 0 {
			s.metrics.IncrementCounter(telemetry.MetricFallbackAttempts, 1)
		}
		name := provider.Name()
		s.metrics.IncrementCounter(telemetry.ProviderMetric(telemetry.MetricAPICallsPrefix, name), 1)

		providerStart := time.Now()
		summary, err := s.summarizeWithTimeout(ctx, provider, text, maxSentences)
		if err == nil {
			s.metrics.IncrementCounter(telemetry.MetricAPICallsSuccess, 1)
			s.metrics.RecordTimer(telemetry.ProviderMetric(telemetry.MetricResponseTimePrefix, name), time.Since(providerStart))
			if i > 0 {
				s.metrics.IncrementCounter(telemetry.MetricFallbackSuccess, 1)
			} else {
				s.cacheResult(ctx, name, maxSentences, text, summary)
			}
			return Result{Summary: summary, Source: name}, nil
		}

		s.metrics.IncrementCounter(telemetry.MetricAPICallsFailure, 1)
		s.logger.Warn("Provider failed to summarize", "provider", name, "error", err)
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	s.logger.Warn("All providers failed, using extractive summary", "error", lastErr)
	s.metrics.RecordTimestamp(telemetry.MetricLastFallback)
	return s.extractive(ctx, text, maxSentences), nil
}

func (s *AISummarizer) extractive(ctx context.Context, text string, maxSentences int) Result {
	start := time.Now()
	summary, _ := s.local.Summarize(ctx, text, maxSentences)
	s.metrics.RecordTimer(telemetry.MetricExtractiveTime, time.Since(start))
	s.metrics.IncrementCounter(telemetry.MetricExtractiveFallback, 1)
	return Result{Summary: summary, Source: SourceExtractive}
}

func (s *AISummarizer) summarizeWithTimeout(ctx context.Context, provider providers.LLMProvider, text string, maxSentences int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.summarizeWithRetries(ctx, provider, text, maxSentences)
}

// summarizeWithRetries attempts to summarize text with provider, with retries
func (s *AISummarizer) summarizeWithRetries(ctx context.Context, provider providers.LLMProvider, text string, maxSentences int) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.IncrementCounter(telemetry.MetricRetryAttempts, 1)

			// Linear backoff, abandoned when the context ends
			timer := time.NewTimer(s.retryDelay * time.Duration(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("%w: %v", ErrContextCanceled, lastErr)
			case <-timer.C:
			}
		}

		select {
		case <-ctx.Done():
			return "", ErrContextCanceled
		default:
		}

		summary, err := provider.Summarize(ctx, text, maxSentences)
		if err == nil {
			if attempt > 0 {
				s.metrics.IncrementCounter(telemetry.MetricRetrySuccess, 1)
			}
			return summary, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	return "", lastErr
}

// isRetryable reports whether another attempt could succeed. Missing keys and
// client errors other than rate limiting are final.
func isRetryable(err error) bool {
	if errors.Is(err, providers.ErrMissingAPIKey) {
		return false
	}
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
	}
	return true
}

// checkCache looks for a cached summary
func (s *AISummarizer) checkCache(ctx context.Context, strategy string, maxSentences int, text string) (string, bool) {
	summary, found, err := s.store.Get(ctx, util.CacheKey(strategy, maxSentences, text))
	if err != nil {
		s.metrics.IncrementCounter(telemetry.MetricCacheErrors, 1)
		s.logger.Warn("Summary cache read failed", "error", err)
		return "", false
	}
	return summary, found
}

// cacheResult stores a summary in the cache
func (s *AISummarizer) cacheResult(ctx context.Context, strategy string, maxSentences int, text, summary string) {
	if err := s.store.Set(ctx, util.CacheKey(strategy, maxSentences, text), summary, s.cacheTTL); err != nil {
		s.metrics.IncrementCounter(telemetry.MetricCacheErrors, 1)
		s.logger.Warn("Summary cache write failed", "error", err)
		return
	}

	if n, err := s.store.Len(ctx); err == nil {
		s.metrics.SetGauge(telemetry.MetricCacheSize, float64(n))
	}
}

// GetMetrics returns the metrics collector for this summarizer
func (s *AISummarizer) GetMetrics() *telemetry.MetricsCollector {
	return s.metrics
}

// Store returns the summary cache.
func (s *AISummarizer) Store() summarystore.Store {
	return s.store
}

// PrimaryProvider returns the name of the first provider tried, or "" in
// extractive-only mode.
func (s *AISummarizer) PrimaryProvider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// CheckProviderHealth tests if all providers are operational
func (s *AISummarizer) CheckProviderHealth(ctx context.Context) map[string]bool {
	results := make(map[string]bool)

	if err := s.ensureInitialized(); err != nil {
		return results
	}

	for _, provider := range s.providerChain() {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		_, err := provider.Summarize(checkCtx, healthCheckText, 1)
		cancel()

		name := provider.Name()
		results[name] = err == nil
		s.metrics.SetGauge(telemetry.ProviderMetric(telemetry.MetricProviderHealthPfx, name), boolToFloat64(results[name]))
		if err != nil {
			s.logger.Warn("Provider health check failed", "provider", name, "error", err)
		}
	}

	return results
}

// boolToFloat64 converts a boolean to a float64 (1.0 for true, 0.0 for false)
func boolToFloat64(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
