package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/localrivet/tinysummary/internal/telemetry"
)

// Version is reported in health reports.
var Version = "0.1.0"

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	// StatusHealthy indicates a component is fully operational
	StatusHealthy HealthStatus = "healthy"

	// StatusDegraded indicates a component is operational but with reduced capability
	StatusDegraded HealthStatus = "degraded"

	// StatusUnhealthy indicates a component is not operational
	StatusUnhealthy HealthStatus = "unhealthy"

	// StatusDisabled marks a component that is not configured
	StatusDisabled HealthStatus = "disabled"
)

// HealthReport contains information about the current health of the summarizer
type HealthReport struct {
	Status        HealthStatus       `json:"status"`
	Timestamp     time.Time          `json:"timestamp"`
	Mode          string             `json:"mode"`
	Components    map[string]string  `json:"components"`
	Providers     map[string]bool    `json:"providers"`
	ResponseTimes map[string]float64 `json:"response_times_ms"`
	ResponseP95   map[string]float64 `json:"response_times_p95_ms"`
	CacheStats    map[string]int64   `json:"cache_stats"`
	SuccessRate   float64            `json:"success_rate"`
	TotalRequests int64              `json:"total_requests"`
	Fallbacks     int64              `json:"extractive_fallbacks"`
	Version       string             `json:"version"`

	// Seconds since the last request and the last extractive fallback,
	// omitted when none happened yet.
	LastRequestAge  float64 `json:"last_request_seconds_ago,omitempty"`
	LastFallbackAge float64 `json:"last_fallback_seconds_ago,omitempty"`
}

// CreateHealthReport generates a health report for the summarizer. Providers
// are checked live and the summary store is pinged.
//
// The report is healthy when every provider answers (or none is configured),
// degraded when at least one provider fails, and unhealthy when the store is
// unreachable.
func CreateHealthReport(ctx context.Context, summarizer *AISummarizer) (*HealthReport, error) {
	if summarizer == nil {
		return nil, fmt.Errorf("summarizer is nil")
	}

	m := summarizer.GetMetrics()
	if m == nil {
		return nil, fmt.Errorf("metrics collector is nil")
	}

	providerHealth := summarizer.CheckProviderHealth(ctx)
	storeErr := summarizer.Store().Ping(ctx)

	failing := 0
	for _, isHealthy := range providerHealth {
		if !isHealthy {
			failing++
		}
	}

	status := StatusHealthy
	switch {
	case storeErr != nil:
		status = StatusUnhealthy
	case failing > 0:
		status = StatusDegraded
	}

	// Calculate success rate
	totalSuccess := m.GetCounter(telemetry.MetricAPICallsSuccess)
	totalFailure := m.GetCounter(telemetry.MetricAPICallsFailure)
	totalRequests := totalSuccess + totalFailure

	var successRate float64
	if totalRequests > 0 {
		successRate = float64(totalSuccess) / float64(totalRequests) * 100.0
	}

	timers := map[string]string{
		"total":      telemetry.MetricTotalTime,
		"extractive": telemetry.MetricExtractiveTime,
	}
	for name := range providerHealth {
		timers[name] = telemetry.ProviderMetric(telemetry.MetricResponseTimePrefix, name)
	}
	responseTimes := make(map[string]float64, len(timers))
	responseP95 := make(map[string]float64, len(timers))
	for label, metric := range timers {
		responseTimes[label] = toMillis(m.GetTimerAverage(metric))
		responseP95[label] = toMillis(m.GetTimerP95(metric))
	}

	cacheStats := map[string]int64{
		"hits":   m.GetCounter(telemetry.MetricCacheHits),
		"misses": m.GetCounter(telemetry.MetricCacheMisses),
		"errors": m.GetCounter(telemetry.MetricCacheErrors),
		"size":   int64(m.GetGauge(telemetry.MetricCacheSize)),
	}

	components := map[string]string{
		"cache":      string(StatusHealthy),
		"extractive": string(StatusHealthy),
		"primary":    string(StatusDisabled),
		"fallbacks":  string(StatusDisabled),
	}
	if storeErr != nil {
		components["cache"] = string(StatusUnhealthy)
	}

	primary := summarizer.PrimaryProvider()
	mode := "ai"
	if primary == "" {
		mode = SourceExtractive
	} else {
		components["primary"] = string(StatusUnhealthy)
		if providerHealth[primary] {
			components["primary"] = string(StatusHealthy)
		}
	}
	for provider, healthy := range providerHealth {
		if provider == primary {
			continue
		}
		if healthy {
			components["fallbacks"] = string(StatusHealthy)
		} else if components["fallbacks"] == string(StatusDisabled) {
			components["fallbacks"] = string(StatusUnhealthy)
		}
	}

	return &HealthReport{
		Status:        status,
		Timestamp:     time.Now(),
		Mode:          mode,
		Components:    components,
		Providers:     providerHealth,
		ResponseTimes: responseTimes,
		ResponseP95:   responseP95,
		CacheStats:    cacheStats,
		SuccessRate:   successRate,
		TotalRequests: totalRequests,
		Fallbacks:     m.GetCounter(telemetry.MetricExtractiveFallback),
		Version:       Version,

		LastRequestAge:  m.GetTimeSince(telemetry.MetricLastRequest).Seconds(),
		LastFallbackAge: m.GetTimeSince(telemetry.MetricLastFallback).Seconds(),
	}, nil
}

// CreateHealthReportJSON generates a JSON health report for the summarizer
func CreateHealthReportJSON(ctx context.Context, summarizer *AISummarizer) (string, error) {
	report, err := CreateHealthReport(ctx, summarizer)
	if err != nil {
		return "", err
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal health report: %w", err)
	}

	return string(reportJSON), nil
}

// HealthReport is CreateHealthReport bound to s.
func (s *AISummarizer) HealthReport(ctx context.Context) (*HealthReport, error) {
	return CreateHealthReport(ctx, s)
}

// ResetMetrics resets all metrics for the summarizer
func ResetMetrics(summarizer *AISummarizer) error {
	if summarizer == nil {
		return fmt.Errorf("summarizer is nil")
	}

	m := summarizer.GetMetrics()
	if m == nil {
		return fmt.Errorf("metrics collector is nil")
	}

	m.Reset()
	return nil
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
