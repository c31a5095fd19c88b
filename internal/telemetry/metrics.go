// Package telemetry provides metrics collection and reporting
// for monitoring the tinysummary service.
package telemetry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tinysummary"

// Summarizer metric names. Per-provider metrics are built with ProviderMetric.
const (
	MetricAPICallsPrefix     = "summarizer.api_calls"
	MetricResponseTimePrefix = "summarizer.response_time"
	MetricProviderHealthPfx  = "summarizer.health"

	// Success/failure metrics
	MetricAPICallsSuccess = "summarizer.api_calls.success"
	MetricAPICallsFailure = "summarizer.api_calls.failure"

	// Retry metrics
	MetricRetryAttempts = "summarizer.retry_attempts"
	MetricRetrySuccess  = "summarizer.retry_success"

	// Fallback metrics
	MetricFallbackAttempts   = "summarizer.fallback_attempts"
	MetricFallbackSuccess    = "summarizer.fallback_success"
	MetricExtractiveFallback = "summarizer.extractive_fallback"

	// Cache metrics
	MetricCacheHits   = "summarizer.cache.hits"
	MetricCacheMisses = "summarizer.cache.misses"
	MetricCacheErrors = "summarizer.cache.errors"
	MetricCacheSize   = "summarizer.cache.size"

	// Timers
	MetricTotalTime      = "summarizer.total_time"
	MetricExtractiveTime = "summarizer.extractive_time"

	// Timestamps
	MetricLastRequest  = "summarizer.last_request"
	MetricLastFallback = "summarizer.last_extractive_fallback"
)

// ProviderMetric returns the per-provider variant of a metric prefix,
// e.g. ProviderMetric(MetricAPICallsPrefix, "openai").
func ProviderMetric(prefix, provider string) string {
	return prefix + "." + provider
}

// MetricsCollector provides a thread-safe interface for collecting
// application metrics. Every observation is also exported through the
// collector's own Prometheus registry.
type MetricsCollector struct {
	counters   map[string]int64
	gauges     map[string]float64
	timers     map[string][]time.Duration
	latestTime map[string]time.Time
	mu         sync.RWMutex

	registry     *prometheus.Registry
	promCounters *prometheus.CounterVec
	promGauges   *prometheus.GaugeVec
	promTimers   *prometheus.HistogramVec
}

// NewMetricsCollector creates a new MetricsCollector instance
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		timers:     make(map[string][]time.Duration),
		latestTime: make(map[string]time.Time),
		registry:   prometheus.NewRegistry(),
		promCounters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Summarizer events by metric name",
			},
			[]string{"metric"},
		),
		promGauges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gauge",
				Help:      "Summarizer gauges by metric name",
			},
			[]string{"metric"},
		),
		promTimers: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duration_seconds",
				Help:      "Summarizer timings by metric name",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"metric"},
		),
	}
	m.registry.MustRegister(m.promCounters, m.promGauges, m.promTimers)
	return m
}

// Registry returns the Prometheus registry the collector exports to.
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementCounter increments a named counter by the specified amount
func (m *MetricsCollector) IncrementCounter(name string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[name] += amount
	m.promCounters.WithLabelValues(name).Add(float64(amount))
}

// SetGauge sets a named gauge to the specified value
func (m *MetricsCollector) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gauges[name] = value
	m.promGauges.WithLabelValues(name).Set(value)
}

// RecordTimer records a duration for the specified timer
func (m *MetricsCollector) RecordTimer(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timers[name] = append(m.timers[name], duration)

	// Keep the last 100 samples for averages and percentiles
	if len(m.timers[name]) > 100 {
		m.timers[name] = m.timers[name][1:]
	}
	m.promTimers.WithLabelValues(name).Observe(duration.Seconds())
}

// RecordTimestamp records the current time for the specified event
func (m *MetricsCollector) RecordTimestamp(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latestTime[name] = time.Now()
}

// GetCounter retrieves the current value of a counter
func (m *MetricsCollector) GetCounter(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.counters[name]
}

// GetGauge retrieves the current value of a gauge
func (m *MetricsCollector) GetGauge(name string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.gauges[name]
}

// GetTimerAverage calculates the average duration for a timer
func (m *MetricsCollector) GetTimerAverage(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return timerAverage(m.timers[name])
}

// GetTimerP95 calculates the 95th percentile duration for a timer
func (m *MetricsCollector) GetTimerP95(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return timerP95(m.timers[name])
}

// GetTimeSince calculates the time elapsed since a recorded timestamp
func (m *MetricsCollector) GetTimeSince(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timestamp, exists := m.latestTime[name]
	if !exists {
		return 0
	}

	return time.Since(timestamp)
}

// GetReport generates a human readable report of all collected metrics
func (m *MetricsCollector) GetReport() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("Metrics Report:\n")
	sb.WriteString("==============\n\n")

	sb.WriteString("Counters:\n")
	for _, name := range sortedKeys(m.counters) {
		fmt.Fprintf(&sb, "  %s: %d\n", name, m.counters[name])
	}

	sb.WriteString("\nGauges:\n")
	for _, name := range sortedKeys(m.gauges) {
		fmt.Fprintf(&sb, "  %s: %.2f\n", name, m.gauges[name])
	}

	sb.WriteString("\nTimers (avg):\n")
	for _, name := range sortedKeys(m.timers) {
		durations := m.timers[name]
		fmt.Fprintf(&sb, "  %s: avg=%v p95=%v count=%d\n",
			name, timerAverage(durations), timerP95(durations), len(durations))
	}

	sb.WriteString("\nTime Since:\n")
	for _, name := range sortedKeys(m.latestTime) {
		timestamp := m.latestTime[name]
		fmt.Fprintf(&sb, "  %s: %v ago (%s)\n",
			name, time.Since(timestamp), timestamp.Format(time.RFC3339))
	}

	return sb.String()
}

// Reset clears all collected metrics. Prometheus series are reset as well.
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters = make(map[string]int64)
	m.gauges = make(map[string]float64)
	m.timers = make(map[string][]time.Duration)
	m.latestTime = make(map[string]time.Time)
	m.promCounters.Reset()
	m.promGauges.Reset()
	m.promTimers.Reset()
}

func timerAverage(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func timerP95(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
