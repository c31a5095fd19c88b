package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/localrivet/tinysummary/internal/summarystore"
	"github.com/localrivet/tinysummary/internal/telemetry"
)

type unreachableStore struct {
	summarystore.NopStore
}

func (unreachableStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestCreateHealthReport(t *testing.T) {
	mockProvider := &MockLLMProvider{returnSummary: "Health check report"}
	summarizer := newTestSummarizer(nil, mockProvider)

	// Add some metrics
	summarizer.metrics.IncrementCounter(telemetry.MetricAPICallsSuccess, 80)
	summarizer.metrics.IncrementCounter(telemetry.MetricAPICallsFailure, 20)
	summarizer.metrics.IncrementCounter(telemetry.MetricCacheHits, 50)
	summarizer.metrics.IncrementCounter(telemetry.MetricCacheMisses, 100)
	summarizer.metrics.SetGauge(telemetry.MetricCacheSize, 75)
	summarizer.metrics.RecordTimer(telemetry.ProviderMetric(telemetry.MetricResponseTimePrefix, "mock"), 500*time.Millisecond)

	report, err := CreateHealthReport(context.Background(), summarizer)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if report.Status != StatusHealthy {
		t.Errorf("Expected status to be healthy, got %s", report.Status)
	}
	if report.Mode != "ai" {
		t.Errorf("Expected ai mode, got %s", report.Mode)
	}
	if report.TotalRequests != 100 {
		t.Errorf("Expected 100 total requests, got %d", report.TotalRequests)
	}
	if report.SuccessRate != 80.0 {
		t.Errorf("Expected 80%% success rate, got %.1f%%", report.SuccessRate)
	}
	if hits := report.CacheStats["hits"]; hits != 50 {
		t.Errorf("Expected 50 cache hits, got %d", hits)
	}
	if misses := report.CacheStats["misses"]; misses != 100 {
		t.Errorf("Expected 100 cache misses, got %d", misses)
	}
	if ms := report.ResponseTimes["mock"]; ms != 500 {
		t.Errorf("Expected 500ms mock response time, got %v", ms)
	}
	if report.Components["primary"] != string(StatusHealthy) {
		t.Errorf("Expected healthy primary, got %s", report.Components["primary"])
	}

	// Test JSON generation
	jsonReport, err := CreateHealthReportJSON(context.Background(), summarizer)
	if err != nil {
		t.Fatalf("Unexpected JSON error: %v", err)
	}

	var parsedReport map[string]interface{}
	if err := json.Unmarshal([]byte(jsonReport), &parsedReport); err != nil {
		t.Fatalf("Failed to parse JSON report: %v", err)
	}
	if parsedReport["status"] != string(StatusHealthy) {
		t.Errorf("Expected status in JSON, got %v", parsedReport["status"])
	}

	// Verify reset functionality
	if err := ResetMetrics(summarizer); err != nil {
		t.Fatalf("Unexpected error resetting metrics: %v", err)
	}
	if summarizer.metrics.GetCounter(telemetry.MetricAPICallsSuccess) != 0 {
		t.Error("Expected metrics to be reset")
	}
}

func TestCreateHealthReport_Status(t *testing.T) {
	tests := []struct {
		name      string
		providers []*MockLLMProvider
		store     summarystore.Store
		want      HealthStatus
		mode      string
	}{
		{
			name:      "all providers up",
			providers: []*MockLLMProvider{{name: "a"}, {name: "b"}},
			want:      StatusHealthy,
			mode:      "ai",
		},
		{
			name:      "one provider down",
			providers: []*MockLLMProvider{{name: "a"}, {name: "b", returnError: true}},
			want:      StatusDegraded,
			mode:      "ai",
		},
		{
			name:      "every provider down still serves extractive",
			providers: []*MockLLMProvider{{name: "a", returnError: true}},
			want:      StatusDegraded,
			mode:      "ai",
		},
		{
			name: "extractive only",
			want: StatusHealthy,
			mode: SourceExtractive,
		},
		{
			name:      "store unreachable",
			providers: []*MockLLMProvider{{name: "a"}},
			store:     unreachableStore{},
			want:      StatusUnhealthy,
			mode:      "ai",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			summarizer := NewAISummarizer(&AISummarizerConfig{Store: test.store})
			for i, p := range test.providers {
				if i == 0 {
					summarizer.provider = p
				} else {
					summarizer.fallbackProviders = append(summarizer.fallbackProviders, p)
				}
			}
			summarizer.providerInitialized = true

			report, err := CreateHealthReport(context.Background(), summarizer)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if report.Status != test.want {
				t.Errorf("Status = %s, want %s", report.Status, test.want)
			}
			if report.Mode != test.mode {
				t.Errorf("Mode = %s, want %s", report.Mode, test.mode)
			}
		})
	}
}

func TestHealthReport_NilSummarizer(t *testing.T) {
	if _, err := CreateHealthReport(context.Background(), nil); err == nil {
		t.Error("Expected error for nil summarizer")
	}
	if err := ResetMetrics(nil); err == nil {
		t.Error("Expected error for nil summarizer")
	}
}

func TestCreateHealthReport_Timestamps(t *testing.T) {
	failing := &MockLLMProvider{name: "flaky", returnError: true}
	summarizer := newTestSummarizer(&AISummarizerConfig{}, failing)

	report, err := CreateHealthReport(context.Background(), summarizer)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.LastRequestAge != 0 || report.LastFallbackAge != 0 {
		t.Errorf("Expected no timestamps before any request, got %+v", report)
	}

	if _, err := summarizer.SummarizeDetailed(context.Background(), longText, 2); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	summarizer.metrics.RecordTimer(telemetry.MetricTotalTime, 40*time.Millisecond)

	report, err = CreateHealthReport(context.Background(), summarizer)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.LastRequestAge <= 0 || report.LastFallbackAge <= 0 {
		t.Errorf("Expected request and fallback timestamps, got %v and %v", report.LastRequestAge, report.LastFallbackAge)
	}
	if report.ResponseP95["total"] < 40 {
		t.Errorf("Expected p95 of at least 40ms, got %v", report.ResponseP95["total"])
	}
}
