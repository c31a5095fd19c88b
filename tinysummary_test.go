package tinysummary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/localrivet/tinysummary/internal/errortypes"
	"github.com/localrivet/tinysummary/internal/logger"
	"github.com/localrivet/tinysummary/internal/summarizer"
)

const article = "The city council approved the new budget on Monday. " +
	"The budget increases funding for public parks and libraries. " +
	"Several residents spoke in favor of the park funding. " +
	"The weather was mild."

func extractiveConfig(t *testing.T, backend string) *Config {
	t.Helper()
	for _, v := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY", "XAI_API_KEY"} {
		t.Setenv(v, "")
	}
	cfg := DefaultConfig()
	cfg.Summarizer.Provider = summarizer.ProviderExtractive
	cfg.Cache.Backend = backend
	cfg.Cache.SQLitePath = filepath.Join(t.TempDir(), "cache.db")
	return cfg
}

func TestNewService_Extractive(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite", "none"} {
		t.Run(backend, func(t *testing.T) {
			svc, err := NewService(ServiceOptions{Config: extractiveConfig(t, backend), Logger: logger.Discard()})
			if err != nil {
				t.Fatalf("NewService() error: %v", err)
			}
			defer svc.Close()

			result, err := svc.SummarizeDetailed(context.Background(), article, 2)
			if err != nil {
				t.Fatalf("SummarizeDetailed() error: %v", err)
			}
			if result.Source != summarizer.SourceExtractive {
				t.Errorf("Source = %q, want extractive", result.Source)
			}
			if want := Extract(article, 2); result.Summary != want {
				t.Errorf("Summary = %q, want %q", result.Summary, want)
			}

			summary, err := svc.Summarize(context.Background(), article, 0)
			if err != nil {
				t.Fatalf("Summarize() error: %v", err)
			}
			if summary != Extract(article, 5) {
				t.Errorf("default cap not applied: %q", summary)
			}
		})
	}
}

func TestNewService_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Backend = "etcd"

	if _, err := NewService(ServiceOptions{Config: cfg, Logger: logger.Discard()}); !errortypes.IsConfigError(err) {
		t.Errorf("NewService() = %v, want config error", err)
	}
}

func TestNewService_ConfigPath(t *testing.T) {
	cfg := extractiveConfig(t, "memory")
	cfg.Summarizer.MaxSentences = 1
	path := filepath.Join(t.TempDir(), "tinysummary.json")
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error: %v", err)
	}

	svc, err := NewService(ServiceOptions{ConfigPath: path, Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	defer svc.Close()

	if svc.Config().Summarizer.MaxSentences != 1 {
		t.Errorf("MaxSentences = %d, want 1", svc.Config().Summarizer.MaxSentences)
	}
	summary, _ := svc.Summarize(context.Background(), article, 0)
	if summary != Extract(article, 1) {
		t.Errorf("Summary = %q", summary)
	}
}

func TestService_HTTPHandler(t *testing.T) {
	svc, err := NewService(ServiceOptions{Config: extractiveConfig(t, "memory"), Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	defer svc.Close()

	if svc.HTTPHandler() != svc.HTTPHandler() {
		t.Error("HTTPHandler() should build the router once")
	}

	srv := httptest.NewServer(svc.HTTPHandler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/summarize", "application/json",
		strings.NewReader(`{"text":"`+article+`","max_sentences":1}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	if hs := svc.HTTPServer(); hs.Addr != DefaultConfig().Server.Addr || hs.ReadTimeout == 0 {
		t.Errorf("Unexpected http.Server: addr=%q read=%v", hs.Addr, hs.ReadTimeout)
	}
}

func TestService_ClearCache(t *testing.T) {
	svc, err := NewService(ServiceOptions{Config: extractiveConfig(t, "sqlite"), Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	defer svc.Close()

	ctx := context.Background()
	if err := svc.store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if n, _ := svc.CacheLen(ctx); n != 1 {
		t.Fatalf("CacheLen() = %d, want 1", n)
	}

	removed, err := svc.ClearCache(ctx)
	if err != nil {
		t.Fatalf("ClearCache() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("ClearCache() removed %d, want 1", removed)
	}
	if n, _ := svc.CacheLen(ctx); n != 0 {
		t.Errorf("CacheLen() = %d after clear", n)
	}
}

func TestProviderConfigs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Summarizer.Provider = "anthropic"
	cfg.Summarizer.ApiKey = "secret"
	cfg.Summarizer.ModelID = "claude-test"

	configs := providerConfigs(cfg)
	if len(configs) != 4 {
		t.Fatalf("expected an entry per known provider, got %d", len(configs))
	}
	if got := configs["anthropic"]; got.APIKey != "secret" || got.ModelID != "claude-test" {
		t.Errorf("primary settings not applied: %+v", got)
	}
	if got := configs["openai"]; got.APIKey != "" || got.ModelID != "" || got.MaxTokens != cfg.Summarizer.MaxTokens {
		t.Errorf("fallback should only get shared settings: %+v", got)
	}
}

func TestNewService_RejectsKeyWithoutProvider(t *testing.T) {
	cfg := extractiveConfig(t, "memory")
	cfg.Summarizer.Provider = ""
	cfg.Summarizer.ApiKey = "sk-orphan"

	if _, err := NewService(ServiceOptions{Config: cfg, Logger: logger.Discard()}); !errortypes.IsConfigError(err) {
		t.Errorf("expected config error for an API key without a provider, got %v", err)
	}
}

func TestService_MetricsReport(t *testing.T) {
	svc, err := NewService(ServiceOptions{Config: extractiveConfig(t, "memory"), Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	defer svc.Close()

	if _, err := svc.Summarize(context.Background(), article, 2); err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}

	report := svc.MetricsReport()
	for _, want := range []string{"summarizer.total_time", "summarizer.last_request"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}

	health, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport() error: %v", err)
	}
	if health.LastRequestAge <= 0 {
		t.Errorf("LastRequestAge = %v, want a recorded request", health.LastRequestAge)
	}
	if health.LastFallbackAge != 0 {
		t.Errorf("LastFallbackAge = %v, want none in extractive-only mode", health.LastFallbackAge)
	}
}
