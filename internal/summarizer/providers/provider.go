// Package providers contains implementations of different LLM providers
// for text summarization.
package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// Provider constants
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderXAI       = "xai"

	// Default settings
	DefaultTimeout     = 30 * time.Second
	DefaultMaxTokens   = 400
	DefaultTemperature = 0.3
)

// Errors
var (
	ErrMissingAPIKey = errors.New("API key not provided")
	ErrEmptyResponse = errors.New("empty response from provider")
)

// LLMProvider defines the interface for different LLM service providers
type LLMProvider interface {
	// Summarize asks the model for a summary of at most maxSentences sentences
	Summarize(ctx context.Context, text string, maxSentences int) (string, error)

	// Name returns the provider name
	Name() string
}

// Config holds common configuration for LLM providers
type Config struct {
	APIKey      string
	ModelID     string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig is the configuration of a provider nobody configured.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
}

// withDefaults fills unset fields. A zero Temperature is a valid setting,
// only a negative one is replaced.
func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature < 0 {
		c.Temperature = DefaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// StatusError reports a non-success HTTP response from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// KnownProviders lists every provider the factory can build.
func KnownProviders() []string {
	return []string{ProviderAnthropic, ProviderGoogle, ProviderOpenAI, ProviderXAI}
}

// IsKnownProvider reports whether name is a supported provider.
func IsKnownProvider(name string) bool {
	switch name {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderXAI:
		return true
	}
	return false
}

// BuildPrompt renders the summarization instruction sent to every provider.
func BuildPrompt(text string, maxSentences int) string {
	return fmt.Sprintf(
		"You are a concise summarizer. Produce a clear summary in %d sentences or fewer.\n\nText:\n%s\n\nSummary:",
		maxSentences, text)
}

// ResolveAPIKey returns explicit when set, otherwise the provider's
// conventional environment variable.
func ResolveAPIKey(providerName, explicit string) string {
	if explicit != "" {
		return explicit
	}
	switch providerName {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderGoogle:
		return os.Getenv("GOOGLE_API_KEY")
	case ProviderXAI:
		return os.Getenv("XAI_API_KEY")
	default:
		return ""
	}
}

// cleanSummary trims model output and rejects blank content.
func cleanSummary(content string) (string, error) {
	summary := strings.TrimSpace(content)
	if summary == "" {
		return "", ErrEmptyResponse
	}
	return summary, nil
}
