package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicAPIURL       = "https://api.anthropic.com"
	anthropicDefaultModel = "claude-3-haiku-20240307"
	anthropicVersion      = "2023-06-01"
)

// AnthropicProvider implements the LLMProvider interface for Anthropic's Claude
type AnthropicProvider struct {
	Config
	httpClient *http.Client
	version    string
}

// AnthropicMessage represents a message in Anthropic's Messages API
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicRequest represents a request to Anthropic's API
type AnthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []AnthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

// AnthropicResponse represents a response from Anthropic's API
type AnthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewAnthropicProvider creates a new instance of the Anthropic provider
func NewAnthropicProvider(config Config) *AnthropicProvider {
	config = config.withDefaults()
	if config.ModelID == "" {
		config.ModelID = anthropicDefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = anthropicAPIURL
	}
	return &AnthropicProvider{
		Config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		version: anthropicVersion,
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// Summarize implements the LLMProvider interface for Anthropic
func (p *AnthropicProvider) Summarize(ctx context.Context, text string, maxSentences int) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("%s: %w", ProviderAnthropic, ErrMissingAPIKey)
	}

	reqBody := AnthropicRequest{
		Model: p.ModelID,
		Messages: []AnthropicMessage{
			{Role: "user", Content: BuildPrompt(text, maxSentences)},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}
	headers := map[string]string{
		"X-API-Key":         p.APIKey,
		"Anthropic-Version": p.version,
	}

	var anthResponse AnthropicResponse
	url := strings.TrimRight(p.BaseURL, "/") + "/v1/messages"
	if err := postJSON(ctx, p.httpClient, ProviderAnthropic, url, headers, reqBody, &anthResponse); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range anthResponse.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	summary, err := cleanSummary(sb.String())
	if err != nil {
		return "", fmt.Errorf("%s: %w", ProviderAnthropic, err)
	}
	return summary, nil
}
