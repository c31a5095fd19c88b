package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	googleAPIURL       = "https://generativelanguage.googleapis.com"
	googleDefaultModel = "gemini-1.5-flash"
)

// GoogleProvider implements the LLMProvider interface for Google's Gemini models
type GoogleProvider struct {
	Config
	httpClient *http.Client
}

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

// GoogleRequest represents a generateContent request
type GoogleRequest struct {
	Contents         []googleContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

// GoogleResponse represents a generateContent response
type GoogleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
}

// NewGoogleProvider creates a new instance of the Google provider
func NewGoogleProvider(config Config) *GoogleProvider {
	config = config.withDefaults()
	if config.ModelID == "" {
		config.ModelID = googleDefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = googleAPIURL
	}
	return &GoogleProvider{
		Config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

// Summarize implements the LLMProvider interface for Google
func (p *GoogleProvider) Summarize(ctx context.Context, text string, maxSentences int) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("%s: %w", ProviderGoogle, ErrMissingAPIKey)
	}

	reqBody := GoogleRequest{
		Contents: []googleContent{
			{Role: "user", Parts: []googlePart{{Text: BuildPrompt(text, maxSentences)}}},
		},
	}
	reqBody.GenerationConfig.MaxOutputTokens = p.MaxTokens
	reqBody.GenerationConfig.Temperature = p.Temperature

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(p.BaseURL, "/"), p.ModelID)
	headers := map[string]string{"X-Goog-Api-Key": p.APIKey}

	var googleResponse GoogleResponse
	if err := postJSON(ctx, p.httpClient, ProviderGoogle, url, headers, reqBody, &googleResponse); err != nil {
		return "", err
	}

	if len(googleResponse.Candidates) == 0 {
		return "", fmt.Errorf("%s: %w", ProviderGoogle, ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range googleResponse.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	summary, err := cleanSummary(sb.String())
	if err != nil {
		return "", fmt.Errorf("%s: %w", ProviderGoogle, err)
	}
	return summary, nil
}
