package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openaiDefaultModel = "gpt-4o-mini"
)

// OpenAIProvider implements the LLMProvider interface for OpenAI's chat
// completions API and any API compatible with it.
type OpenAIProvider struct {
	Config
	name   string
	client *openai.Client
}

// NewOpenAIProvider creates a new instance of the OpenAI provider
func NewOpenAIProvider(config Config) *OpenAIProvider {
	if config.ModelID == "" {
		config.ModelID = openaiDefaultModel
	}
	return newChatCompletionProvider(ProviderOpenAI, config)
}

func newChatCompletionProvider(name string, config Config) *OpenAIProvider {
	config = config.withDefaults()

	clientCfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientCfg.BaseURL = config.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &OpenAIProvider{
		Config: config,
		name:   name,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

// requestTemperature maps t onto the request field. go-openai omits a zero
// temperature, which the API reads as 1, so zero is sent as the smallest
// positive float32 instead.
func requestTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Summarize implements the LLMProvider interface
func (p *OpenAIProvider) Summarize(ctx context.Context, text string, maxSentences int) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrMissingAPIKey)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.ModelID,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(text, maxSentences),
			},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: requestTemperature(p.Temperature),
	})
	if err != nil {
		return "", p.parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}

	summary, err := cleanSummary(resp.Choices[0].Message.Content)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.name, err)
	}
	return summary, nil
}

// parseAPIError turns go-openai errors into a StatusError when the API answered.
func (p *OpenAIProvider) parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: p.name, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		message := extractErrorMessage(reqErr.Body)
		if message == "" {
			message = string(reqErr.Body)
		}
		return &StatusError{Provider: p.name, StatusCode: reqErr.HTTPStatusCode, Message: message}
	}

	return fmt.Errorf("error sending request to %s API: %w", p.name, err)
}

// extractErrorMessage pulls "error.message" or "detail" from a JSON error body.
func extractErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return parsed.Detail
}
