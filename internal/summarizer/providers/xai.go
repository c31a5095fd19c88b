package providers

const (
	xaiAPIURL       = "https://api.x.ai/v1"
	xaiDefaultModel = "grok-2-latest"
)

// NewXAIProvider creates a provider for xAI's Grok models. The xAI API speaks
// the OpenAI chat completions protocol, so it shares OpenAIProvider.
func NewXAIProvider(config Config) *OpenAIProvider {
	if config.ModelID == "" {
		config.ModelID = xaiDefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = xaiAPIURL
	}
	return newChatCompletionProvider(ProviderXAI, config)
}
