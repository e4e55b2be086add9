package llm

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// OpenAIDefaultModel is used when no model is configured.
	OpenAIDefaultModel = "gpt-4o-mini"

	// OllamaDefaultBaseURL is the OpenAI-compatible endpoint of a local
	// Ollama server, the primary backend for the DJ.
	OllamaDefaultBaseURL = "http://localhost:11434/v1"

	// OllamaDefaultModel is a small instruct model that fits commodity
	// hardware.
	OllamaDefaultModel = "llama3.2:3b-instruct-q5_K_M"
)

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
	RegisterProviderFactory("ollama", newOllamaProvider)
}

// openAIProvider implements CoreLLM over any OpenAI-compatible chat
// completion API, which includes hosted OpenAI and local Ollama.
type openAIProvider struct {
	BaseProvider
	client       *openai.Client
	tokenCounter *TokenCounter
	provider     string
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	return buildOpenAICompatible("openai", config, OpenAIDefaultModel)
}

// newOllamaProvider targets a local Ollama server. Ollama performs no
// authentication, so a placeholder key is substituted when none is given,
// and the base URL defaults to the local daemon.
func newOllamaProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		config.APIKey = "ollama"
	}
	if config.BaseURL == "" {
		config.BaseURL = OllamaDefaultBaseURL
	}
	return buildOpenAICompatible("ollama", config, OllamaDefaultModel)
}

func buildOpenAICompatible(provider string, config ClientConfig, defaultModel string) (CoreLLM, error) {
	model := config.Model
	if model == "" {
		model = defaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		validated, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, err
		}
		clientConfig.BaseURL = validated
	}
	if timeout := ValidateTimeout(config.Timeout); timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &openAIProvider{
		BaseProvider: BaseProvider{model: model},
		client:       openai.NewClientWithConfig(clientConfig),
		tokenCounter: NewTokenCounter(),
		provider:     provider,
	}, nil
}

// DoRequest sends a chat completion request and returns the response text
// with token usage.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     options.Model,
		Messages:  messages,
		MaxTokens: options.MaxTokens,
	}
	if options.Temperature != nil {
		req.Temperature = float32(*options.Temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, ClassifyError(p.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}

	content := resp.Choices[0].Message.Content
	tokensIn := p.tokenCounter.GetTokenCount(resp.Usage.PromptTokens, prompt)
	tokensOut := p.tokenCounter.GetTokenCount(resp.Usage.CompletionTokens, content)
	return content, tokensIn, tokensOut, nil
}
