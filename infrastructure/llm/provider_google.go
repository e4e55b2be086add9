package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleDefaultModel is used when no model is configured.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements CoreLLM for Google's Gemini API.
type googleProvider struct {
	BaseProvider
	client       *genai.Client
	tokenCounter *TokenCounter
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Google client: %w", err)
	}

	return &googleProvider{
		BaseProvider: BaseProvider{model: model},
		client:       client,
		tokenCounter: NewTokenCounter(),
	}, nil
}

// DoRequest sends a GenerateContent request. Gemini has no separate system
// role, so a system prompt is prepended to the user prompt.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	finalPrompt := prompt
	if options.System != "" {
		finalPrompt = fmt.Sprintf("System: %s\n\nUser: %s", options.System, prompt)
	}

	genConfig := &genai.GenerateContentConfig{}
	if options.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		genConfig.Temperature = &temp
	}

	resp, err := p.client.Models.GenerateContent(ctx, options.Model,
		[]*genai.Content{genai.NewContentFromText(finalPrompt, genai.RoleUser)},
		genConfig,
	)
	if err != nil {
		return "", 0, 0, ClassifyError("google", err)
	}

	content := resp.Text()
	if content == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn := p.tokenCounter.EstimateTokens(prompt)
	tokensOut := p.tokenCounter.EstimateTokens(content)
	if usage := resp.UsageMetadata; usage != nil {
		tokensIn = p.tokenCounter.GetTokenCount(int(usage.PromptTokenCount), prompt)
		tokensOut = p.tokenCounter.GetTokenCount(int(usage.CandidatesTokenCount), content)
	}
	return content, tokensIn, tokensOut, nil
}
