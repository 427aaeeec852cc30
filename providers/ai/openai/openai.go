package openai

import (
	"context"
	"net/http"
	"os"
	"sort"

	"github.com/chaicli/chai/internal/utils"
	"github.com/chaicli/chai/providers/ai"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
	modelsEndpoint          = "/models"

	providerName = "openai"
)

// OpenAIProvider implements the Provider interface for the OpenAI API
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns an [OpenAIProvider] initialized from environment variables.
// It reads OPENAI_API_KEY for authentication and OPENAI_API_BASE_URL for the
// endpoint base (defaulting to https://api.openai.com/v1 when unset).
func New() *OpenAIProvider {
	apiKey := os.Getenv("OPENAI_API_KEY")
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Name implements [ai.Provider].
func (p *OpenAIProvider) Name() string {
	return providerName
}

// WithAPIKey sets the API key for the provider
func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// SendMessage implements the Provider interface
func (p *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	// Guard against missing credentials before making a network call.
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "OPENAI_API_KEY is not set")
	}

	_, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, requestToChatCompletion(request))
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindInvalidResponse, "no choices in response")
	}

	return responseToGeneric(*resp), nil
}

// ListModels implements [ai.ModelLister] via the /models endpoint. Model
// identifiers are returned sorted for stable display.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "OPENAI_API_KEY is not set")
	}

	_, resp, err := utils.DoGetSync[modelList](ctx, p.client, p.baseURL+modelsEndpoint, p.apiKey)
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}

	models := make([]string, 0, len(resp.Data))
	for _, model := range resp.Data {
		models = append(models, model.ID)
	}
	sort.Strings(models)
	return models, nil
}
