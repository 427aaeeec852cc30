// Package mistral implements [ai.Provider] against Mistral's chat completions
// API (https://api.mistral.ai/v1). The wire format is OpenAI-compatible with
// a few Mistral-specific request fields, so the adapter keeps its own slim
// request/response types rather than depending on another adapter's.
package mistral

import (
	"context"
	"net/http"
	"os"
	"sort"

	"github.com/chaicli/chai/internal/utils"
	"github.com/chaicli/chai/providers/ai"
)

const (
	defaultBaseURL          = "https://api.mistral.ai/v1"
	chatCompletionsEndpoint = "/chat/completions"
	modelsEndpoint          = "/models"

	providerName = "mistral"
)

// MistralProvider implements the Provider interface for Mistral's La Plateforme API.
type MistralProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a [MistralProvider] initialized from environment variables.
// It reads MISTRAL_API_KEY for authentication and MISTRAL_API_BASE_URL for
// the endpoint base (defaulting to https://api.mistral.ai/v1 when unset).
func New() *MistralProvider {
	apiKey := os.Getenv("MISTRAL_API_KEY")
	baseURL := os.Getenv("MISTRAL_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &MistralProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Name implements [ai.Provider].
func (p *MistralProvider) Name() string {
	return providerName
}

// WithAPIKey sets the API key for the provider
func (p *MistralProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *MistralProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *MistralProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// SendMessage implements the Provider interface
func (p *MistralProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "MISTRAL_API_KEY is not set")
	}

	_, resp, err := utils.DoPostSync[completionResponse](ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, requestToMistral(request))
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindInvalidResponse, "no choices in response")
	}

	return mistralToGeneric(*resp), nil
}

// ListModels implements [ai.ModelLister] via the /models endpoint.
func (p *MistralProvider) ListModels(ctx context.Context) ([]string, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "MISTRAL_API_KEY is not set")
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
