package anthropic

import (
	"context"
	"net/http"
	"os"
	"sort"

	"github.com/chaicli/chai/internal/utils"
	"github.com/chaicli/chai/providers/ai"
)

const (
	// defaultBaseURL is the canonical base URL for Anthropic's Messages API.
	defaultBaseURL = "https://api.anthropic.com/v1"

	// messagesEndpoint is the path for the Messages API endpoint.
	messagesEndpoint = "/messages"

	// modelsEndpoint is the path for the model catalog endpoint.
	modelsEndpoint = "/models"

	// anthropicVersion is the required anthropic-version header value.
	// Anthropic uses this to version-lock response formats independently of the URL.
	anthropicVersion = "2023-06-01"

	providerName = "anthropic"
)

// AnthropicProvider implements [ai.Provider] for Anthropic's Messages API.
// Use [New] to construct a ready-to-use instance.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns an [AnthropicProvider] initialized from environment variables.
// It reads ANTHROPIC_API_KEY for authentication and ANTHROPIC_API_BASE_URL for
// the endpoint base (defaulting to https://api.anthropic.com/v1 when unset).
// Use [AnthropicProvider.WithAPIKey] and [AnthropicProvider.WithBaseURL] to
// override these values after construction.
func New() *AnthropicProvider {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Name implements [ai.Provider].
func (p *AnthropicProvider) Name() string {
	return providerName
}

// WithAPIKey sets the API key used for authenticating requests and returns the
// provider so calls can be chained. It overrides the value read from ANTHROPIC_API_KEY.
func (p *AnthropicProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and returns the provider so calls can
// be chained. Use this when targeting a proxy or local testing endpoint.
func (p *AnthropicProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained. Useful for injecting custom
// timeouts, transport layers, or test doubles.
func (p *AnthropicProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// buildHeaders constructs the HTTP headers required for every Anthropic request.
// x-api-key carries the credential (Anthropic does not use Bearer tokens) and
// anthropic-version pins the wire format.
func (p *AnthropicProvider) buildHeaders() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-api-key", Value: p.apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
}

// SendMessage implements [ai.Provider] by sending a synchronous chat request to
// Anthropic's Messages API and returning the full response mapped to the generic
// [ai.ChatResponse] format.
func (p *AnthropicProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	// Guard against missing credentials before making a network call.
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "ANTHROPIC_API_KEY is not set")
	}

	// Pass empty apiKey so DoPostSync does not inject a Bearer token;
	// Anthropic authenticates via x-api-key instead.
	_, resp, err := utils.DoPostSync[anthropicResponse](
		ctx,
		p.client,
		p.baseURL+messagesEndpoint,
		"",
		requestToAnthropic(request),
		p.buildHeaders()...,
	)
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}

	if resp == nil || len(resp.Content) == 0 {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindInvalidResponse, "empty completion in response")
	}

	result := anthropicToGeneric(*resp)

	// Anthropic usually echoes the model name in the response, but when it is
	// absent we fall back to the request model so callers always have a
	// non-empty Model field.
	if result.Model == "" {
		result.Model = request.Model
	}

	return result, nil
}

// ListModels implements [ai.ModelLister] via Anthropic's /models endpoint.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "ANTHROPIC_API_KEY is not set")
	}

	_, resp, err := utils.DoGetSync[modelList](ctx, p.client, p.baseURL+modelsEndpoint, "", p.buildHeaders()...)
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
