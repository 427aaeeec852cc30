package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/chaicli/chai/internal/utils"
	"github.com/chaicli/chai/providers/ai"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	providerName = "google"
)

// GeminiProvider implements the ai.Provider interface for Google's Gemini API.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a new Gemini provider instance with default values from environment.
// Environment variables:
//   - GEMINI_API_KEY: API key for authentication
//   - GEMINI_API_BASE_URL: Base URL for API (optional, defaults to Google's API)
func New() *GeminiProvider {
	apiKey := os.Getenv("GEMINI_API_KEY")
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Name implements [ai.Provider]. The registry identifier is "google", the
// vendor name, rather than the product name Gemini.
func (p *GeminiProvider) Name() string {
	return providerName
}

// WithAPIKey sets the API key for the provider.
func (p *GeminiProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *GeminiProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *GeminiProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// authHeader carries the credential; Gemini does not use Bearer tokens.
func (p *GeminiProvider) authHeader() utils.HeaderOption {
	return utils.HeaderOption{Key: "x-goog-api-key", Value: p.apiKey}
}

// SendMessage implements [ai.Provider] against the generateContent endpoint.
func (p *GeminiProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "GEMINI_API_KEY is not set")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, request.Model)

	// Pass empty apiKey so DoPostSync does not inject a Bearer token.
	_, resp, err := utils.DoPostSync[generateContentResponse](ctx, p.client, url, "", requestToGemini(request), p.authHeader())
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindInvalidResponse, "no candidates in response")
	}

	result := geminiToGeneric(*resp)
	if result.Model == "" {
		result.Model = request.Model
	}

	return result, nil
}

// ListModels implements [ai.ModelLister] via the models catalog endpoint.
// Gemini reports fully qualified names ("models/gemini-..."); the prefix is
// stripped so the identifiers are usable as chat targets directly.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "GEMINI_API_KEY is not set")
	}

	_, resp, err := utils.DoGetSync[modelCatalog](ctx, p.client, p.baseURL+"/models", "", p.authHeader())
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}

	models := make([]string, 0, len(resp.Models))
	for _, model := range resp.Models {
		models = append(models, strings.TrimPrefix(model.Name, "models/"))
	}
	sort.Strings(models)
	return models, nil
}
