package gemini

import "github.com/chaicli/chai/providers/ai"

/*
	GENERATE CONTENT API - INPUT
*/

// generateContentRequest represents the request to Gemini's generateContent endpoint.
type generateContentRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
}

// content is one conversation turn. Gemini's roles are "user" and "model".
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

/*
	GENERATE CONTENT API - OUTPUT
*/

// generateContentResponse represents the response from Gemini's generateContent
// endpoint. Streaming chunks reuse this shape: each SSE event carries a full
// (partial-content) response rather than an OpenAI-style delta.
type generateContentResponse struct {
	Candidates    []candidate    `json:"candidates,omitempty"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"` // "STOP", "MAX_TOKENS", "SAFETY", ...
	Index        int     `json:"index,omitempty"`
}

// usageMetadata represents token usage information.
type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

// modelCatalog represents the /v1beta/models response envelope.
type modelCatalog struct {
	Models []struct {
		Name        string `json:"name"` // "models/gemini-..."
		DisplayName string `json:"displayName,omitempty"`
	} `json:"models"`
}

/*
	CONVERSION FUNCTIONS
*/

// requestToGemini converts an ai.ChatRequest to a Gemini generateContentRequest.
// System turns are folded into systemInstruction; assistant turns become role
// "model".
func requestToGemini(request ai.ChatRequest) generateContentRequest {
	req := generateContentRequest{}

	systemText := request.SystemPrompt

	for _, msg := range request.Messages {
		switch msg.Role {
		case ai.RoleSystem:
			if systemText == "" {
				systemText = msg.Content
			} else {
				systemText += "\n\n" + msg.Content
			}
		case ai.RoleAssistant:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: msg.Content}}})
		}
	}

	if systemText != "" {
		req.SystemInstruction = &systemInstruction{Parts: []part{{Text: systemText}}}
	}

	if config := request.GenerationConfig; config != nil {
		gc := &generationConfig{}
		if config.Temperature != 0 {
			temperature := config.Temperature
			gc.Temperature = &temperature
		}
		if config.TopP != 0 {
			topP := config.TopP
			gc.TopP = &topP
		}
		if config.MaxTokens != 0 {
			maxTokens := config.MaxTokens
			gc.MaxOutputTokens = &maxTokens
		}
		req.GenerationConfig = gc
	}

	return req
}

// normalizeFinishReason maps Gemini finish reasons to the canonical values
// used across providers.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST":
		return "content_filter"
	default:
		return reason
	}
}

// geminiToGeneric converts a Gemini generateContentResponse to ai.ChatResponse,
// concatenating the text parts of the first candidate.
func geminiToGeneric(resp generateContentResponse) *ai.ChatResponse {
	first := resp.Candidates[0]

	var text string
	for _, p := range first.Content.Parts {
		text += p.Text
	}

	result := &ai.ChatResponse{
		Id:           resp.ResponseID,
		Model:        resp.ModelVersion,
		Content:      text,
		FinishReason: normalizeFinishReason(first.FinishReason),
	}

	if resp.UsageMetadata != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	return result
}
