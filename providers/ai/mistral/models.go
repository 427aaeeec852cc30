package mistral

import "github.com/chaicli/chai/providers/ai"

/*
	CHAT COMPLETIONS API - INPUT
*/

// completionRequest represents Mistral's /v1/chat/completions request format.
// Mistral uses max_tokens (not max_completion_tokens) and supports the
// safe_prompt guardrail toggle.
type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      *bool         `json:"stream,omitempty"`
	SafePrompt  *bool         `json:"safe_prompt,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

type completionResponse struct {
	ID      string     `json:"id"`
	Object  string     `json:"object"`
	Created int64      `json:"created"`
	Model   string     `json:"model"`
	Choices []choice   `json:"choices"`
	Usage   *usageInfo `json:"usage,omitempty"`
}

type choice struct {
	Index        int             `json:"index"`
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"` // "stop", "length", "model_length"
}

type responseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

type usageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// modelList represents the /v1/models response envelope.
type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

/*
	CONVERSION FUNCTIONS
*/

// requestToMistral converts ai.ChatRequest to Mistral's wire format. The
// system prompt, when present, becomes the leading system message.
func requestToMistral(request ai.ChatRequest) completionRequest {
	req := completionRequest{
		Model: request.Model,
	}

	if request.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{
			Role:    string(ai.RoleSystem),
			Content: request.SystemPrompt,
		})
	}

	for _, msg := range request.Messages {
		req.Messages = append(req.Messages, chatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	if config := request.GenerationConfig; config != nil {
		if config.Temperature != 0 {
			temperature := config.Temperature
			req.Temperature = &temperature
		}
		if config.TopP != 0 {
			topP := config.TopP
			req.TopP = &topP
		}
		if config.MaxTokens != 0 {
			maxTokens := config.MaxTokens
			req.MaxTokens = &maxTokens
		}
	}

	return req
}

// mistralToGeneric converts a Mistral completion response to the
// provider-agnostic format. Only the first choice is used.
func mistralToGeneric(resp completionResponse) *ai.ChatResponse {
	first := resp.Choices[0]

	result := &ai.ChatResponse{
		Id:           resp.ID,
		Model:        resp.Model,
		Created:      resp.Created,
		Content:      first.Message.Content,
		FinishReason: first.FinishReason,
	}

	if resp.Usage != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return result
}
