package anthropic

import "github.com/chaicli/chai/providers/ai"

// defaultMaxTokens is applied when the caller supplies no limit: Anthropic
// rejects requests without max_tokens, unlike the other vendors.
const defaultMaxTokens = 4096

/*
	MESSAGES API - INPUT
*/

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"` // Required by Anthropic on every request
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// anthropicMessage holds one conversation turn. Anthropic only accepts "user"
// and "assistant" roles here; the system prompt travels in the request's
// System field.
type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

/*
	MESSAGES API - OUTPUT
*/

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"` // "message"
	Role       string                  `json:"role"` // "assistant"
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason,omitempty"` // "end_turn", "max_tokens", "stop_sequence", "refusal"
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// modelList represents the /v1/models response envelope.
type modelList struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name,omitempty"`
	} `json:"data"`
}

/*
	CONVERSION FUNCTIONS
*/

// requestToAnthropic converts an ai.ChatRequest into an anthropicRequest ready
// to POST to Anthropic's Messages API. System turns in the message history are
// folded into the request's System field because the Messages API rejects
// role=system entries.
func requestToAnthropic(request ai.ChatRequest) anthropicRequest {
	req := anthropicRequest{
		Model:     request.Model,
		System:    request.SystemPrompt,
		MaxTokens: defaultMaxTokens,
	}

	for _, msg := range request.Messages {
		if msg.Role == ai.RoleSystem {
			if req.System == "" {
				req.System = msg.Content
			} else {
				req.System += "\n\n" + msg.Content
			}
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    string(msg.Role),
			Content: []anthropicContentBlock{{Type: "text", Text: msg.Content}},
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
			req.MaxTokens = config.MaxTokens
		}
	}

	return req
}

// normalizeStopReason maps Anthropic stop reasons to the canonical finish
// reasons used across providers.
func normalizeStopReason(stopReason string) string {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "refusal":
		return "content_filter"
	default:
		return stopReason
	}
}

// anthropicToGeneric converts an Anthropic Messages response to the
// provider-agnostic format, concatenating all text content blocks.
func anthropicToGeneric(resp anthropicResponse) *ai.ChatResponse {
	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &ai.ChatResponse{
		Id:           resp.ID,
		Model:        resp.Model,
		Content:      content,
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage: &ai.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}
