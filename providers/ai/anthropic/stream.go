package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/chaicli/chai/internal/utils"
	"github.com/chaicli/chai/providers/ai"
)

/*
	MESSAGES STREAMING API - EVENT TYPES

	Anthropic SSE lifecycle:

	  message_start → content_block_start → content_block_delta(s) →
	  content_block_stop → message_delta → message_stop

	Token counts are spread across events: message_start carries input
	tokens, message_delta carries output tokens. The adapter accumulates
	both and emits a single usage event before done.
*/

// streamEvent is the envelope for every Anthropic SSE payload. Fields are
// populated depending on Type.
type streamEvent struct {
	Type string `json:"type"`

	// message_start
	Message *struct {
		ID    string         `json:"id"`
		Model string         `json:"model"`
		Usage anthropicUsage `json:"usage"`
	} `json:"message,omitempty"`

	// content_block_delta
	Index int `json:"index,omitempty"`
	Delta *struct {
		Type       string `json:"type"` // "text_delta"
		Text       string `json:"text,omitempty"`
		StopReason string `json:"stop_reason,omitempty"` // on message_delta
	} `json:"delta,omitempty"`

	// message_delta (top-level usage alongside delta)
	Usage *anthropicUsage `json:"usage,omitempty"`

	// error event
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// StreamMessage implements [ai.StreamProvider] for Anthropic's Messages API.
// It sends a streaming request (stream=true) and returns a [ai.ChatStream] that
// yields incremental deltas as SSE events arrive from the API.
//
// Pre-stream errors (missing API key, non-2xx HTTP response, network failure)
// are returned immediately as a non-nil error. Mid-stream errors (Anthropic
// "error" event, SSE parse failure) are yielded through the iterator.
func (p *AnthropicProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	// Guard against missing credentials before making a network call.
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "ANTHROPIC_API_KEY is not set")
	}

	anthropicReq := requestToAnthropic(request)
	anthropicReq.Stream = true

	// Pass empty apiKey so DoPostStream does not inject a Bearer token;
	// Anthropic authenticates via x-api-key (set inside buildHeaders).
	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+messagesEndpoint, "", anthropicReq, p.buildHeaders()...)
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		// Ensure the response body is closed when the iterator is exhausted or
		// the caller breaks out of the loop early.
		defer utils.CloseWithLog(httpResponse.Body)

		// Accumulated across events; emitted together before done.
		inputTokens := 0
		outputTokens := 0

		// Captured from message_delta, used when message_stop fires.
		finishReason := ""

		for {
			// Respect context cancellation between SSE reads.
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ai.Classify(providerName, ctx.Err()))
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, ai.Classify(providerName, fmt.Errorf("SSE read error: %w", sseErr)))
				return
			}

			var event streamEvent
			if parseErr := json.Unmarshal([]byte(payload), &event); parseErr != nil {
				yield(ai.StreamEvent{}, ai.NewProviderError(providerName, ai.ErrorKindInvalidResponse, fmt.Sprintf("failed to parse stream event: %v", parseErr)))
				return
			}

			switch event.Type {

			case "message_start":
				// Initial usage snapshot; output tokens are always 0 here.
				if event.Message != nil {
					inputTokens = event.Message.Usage.InputTokens
				}

			case "content_block_delta":
				if event.Delta != nil && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
					if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: event.Delta.Text}, nil) {
						return
					}
				}

			case "message_delta":
				if event.Delta != nil && event.Delta.StopReason != "" {
					finishReason = normalizeStopReason(event.Delta.StopReason)
				}
				if event.Usage != nil {
					outputTokens = event.Usage.OutputTokens
				}

			case "message_stop":
				if !yield(ai.StreamEvent{
					Type: ai.StreamEventUsage,
					Usage: &ai.Usage{
						PromptTokens:     inputTokens,
						CompletionTokens: outputTokens,
						TotalTokens:      inputTokens + outputTokens,
					},
				}, nil) {
					return
				}
				yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: finishReason}, nil)
				return

			case "error":
				message := "stream error"
				if event.Error != nil {
					message = event.Error.Message
				}
				yield(ai.StreamEvent{}, ai.NewProviderError(providerName, ai.ErrorKindInvalidResponse, message))
				return

			case "ping", "content_block_start", "content_block_stop":
				// No payload of interest.
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
