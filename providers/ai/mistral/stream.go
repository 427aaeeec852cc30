package mistral

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/chaicli/chai/internal/utils"
	"github.com/chaicli/chai/providers/ai"
)

// streamChunk models the SSE chunks emitted by Mistral when stream=true.
// The format follows the OpenAI chunk convention: per-choice deltas with a
// nullable finish_reason, usage attached to the final chunk, and a [DONE]
// sentinel closing the stream.
type streamChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string  `json:"role,omitempty"`
			Content *string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *usageInfo `json:"usage,omitempty"`
}

// streamChunkToEvents converts a parsed chunk to zero or more generic events.
// Done comes last within a chunk, after any usage it carries.
func streamChunkToEvents(chunk *streamChunk) []ai.StreamEvent {
	var events []ai.StreamEvent
	var done *ai.StreamEvent

	for _, c := range chunk.Choices {
		if c.Delta.Content != nil && *c.Delta.Content != "" {
			events = append(events, ai.StreamEvent{Type: ai.StreamEventContent, Content: *c.Delta.Content})
		}
		if c.FinishReason != nil && *c.FinishReason != "" {
			done = &ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: *c.FinishReason}
		}
	}

	if chunk.Usage != nil {
		events = append(events, ai.StreamEvent{
			Type: ai.StreamEventUsage,
			Usage: &ai.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			},
		})
	}

	if done != nil {
		events = append(events, *done)
	}

	return events
}

// StreamMessage implements [ai.StreamProvider] for Mistral's chat completions
// endpoint. Pre-stream errors are returned directly; mid-stream errors are
// yielded through the iterator.
func (p *MistralProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "MISTRAL_API_KEY is not set")
	}

	mistralRequest := requestToMistral(request)
	streamEnabled := true
	mistralRequest.Stream = &streamEnabled

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, mistralRequest)
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		for {
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

			var chunk streamChunk
			if parseErr := json.Unmarshal([]byte(payload), &chunk); parseErr != nil {
				yield(ai.StreamEvent{}, ai.NewProviderError(providerName, ai.ErrorKindInvalidResponse, fmt.Sprintf("failed to parse streaming chunk: %v", parseErr)))
				return
			}

			for _, event := range streamChunkToEvents(&chunk) {
				if !yield(event, nil) {
					return
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
