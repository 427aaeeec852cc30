package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/chaicli/chai/internal/utils"
	"github.com/chaicli/chai/providers/ai"
)

// StreamMessage implements [ai.StreamProvider] using the streamGenerateContent
// endpoint with alt=sse.
//
// Unlike OpenAI-style deltas, each Gemini SSE event carries a full
// generateContentResponse whose candidate content holds just the new text
// fragment. The final event additionally carries the finish reason and the
// cumulative usage metadata.
func (p *GeminiProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.ErrorKindAuth, "GEMINI_API_KEY is not set")
	}

	streamURL := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, request.Model)

	httpResponse, err := utils.DoPostStream(ctx, p.client, streamURL, "", requestToGemini(request), p.authHeader())
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		// Gemini repeats usage metadata on every chunk with growing counts;
		// only the last snapshot is emitted, just before done.
		var usage *ai.Usage
		finishReason := ""

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ai.Classify(providerName, ctx.Err()))
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				if usage != nil {
					if !yield(ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usage}, nil) {
						return
					}
				}
				yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: finishReason}, nil)
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, ai.Classify(providerName, fmt.Errorf("SSE read error: %w", sseErr)))
				return
			}

			var chunk generateContentResponse
			if parseErr := json.Unmarshal([]byte(payload), &chunk); parseErr != nil {
				yield(ai.StreamEvent{}, ai.NewProviderError(providerName, ai.ErrorKindInvalidResponse, fmt.Sprintf("failed to parse streaming chunk: %v", parseErr)))
				return
			}

			if chunk.UsageMetadata != nil {
				usage = &ai.Usage{
					PromptTokens:     chunk.UsageMetadata.PromptTokenCount,
					CompletionTokens: chunk.UsageMetadata.CandidatesTokenCount,
					TotalTokens:      chunk.UsageMetadata.TotalTokenCount,
				}
			}

			for _, cand := range chunk.Candidates {
				if cand.Index != 0 {
					continue
				}
				for _, p := range cand.Content.Parts {
					if p.Text == "" {
						continue
					}
					if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: p.Text}, nil) {
						return
					}
				}
				if cand.FinishReason != "" {
					finishReason = normalizeFinishReason(cand.FinishReason)
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
