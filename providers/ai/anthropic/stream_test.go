package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chaicli/chai/providers/ai"
)

// writeEvent writes one Anthropic SSE event (event: line plus data: line).
func writeEvent(writer http.ResponseWriter, eventType, data string) {
	fmt.Fprintf(writer, "event: %s\ndata: %s\n\n", eventType, data)
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

func TestStreamMessageLifecycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeEvent(writer, "message_start", `{"type":"message_start","message":{"id":"msg_1","model":"claude-sonnet-4-0","usage":{"input_tokens":25,"output_tokens":0}}}`)
		writeEvent(writer, "content_block_start", `{"type":"content_block_start","index":0}`)
		writeEvent(writer, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`)
		writeEvent(writer, "ping", `{"type":"ping"}`)
		writeEvent(writer, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`)
		writeEvent(writer, "content_block_stop", `{"type":"content_block_stop","index":0}`)
		writeEvent(writer, "message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":6}}`)
		writeEvent(writer, "message_stop", `{"type":"message_stop"}`)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.WithAPIKey("test-key")

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Model:    "claude-sonnet-4-0",
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if response.Content != "Hello world" {
		t.Errorf("expected content 'Hello world', got %q", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("expected normalized finish reason 'stop', got %q", response.FinishReason)
	}
	if response.Usage == nil {
		t.Fatal("expected usage to be present")
	}
	// Input tokens come from message_start, output tokens from message_delta.
	if response.Usage.PromptTokens != 25 || response.Usage.CompletionTokens != 6 || response.Usage.TotalTokens != 31 {
		t.Errorf("expected split usage accumulation 25/6/31, got %+v", response.Usage)
	}
}

func TestStreamMessageErrorEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)
		writeEvent(writer, "error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.WithAPIKey("test-key")

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Model:    "claude-sonnet-4-0",
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}

	_, err = stream.Collect()
	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected mid-stream *ai.ProviderError, got %v", err)
	}
	if providerErr.Message != "Overloaded" {
		t.Errorf("expected vendor error message, got %q", providerErr.Message)
	}
}

func TestStreamMessagePreStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusTooManyRequests)
		writer.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.WithAPIKey("test-key")

	_, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Model:    "claude-sonnet-4-0",
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
	})
	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *ai.ProviderError, got %v", err)
	}
	if providerErr.Kind != ai.ErrorKindRateLimit {
		t.Errorf("expected rate_limit kind, got %s", providerErr.Kind)
	}
}
