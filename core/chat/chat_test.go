package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"go.uber.org/goleak"

	"github.com/chaicli/chai/providers/ai"
	"github.com/chaicli/chai/providers/memory/inmemory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockProvider is a scriptable in-process adapter. It records the requests it
// receives so tests can inspect the dispatched conversation snapshots.
type mockProvider struct {
	requests []ai.ChatRequest

	reply       string
	usage       *ai.Usage
	sendErr     error
	streamErr   error // yielded mid-stream after the reply content
	emptyStream bool  // 200 with an event-less body: the iterator ends immediately
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) WithAPIKey(string) ai.Provider { return m }

func (m *mockProvider) WithBaseURL(string) ai.Provider { return m }

func (m *mockProvider) WithHttpClient(*http.Client) ai.Provider { return m }

func (m *mockProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	m.requests = append(m.requests, request)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return &ai.ChatResponse{Content: m.reply, FinishReason: "stop", Usage: m.usage}, nil
}

func (m *mockProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	m.requests = append(m.requests, request)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		if m.emptyStream {
			return
		}
		for _, r := range m.reply {
			if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: string(r)}, nil) {
				return
			}
		}
		if m.streamErr != nil {
			yield(ai.StreamEvent{}, m.streamErr)
			return
		}
		if m.usage != nil {
			if !yield(ai.StreamEvent{Type: ai.StreamEventUsage, Usage: m.usage}, nil) {
				return
			}
		}
		yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: "stop"}, nil)
	}), nil
}

func TestSuccessfulExchangesGrowByTwo(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{reply: "pong"}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	const exchanges = 3
	for i := 0; i < exchanges; i++ {
		stream, err := session.Send(ctx, fmt.Sprintf("ping %d", i))
		if err != nil {
			t.Fatalf("Send returned error: %v", err)
		}
		if _, err := stream.Collect(); err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
	}

	count, _ := session.Len(ctx)
	if count != 2*exchanges {
		t.Fatalf("expected %d turns after %d exchanges, got %d", 2*exchanges, exchanges, count)
	}

	messages, _ := session.History(ctx)
	for i, message := range messages {
		wantRole := ai.RoleUser
		if i%2 == 1 {
			wantRole = ai.RoleAssistant
		}
		if message.Role != wantRole {
			t.Errorf("turn %d: expected role %s, got %s", i, wantRole, message.Role)
		}
	}
	if messages[1].Content != "pong" {
		t.Errorf("expected accumulated reply as assistant turn, got %q", messages[1].Content)
	}
}

func TestFailedDispatchGrowsByOne(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{sendErr: errors.New("connection refused")}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	_, err := session.Send(ctx, "hello?")
	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *ai.ProviderError, got %v", err)
	}
	if providerErr.Kind != ai.ErrorKindNetwork {
		t.Errorf("expected network kind, got %s", providerErr.Kind)
	}

	// User turn retained, no assistant turn.
	count, _ := session.Len(ctx)
	if count != 1 {
		t.Fatalf("expected exactly 1 turn after failure, got %d", count)
	}
	messages, _ := session.History(ctx)
	if messages[0].Role != ai.RoleUser || messages[0].Content != "hello?" {
		t.Errorf("expected the user turn to survive the failure, got %+v", messages[0])
	}
}

func TestMidStreamErrorRecordsNoAssistantTurn(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{reply: "par", streamErr: errors.New("connection reset")}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	stream, err := session.Send(ctx, "go on")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if _, err := stream.Collect(); err == nil {
		t.Fatal("expected a mid-stream error")
	}

	count, _ := session.Len(ctx)
	if count != 1 {
		t.Errorf("expected 1 turn after mid-stream failure, got %d", count)
	}
}

func TestEventlessStreamIsInvalidResponse(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{emptyStream: true}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	stream, err := session.Send(ctx, "anyone there?")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	_, err = stream.Collect()
	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *ai.ProviderError for an event-less stream, got %v", err)
	}
	if providerErr.Kind != ai.ErrorKindInvalidResponse {
		t.Errorf("expected invalid_response kind, got %s", providerErr.Kind)
	}

	// User turn retained, no empty assistant turn recorded.
	count, _ := session.Len(ctx)
	if count != 1 {
		t.Errorf("expected 1 turn after an empty completion, got %d", count)
	}
}

func TestEarlyBreakRecordsNoAssistantTurn(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{reply: "a long reply"}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	stream, err := session.Send(ctx, "tell me")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	seen := 0
	for _, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen++
		if seen == 2 {
			break // consumer abandons the reply, as on Ctrl-C
		}
	}

	count, _ := session.Len(ctx)
	if count != 1 {
		t.Errorf("expected no assistant turn after early break, got %d turns", count)
	}
}

func TestSnapshotCarriesFullConversation(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{reply: "ok"}
	session := New(provider, inmemory.New(), Options{Model: "mock-1", SystemPrompt: "be terse"})

	for _, prompt := range []string{"one", "two"} {
		stream, err := session.Send(ctx, prompt)
		if err != nil {
			t.Fatalf("Send returned error: %v", err)
		}
		if _, err := stream.Collect(); err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
	}

	if len(provider.requests) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(provider.requests))
	}
	// Second dispatch sees the first exchange plus the new user turn.
	second := provider.requests[1]
	if len(second.Messages) != 3 {
		t.Errorf("expected 3 messages in second snapshot, got %d", len(second.Messages))
	}
	if second.SystemPrompt != "be terse" {
		t.Errorf("expected system prompt on every dispatch, got %q", second.SystemPrompt)
	}
}

func TestClearResetsConversation(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{reply: "ok"}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	stream, _ := session.Send(ctx, "remember this")
	stream.Collect()

	session.Clear(ctx)

	count, _ := session.Len(ctx)
	if count != 0 {
		t.Fatalf("expected empty conversation after clear, got %d turns", count)
	}

	// The next dispatch carries no residual turns.
	stream, err := session.Send(ctx, "fresh start")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	stream.Collect()

	last := provider.requests[len(provider.requests)-1]
	if len(last.Messages) != 1 || last.Messages[0].Content != "fresh start" {
		t.Errorf("expected only the new user turn in the payload, got %+v", last.Messages)
	}
}

func TestReplaceSwapsConversation(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{reply: "ok"}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	stream, _ := session.Send(ctx, "old")
	stream.Collect()

	session.Replace(ctx, []ai.Message{
		{Role: ai.RoleUser, Content: "restored question"},
		{Role: ai.RoleAssistant, Content: "restored answer"},
	})

	messages, _ := session.History(ctx)
	if len(messages) != 2 || messages[0].Content != "restored question" {
		t.Errorf("expected the loaded conversation, got %+v", messages)
	}
}

func TestTotalUsageAccumulates(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{reply: "ok", usage: &ai.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12}}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	for i := 0; i < 2; i++ {
		stream, err := session.Send(ctx, "hi")
		if err != nil {
			t.Fatalf("Send returned error: %v", err)
		}
		if _, err := stream.Collect(); err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
	}

	total := session.TotalUsage()
	if total.TotalTokens != 24 || total.PromptTokens != 20 {
		t.Errorf("expected usage summed across exchanges, got %+v", total)
	}
}

func TestSendComplete(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{reply: "done", usage: &ai.Usage{TotalTokens: 5}}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	response, err := session.SendComplete(ctx, "do it")
	if err != nil {
		t.Fatalf("SendComplete returned error: %v", err)
	}
	if response.Content != "done" {
		t.Errorf("expected content 'done', got %q", response.Content)
	}

	count, _ := session.Len(ctx)
	if count != 2 {
		t.Errorf("expected 2 turns after SendComplete, got %d", count)
	}
	if session.TotalUsage().TotalTokens != 5 {
		t.Errorf("expected usage recorded, got %+v", session.TotalUsage())
	}
}

func TestCancellationMapsToCancelledKind(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &mockProvider{sendErr: ctx.Err()}
	session := New(provider, inmemory.New(), Options{Model: "mock-1"})

	_, err := session.Send(ctx, "too late")
	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *ai.ProviderError, got %v", err)
	}
	if providerErr.Kind != ai.ErrorKindCancelled {
		t.Errorf("expected cancelled kind, got %s", providerErr.Kind)
	}

	count, _ := session.Len(context.Background())
	if count != 1 {
		t.Errorf("expected the user turn to survive cancellation, got %d turns", count)
	}
}
