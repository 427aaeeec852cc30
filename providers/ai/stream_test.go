package ai

import (
	"errors"
	"testing"
)

func eventsStream(events ...StreamEvent) *ChatStream {
	return NewChatStream(func(yield func(StreamEvent, error) bool) {
		for _, event := range events {
			if !yield(event, nil) {
				return
			}
		}
	})
}

func TestCollectAccumulatesContent(t *testing.T) {
	stream := eventsStream(
		StreamEvent{Type: StreamEventContent, Content: "Hello"},
		StreamEvent{Type: StreamEventContent, Content: ", "},
		StreamEvent{Type: StreamEventContent, Content: "world"},
		StreamEvent{Type: StreamEventUsage, Usage: &Usage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8}},
		StreamEvent{Type: StreamEventDone, FinishReason: "stop"},
	)

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if response.Content != "Hello, world" {
		t.Errorf("expected accumulated content 'Hello, world', got %q", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("expected finish reason 'stop', got %q", response.FinishReason)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 8 {
		t.Errorf("expected usage with 8 total tokens, got %+v", response.Usage)
	}
}

func TestCollectReturnsPartialOnError(t *testing.T) {
	streamErr := errors.New("connection reset")
	stream := NewChatStream(func(yield func(StreamEvent, error) bool) {
		if !yield(StreamEvent{Type: StreamEventContent, Content: "partial"}, nil) {
			return
		}
		yield(StreamEvent{}, streamErr)
	})

	response, err := stream.Collect()
	if !errors.Is(err, streamErr) {
		t.Fatalf("expected the mid-stream error, got %v", err)
	}
	if response.Content != "partial" {
		t.Errorf("expected partial content to be preserved, got %q", response.Content)
	}
}

func TestIterSupportsEarlyBreak(t *testing.T) {
	cleanedUp := false
	stream := NewChatStream(func(yield func(StreamEvent, error) bool) {
		defer func() { cleanedUp = true }()
		for i := 0; i < 100; i++ {
			if !yield(StreamEvent{Type: StreamEventContent, Content: "x"}, nil) {
				return
			}
		}
	})

	seen := 0
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = event
		seen++
		if seen == 3 {
			break
		}
	}

	if seen != 3 {
		t.Errorf("expected to observe 3 events before breaking, got %d", seen)
	}
	if !cleanedUp {
		t.Error("expected the iterator's deferred cleanup to run on early break")
	}
}

func TestSingleEventStream(t *testing.T) {
	response := &ChatResponse{
		Content:      "complete reply",
		FinishReason: "stop",
		Usage:        &Usage{TotalTokens: 12},
	}

	collected, err := NewSingleEventStream(response).Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if collected.Content != "complete reply" {
		t.Errorf("expected content to round-trip, got %q", collected.Content)
	}
	if collected.FinishReason != "stop" {
		t.Errorf("expected finish reason 'stop', got %q", collected.FinishReason)
	}
	if collected.Usage == nil || collected.Usage.TotalTokens != 12 {
		t.Errorf("expected usage to round-trip, got %+v", collected.Usage)
	}
}

func TestUsageAdd(t *testing.T) {
	total := Usage{}
	total.Add(&Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	total.Add(&Usage{PromptTokens: 2, CompletionTokens: 1, TotalTokens: 3})
	total.Add(nil)

	if total.PromptTokens != 12 || total.CompletionTokens != 6 || total.TotalTokens != 18 {
		t.Errorf("unexpected accumulated usage: %+v", total)
	}
}
