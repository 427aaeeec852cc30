package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/chaicli/chai/providers/ai"
)

func TestAppendAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store := New()

	store.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "first"})
	store.AppendMessage(ctx, &ai.Message{Role: ai.RoleAssistant, Content: "second"})

	messages, err := store.AllMessages(ctx)
	if err != nil {
		t.Fatalf("AllMessages returned error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "first" || messages[1].Content != "second" {
		t.Errorf("expected chronological order, got %q then %q", messages[0].Content, messages[1].Content)
	}

	// The snapshot is independent: mutating it must not alias the store.
	messages[0].Content = "mutated"
	fresh, _ := store.AllMessages(ctx)
	if fresh[0].Content != "first" {
		t.Errorf("snapshot mutation leaked into the store: %q", fresh[0].Content)
	}
}

func TestAppendNilIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := New()

	store.AppendMessage(ctx, nil)

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("expected nil append to be ignored, got %d messages", count)
	}
}

func TestClearMessages(t *testing.T) {
	ctx := context.Background()
	store := New()

	store.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "hello"})
	store.ClearMessages(ctx)

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("expected empty store after clear, got %d messages", count)
	}

	// Appends after a clear must work normally.
	store.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "again"})
	count, _ = store.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 message after post-clear append, got %d", count)
	}
}

func TestReplaceMessages(t *testing.T) {
	ctx := context.Background()
	store := New()
	store.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "old"})

	loaded := []ai.Message{
		{Role: ai.RoleUser, Content: "restored question"},
		{Role: ai.RoleAssistant, Content: "restored answer"},
	}
	store.ReplaceMessages(ctx, loaded)

	messages, _ := store.AllMessages(ctx)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages after replace, got %d", len(messages))
	}
	if messages[0].Content != "restored question" {
		t.Errorf("expected replacement content, got %q", messages[0].Content)
	}

	// The store copies the input; later mutation of the caller's slice must
	// not be observable.
	loaded[0].Content = "mutated"
	fresh, _ := store.AllMessages(ctx)
	if fresh[0].Content != "restored question" {
		t.Errorf("caller slice mutation leaked into the store: %q", fresh[0].Content)
	}
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "x"})
		}()
	}
	wg.Wait()

	count, _ := store.Count(ctx)
	if count != 50 {
		t.Errorf("expected 50 messages after concurrent appends, got %d", count)
	}
}
