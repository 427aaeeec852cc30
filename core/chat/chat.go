// Package chat implements the interactive session core: an append-only
// conversation threaded through a middleware chain to a provider adapter.
//
// The session honors a strict turn discipline: a dispatch appends the user
// turn first, and appends the assistant turn only when the reply stream
// completes successfully. A failed or cancelled dispatch leaves the user turn
// in place with no assistant turn, so the conversation grows by exactly one
// message on failure and exactly two on success.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chaicli/chai/providers/ai"
	"github.com/chaicli/chai/providers/memory"
)

// Options holds the per-session configuration. It is read at construction
// and never mutated afterwards.
type Options struct {
	Model            string
	SystemPrompt     string
	GenerationConfig *ai.GenerationConfig
}

// Chat is a single conversation session bound to one provider adapter and one
// conversation store. Sessions are not shared: each owns its store exclusively.
type Chat struct {
	provider ai.Provider
	memory   memory.Provider
	options  Options
	logger   *slog.Logger

	send   SendFunc
	stream StreamFunc

	mu         sync.Mutex
	totalUsage ai.Usage
}

// New constructs a session over the given provider and conversation store.
// Middlewares are applied outermost-first to both the send and stream paths.
func New(provider ai.Provider, store memory.Provider, options Options, middlewares ...MiddlewareConfig) *Chat {
	return &Chat{
		provider: provider,
		memory:   store,
		options:  options,
		logger: slog.Default().With(
			"session_id", uuid.NewString(),
			"provider", provider.Name(),
			"model", options.Model,
		),
		send:   buildSendChain(provider, middlewares),
		stream: buildStreamChain(provider, middlewares),
	}
}

// Model returns the model identifier this session dispatches to.
func (c *Chat) Model() string {
	return c.options.Model
}

// Provider returns the adapter backing this session.
func (c *Chat) Provider() ai.Provider {
	return c.provider
}

// snapshotRequest builds the dispatch request from the current conversation
// snapshot. The snapshot is an independent copy: mutations of the store after
// this call do not alias into an in-flight request.
func (c *Chat) snapshotRequest(ctx context.Context) (ai.ChatRequest, error) {
	messages, err := c.memory.AllMessages(ctx)
	if err != nil {
		return ai.ChatRequest{}, err
	}
	return ai.ChatRequest{
		Model:            c.options.Model,
		Messages:         messages,
		SystemPrompt:     c.options.SystemPrompt,
		GenerationConfig: c.options.GenerationConfig,
	}, nil
}

// Send records content as a user turn and dispatches the full conversation
// snapshot to the provider, returning the reply as a stream.
//
// The user turn is appended before dispatch and is never rolled back: when
// the dispatch fails (pre-stream error return, or mid-stream error through
// the iterator) the conversation keeps the user turn and gains no assistant
// turn. On successful stream completion the accumulated reply text is
// appended as the assistant turn.
//
// The returned stream is finite and non-restartable; the caller must consume
// it exactly once.
func (c *Chat) Send(ctx context.Context, content string) (*ai.ChatStream, error) {
	c.memory.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: content, Time: time.Now()})

	request, err := c.snapshotRequest(ctx)
	if err != nil {
		return nil, ai.Classify(c.provider.Name(), err)
	}

	c.logger.Debug("dispatching conversation", "messages", len(request.Messages))

	stream, err := c.stream(ctx, request)
	if err != nil {
		classified := ai.Classify(c.provider.Name(), err)
		c.logger.Debug("dispatch failed", "kind", classified.Kind, "error", classified.Message)
		return nil, classified
	}

	return c.recordingStream(ctx, stream), nil
}

// SendComplete is the non-streaming variant of Send: it dispatches the
// conversation and blocks until the full reply is available. The same turn
// discipline applies.
func (c *Chat) SendComplete(ctx context.Context, content string) (*ai.ChatResponse, error) {
	c.memory.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: content, Time: time.Now()})

	request, err := c.snapshotRequest(ctx)
	if err != nil {
		return nil, ai.Classify(c.provider.Name(), err)
	}

	response, err := c.send(ctx, request)
	if err != nil {
		return nil, ai.Classify(c.provider.Name(), err)
	}

	c.memory.AppendMessage(ctx, &ai.Message{Role: ai.RoleAssistant, Content: response.Content, Time: time.Now()})
	c.recordUsage(response.Usage)
	return response, nil
}

// recordingStream wraps the provider stream so the assistant turn is appended
// exactly when the stream completes cleanly. A mid-stream error or an early
// break by the consumer (user interrupt) leaves the conversation without an
// assistant turn, and so does a stream that ends without ever producing
// content or a done event: that is an empty completion, not a reply.
func (c *Chat) recordingStream(ctx context.Context, inner *ai.ChatStream) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		var content strings.Builder
		var usage *ai.Usage
		completed := true
		sawDone := false

		for event, err := range inner.Iter() {
			if err != nil {
				classified := ai.Classify(c.provider.Name(), err)
				c.logger.Debug("stream failed", "kind", classified.Kind, "error", classified.Message)
				yield(ai.StreamEvent{}, classified)
				return
			}

			if event.Type == ai.StreamEventContent {
				content.WriteString(event.Content)
			}
			if event.Type == ai.StreamEventUsage {
				usage = event.Usage
			}
			if event.Type == ai.StreamEventDone {
				sawDone = true
			}

			if !yield(event, nil) {
				completed = false
				break
			}
		}

		if !completed {
			return
		}

		if content.Len() == 0 && !sawDone {
			empty := ai.NewProviderError(c.provider.Name(), ai.ErrorKindInvalidResponse, "empty completion in stream")
			c.logger.Debug("stream failed", "kind", empty.Kind, "error", empty.Message)
			yield(ai.StreamEvent{}, empty)
			return
		}

		c.memory.AppendMessage(ctx, &ai.Message{Role: ai.RoleAssistant, Content: content.String(), Time: time.Now()})
		c.recordUsage(usage)
		c.logger.Debug("reply recorded", "chars", content.Len())
	})
}

func (c *Chat) recordUsage(usage *ai.Usage) {
	if usage == nil {
		return
	}
	c.mu.Lock()
	c.totalUsage.Add(usage)
	c.mu.Unlock()
}

// TotalUsage returns the token usage accumulated across all successful
// exchanges in this session.
func (c *Chat) TotalUsage() ai.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalUsage
}

// History returns an independent snapshot of the conversation.
func (c *Chat) History(ctx context.Context) ([]ai.Message, error) {
	return c.memory.AllMessages(ctx)
}

// Len returns the number of recorded turns.
func (c *Chat) Len(ctx context.Context) (int, error) {
	return c.memory.Count(ctx)
}

// Clear atomically discards the whole conversation. The next dispatch starts
// from an empty context.
func (c *Chat) Clear(ctx context.Context) {
	c.memory.ClearMessages(ctx)
}

// Replace atomically swaps the conversation for a previously saved one.
func (c *Chat) Replace(ctx context.Context, messages []ai.Message) {
	c.memory.ReplaceMessages(ctx, messages)
}
