package chat

import (
	"context"

	"github.com/chaicli/chai/providers/ai"
)

// SendFunc is a function that sends a chat request to the LLM provider and returns
// the completed response. It is the base unit threaded through the send middleware chain.
type SendFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error)

// StreamFunc is a function that sends a chat request to the LLM provider and returns
// a ChatStream for real-time token delivery. It is the base unit threaded through the
// stream middleware chain.
type StreamFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error)

// Middleware intercepts and optionally transforms LLM send requests and responses.
// Each Middleware receives the next SendFunc in the chain and returns a new SendFunc
// that wraps it. Middlewares are applied outermost-first: the first middleware in
// the slice is the outermost wrapper.
type Middleware func(next SendFunc) SendFunc

// StreamMiddleware is the streaming counterpart of Middleware. It intercepts
// stream requests and may wrap the returned ChatStream to observe or transform
// the event sequence.
type StreamMiddleware func(next StreamFunc) StreamFunc

// MiddlewareConfig pairs a send middleware with its optional streaming
// counterpart. A nil Stream means streaming calls bypass this middleware
// entry entirely (the stream chain falls through to the next entry).
type MiddlewareConfig struct {
	Send   Middleware
	Stream StreamMiddleware
}

// buildSendChain constructs the linear send middleware chain. The base
// function calls the provider directly. Middlewares are applied in reverse
// order so that the first entry in the slice becomes the outermost wrapper,
// i.e. the first to execute on an incoming request.
func buildSendChain(provider ai.Provider, middlewares []MiddlewareConfig) SendFunc {
	var chain SendFunc = func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		return provider.SendMessage(ctx, request)
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Send != nil {
			chain = middlewares[i].Send(chain)
		}
	}

	return chain
}

// buildStreamChain constructs the stream middleware chain. When the provider
// implements [ai.StreamProvider] the base function streams natively; otherwise
// it falls back to a synchronous send delivered as a single-event stream, so
// callers can treat every provider as streaming.
func buildStreamChain(provider ai.Provider, middlewares []MiddlewareConfig) StreamFunc {
	var chain StreamFunc

	if streamProvider, ok := provider.(ai.StreamProvider); ok {
		chain = func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			return streamProvider.StreamMessage(ctx, request)
		}
	} else {
		chain = func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			response, err := provider.SendMessage(ctx, request)
			if err != nil {
				return nil, err
			}
			return ai.NewSingleEventStream(response), nil
		}
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Stream != nil {
			chain = middlewares[i].Stream(chain)
		}
	}

	return chain
}
