// Package middleware provides send/stream middlewares for chat sessions:
// per-request timeouts and structured request logging.
package middleware

import (
	"context"
	"time"

	"github.com/chaicli/chai/core/chat"
	"github.com/chaicli/chai/providers/ai"
)

// NewTimeoutMiddleware creates a MiddlewareConfig that enforces a per-request
// deadline on both synchronous and streaming provider calls.
//
// For send requests the context is wrapped with context.WithTimeout and
// cancel is deferred: the context is released once the provider returns or
// the deadline expires.
//
// For streaming requests the timeout wraps the context before calling next,
// but cancel is NOT deferred immediately. It is called once the stream is
// fully consumed, a mid-stream error occurs, or the iterator is abandoned,
// so the deadline governs the complete lifetime of the stream rather than
// just the time to first byte.
//
// If the caller supplies a context that already has a shorter deadline, that
// shorter deadline wins as per normal context semantics.
func NewTimeoutMiddleware(timeout time.Duration) chat.MiddlewareConfig {
	return chat.MiddlewareConfig{
		Send:   buildSendTimeout(timeout),
		Stream: buildStreamTimeout(timeout),
	}
}

func buildSendTimeout(timeout time.Duration) chat.Middleware {
	return func(next chat.SendFunc) chat.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}

func buildStreamTimeout(timeout time.Duration) chat.StreamMiddleware {
	return func(next chat.StreamFunc) chat.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)

			stream, err := next(ctx, request)
			if err != nil {
				// Pre-stream error, release the context immediately.
				cancel()
				return nil, err
			}

			return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
				// The iterator owns the cancel: it fires when the stream is
				// exhausted, errors out, or the consumer breaks early.
				defer cancel()

				for event, err := range stream.Iter() {
					if !yield(event, err) {
						return
					}
					if err != nil {
						return
					}
				}
			}), nil
		}
	}
}
