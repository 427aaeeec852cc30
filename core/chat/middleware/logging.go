package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/chaicli/chai/core/chat"
	"github.com/chaicli/chai/providers/ai"
)

// NewLoggingMiddleware creates a MiddlewareConfig that logs every dispatch at
// debug level: model, conversation size, duration, and outcome. Message
// content and credentials are never logged.
func NewLoggingMiddleware(logger *slog.Logger) chat.MiddlewareConfig {
	if logger == nil {
		logger = slog.Default()
	}

	return chat.MiddlewareConfig{
		Send: func(next chat.SendFunc) chat.SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				start := time.Now()
				response, err := next(ctx, request)
				if err != nil {
					logger.Debug("send failed",
						"model", request.Model,
						"messages", len(request.Messages),
						"duration", time.Since(start),
						"error", err.Error(),
					)
					return nil, err
				}

				attrs := []any{
					"model", request.Model,
					"messages", len(request.Messages),
					"duration", time.Since(start),
					"finish_reason", response.FinishReason,
				}
				if response.Usage != nil {
					attrs = append(attrs, "total_tokens", response.Usage.TotalTokens)
				}
				logger.Debug("send completed", attrs...)
				return response, nil
			}
		},

		Stream: func(next chat.StreamFunc) chat.StreamFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				start := time.Now()
				stream, err := next(ctx, request)
				if err != nil {
					logger.Debug("stream failed to start",
						"model", request.Model,
						"messages", len(request.Messages),
						"duration", time.Since(start),
						"error", err.Error(),
					)
					return nil, err
				}

				return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
					events := 0
					for event, err := range stream.Iter() {
						if err != nil {
							logger.Debug("stream aborted",
								"model", request.Model,
								"events", events,
								"duration", time.Since(start),
								"error", err.Error(),
							)
							yield(event, err)
							return
						}
						events++
						if !yield(event, nil) {
							return
						}
					}
					logger.Debug("stream completed",
						"model", request.Model,
						"events", events,
						"duration", time.Since(start),
					)
				}), nil
			}
		},
	}
}
