// Package memory defines the conversation-store contract used by chat
// sessions. A store is append-only during a session: turns are never edited
// or removed individually, only cleared or replaced as a whole.
package memory

import (
	"context"

	"github.com/chaicli/chai/providers/ai"
)

// Provider is the interface implemented by conversation stores. Each session
// owns an independent store; stores are never shared across sessions.
type Provider interface {
	// AppendMessage stores a copy of message at the end of the history.
	AppendMessage(ctx context.Context, message *ai.Message)

	// AllMessages returns an independent snapshot of the history in
	// chronological order.
	AllMessages(ctx context.Context) ([]ai.Message, error)

	// Count returns the number of stored messages.
	Count(ctx context.Context) (int, error)

	// ClearMessages atomically removes the entire history.
	ClearMessages(ctx context.Context)

	// ReplaceMessages atomically replaces the entire history with the given
	// sequence. Used when loading a saved conversation.
	ReplaceMessages(ctx context.Context, messages []ai.Message)
}
