package inmemory

import (
	"context"
	"sync"

	"github.com/chaicli/chai/providers/ai"
	"github.com/chaicli/chai/providers/memory"
)

// ArrayMemory is a simple, concurrency-safe in-memory message store.
// It uses RWMutex to guard access and is efficient for read-heavy workloads.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []ai.Message
}

// New returns a new, empty [ArrayMemory] ready for immediate use.
func New() *ArrayMemory {
	return &ArrayMemory{
		messages: []ai.Message{},
	}
}

// Ensure ArrayMemory implements memory.Provider at compile time.
var _ memory.Provider = (*ArrayMemory)(nil)

// AppendMessage stores a copy of message at the end of the history.
// It is a no-op when message is nil.
func (m *ArrayMemory) AppendMessage(_ context.Context, message *ai.Message) {
	if message == nil {
		return
	}

	m.mu.Lock()
	m.messages = append(m.messages, *message)
	m.mu.Unlock()
}

// Count returns the number of messages stored.
// The context parameter is accepted for interface compliance but is not used
// by the in-memory implementation. The returned error is always nil.
func (m *ArrayMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	n := len(m.messages)
	m.mu.RUnlock()
	return n, nil
}

// AllMessages returns a copy of all messages to avoid external mutation of internal state.
// The context parameter is accepted for interface compliance but is not used
// by the in-memory implementation. The returned error is always nil.
func (m *ArrayMemory) AllMessages(_ context.Context) ([]ai.Message, error) {
	m.mu.RLock()
	if len(m.messages) == 0 {
		m.mu.RUnlock()
		return []ai.Message{}, nil
	}
	out := make([]ai.Message, len(m.messages))
	copy(out, m.messages)
	m.mu.RUnlock()
	return out, nil
}

// ClearMessages removes all messages while retaining the underlying slice capacity,
// so subsequent appends do not immediately trigger a reallocation.
func (m *ArrayMemory) ClearMessages(_ context.Context) {
	m.mu.Lock()
	m.messages = m.messages[:0]
	m.mu.Unlock()
}

// ReplaceMessages swaps the entire history for a copy of the given sequence
// in one step, so no reader can observe a partially loaded conversation.
func (m *ArrayMemory) ReplaceMessages(_ context.Context, messages []ai.Message) {
	replacement := make([]ai.Message, len(messages))
	copy(replacement, messages)

	m.mu.Lock()
	m.messages = replacement
	m.mu.Unlock()
}
