package memory

import (
	"context"
	"sync"

	"github.com/hupe1980/agentmux/core"
)

// InMemoryStore is a process-local MemoryStore keeping every conversation in
// a map guarded by an RWMutex. Turns are copied on the way in and out so
// callers never share backing arrays with the store.
//
// Suitable for tests, demos and single instance deployments; conversations
// are lost on restart.
type InMemoryStore struct {
	mu       sync.RWMutex
	maxTurns int
	turns    map[string][]core.Turn // conversationID -> turns
}

// InMemoryOptions configures an InMemoryStore.
type InMemoryOptions struct {
	// MaxTurns keeps only the most recent turns per conversation; 0 keeps all.
	MaxTurns int
}

// NewInMemoryStore creates a new in-memory conversation store.
func NewInMemoryStore(optFns ...func(o *InMemoryOptions)) *InMemoryStore {
	opts := InMemoryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{
		maxTurns: opts.MaxTurns,
		turns:    make(map[string][]core.Turn),
	}
}

// Load returns a copy of the conversation's turns in append order.
func (m *InMemoryStore) Load(ctx context.Context, conversationID string) ([]core.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.turns[conversationID]
	out := make([]core.Turn, len(stored))
	copy(out, stored)

	return out, nil
}

// Append adds turns to the end of the conversation.
func (m *InMemoryStore) Append(ctx context.Context, conversationID string, turns ...core.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(turns) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv := append(m.turns[conversationID], turns...)
	if m.maxTurns > 0 && len(conv) > m.maxTurns {
		conv = append([]core.Turn(nil), conv[len(conv)-m.maxTurns:]...)
	}

	m.turns[conversationID] = conv

	return nil
}

// Clear drops the conversation.
func (m *InMemoryStore) Clear(ctx context.Context, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.turns, conversationID)

	return nil
}

// Conversations returns the number of stored conversations.
func (m *InMemoryStore) Conversations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.turns)
}
