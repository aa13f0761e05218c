package core

import "context"

// MemoryStore persists conversation turns keyed by conversation identifier.
// Implementations must be safe for concurrent use; turns of one conversation
// are returned in append order. Short method names align with ArtifactStore.
type MemoryStore interface {
	Load(ctx context.Context, conversationID string) ([]Turn, error)
	Append(ctx context.Context, conversationID string, turns ...Turn) error
	Clear(ctx context.Context, conversationID string) error
}
