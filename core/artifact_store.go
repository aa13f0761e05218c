package core

import "context"

// ArtifactStore defines the interface for published artifacts (rendered memes
// and similar documents). Save returns a locator, usually a shareable URL,
// under which the artifact can be fetched again.
type ArtifactStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}
