package artifact

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryStore is a trivial in-process ArtifactStore implementation useful
// for tests, examples and single-process deployments. Data is copied on save
// and retrieval to avoid accidental external mutation of internal buffers.
//
// Locators are BaseURL + "/" + key; the HTTP transport serves them back from
// the same store.
type InMemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	items   map[string]item // key -> artifact
}

type item struct {
	data        []byte
	contentType string
}

// InMemoryOptions configures an InMemoryStore.
type InMemoryOptions struct {
	// BaseURL prefixes returned locators; defaults to "memory://artifacts".
	BaseURL string
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore(optFns ...func(o *InMemoryOptions)) *InMemoryStore {
	opts := InMemoryOptions{BaseURL: "memory://artifacts"}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{baseURL: opts.BaseURL, items: make(map[string]item)}
}

// Save stores (or overwrites) the artifact and returns its locator.
func (a *InMemoryStore) Save(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	a.mu.Lock()
	a.items[k] = item{data: cp, contentType: contentType}
	a.mu.Unlock()

	return JoinURL(a.baseURL, k), nil
}

// Get returns a copy of the stored bytes and the content type, or ErrNotFound.
func (a *InMemoryStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	k, err := CleanKey(key)
	if err != nil {
		return nil, "", err
	}

	a.mu.RLock()
	it, ok := a.items[k]
	a.mu.RUnlock()

	if !ok {
		return nil, "", ErrNotFound
	}

	cp := make([]byte, len(it.data))
	copy(cp, it.data)

	return cp, it.contentType, nil
}

// List returns the sorted keys starting with prefix.
func (a *InMemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]string, 0, len(a.items))
	for k := range a.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k, err := CleanKey(key)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.items[k]; !ok {
		return ErrNotFound
	}

	delete(a.items, k)

	return nil
}
