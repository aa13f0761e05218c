// Package capability binds logical capability names ("fast-writer",
// "planner") to a concrete provider and provider model identifier, so agents
// refer to what they need instead of which vendor serves it.
package capability

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/model"
)

// Binding maps a capability name to a provider model. Bindings are
// immutable once registered and may be shared by many agents.
type Binding struct {
	Name     string `json:"name" koanf:"name"`
	Provider string `json:"provider" koanf:"provider"`
	ModelID  string `json:"model" koanf:"model"`
}

// ProviderFactory builds a model client for a binding.
type ProviderFactory func(b Binding) (model.Model, error)

// Registry holds capability bindings and the provider factories able to
// serve them. Model clients are built on first use and cached per binding.
type Registry struct {
	mu        sync.RWMutex
	bindings  map[string]Binding
	factories map[string]ProviderFactory
	models    map[string]model.Model
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings:  make(map[string]Binding),
		factories: make(map[string]ProviderFactory),
		models:    make(map[string]model.Model),
	}
}

// RegisterProvider installs (or replaces) the factory for a provider name.
func (r *Registry) RegisterProvider(provider string, f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[provider] = f
}

// Register adds a binding. Reusing a name fails with DuplicateName.
func (r *Registry) Register(b Binding) error {
	if b.Name == "" || b.Provider == "" || b.ModelID == "" {
		return core.InvalidInput(fmt.Sprintf("capability binding %+v must set name, provider and model", b))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bindings[b.Name]; exists {
		return core.DuplicateName(b.Name)
	}

	r.bindings[b.Name] = b

	return nil
}

// Resolve returns the provider model identifier bound to name.
func (r *Registry) Resolve(name string) (string, error) {
	b, err := r.Binding(name)
	if err != nil {
		return "", err
	}

	return b.ModelID, nil
}

// Binding returns the full binding for name.
func (r *Registry) Binding(name string) (Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[name]
	if !ok {
		return Binding{}, core.UnknownCapability(name)
	}

	return b, nil
}

// Model returns the model client serving name, building it on first use.
func (r *Registry) Model(name string) (model.Model, error) {
	r.mu.RLock()
	m, cached := r.models[name]
	r.mu.RUnlock()

	if cached {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[name]; ok {
		return m, nil
	}

	b, ok := r.bindings[name]
	if !ok {
		return nil, core.UnknownCapability(name)
	}

	factory, ok := r.factories[b.Provider]
	if !ok {
		return nil, core.NewError(core.CodeUnknownCapability, name, fmt.Sprintf("capability %q uses unsupported provider %q", name, b.Provider), nil)
	}

	m, err := factory(b)
	if err != nil {
		return nil, core.ProviderUnavailable(b.Provider, fmt.Errorf("build model for capability %q: %w", name, err))
	}

	r.models[name] = m

	return m, nil
}

// Names returns the registered capability names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
