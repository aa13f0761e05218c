package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentmux/artifact"
	"github.com/hupe1980/agentmux/capability"
	"github.com/hupe1980/agentmux/config"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/internal/meme"
	"github.com/hupe1980/agentmux/internal/publishing"
	"github.com/hupe1980/agentmux/memory/sqlite"
)

func scriptedConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Capabilities = map[string]config.CapabilityConfig{
		ChatCapability:    {Provider: "scripted", Model: ScriptedUppercase},
		WriterCapability:  {Provider: "scripted", Model: ScriptedUppercase},
		PlannerCapability: {Provider: "scripted", Model: ScriptedUppercase},
		ShoutCapability:   {Provider: "scripted", Model: ScriptedUppercaseTool},
	}

	return cfg
}

func TestNew_RegistersBuiltins(t *testing.T) {
	a, err := New(context.Background(), scriptedConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.True(t, a.Orchestrator.Frozen())
	assert.Equal(t, []string{ChatbotName, meme.AgentName, publishing.PublisherName, ShouterName}, a.Orchestrator.Agents())
	assert.Equal(t, []string{meme.WorkflowName}, a.Orchestrator.Workflows())
	assert.IsType(t, &artifact.InMemoryStore{}, a.Artifacts)
	assert.NotNil(t, a.Memory)
}

func TestNew_DispatchScriptedAgents(t *testing.T) {
	a, err := New(context.Background(), scriptedConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()

	answer, err := a.Orchestrator.Dispatch(ctx, ChatbotName, "hello")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", answer)

	answer, err = a.Orchestrator.Dispatch(ctx, ShouterName, "hi")
	require.NoError(t, err)
	assert.Equal(t, "HI", answer)

	_, err = a.Orchestrator.Dispatch(ctx, "nobody", "hi")
	assert.ErrorIs(t, err, core.ErrUnknownAgent)
}

func TestNew_ConversationMemory(t *testing.T) {
	a, err := New(context.Background(), scriptedConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()

	_, err = a.Orchestrator.DispatchConversation(ctx, ChatbotName, "c-1", "first")
	require.NoError(t, err)

	turns, err := a.Memory.Load(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].Text)
	assert.Equal(t, "FIRST", turns[1].Text)
}

func TestNew_UnknownScriptedModel(t *testing.T) {
	cfg := scriptedConfig(t)
	cfg.Capabilities[ChatCapability] = config.CapabilityConfig{Provider: "scripted", Model: "mystery"}

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestNew_MissingCapability(t *testing.T) {
	cfg := scriptedConfig(t)
	delete(cfg.Capabilities, ShoutCapability)

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, core.ErrUnknownCapability)
}

func TestNewScriptedModel(t *testing.T) {
	m, err := NewScriptedModel(capability.Binding{Name: "x", Provider: "scripted", ModelID: ScriptedUppercaseTool})
	require.NoError(t, err)
	assert.True(t, m.Info().SupportsTools)

	_, err = NewScriptedModel(capability.Binding{Name: "x", Provider: "scripted", ModelID: "other"})
	assert.Error(t, err)
}

func TestNewMemory_Backends(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := NewMemory(ctx, config.MemoryConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, store)
	assert.Nil(t, closeFn)

	store, closeFn, err = NewMemory(ctx, config.MemoryConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "memory.db"),
	})
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	t.Cleanup(func() { _ = closeFn() })
	assert.IsType(t, &sqlite.Store{}, store)

	_, _, err = NewMemory(ctx, config.MemoryConfig{Backend: "tape"})
	assert.Error(t, err)
}

func TestNewArtifacts_InMemoryBaseURL(t *testing.T) {
	ctx := context.Background()

	store, err := NewArtifacts(ctx, config.ArtifactsConfig{Backend: "inmemory"}, "http://example.test/")
	require.NoError(t, err)

	url, err := store.Save(ctx, "memes/a.svg", "image/svg+xml", []byte("<svg/>"))
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/artifacts/memes/a.svg", url)
}

func TestUppercaseTool(t *testing.T) {
	out, err := NewUppercaseTool().Call(core.NewToolContext(context.Background(), "call-1", ShouterName, nil), map[string]any{"text": "hey"})
	require.NoError(t, err)
	assert.Equal(t, "HEY", out)
}
