package capability

import (
	"errors"
	"testing"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Binding{Name: "writer", Provider: "groq", ModelID: "gemma2-9b-it"}))

	id, err := r.Resolve("writer")
	require.NoError(t, err)
	assert.Equal(t, "gemma2-9b-it", id)

	_, err = r.Resolve("missing")
	assert.ErrorIs(t, err, core.ErrUnknownCapability)

	err = r.Register(Binding{Name: "writer", Provider: "openai", ModelID: "gpt-4o-mini"})
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	err = r.Register(Binding{Name: "broken"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	assert.Equal(t, []string{"writer"}, r.Names())
}

func TestRegistry_ModelIsBuiltOnceAndShared(t *testing.T) {
	r := NewRegistry()

	builds := 0
	r.RegisterProvider("scripted", func(b Binding) (model.Model, error) {
		builds++
		return model.NewScriptedModel(b.ModelID), nil
	})

	require.NoError(t, r.Register(Binding{Name: "fast", Provider: "scripted", ModelID: "m1"}))

	m1, err := r.Model("fast")
	require.NoError(t, err)
	m2, err := r.Model("fast")
	require.NoError(t, err)

	assert.Same(t, m1, m2)
	assert.Equal(t, 1, builds)
	assert.Equal(t, "m1", m1.Info().Name)
}

func TestRegistry_ModelFailures(t *testing.T) {
	r := NewRegistry()
	r.RegisterProvider("broken", func(Binding) (model.Model, error) { return nil, errors.New("no api key") })

	require.NoError(t, r.Register(Binding{Name: "a", Provider: "unknown", ModelID: "x"}))
	require.NoError(t, r.Register(Binding{Name: "b", Provider: "broken", ModelID: "x"}))

	_, err := r.Model("a")
	assert.ErrorIs(t, err, core.ErrUnknownCapability)

	_, err = r.Model("b")
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)

	_, err = r.Model("c")
	assert.ErrorIs(t, err, core.ErrUnknownCapability)
}
