package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ToolCalls(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"llama3.1","message":{"role":"assistant","content":"",`+
			`"tool_calls":[{"function":{"name":"uppercase","arguments":{"text":"hi"}}}]},`+
			`"done":true,"done_reason":"stop","prompt_eval_count":3,"eval_count":4}`+"\n")
	}))
	defer srv.Close()

	m, err := NewModel("llama3.1", func(o *Options) { o.BaseURL = srv.URL })
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), model.Request{
		Instructions: "Be loud.",
		Turns:        []core.Turn{core.NewUserTurn("hi")},
		Tools: []model.ToolDefinition{model.NewFunctionDefinition("uppercase", "Upper-case text", map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []string{"text"},
		})},
	})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "uppercase", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"text":"hi"}`, resp.ToolCalls[0].Arguments)
	assert.NotEmpty(t, resp.ToolCalls[0].ID)
	assert.Equal(t, 7, resp.Usage.TotalTokens)

	assert.Equal(t, false, body["stream"])
	assert.Len(t, body["tools"], 1)
	assert.Len(t, body["messages"], 2)
}

func TestGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"model not found"}`)
	}))
	defer srv.Close()

	m, err := NewModel("missing", func(o *Options) { o.BaseURL = srv.URL })
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), model.Request{Turns: []core.Turn{core.NewUserTurn("hi")}})
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestNewModel_InvalidURL(t *testing.T) {
	_, err := NewModel("x", func(o *Options) { o.BaseURL = "://bad" })
	assert.Error(t, err)
}
