package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentmux"
	"github.com/hupe1980/agentmux/agent"
	"github.com/hupe1980/agentmux/capability"
	"github.com/hupe1980/agentmux/model"
	"github.com/hupe1980/agentmux/workflow"
)

type rpcResponse struct {
	Result struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type url string

func (u url) Locator() string { return string(u) }

func newServer(t *testing.T) *Server {
	t.Helper()

	a, err := agent.New("chatbot", capability.Binding{Name: "chat", Provider: "scripted", ModelID: "uppercase"}, model.UppercaseModel{},
		func(o *agent.Options) { o.Description = "Shouts back" })
	require.NoError(t, err)

	wf, err := workflow.New("publish", []workflow.Stage{
		workflow.Step("publish", func(_ context.Context, text string) (url, error) {
			return url("https://example.test/" + text), nil
		}),
	})
	require.NoError(t, err)

	o := agentmux.New()
	require.NoError(t, o.RegisterAgent(a))
	require.NoError(t, o.RegisterWorkflow(wf))
	o.Freeze()

	return New(o)
}

func call(t *testing.T, s *Server, method string, params any) rpcResponse {
	t.Helper()

	p, err := json.Marshal(params)
	require.NoError(t, err)

	msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":%q,"params":%s}`, method, p)

	out, err := json.Marshal(s.MCPServer().HandleMessage(context.Background(), json.RawMessage(msg)))
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Nil(t, resp.Error)

	return resp
}

func TestServer_ListsAgentsAndWorkflows(t *testing.T) {
	resp := call(t, newServer(t), "tools/list", map[string]any{})

	names := make([]string, 0, len(resp.Result.Tools))
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}

	assert.ElementsMatch(t, []string{"agent_chatbot", "workflow_publish"}, names)
}

func TestServer_CallAgent(t *testing.T) {
	resp := call(t, newServer(t), "tools/call", map[string]any{
		"name":      "agent_chatbot",
		"arguments": map[string]any{"text": "hello"},
	})

	require.False(t, resp.Result.IsError)
	require.Len(t, resp.Result.Content, 1)
	assert.Equal(t, "HELLO", resp.Result.Content[0].Text)
}

func TestServer_CallWorkflow(t *testing.T) {
	resp := call(t, newServer(t), "tools/call", map[string]any{
		"name":      "workflow_publish",
		"arguments": map[string]any{"text": "meme"},
	})

	require.False(t, resp.Result.IsError)
	require.Len(t, resp.Result.Content, 1)
	assert.Equal(t, "https://example.test/meme", resp.Result.Content[0].Text)
}

func TestServer_ErrorsBecomeToolErrors(t *testing.T) {
	s := newServer(t)

	resp := call(t, s, "tools/call", map[string]any{
		"name":      "agent_chatbot",
		"arguments": map[string]any{"text": "   "},
	})
	require.True(t, resp.Result.IsError)
	assert.Contains(t, resp.Result.Content[0].Text, "INVALID_INPUT")

	resp = call(t, s, "tools/call", map[string]any{
		"name":      "agent_chatbot",
		"arguments": map[string]any{},
	})
	assert.True(t, resp.Result.IsError)
}
