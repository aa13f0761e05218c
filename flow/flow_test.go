package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/model"
	"github.com/hupe1980/agentmux/tool"
)

type testAgent struct {
	name         string
	model        model.Model
	instructions string
	instrErr     error
	tools        []tool.Tool
	maxHistory   int
}

func (a *testAgent) Name() string       { return a.name }
func (a *testAgent) Model() model.Model { return a.model }
func (a *testAgent) ResolveInstructions(context.Context) (string, error) {
	return a.instructions, a.instrErr
}
func (a *testAgent) Tools() []tool.Tool      { return a.tools }
func (a *testAgent) MaxHistoryMessages() int { return a.maxHistory }
func (a *testAgent) Tool(name string) (tool.Tool, bool) {
	for _, t := range a.tools {
		if t.Name() == name {
			return t, true
		}
	}

	return nil, false
}

var textSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text": map[string]any{"type": "string"},
	},
	"required": []string{"text"},
}

func countingUppercase(calls *int32) *tool.FunctionTool {
	return tool.NewFunctionTool("uppercase", "Upper-case text", textSchema, func(_ *core.ToolContext, args map[string]any) (any, error) {
		atomic.AddInt32(calls, 1)
		return strings.ToUpper(args["text"].(string)), nil
	})
}

func TestBaseFlow_TextAnswer(t *testing.T) {
	m := model.NewScriptedModel("m", model.Text("hello there"))
	f := NewBaseFlow(&testAgent{name: "chatbot", model: m, instructions: "be nice"})

	res, err := f.Run(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Text)
	assert.Equal(t, 0, res.Rounds)
	require.Len(t, res.Turns, 2)
	assert.Equal(t, core.RoleUser, res.Turns[0].Role)
	assert.Equal(t, core.RoleAssistant, res.Turns[1].Role)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "be nice", reqs[0].Instructions)
	assert.Equal(t, "hi", reqs[0].LastUserText())
}

func TestBaseFlow_ToolRoundThenAnswer(t *testing.T) {
	var calls int32

	m := model.NewScriptedModel("m",
		model.Call("uppercase", `{"text":"hello"}`),
		model.Echo(func(s string) string { return "result: " + s }),
	)
	f := NewBaseFlow(&testAgent{name: "shouter", model: m, tools: []tool.Tool{countingUppercase(&calls)}})

	res, err := f.Run(context.Background(), "shout hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "result: HELLO", res.Text)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, m.CallCount())

	// user, assistant(tool call), tool, assistant(final)
	require.Len(t, res.Turns, 4)
	assert.True(t, res.Turns[1].HasToolCalls())
	require.NotNil(t, res.Turns[2].ToolResult)
	assert.Equal(t, "HELLO", res.Turns[2].ToolResult.Output)
	assert.Equal(t, res.Turns[1].ToolCalls[0].ID, res.Turns[2].ToolResult.CallID)

	second := m.Requests()[1]
	require.Len(t, second.Tools, 1)
	assert.Equal(t, "uppercase", second.Tools[0].Function.Name)
}

func TestBaseFlow_LogsRemainingRounds(t *testing.T) {
	var (
		calls int32
		buf   bytes.Buffer
	)

	m := model.NewScriptedModel("m",
		model.Call("uppercase", `{"text":"a"}`),
		model.Call("uppercase", `{"text":"b"}`),
		model.Text("done"),
	)
	f := NewBaseFlow(&testAgent{name: "shouter", model: m, tools: []tool.Tool{countingUppercase(&calls)}}, func(o *Options) {
		o.MaxRounds = 3
		o.Logger = logging.NewSlogLogger(logging.LogLevelDebug, "json", &buf, false)
	})

	_, err := f.Run(context.Background(), "x", nil)
	require.NoError(t, err)

	var remaining []float64

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))

		if rec["msg"] == "agent.round.completed" {
			remaining = append(remaining, rec["rounds_remaining"].(float64))
		}
	}

	assert.Equal(t, []float64{2, 1}, remaining)
}

func TestBaseFlow_InvalidInputNeverExecutes(t *testing.T) {
	var calls int32

	m := model.NewScriptedModel("m", model.Call("uppercase", `{"text":42}`))
	f := NewBaseFlow(&testAgent{name: "shouter", model: m, tools: []tool.Tool{countingUppercase(&calls)}})

	res, err := f.Run(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, core.ErrToolInputInvalid)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestBaseFlow_RoundValidatedBeforeAnyCallRuns(t *testing.T) {
	var calls int32

	m := model.NewScriptedModel("m", func(model.Request) (*model.Response, error) {
		return &model.Response{ToolCalls: []core.ToolCall{
			{ID: "1", Name: "uppercase", Arguments: `{"text":"ok"}`},
			{ID: "2", Name: "uppercase", Arguments: `{}`},
		}}, nil
	})
	f := NewBaseFlow(&testAgent{name: "shouter", model: m, tools: []tool.Tool{countingUppercase(&calls)}})

	_, err := f.Run(context.Background(), "x", nil)
	assert.ErrorIs(t, err, core.ErrToolInputInvalid)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestBaseFlow_UnknownToolIsInvalidInput(t *testing.T) {
	m := model.NewScriptedModel("m", model.Call("missing", `{}`))
	f := NewBaseFlow(&testAgent{name: "a", model: m})

	_, err := f.Run(context.Background(), "x", nil)
	require.Error(t, err)

	var e *core.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, core.CodeToolInputInvalid, e.Code)
	assert.Equal(t, "missing", e.Name)
}

func TestBaseFlow_DoesNotConverge(t *testing.T) {
	var calls int32

	m := model.NewScriptedModel("m", model.Call("uppercase", `{"text":"a"}`))
	m.Repeat = true

	f := NewBaseFlow(&testAgent{name: "loopy", model: m, tools: []tool.Tool{countingUppercase(&calls)}}, func(o *Options) {
		o.MaxRounds = 3
	})

	_, err := f.Run(context.Background(), "x", nil)
	assert.ErrorIs(t, err, core.ErrGenerationDidNotConverge)
	assert.Equal(t, 4, m.CallCount())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestBaseFlow_ToolFailureAborts(t *testing.T) {
	boom := tool.NewFunctionTool("boom", "fails", nil, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, errors.New("kaput")
	})

	m := model.NewScriptedModel("m", model.Call("boom", `{}`), model.Text("unreachable"))
	f := NewBaseFlow(&testAgent{name: "a", model: m, tools: []tool.Tool{boom}})

	_, err := f.Run(context.Background(), "x", nil)
	assert.ErrorIs(t, err, core.ErrToolExecutionFailed)
	assert.Equal(t, 1, m.CallCount())
}

func TestBaseFlow_ReportToolErrors(t *testing.T) {
	boom := tool.NewFunctionTool("boom", "fails", nil, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, errors.New("kaput")
	})

	m := model.NewScriptedModel("m",
		model.Call("boom", `{}`),
		model.Echo(func(s string) string { return "saw " + s }),
	)
	f := NewBaseFlow(&testAgent{name: "a", model: m, tools: []tool.Tool{boom}}, func(o *Options) {
		o.ReportToolErrors = true
	})

	res, err := f.Run(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "kaput")
	assert.Contains(t, res.Text, "TOOL_EXECUTION_FAILED")
}

func TestBaseFlow_PanicBecomesExecutionFailure(t *testing.T) {
	bad := tool.NewFunctionTool("bad", "panics", nil, func(*core.ToolContext, map[string]any) (any, error) {
		panic("oh no")
	})

	m := model.NewScriptedModel("m", model.Call("bad", `{}`))
	f := NewBaseFlow(&testAgent{name: "a", model: m, tools: []tool.Tool{bad}})

	_, err := f.Run(context.Background(), "x", nil)
	assert.ErrorIs(t, err, core.ErrToolExecutionFailed)
}

func TestBaseFlow_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := model.NewScriptedModel("m", model.Text("never"))
	f := NewBaseFlow(&testAgent{name: "a", model: m})

	_, err := f.Run(ctx, "x", nil)
	assert.ErrorIs(t, err, core.ErrCanceled)
	assert.Equal(t, 0, m.CallCount())
}

func TestBaseFlow_EmptyResponse(t *testing.T) {
	m := model.NewScriptedModel("m", model.Text(""))
	f := NewBaseFlow(&testAgent{name: "a", model: m})

	_, err := f.Run(context.Background(), "x", nil)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestBaseFlow_ProviderErrorClassified(t *testing.T) {
	m := model.NewScriptedModel("m", model.Fail(errors.New("connection refused")))
	f := NewBaseFlow(&testAgent{name: "a", model: m})

	_, err := f.Run(context.Background(), "x", nil)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestBaseFlow_InstructionFailureIsTyped(t *testing.T) {
	m := model.NewScriptedModel("m", model.Text("never"))
	f := NewBaseFlow(&testAgent{name: "a", model: m, instrErr: errors.New("template missing")})

	_, err := f.Run(context.Background(), "x", nil)
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.Equal(t, core.CodeProviderUnavailable, core.CodeOf(err))
	assert.Contains(t, err.Error(), "template missing")
	assert.Equal(t, 0, m.CallCount())
}

func TestBaseFlow_PriorTurnsSent(t *testing.T) {
	m := model.NewScriptedModel("m", model.Text("ok"))
	f := NewBaseFlow(&testAgent{name: "a", model: m})

	prior := []core.Turn{core.NewUserTurn("earlier"), core.NewAssistantTurn("reply")}

	res, err := f.Run(context.Background(), "now", prior)
	require.NoError(t, err)
	assert.Len(t, res.Turns, 2)

	req := m.Requests()[0]
	require.Len(t, req.Turns, 3)
	assert.Equal(t, "earlier", req.Turns[0].Text)
	assert.Equal(t, "now", req.Turns[2].Text)
}
