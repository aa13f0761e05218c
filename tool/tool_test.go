package tool

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newToolContext() *core.ToolContext {
	return core.NewToolContext(context.Background(), "fc1", "tester", logging.NoOpLogger{})
}

func sumTool(calls *atomic.Int32) *FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	return NewFunctionTool("sum", "Add numbers", params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		calls.Add(1)
		return args["a"].(float64) + args["b"].(float64), nil
	})
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	var calls atomic.Int32

	result, err := sumTool(&calls).Call(newToolContext(), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFunctionTool_InvalidInputNeverExecutes(t *testing.T) {
	var calls atomic.Int32

	tl := sumTool(&calls)

	_, err := tl.Call(newToolContext(), map[string]any{"a": 1.0})
	require.ErrorIs(t, err, core.ErrToolInputInvalid)

	_, err = tl.Call(newToolContext(), map[string]any{"a": "1", "b": 2.0})
	require.ErrorIs(t, err, core.ErrToolInputInvalid)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "a", vErr.Field)
	assert.Equal(t, int32(0), calls.Load())
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	tl := NewFunctionTool("fail", "Always fails", nil, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, errors.New("disk full")
	})

	result, err := tl.Call(newToolContext(), map[string]any{})
	assert.Nil(t, result)
	require.ErrorIs(t, err, core.ErrToolExecutionFailed)
	assert.Contains(t, err.Error(), "disk full")
}

func TestFunctionTool_OutputSchemaEnforced(t *testing.T) {
	tl := NewFunctionTool("copy", "Returns copy", nil, func(*core.ToolContext, map[string]any) (any, error) {
		return map[string]any{"text": "no copy field"}, nil
	}).WithOutputSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"copy": map[string]any{"type": "string"}},
		"required":   []string{"copy"},
	})

	result, err := tl.Call(newToolContext(), map[string]any{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, core.ErrToolExecutionFailed)
}

func TestFunctionTool_RequestScopedErrorsPassThrough(t *testing.T) {
	depth := core.MaxDepthExceeded([]core.Frame{{Kind: core.FrameAgent, Name: "a"}}, 0)

	tl := NewFunctionTool("nested", "Nested", nil, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, depth
	})

	_, err := tl.Call(newToolContext(), map[string]any{})
	assert.Equal(t, core.CodeMaxDepthExceeded, core.CodeOf(err))
}

func TestFunctionTool_NestedTypedErrorIsWrapped(t *testing.T) {
	tl := NewFunctionTool("outer", "Outer", nil, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, core.ToolInputInvalid("inner", errors.New("bad"))
	})

	_, err := tl.Call(newToolContext(), map[string]any{})
	assert.Equal(t, core.CodeToolExecutionFailed, core.CodeOf(err))
	assert.ErrorIs(t, err, core.ErrToolInputInvalid)
}

// -------------------- TypedTool Tests --------------------

type topicInput struct {
	Topic string `json:"topic" jsonschema:"description=Blog post subject"`
}

type copyOutput struct {
	Copy string `json:"copy"`
}

func TestTypedTool(t *testing.T) {
	tl := NewTyped("copywriter", "Write a post", func(_ *core.ToolContext, in topicInput) (copyOutput, error) {
		return copyOutput{Copy: "All about " + in.Topic}, nil
	})

	assert.Equal(t, []any{"topic"}, tl.Parameters()["required"])
	assert.NotNil(t, tl.OutputSchema())

	out, err := tl.Call(newToolContext(), map[string]any{"topic": "Go"})
	require.NoError(t, err)
	assert.Equal(t, copyOutput{Copy: "All about Go"}, out)

	_, err = tl.Call(newToolContext(), map[string]any{"topic": 42})
	assert.ErrorIs(t, err, core.ErrToolInputInvalid)
}

func TestTypedTool_FailureReturnsNoPartialResult(t *testing.T) {
	tl := NewTyped("editor", "Edit", func(_ *core.ToolContext, in copyOutput) (copyOutput, error) {
		return copyOutput{Copy: "half"}, errors.New("model refused")
	})

	out, err := tl.Call(newToolContext(), map[string]any{"copy": "x"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, core.ErrToolExecutionFailed)
}

// -------------------- Agent / Workflow Tools --------------------

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Name() string { return "copywriter" }

func (m *mockGenerator) Generate(ctx context.Context, input string, prior []core.Turn) (string, error) {
	args := m.Called(input)
	return args.String(0), args.Error(1)
}

func TestFromAgent(t *testing.T) {
	g := &mockGenerator{}
	g.On("Generate", "Create a blog post about Go").Return("Go is great.", nil)

	tl := FromAgent(g, func(o *AgentToolOptions) {
		o.Name = "copywriter-agent"
		o.Parameters = TextParameters("topic", "Blog post topic")
		o.Prompt = "Create a blog post about {{.topic}}"
		o.OutputField = "copy"
	})

	assert.Equal(t, "copywriter-agent", tl.Name())

	out, err := tl.Call(newToolContext(), map[string]any{"topic": "Go"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"copy": "Go is great."}, out)
	g.AssertExpectations(t)
}

func TestFromAgent_NestedFailure(t *testing.T) {
	g := &mockGenerator{}
	g.On("Generate", "hi").Return("", core.GenerationDidNotConverge("copywriter", 2))

	_, err := FromAgent(g).Call(newToolContext(), map[string]any{"text": "hi"})
	assert.ErrorIs(t, err, core.ErrToolExecutionFailed)
	assert.ErrorIs(t, err, core.ErrGenerationDidNotConverge)
}

type shareable struct{ URL string }

func (s shareable) Locator() string { return s.URL }

func TestFromWorkflow(t *testing.T) {
	wf, err := workflow.New("meme-generation", []workflow.Stage{
		workflow.Step("publish", func(_ context.Context, in string) (shareable, error) {
			return shareable{URL: "https://memes.test/" + strings.ReplaceAll(in, " ", "-")}, nil
		}),
	})
	require.NoError(t, err)

	tl := FromWorkflow(wf, nil)
	assert.Equal(t, "meme-generation", tl.Name())

	out, err := tl.Call(newToolContext(), map[string]any{"text": "slow builds"})
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, "https://memes.test/slow-builds", m["locator"])
	assert.Contains(t, m["message"], "https://memes.test/slow-builds")
}

func TestFromWorkflow_StageFailure(t *testing.T) {
	wf, err := workflow.New("broken", []workflow.Stage{
		{Name: "only", Run: func(context.Context, any) (any, error) { return nil, errors.New("nope") }},
	})
	require.NoError(t, err)

	_, err = FromWorkflow(wf, nil).Call(newToolContext(), map[string]any{"text": "x"})
	assert.Equal(t, core.CodeToolExecutionFailed, core.CodeOf(err))
	assert.ErrorIs(t, err, core.ErrWorkflowStageFailed)
}

func TestValidate_NilSchemaAcceptsAnything(t *testing.T) {
	tl := NewFunctionTool("free", "Free", nil, func(*core.ToolContext, map[string]any) (any, error) { return nil, nil })
	assert.NoError(t, Validate(tl, map[string]any{"anything": true}))
}
